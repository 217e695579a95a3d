package salmon

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/dusk-indust/treeterminus/internal/errors"
)

// Mapping assigns targets to a coarser entity (allele to transcript, or
// transcript to gene).
type Mapping struct {
	// Of holds the entity index of every target, or -1 when unmapped.
	Of []int
	// Names lists entity names by index, in order of first appearance.
	Names []string
	// Members lists the targets of each entity in ascending order.
	Members [][]int
	// Covered counts the mapped targets.
	Covered int
}

// Same reports whether targets a and b map to the same entity.
func (m *Mapping) Same(a, b int) bool {
	return m.Of[a] >= 0 && m.Of[a] == m.Of[b]
}

// ReadMapping parses a two-column "target entity" file against the target
// universe of the equivalence classes. Unknown targets, conflicting
// assignments and incomplete coverage are configuration errors.
func ReadMapping(path string, targets map[string]int) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewConfigError("cannot open mapping file", errors.ErrMissingInput).WithPath(path)
	}
	defer f.Close()

	m := &Mapping{Of: make([]int, len(targets))}
	for i := range m.Of {
		m.Of[i] = -1
	}
	entities := make(map[string]int)

	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if len(fields) < 2 {
			return nil, errors.NewConfigError(fmt.Sprintf("line %d has %d columns, want 2", line, len(fields)), errors.ErrInvalidMapping).
				WithPath(path)
		}
		t, ok := targets[fields[0]]
		if !ok {
			return nil, errors.NewConfigError(fmt.Sprintf("line %d: target %q not in equivalence class file", line, fields[0]), errors.ErrInvalidMapping).
				WithPath(path)
		}
		e, ok := entities[fields[1]]
		if !ok {
			e = len(m.Names)
			entities[fields[1]] = e
			m.Names = append(m.Names, fields[1])
			m.Members = append(m.Members, nil)
		}
		switch prev := m.Of[t]; {
		case prev == e:
			continue
		case prev >= 0:
			return nil, errors.NewConfigError(
				fmt.Sprintf("line %d: target %q mapped to both %q and %q", line, fields[0], m.Names[prev], fields[1]),
				errors.ErrInvalidMapping).WithPath(path)
		}
		m.Of[t] = e
		m.Covered++
	}
	if err := sc.Err(); err != nil {
		return nil, errors.NewConfigError(err.Error(), errors.ErrInvalidMapping).WithPath(path)
	}
	for t, e := range m.Of {
		if e >= 0 {
			m.Members[e] = append(m.Members[e], t)
		}
	}
	if m.Covered != len(targets) {
		return nil, errors.NewConfigError(
			fmt.Sprintf("number of mapped targets %d not equal to number of targets in eq class file %d", m.Covered, len(targets)),
			errors.ErrCountMismatch).WithPath(path)
	}
	return m, nil
}

// CheckNested verifies that every allele group of alleles lies within a
// single gene of genes, i.e. the two partitions are consistent.
func CheckNested(alleles, genes *Mapping) error {
	if len(alleles.Of) != len(genes.Of) {
		return errors.NewConfigError(
			fmt.Sprintf("number of alleles %d not equal to number of txps %d", len(alleles.Of), len(genes.Of)),
			errors.ErrCountMismatch)
	}
	for e, members := range alleles.Members {
		for _, t := range members[1:] {
			if !genes.Same(members[0], t) {
				return errors.NewConfigError(
					fmt.Sprintf("transcript %q spans genes %q and %q", alleles.Names[e], genes.Names[genes.Of[members[0]]], genes.Names[genes.Of[t]]),
					errors.ErrInvalidMapping)
			}
		}
	}
	return nil
}
