package salmon

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dusk-indust/treeterminus/internal/errors"
)

// EqClasses holds equivalence classes in compressed-row form: the members
// of class i are Labels[Offsets[i]:Offsets[i+1]] with the matching Weights.
type EqClasses struct {
	Targets []string
	Offsets []int
	Labels  []int
	Weights []float64
	Counts  []uint32
}

// NumTargets returns the size of the target universe.
func (e *EqClasses) NumTargets() int {
	return len(e.Targets)
}

// Len returns the number of classes.
func (e *EqClasses) Len() int {
	return len(e.Counts)
}

// Class returns the members, weights and read count of class i. The slices
// alias internal storage.
func (e *EqClasses) Class(i int) ([]int, []float64, uint32) {
	lo, hi := e.Offsets[i], e.Offsets[i+1]
	return e.Labels[lo:hi], e.Weights[lo:hi], e.Counts[i]
}

// TargetIndex maps target names to their indices.
func (e *EqClasses) TargetIndex() map[string]int {
	idx := make(map[string]int, len(e.Targets))
	for i, name := range e.Targets {
		idx[name] = i
	}
	return idx
}

// Append concatenates the classes of other, which must cover the same
// targets in the same order.
func (e *EqClasses) Append(other *EqClasses) error {
	if len(other.Targets) != len(e.Targets) {
		return errors.NewConfigError(
			fmt.Sprintf("number of targets %d differs from %d in the first sample", len(other.Targets), len(e.Targets)),
			errors.ErrCountMismatch)
	}
	for i := range e.Targets {
		if e.Targets[i] != other.Targets[i] {
			return errors.NewConfigError(
				fmt.Sprintf("target %d is %q, want %q as in the first sample", i, other.Targets[i], e.Targets[i]),
				errors.ErrCountMismatch)
		}
	}
	base := e.Offsets[len(e.Offsets)-1]
	for _, off := range other.Offsets[1:] {
		e.Offsets = append(e.Offsets, base+off)
	}
	e.Labels = append(e.Labels, other.Labels...)
	e.Weights = append(e.Weights, other.Weights...)
	e.Counts = append(e.Counts, other.Counts...)
	return nil
}

// ReadEqClassesFile parses an equivalence class file, gunzipping it when the
// name ends in .gz.
func ReadEqClassesFile(path string) (*EqClasses, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewConfigError("cannot open equivalence class file", errors.ErrMissingInput).WithPath(path)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.NewParseError(fmt.Sprintf("gzip: %v", err), errors.ErrMalformedInput).WithPath(path)
		}
		defer gz.Close()
		r = gz
	}
	eq, err := ReadEqClasses(r)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			return nil, pe.WithPath(path)
		}
		return nil, err
	}
	return eq, nil
}

// ReadEqClasses parses the salmon text format: the number of targets, the
// number of classes, one target name per line, then one line per class
// holding k, k labels, optionally k weights, and the read count. Classes
// without weights give each member 1/k.
func ReadEqClasses(r io.Reader) (*EqClasses, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<28)
	line := 0
	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		line++
		return strings.TrimSpace(sc.Text()), true
	}
	fail := func(format string, args ...any) error {
		return errors.NewParseError(fmt.Sprintf(format, args...), errors.ErrMalformedInput).WithLine(line)
	}

	header := make([]int, 2)
	for i, what := range []string{"number of targets", "number of classes"} {
		s, ok := next()
		if !ok {
			return nil, fail("missing %s", what)
		}
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			return nil, fail("invalid %s %q", what, s)
		}
		header[i] = v
	}
	ntargets, nclasses := header[0], header[1]

	eq := &EqClasses{
		Targets: make([]string, 0, ntargets),
		Offsets: make([]int, 1, nclasses+1),
		Counts:  make([]uint32, 0, nclasses),
	}
	for len(eq.Targets) < ntargets {
		s, ok := next()
		if !ok {
			return nil, fail("expected %d target names, found %d", ntargets, len(eq.Targets))
		}
		eq.Targets = append(eq.Targets, s)
	}

	for c := 0; c < nclasses; c++ {
		s, ok := next()
		if !ok {
			return nil, fail("expected %d classes, found %d", nclasses, c)
		}
		fields := strings.Fields(s)
		if len(fields) < 2 {
			return nil, fail("class line has %d fields", len(fields))
		}
		k, err := strconv.Atoi(fields[0])
		if err != nil || k < 1 {
			return nil, fail("invalid class size %q", fields[0])
		}
		weighted := false
		switch len(fields) {
		case k + 2:
		case 2*k + 2:
			weighted = true
		default:
			return nil, fail("class of size %d has %d fields", k, len(fields))
		}
		for j := 1; j <= k; j++ {
			t, err := strconv.Atoi(fields[j])
			if err != nil || t < 0 || t >= ntargets {
				return nil, fail("invalid target label %q", fields[j])
			}
			eq.Labels = append(eq.Labels, t)
			w := 1 / float64(k)
			if weighted {
				w, err = strconv.ParseFloat(fields[k+j], 64)
				if err != nil {
					return nil, fail("invalid weight %q", fields[k+j])
				}
			}
			eq.Weights = append(eq.Weights, w)
		}
		count, err := strconv.ParseUint(fields[len(fields)-1], 10, 32)
		if err != nil {
			return nil, fail("invalid read count %q", fields[len(fields)-1])
		}
		eq.Counts = append(eq.Counts, uint32(count))
		eq.Offsets = append(eq.Offsets, len(eq.Labels))
	}
	if err := sc.Err(); err != nil {
		return nil, fail("%v", err)
	}
	return eq, nil
}
