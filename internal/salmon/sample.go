package salmon

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/dusk-indust/treeterminus/internal/errors"
)

// Sample is one quantified sample loaded into memory.
type Sample struct {
	Name       string
	Eq         *EqClasses
	Meta       *MetaInfo
	Replicates *mat.Dense // targets x replicates
}

// LoadSample reads the equivalence classes, metadata and replicates of the
// sample at dir.
func LoadSample(dir string) (*Sample, error) {
	l := NewLayout(dir)
	if err := l.Check(); err != nil {
		return nil, err
	}
	mi, err := ReadMetaInfo(l.MetaFile)
	if err != nil {
		return nil, err
	}
	eq, err := ReadEqClassesFile(l.EqFile)
	if err != nil {
		return nil, err
	}
	if eq.NumTargets() != mi.NumValidTargets {
		return nil, errors.NewConfigError(
			fmt.Sprintf("meta info lists %d targets, equivalence classes list %d", mi.NumValidTargets, eq.NumTargets()),
			errors.ErrCountMismatch).WithPath(l.MetaFile)
	}
	reps, err := ReadBootstrapsFile(l.Bootstrap, mi)
	if err != nil {
		return nil, err
	}
	return &Sample{Name: l.Name(), Eq: eq, Meta: mi, Replicates: reps}, nil
}
