// Package salmon reads the per-sample quantification outputs consumed by
// the group stage: equivalence classes, run metadata, inferential replicate
// matrices and the optional allele/gene mapping files.
package salmon

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dusk-indust/treeterminus/internal/errors"
)

// Layout locates the quantification files of one sample directory.
type Layout struct {
	Dir       string
	EqFile    string
	MetaFile  string
	Bootstrap string
	Quant     string
}

// NewLayout resolves the file names under dir. The compressed equivalence
// class file is preferred when both forms exist.
func NewLayout(dir string) Layout {
	eq := filepath.Join(dir, "aux_info", "eq_classes.txt.gz")
	if _, err := os.Stat(eq); err != nil {
		eq = filepath.Join(dir, "aux_info", "eq_classes.txt")
	}
	return Layout{
		Dir:       dir,
		EqFile:    eq,
		MetaFile:  filepath.Join(dir, "aux_info", "meta_info.json"),
		Bootstrap: filepath.Join(dir, "aux_info", "bootstrap", "bootstraps.gz"),
		Quant:     filepath.Join(dir, "quant.sf"),
	}
}

// Name returns the sample name, the last element of the directory path.
func (l Layout) Name() string {
	return filepath.Base(filepath.Clean(l.Dir))
}

// Check reports the first required file that is missing.
func (l Layout) Check() error {
	for _, p := range []string{l.EqFile, l.MetaFile, l.Bootstrap} {
		if _, err := os.Stat(p); err != nil {
			return errors.NewConfigError("sample "+l.Name()+" is missing a quantification file", errors.ErrMissingInput).
				WithPath(p)
		}
	}
	return nil
}

// IsSampleDir reports whether dir directly holds a quant.sf file.
func IsSampleDir(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "quant.sf"))
	return err == nil
}

// SampleDirs lists the immediate subdirectories of dir in name order,
// skipping hidden entries.
func SampleDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewConfigError("cannot list sample directories", errors.ErrMissingInput).WithPath(dir)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	slices.Sort(out)
	return out, nil
}
