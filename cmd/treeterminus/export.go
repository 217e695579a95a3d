package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/treeterminus/internal/errors"
	"github.com/dusk-indust/treeterminus/internal/export"
	"github.com/dusk-indust/treeterminus/internal/salmon"
	"github.com/dusk-indust/treeterminus/internal/tree"
)

type exportOptions struct {
	sample string
	group  string
	format string
}

func newExportCmd(a *app) *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render one group tree as Mermaid, JSON or Newick",
		Long: `Print the tree of a group written by a group run. --sample selects
<out>/<sample>; without it the pooled --mean_inf output under <out> is read.
Give --dirs to label leaves with transcript names.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, map[string]string{
				"consensus.dirs": "dirs",
				"consensus.out":  "out",
			}); err != nil {
				return err
			}
			return runExport(cmd.OutOrStdout(), a, opts)
		},
	}
	f := cmd.Flags()
	f.String("dirs", "", "directory holding the sample directories, used for transcript names")
	f.String("out", "", "output prefix")
	f.StringVar(&opts.sample, "sample", "", "sample name")
	f.StringVar(&opts.group, "group", "", "group id, e.g. 3_7")
	f.StringVar(&opts.format, "format", "mermaid", "output format: mermaid, json or newick")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}

func runExport(w io.Writer, a *app, opts exportOptions) error {
	out := a.cfg.Consensus.Out
	if out == "" {
		return errors.NewConfigError("--out is required", errors.ErrMissingInput)
	}
	id, err := tree.SortID(opts.group)
	if err != nil {
		return errors.NewConfigError(fmt.Sprintf("bad group id %q", opts.group), errors.ErrInvalidValue)
	}

	dir := out
	if opts.sample != "" {
		dir = filepath.Join(out, opts.sample)
	}
	groups, err := tree.LoadForest(filepath.Join(dir, export.ForestFile))
	if err != nil {
		return err
	}
	var g *tree.Node
	for _, n := range groups {
		if n.ID() == id {
			g = n
			break
		}
	}
	if g == nil {
		return errors.NewConfigError(fmt.Sprintf("group %s not found", id), errors.ErrMissingInput).
			WithPath(filepath.Join(dir, export.ForestFile))
	}

	names, err := targetNames(a.cfg.Consensus.Dirs)
	if err != nil {
		return err
	}
	splits := make(map[string]uint32)
	tree.Tally(g, splits)

	switch opts.format {
	case "mermaid":
		_, err = io.WriteString(w, export.Mermaid(g, export.MermaidOptions{Names: names, Support: splits}))
	case "json":
		err = export.WriteJSON(w, export.ExportGroup(opts.sample, g, names, splits))
	case "newick":
		_, err = fmt.Fprintln(w, g.Newick())
	default:
		return errors.NewConfigError(fmt.Sprintf("unknown format %q, want mermaid, json or newick", opts.format), errors.ErrInvalidValue)
	}
	return err
}

// targetNames reads the target names of the first sample under dirs, or
// returns nil when dirs is empty.
func targetNames(dirs string) ([]string, error) {
	if dirs == "" {
		return nil, nil
	}
	sampleDirs := []string{dirs}
	if !salmon.IsSampleDir(dirs) {
		var err error
		if sampleDirs, err = salmon.SampleDirs(dirs); err != nil {
			return nil, err
		}
		if len(sampleDirs) == 0 {
			return nil, errors.NewConfigError("no sample directories found", errors.ErrMissingInput).WithPath(dirs)
		}
	}
	eq, err := salmon.ReadEqClassesFile(salmon.NewLayout(sampleDirs[0]).EqFile)
	if err != nil {
		return nil, err
	}
	return eq.Targets, nil
}
