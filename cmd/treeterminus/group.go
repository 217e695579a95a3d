package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/treeterminus/internal/config"
	"github.com/dusk-indust/treeterminus/internal/pipeline"
	"github.com/dusk-indust/treeterminus/internal/status"
)

func newGroupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Collapse the transcripts of one sample into groups",
		Long: `Build the similarity graph of a quantified sample and greedily merge
transcripts whose pooled inferential variance drops, writing the resulting
group trees under <out>/<sample>. With --mean_inf every sample below --dir
is pooled and the artifacts go to <out> directly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, map[string]string{
				"group.dir":        "dir",
				"group.out":        "out",
				"group.min_spread": "min-spread",
				"group.tolerance":  "tolerance",
				"group.seed":       "seed",
				"group.a2t":        "a2t",
				"group.t2g":        "t2g",
				"group.thr":        "thr",
				"group.mean_inf":   "mean_inf",
				"group.inf_perc":   "inf_perc",
			}); err != nil {
				return err
			}
			return runGroup(cmd, a)
		},
	}

	d := config.Default().Group
	f := cmd.Flags()
	f.String("dir", "", "sample directory, or the directory of all samples with --mean_inf")
	f.String("out", "", "output prefix")
	f.Float64("min-spread", d.MinSpread, "minimum spread a group needs to take part in a merge")
	f.Float64("tolerance", d.Tolerance, "largest weight difference of a tied transcript pair")
	f.Uint64("seed", d.Seed, "seed of the threshold sampler")
	f.String("a2t", "", "allele to transcript map; alleles collapse within their transcript")
	f.String("t2g", "", "transcript to gene map; edges stay within a gene")
	f.Bool("thr", d.Threshold, "derive a merge threshold from random transcript pairs")
	f.Bool("mean_inf", d.MeanInf, "pool every sample below --dir")
	f.Float64("inf_perc", d.InfPerc, "infRV percentile below which transcripts are ignored")
	// Both take an explicit value, so "--mean_inf false" works as well as
	// "--mean_inf=false".
	for _, name := range []string{"thr", "mean_inf"} {
		f.Lookup(name).NoOptDefVal = ""
	}
	return cmd
}

func runGroup(cmd *cobra.Command, a *app) error {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, pipeline.FormatStageHeader(a.cfg.Group.Dir, status.StageGroup))

	emit, stop := progressPrinter(w)
	res, err := pipeline.RunGroup(cmd.Context(), a.cfg, a.log, emit)
	stop()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%d targets, %d components, %d collapses into %d groups\n",
		res.Params.NumTargets, res.Params.ConnectedComponents, res.Params.NumCollapses, len(res.Collapse.Groups))
	fmt.Fprintf(w, "artifacts written to %s\n", res.OutDir)
	return nil
}
