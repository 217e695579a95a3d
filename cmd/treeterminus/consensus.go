package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/treeterminus/internal/config"
	"github.com/dusk-indust/treeterminus/internal/pipeline"
	"github.com/dusk-indust/treeterminus/internal/status"
)

func newConsensusCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consensus",
		Short: "Merge the groups of all samples and build consensus trees",
		Long: `Read the groups of every sample grouped under --out, join overlapping
groups across samples into super-groups and build one consensus tree per
super-group. Without --consense a built-in majority-rule consensus is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, map[string]string{
				"consensus.dirs":     "dirs",
				"consensus.out":      "out",
				"consensus.consense": "consense",
				"consensus.timeout":  "timeout",
				"consensus.index":    "index",
			}); err != nil {
				return err
			}
			return runConsensus(cmd, a)
		},
	}

	d := config.Default().Consensus
	f := cmd.Flags()
	f.String("dirs", "", "directory holding the sample directories")
	f.String("out", "", "output prefix used by the group runs")
	f.String("consense", "", "external consensus program")
	f.Duration("timeout", d.Timeout, "time limit of one consensus program call")
	f.String("index", "", "also write the groups into a kuzu database at this path")
	return cmd
}

func runConsensus(cmd *cobra.Command, a *app) error {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, pipeline.FormatStageHeader(a.cfg.Consensus.Dirs, status.StageConsensus))

	emit, stop := progressPrinter(w)
	res, err := pipeline.RunConsensus(cmd.Context(), a.cfg, nil, a.log, emit)
	stop()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d samples, %d merged groups, %d without consensus\n",
		len(res.Samples), len(res.Aggregate.Groups), len(res.Failures))

	if path := a.cfg.Consensus.Index; path != "" {
		store, err := openIndex(path)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := pipeline.IndexConsensus(cmd.Context(), store, res, a.log); err != nil {
			return err
		}
		fmt.Fprintf(w, "group index written to %s\n", path)
	}
	return nil
}
