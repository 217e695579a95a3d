package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/treeterminus/internal/pipeline"
	"github.com/dusk-indust/treeterminus/internal/status"
)

func newStatusCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which stages each sample has completed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, map[string]string{
				"consensus.dirs": "dirs",
				"consensus.out":  "out",
			}); err != nil {
				return err
			}
			return runStatus(cmd, a)
		},
	}
	cmd.Flags().String("dirs", "", "directory holding the sample directories")
	cmd.Flags().String("out", "", "output prefix")
	return cmd
}

func runStatus(cmd *cobra.Command, a *app) error {
	if err := a.cfg.ValidateConsensus(); err != nil {
		return err
	}
	statuses, err := status.ScanOutputs(a.cfg.Consensus.Dirs, a.cfg.Consensus.Out)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(statuses) == 0 {
		fmt.Fprintln(w, "No samples found.")
		return nil
	}
	for _, st := range statuses {
		for _, stage := range []status.Stage{status.StageGroup, status.StageConsensus} {
			label := "complete"
			if missing := st.Missing(stage); len(missing) > 0 {
				label = "missing " + strings.Join(missing, ", ")
			}
			fmt.Fprintf(w, "%-30s %s\n", pipeline.FormatStageHeader(st.Name, stage), label)
		}
	}
	return nil
}
