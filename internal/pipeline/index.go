package pipeline

import (
	"context"

	"github.com/dusk-indust/treeterminus/internal/aggregate"
	"github.com/dusk-indust/treeterminus/internal/config"
	"github.com/dusk-indust/treeterminus/internal/index"
	"github.com/dusk-indust/treeterminus/internal/logging"
)

// IndexConsensus loads the outcome of a consensus run into store.
func IndexConsensus(ctx context.Context, store index.Store, res *ConsensusResult, log *logging.Logger) error {
	if err := index.Populate(ctx, store, res.Names, res.Aggregate, res.Consensus); err != nil {
		return err
	}
	return logStats(ctx, store, log)
}

// IndexOutputs rebuilds the group index from the per-sample forests of
// earlier group runs, without consensus trees.
func IndexOutputs(ctx context.Context, cfg *config.Config, store index.Store, log *logging.Logger) error {
	if err := cfg.ValidateConsensus(); err != nil {
		return err
	}
	in, err := LoadInputs(ctx, cfg.Consensus.Dirs, cfg.Consensus.Out, cfg.Workers)
	if err != nil {
		return err
	}
	agg, err := aggregate.Merge(ctx, in.Samples, aggregate.Options{NumTargets: len(in.Names), Workers: cfg.Workers})
	if err != nil {
		return err
	}
	if err := index.Populate(ctx, store, in.Names, agg, nil); err != nil {
		return err
	}
	return logStats(ctx, store, log)
}

func logStats(ctx context.Context, store index.Store, log *logging.Logger) error {
	if log == nil {
		return nil
	}
	st, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	log.Info("group index built",
		"transcripts", st.TranscriptCount,
		"sample_groups", st.SampleGroupCount,
		"merged_groups", st.MergedGroupCount,
		"edges", st.EdgeCount)
	return nil
}
