package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/treeterminus/internal/aggregate"
	"github.com/dusk-indust/treeterminus/internal/config"
	"github.com/dusk-indust/treeterminus/internal/consensus"
	"github.com/dusk-indust/treeterminus/internal/errors"
	"github.com/dusk-indust/treeterminus/internal/export"
	"github.com/dusk-indust/treeterminus/internal/logging"
	"github.com/dusk-indust/treeterminus/internal/salmon"
	"github.com/dusk-indust/treeterminus/internal/status"
	"github.com/dusk-indust/treeterminus/internal/tree"
)

// ConsensusResult summarises a consensus run.
type ConsensusResult struct {
	Samples   []string
	Names     []string // target names of the first sample
	Aggregate *aggregate.Result
	// Consensus holds one tree per super-group, empty where synthesis
	// failed.
	Consensus []string
	// Failures lists the super-groups left without a consensus tree.
	Failures []*errors.SynthesisError
}

// Inputs are the grouped samples read back from a group run.
type Inputs struct {
	Samples []aggregate.SampleForest
	Names   []string
}

// LoadInputs reads the target names of the first sample under samplesDir
// and the forest of every sample under out. Every sample must have been
// grouped.
func LoadInputs(ctx context.Context, samplesDir, out string, workers int) (*Inputs, error) {
	statuses, err := status.ScanOutputs(samplesDir, out)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, errors.NewConfigError("no sample directories found", errors.ErrMissingInput).WithPath(samplesDir)
	}
	if err := status.RequireGrouped(statuses); err != nil {
		return nil, err
	}

	dirs, err := salmon.SampleDirs(samplesDir)
	if err != nil {
		return nil, err
	}
	eq, err := salmon.ReadEqClassesFile(salmon.NewLayout(dirs[0]).EqFile)
	if err != nil {
		return nil, err
	}

	in := &Inputs{
		Samples: make([]aggregate.SampleForest, len(statuses)),
		Names:   eq.Targets,
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(workers, 1))
	for i, st := range statuses {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			groups, err := tree.LoadForest(filepath.Join(st.Dir, export.ForestFile))
			if err != nil {
				return err
			}
			in.Samples[i] = aggregate.SampleForest{Name: st.Name, Groups: groups}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

// RunConsensus merges the groupings of every sample under
// cfg.Consensus.Dirs and synthesizes one consensus tree per super-group. A
// synthesis failure is logged and skips only the affected super-group.
func RunConsensus(ctx context.Context, cfg *config.Config, synth consensus.Synthesizer, log *logging.Logger, onProgress func(ProgressEvent)) (*ConsensusResult, error) {
	if err := cfg.ValidateConsensus(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.NopLogger()
	}
	if synth == nil {
		synth = consensus.New(cfg.Consensus.Consense, cfg.Consensus.Timeout)
	}
	log = log.WithPhase(status.StageConsensus.String())
	progress := emitter(onProgress)
	kc := cfg.Consensus

	in, err := LoadInputs(ctx, kc.Dirs, kc.Out, cfg.Workers)
	if err != nil {
		return nil, err
	}
	for _, s := range in.Samples {
		log.WithSample(s.Name).Info("groups read", "groups", len(s.Groups))
	}

	agg, err := aggregate.Merge(ctx, in.Samples, aggregate.Options{NumTargets: len(in.Names), Workers: cfg.Workers})
	if err != nil {
		return nil, err
	}
	log.Info("merged groups", "count", len(agg.Groups))

	res := &ConsensusResult{
		Names:     in.Names,
		Aggregate: agg,
		Consensus: make([]string, len(agg.Groups)),
	}
	for _, s := range in.Samples {
		res.Samples = append(res.Samples, s.Name)
	}

	failures := make([]*errors.SynthesisError, len(agg.Groups))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(cfg.Workers, 1))
	for i, sg := range agg.Groups {
		progress.emit(status.StageConsensus, sg.ID, ProgressPending, "")
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			progress.emit(status.StageConsensus, sg.ID, ProgressWorking, "")
			out, err := synth.Synthesize(gctx, sg.Trees())
			if err != nil {
				if gctx.Err() != nil && !errors.Is(err, errors.ErrTimeout) {
					return gctx.Err()
				}
				failures[i] = errors.NewSynthesisError(sg.ID, err)
				log.Warn("consensus skipped", "group", sg.ID, "error", err.Error())
				progress.emit(status.StageConsensus, sg.ID, ProgressFailed, err.Error())
				return nil
			}
			res.Consensus[i] = out
			progress.emit(status.StageConsensus, sg.ID, ProgressComplete, "")
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	for _, f := range failures {
		if f != nil {
			res.Failures = append(res.Failures, f)
		}
	}
	if len(res.Failures) > 0 {
		log.Warn("super-groups without consensus", "count", len(res.Failures))
	}

	if err := writeConsensusArtifacts(kc.Out, in.Samples, res); err != nil {
		return nil, err
	}
	return res, nil
}

func writeConsensusArtifacts(out string, samples []aggregate.SampleForest, res *ConsensusResult) error {
	agg := res.Aggregate
	for si, s := range samples {
		dir := filepath.Join(out, s.Name)
		if err := export.WriteFile(filepath.Join(dir, export.SplitsFile), func(w io.Writer) error {
			return export.WriteSplits(w, agg.PerSample[si], res.Names)
		}); err != nil {
			return err
		}
		trees := make([]string, len(agg.Groups))
		for gi, sg := range agg.Groups {
			trees[gi] = sg.Samples[si].Tree
		}
		if err := export.WriteFile(filepath.Join(dir, export.MergedNewick), func(w io.Writer) error {
			return export.WriteLines(w, trees)
		}); err != nil {
			return err
		}
	}

	var cons []string
	for _, c := range res.Consensus {
		if c != "" {
			cons = append(cons, c)
		}
	}
	files := []struct {
		name string
		fn   func(io.Writer) error
	}{
		{export.MergedGroupsFile, func(w io.Writer) error { return export.WriteMergedGroups(w, agg.Groups) }},
		{export.ClusterNewick, func(w io.Writer) error { return export.WriteLines(w, cons) }},
		{export.MergedSplitsFile, func(w io.Writer) error { return export.WriteSplits(w, agg.Merged, res.Names) }},
	}
	for _, f := range files {
		if err := export.WriteFile(filepath.Join(out, f.name), f.fn); err != nil {
			return fmt.Errorf("consensus artifacts: %w", err)
		}
	}
	return nil
}
