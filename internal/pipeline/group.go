package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/dusk-indust/treeterminus/internal/collapse"
	"github.com/dusk-indust/treeterminus/internal/config"
	"github.com/dusk-indust/treeterminus/internal/errors"
	"github.com/dusk-indust/treeterminus/internal/export"
	"github.com/dusk-indust/treeterminus/internal/graph"
	"github.com/dusk-indust/treeterminus/internal/logging"
	"github.com/dusk-indust/treeterminus/internal/salmon"
	"github.com/dusk-indust/treeterminus/internal/stats"
	"github.com/dusk-indust/treeterminus/internal/status"
	"github.com/dusk-indust/treeterminus/internal/tree"
)

// GroupResult summarises a group run.
type GroupResult struct {
	OutDir   string
	Samples  []string
	Params   export.Params
	Graph    *graph.Graph
	Collapse *collapse.Result
}

// RunGroup collapses the sample at cfg.Group.Dir, or every sample below it
// when cfg.Group.MeanInf is set, and writes the per-sample artifacts.
func RunGroup(ctx context.Context, cfg *config.Config, log *logging.Logger, onProgress func(ProgressEvent)) (*GroupResult, error) {
	if err := cfg.ValidateGroup(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.NopLogger()
	}
	log = log.WithPhase(status.StageGroup.String())
	progress := emitter(onProgress)
	gc := cfg.Group

	dirs, outDir, err := groupInputs(gc)
	if err != nil {
		return nil, err
	}
	log.Info("input configuration",
		"seed", gc.Seed,
		"min_spread", gc.MinSpread,
		"tolerance", gc.Tolerance,
		"dir", gc.Dir,
		"out", outDir,
		"mean_inf", gc.MeanInf,
		"samples", len(dirs))

	samples, err := loadSamples(ctx, dirs, cfg.Workers, log, progress)
	if err != nil {
		return nil, err
	}

	eq := samples[0].Eq
	reps := make([]*mat.Dense, len(samples))
	names := make([]string, len(samples))
	for i, s := range samples {
		reps[i] = s.Replicates
		names[i] = s.Name
		if i > 0 {
			if err := eq.Append(s.Eq); err != nil {
				return nil, err
			}
		}
	}

	var alleles, genes *salmon.Mapping
	if gc.A2T != "" {
		if alleles, err = salmon.ReadMapping(gc.A2T, eq.TargetIndex()); err != nil {
			return nil, err
		}
		log.Info("alleles collapse within transcripts", "a2t", gc.A2T, "transcripts", len(alleles.Names))
	}
	if gc.T2G != "" {
		if genes, err = salmon.ReadMapping(gc.T2G, eq.TargetIndex()); err != nil {
			return nil, err
		}
		log.Info("edges restricted to genes", "t2g", gc.T2G, "genes", len(genes.Names))
	}
	if alleles != nil && genes != nil {
		if err := salmon.CheckNested(alleles, genes); err != nil {
			return nil, err
		}
	}

	p := stats.MinPercentile(reps, gc.InfPerc)
	log.Info("infRV percentile", "inf_perc", gc.InfPerc, "p", p)
	thr := stats.NoThreshold
	if gc.Threshold {
		thr = stats.MeanThreshold(reps, p, gc.Seed)
	}
	log.Info("threshold", "thr", thr)

	g, err := graph.Build(graph.Options{
		Classes:    eq,
		Replicates: reps,
		P:          p,
		Tolerance:  gc.Tolerance,
		Genes:      genes,
		Alleles:    alleles,
	})
	if err != nil {
		return nil, err
	}
	if err := g.Verify(eq.Len()); err != nil {
		return nil, err
	}
	log.Info("graph built", "targets", len(g.Nodes), "edges", len(g.Edges))

	res, err := collapse.Run(ctx, g, reps, collapse.Options{
		Threshold: thr,
		MinSpread: gc.MinSpread,
		Workers:   cfg.Workers,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}
	log.Info("connected components", "count", res.Components)
	log.Info("collapses", "count", res.NumCollapses, "groups", len(res.Groups))

	params := export.Params{
		Seed:                gc.Seed,
		Tolerance:           gc.Tolerance,
		MinSpread:           gc.MinSpread,
		MeanInf:             gc.MeanInf,
		ThrBool:             gc.Threshold,
		InpDir:              gc.Dir,
		OutDir:              outDir,
		AlleleMode:          alleles != nil,
		TxpMode:             genes != nil,
		InfPerc:             gc.InfPerc,
		P:                   p,
		Thr:                 thr,
		NumTargets:          eq.NumTargets(),
		ConnectedComponents: res.Components,
		NumCollapses:        res.NumCollapses,
	}
	if err := writeGroupArtifacts(outDir, gc.MeanInf, g, res, params); err != nil {
		return nil, err
	}
	progress.emit(status.StageGroup, filepath.Base(outDir), ProgressComplete,
		fmt.Sprintf("%d groups from %d collapses", len(res.Groups), res.NumCollapses))

	return &GroupResult{
		OutDir:   outDir,
		Samples:  names,
		Params:   params,
		Graph:    g,
		Collapse: res,
	}, nil
}

// groupInputs resolves the sample directories and output directory of a
// group run.
func groupInputs(gc config.GroupConfig) ([]string, string, error) {
	if !gc.MeanInf {
		return []string{gc.Dir}, filepath.Join(gc.Out, filepath.Base(filepath.Clean(gc.Dir))), nil
	}
	if salmon.IsSampleDir(gc.Dir) {
		return nil, "", errors.NewConfigError(
			"directory holds a single sample; pass its parent or set mean_inf to false",
			errors.ErrInvalidValue).WithPath(gc.Dir)
	}
	dirs, err := salmon.SampleDirs(gc.Dir)
	if err != nil {
		return nil, "", err
	}
	if len(dirs) == 0 {
		return nil, "", errors.NewConfigError("no sample directories found", errors.ErrMissingInput).WithPath(gc.Dir)
	}
	return dirs, gc.Out, nil
}

func loadSamples(ctx context.Context, dirs []string, workers int, log *logging.Logger, progress emitter) ([]*salmon.Sample, error) {
	samples := make([]*salmon.Sample, len(dirs))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(workers, 1))
	for i, dir := range dirs {
		name := filepath.Base(dir)
		progress.emit(status.StageGroup, name, ProgressPending, "")
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			progress.emit(status.StageGroup, name, ProgressWorking, "")
			s, err := salmon.LoadSample(dir)
			if err != nil {
				progress.emit(status.StageGroup, name, ProgressFailed, err.Error())
				return err
			}
			r, c := s.Replicates.Dims()
			log.WithSample(name).Info("sample loaded", "targets", r, "replicates", c, "classes", s.Eq.Len())
			samples[i] = s
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	for _, s := range samples[1:] {
		if s.Eq.NumTargets() != samples[0].Eq.NumTargets() {
			return nil, errors.NewConfigError(
				fmt.Sprintf("sample %s lists %d targets, sample %s lists %d",
					s.Name, s.Eq.NumTargets(), samples[0].Name, samples[0].Eq.NumTargets()),
				errors.ErrCountMismatch)
		}
	}
	return samples, nil
}

func writeGroupArtifacts(dir string, meanInf bool, g *graph.Graph, res *collapse.Result, params export.Params) error {
	nwk := export.GroupNewick
	if meanInf {
		nwk = export.ClusterNewick
	}
	writers := []struct {
		name string
		fn   func(io.Writer) error
	}{
		{export.ForestFile, func(w io.Writer) error { return tree.WriteForest(w, res.Groups) }},
		{export.GroupsFile, func(w io.Writer) error { return export.WriteGroups(w, res.Groups) }},
		{export.CollapseLog, func(w io.Writer) error { return export.WriteMergeLog(w, res.Events) }},
		{export.DeltaLog, func(w io.Writer) error { return export.WriteDeltaLog(w, g) }},
		{export.GoldenLog, func(w io.Writer) error {
			return export.WriteEdgeLog(w, g, func(e graph.Edge) bool { return e.Golden })
		}},
		{export.AlleleLog, func(w io.Writer) error {
			return export.WriteEdgeLog(w, g, func(e graph.Edge) bool { return e.Allele })
		}},
		{nwk, func(w io.Writer) error { return export.WriteNewick(w, res.Groups) }},
		{export.ParamsFile, func(w io.Writer) error { return export.WriteParams(w, params) }},
	}
	for _, wr := range writers {
		if err := export.WriteFile(filepath.Join(dir, wr.name), wr.fn); err != nil {
			return err
		}
	}
	return nil
}
