// Package export writes the artifacts of the group and consensus stages and
// renders group trees for inspection.
package export

import (
	"bufio"
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/dusk-indust/treeterminus/internal/aggregate"
	"github.com/dusk-indust/treeterminus/internal/collapse"
	"github.com/dusk-indust/treeterminus/internal/graph"
	"github.com/dusk-indust/treeterminus/internal/tree"
)

// Per-sample artifact names.
const (
	ForestFile    = "group_order.json"
	GroupsFile    = "groups.txt"
	CollapseLog   = "collapse.log"
	DeltaLog      = "delta.log"
	GoldenLog     = "golden_collapses.log"
	AlleleLog     = "allele_collapses.log"
	GroupNewick   = "group_nwk.txt"
	ParamsFile    = "params.json"
	SplitsFile    = "group_bp_splits.txt"
	MergedNewick  = "mgroup_nwk.txt"
	ClusterNewick = "cluster_nwk.txt"
)

// Cross-sample artifact names.
const (
	MergedGroupsFile = "merged_groups.txt"
	MergedSplitsFile = "merged_bp_splits.txt"
)

// Params is the run record written to params.json.
type Params struct {
	Seed                uint64  `json:"seed"`
	Tolerance           float64 `json:"tolerance"`
	MinSpread           float64 `json:"min_spread"`
	MeanInf             bool    `json:"mean_inf"`
	ThrBool             bool    `json:"thr_bool"`
	InpDir              string  `json:"inp_dir"`
	OutDir              string  `json:"out_dir"`
	AlleleMode          bool    `json:"allele_mode"`
	TxpMode             bool    `json:"txp_mode"`
	InfPerc             float64 `json:"inf_perc"`
	P                   float64 `json:"p"`
	Thr                 float64 `json:"thr"`
	NumTargets          int     `json:"ntxps"`
	ConnectedComponents int     `json:"connected_components"`
	NumCollapses        int     `json:"ncollapses"`
}

// WriteFile hands a buffered writer to fn and moves the result to path
// once fn and the flush succeed. On failure path is left untouched.
func WriteFile(path string, fn func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	tmp := f.Name()
	fail := func(err error) error {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}

	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		return fail(err)
	}
	if err := bw.Flush(); err != nil {
		return fail(err)
	}
	if err := f.Chmod(0o644); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteGroups writes one line per group with its members, ascending and
// comma-separated.
func WriteGroups(w io.Writer, groups []*tree.Node) error {
	for _, g := range groups {
		if _, err := fmt.Fprintln(w, strings.ReplaceAll(g.ID(), "_", ",")); err != nil {
			return err
		}
	}
	return nil
}

// WriteMergeLog writes one line per merge: the new group, both merged
// groups, the score and both spreads.
func WriteMergeLog(w io.Writer, events []collapse.MergeEvent) error {
	for _, ev := range events {
		_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%g\t%g\n",
			ev.Group, ev.Left, ev.Right, ev.Score, ev.LeftSpread, ev.RightSpread)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteDeltaLog writes the initial score of every edge.
func WriteDeltaLog(w io.Writer, g *graph.Graph) error {
	for _, e := range g.Edges {
		if _, err := fmt.Fprintf(w, "%d\t%d\t%g\n", e.Source, e.Target, e.Score); err != nil {
			return err
		}
	}
	return nil
}

// WriteEdgeLog writes the endpoints, weight difference and shared reads of
// every edge accepted by keep.
func WriteEdgeLog(w io.Writer, g *graph.Graph, keep func(graph.Edge) bool) error {
	for _, e := range g.Edges {
		if !keep(e) {
			continue
		}
		if _, err := fmt.Fprintf(w, "%d\t%d\t%g\t%d\n", e.Source, e.Target, e.WeightDiff, e.Shared); err != nil {
			return err
		}
	}
	return nil
}

// WriteNewick writes one Newick tree per group.
func WriteNewick(w io.Writer, groups []*tree.Node) error {
	var buf []byte
	for _, g := range groups {
		buf = g.AppendBody(buf[:0])
		buf = append(buf, ';', '\n')
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// WriteLines writes each line followed by a newline.
func WriteLines(w io.Writer, lines []string) error {
	for _, l := range lines {
		if _, err := io.WriteString(w, l+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// WriteParams encodes p as a single JSON object.
func WriteParams(w io.Writer, p Params) error {
	return json.NewEncoder(w).Encode(p)
}

// ReadParams decodes a params.json file.
func ReadParams(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Params
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &p, nil
}

// WriteSplits writes a bipartition table as "group\tsplit\tcount" lines,
// groups ordered by anchor and splits by size then anchor. When names is
// set a fourth column lists the transcript names of the split.
func WriteSplits(w io.Writer, b tree.Bipartitions, names []string) error {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareIDs)
	for _, k := range keys {
		splits := make([]string, 0, len(b[k]))
		for s := range b[k] {
			splits = append(splits, s)
		}
		slices.SortFunc(splits, func(x, y string) int {
			return cmp.Or(cmp.Compare(strings.Count(x, "_"), strings.Count(y, "_")), compareIDs(x, y))
		})
		for _, s := range splits {
			line := fmt.Sprintf("%s\t%s\t%d", k, s, b[k][s])
			if names != nil {
				labels, err := splitNames(s, names)
				if err != nil {
					return err
				}
				line += "\t" + labels
			}
			if _, err := io.WriteString(w, line+"\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

func splitNames(split string, names []string) (string, error) {
	ids, err := tree.ParseID(split)
	if err != nil {
		return "", err
	}
	out := make([]string, len(ids))
	for i, t := range ids {
		if t < 0 || t >= len(names) {
			return "", fmt.Errorf("split %s names target %d, only %d targets known", split, t, len(names))
		}
		out[i] = names[t]
	}
	return strings.Join(out, ","), nil
}

// WriteMergedGroups writes one line per super-group: its id followed by a
// tab-separated sample name and comma-separated group ids for every sample.
func WriteMergedGroups(w io.Writer, groups []*aggregate.SuperGroup) error {
	for _, sg := range groups {
		var sb strings.Builder
		sb.WriteString(sg.ID)
		for _, v := range sg.Samples {
			sb.WriteString("\t" + v.Sample + "\t")
			for i, g := range v.Groups {
				if i > 0 {
					sb.WriteByte(',')
				}
				sb.WriteString(g.ID())
			}
		}
		sb.WriteByte('\n')
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

// compareIDs orders canonical ids by anchor, then lexically.
func compareIDs(a, b string) int {
	return cmp.Or(cmp.Compare(anchorOf(a), anchorOf(b)), cmp.Compare(a, b))
}

func anchorOf(id string) int {
	head, _, _ := strings.Cut(id, "_")
	n, err := strconv.Atoi(head)
	if err != nil {
		return -1
	}
	return n
}
