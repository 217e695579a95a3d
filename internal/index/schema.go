package index

import "strconv"

// GroupKind tells per-sample groups from cross-sample super-groups.
type GroupKind string

const (
	GroupKindSample GroupKind = "sample"
	GroupKindMerged GroupKind = "merged"
)

// EdgeKind classifies relationships between nodes.
type EdgeKind string

const (
	EdgeKindMemberOf   EdgeKind = "MEMBER_OF"   // transcript -> group
	EdgeKindMergedInto EdgeKind = "MERGED_INTO" // sample group -> super-group
)

// TranscriptNode is one target of the equivalence-class universe.
type TranscriptNode struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// GroupNode is a sample group or a super-group.
type GroupNode struct {
	Key    string    `json:"key"`
	ID     string    `json:"id"`
	Sample string    `json:"sample,omitempty"`
	Kind   GroupKind `json:"kind"`
	Size   int       `json:"size"`
	Newick string    `json:"newick,omitempty"`
}

// Edge connects two nodes by key. Transcript keys are their decimal index.
type Edge struct {
	SourceID string   `json:"sourceId"`
	TargetID string   `json:"targetId"`
	Kind     EdgeKind `json:"kind"`
}

// IndexStats summarizes a group index.
type IndexStats struct {
	TranscriptCount  int `json:"transcriptCount"`
	SampleGroupCount int `json:"sampleGroupCount"`
	MergedGroupCount int `json:"mergedGroupCount"`
	EdgeCount        int `json:"edgeCount"`
}

// GroupKey is the key of group id within sample.
func GroupKey(sample, id string) string {
	return sample + "/" + id
}

// MergedKey is the key of super-group id.
func MergedKey(id string) string {
	return "merged:" + id
}

// TranscriptKey is the edge endpoint of transcript t.
func TranscriptKey(t int) string {
	return strconv.Itoa(t)
}
