package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/dusk-indust/treeterminus/internal/tree"
)

// GroupExport is the JSON view of one group tree.
type GroupExport struct {
	ID         string            `json:"id"`
	Sample     string            `json:"sample,omitempty"`
	ExportedAt string            `json:"exportedAt"`
	Size       int               `json:"size"`
	Members    []MemberExport    `json:"members"`
	Newick     string            `json:"newick"`
	Splits     map[string]uint32 `json:"splits,omitempty"`
}

// MemberExport names one target of a group.
type MemberExport struct {
	Index int    `json:"index"`
	Name  string `json:"name,omitempty"`
}

// ExportGroup builds the JSON view of n. names and splits are optional.
func ExportGroup(sample string, n *tree.Node, names []string, splits map[string]uint32) *GroupExport {
	g := &GroupExport{
		ID:         n.ID(),
		Sample:     sample,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Size:       n.Size(),
		Newick:     n.Newick(),
		Splits:     splits,
	}
	for _, t := range n.Leaves() {
		m := MemberExport{Index: t}
		if t < len(names) {
			m.Name = names[t]
		}
		g.Members = append(g.Members, m)
	}
	return g
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
