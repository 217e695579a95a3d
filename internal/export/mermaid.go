package export

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/treeterminus/internal/tree"
)

// MermaidOptions controls node labels.
type MermaidOptions struct {
	// Names maps target indices to display names; leaves fall back to
	// their index.
	Names []string
	// Support annotates internal nodes with their bipartition count.
	Support map[string]uint32
}

// Mermaid renders a group tree as a Mermaid graph TD diagram. Node ids
// follow the order of first mention. Internal nodes are labelled with their
// canonical id and leaves with their target name.
func Mermaid(root *tree.Node, opts MermaidOptions) string {
	ids := make(map[*tree.Node]string)
	getID := func(n *tree.Node) string {
		if id, ok := ids[n]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", len(ids))
		ids[n] = id
		return id
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")
	tree.Walk(root, func(n *tree.Node) {
		id := getID(n)
		if n.IsLeaf() {
			fmt.Fprintf(&sb, "  %s([\"%s\"])\n", id, escape(leafLabel(n.Target(), opts.Names)))
			return
		}
		label := n.ID()
		if c, ok := opts.Support[label]; ok {
			label = fmt.Sprintf("%.40s (%d)", label, c)
		} else {
			label = fmt.Sprintf("%.40s", label)
		}
		fmt.Fprintf(&sb, "  %s[\"%s\"]\n", id, escape(label))
		fmt.Fprintf(&sb, "  %s --> %s\n", id, getID(n.Left()))
		fmt.Fprintf(&sb, "  %s --> %s\n", id, getID(n.Right()))
	})
	return sb.String()
}

func leafLabel(t int, names []string) string {
	if t >= 0 && t < len(names) && names[t] != "" {
		return names[t]
	}
	return fmt.Sprint(t)
}

// escape replaces characters that end a quoted Mermaid label.
func escape(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
