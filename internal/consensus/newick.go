package consensus

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/treeterminus/internal/errors"
)

// Clade is a node of a parsed Newick tree. Leaves have no children.
type Clade struct {
	Name     string
	Length   string
	Children []*Clade
}

// IsLeaf reports whether c has no children.
func (c *Clade) IsLeaf() bool { return len(c.Children) == 0 }

// Leaves returns the names of the leaves under c, left to right.
func (c *Clade) Leaves() []string {
	var out []string
	stack := []*Clade{c}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.IsLeaf() {
			if n.Name != "" {
				out = append(out, n.Name)
			}
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return out
}

const delims = "(),:;"

// ParseNewick parses a single semicolon-terminated Newick tree. Internal
// labels and branch lengths are kept verbatim. The parser is iterative, so
// nesting depth is unbounded.
func ParseNewick(s string) (*Clade, error) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, ";") {
		return nil, malformed(len(s), "missing trailing semicolon")
	}
	s = s[:len(s)-1]

	var (
		root   *Clade
		last   *Clade
		closed bool
		stack  []*Clade
	)
	attach := func(c *Clade, at int) error {
		switch {
		case len(stack) > 0:
			top := stack[len(stack)-1]
			top.Children = append(top.Children, c)
		case root == nil:
			root = c
		default:
			return malformed(at, "more than one root")
		}
		return nil
	}

	for i := 0; i < len(s); {
		switch c := s[i]; {
		case c == '(':
			n := &Clade{}
			if err := attach(n, i); err != nil {
				return nil, err
			}
			stack = append(stack, n)
			last, closed = nil, false
			i++
		case c == ',':
			if len(stack) == 0 {
				return nil, malformed(i, "comma outside brackets")
			}
			last, closed = nil, false
			i++
		case c == ')':
			if len(stack) == 0 {
				return nil, malformed(i, "unbalanced closing bracket")
			}
			last, closed = stack[len(stack)-1], true
			stack = stack[:len(stack)-1]
			i++
		case c == ':':
			j := scan(s, i+1)
			if last == nil {
				return nil, malformed(i, "branch length without a node")
			}
			last.Length = s[i+1 : j]
			i = j
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == ';':
			return nil, malformed(i, "semicolon before end of tree")
		default:
			j := scan(s, i)
			name := strings.TrimSpace(s[i:j])
			if closed && last != nil && last.Name == "" {
				last.Name = name
			} else {
				leaf := &Clade{Name: name}
				if err := attach(leaf, i); err != nil {
					return nil, err
				}
				last, closed = leaf, false
			}
			i = j
		}
	}
	if len(stack) != 0 {
		return nil, malformed(len(s), "unbalanced opening bracket")
	}
	if root == nil {
		return nil, malformed(0, "empty tree")
	}
	return root, nil
}

func scan(s string, i int) int {
	for i < len(s) && !strings.ContainsRune(delims, rune(s[i])) {
		i++
	}
	return i
}

func malformed(offset int, msg string) error {
	return errors.NewParseError(fmt.Sprintf("newick offset %d: %s", offset, msg), errors.ErrMalformedInput)
}
