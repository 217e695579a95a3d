package tree

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/dusk-indust/treeterminus/internal/errors"
)

// SortByAnchor orders group trees by their lowest target index, keeping the
// input order of ties.
func SortByAnchor(groups []*Node) {
	slices.SortStableFunc(groups, func(a, b *Node) int {
		return a.anchor - b.anchor
	})
}

// WriteForest encodes groups as a JSON object mapping each group id to its
// tree. Nodes are objects {"id": ..., "left": ..., "right": ...}; leaves
// carry null children. Groups are written in anchor order.
func WriteForest(w io.Writer, groups []*Node) error {
	ordered := slices.Clone(groups)
	SortByAnchor(ordered)

	bw := bufio.NewWriter(w)
	bw.WriteByte('{')
	for i, g := range ordered {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteString(strconv.Quote(g.ID()))
		bw.WriteByte(':')
		writeNode(bw, g)
	}
	bw.WriteByte('}')
	return bw.Flush()
}

func writeNode(bw *bufio.Writer, n *Node) {
	type item struct {
		node *Node
		lit  string
	}
	stack := []item{{node: n}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch {
		case it.node == nil:
			bw.WriteString(it.lit)
		case it.node.IsLeaf():
			fmt.Fprintf(bw, `{"id":"%d","left":null,"right":null}`, it.node.target)
		default:
			fmt.Fprintf(bw, `{"id":"%s","left":`, it.node.ID())
			stack = append(stack,
				item{lit: "}"},
				item{node: it.node.right},
				item{lit: `,"right":`},
				item{node: it.node.left},
			)
		}
	}
}

// ReadForest decodes a forest written by WriteForest and returns the group
// trees in file order. Every stored id must match the leaves beneath it,
// every group holds at least two targets and no target belongs to two
// groups. Decoding is driven by a token stream, so tree depth is unbounded.
func ReadForest(r io.Reader) ([]*Node, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	var groups []*Node
	owner := make(map[int]string)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, corrupt(dec, "reading group key: %v", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, corrupt(dec, "group key is %v, want string", tok)
		}
		n, err := decodeNode(dec)
		if err != nil {
			return nil, err
		}
		want, err := SortID(key)
		if err != nil {
			return nil, corrupt(dec, "%v", err)
		}
		if got := n.ID(); got != want {
			return nil, corrupt(dec, "group key %q does not match its tree %q", key, got)
		}
		if n.IsLeaf() {
			return nil, corrupt(dec, "group %s has a single target", want)
		}
		for _, t := range n.Leaves() {
			if prev, dup := owner[t]; dup {
				return nil, corrupt(dec, "target %d is in groups %s and %s", t, prev, want)
			}
			owner[t] = want
		}
		groups = append(groups, n)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return groups, nil
}

// LoadForest reads a forest file.
func LoadForest(path string) ([]*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewConfigError("cannot open forest file", errors.ErrMissingInput).WithPath(path)
	}
	defer f.Close()

	groups, err := ReadForest(f)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			return nil, pe.WithPath(path)
		}
		return nil, err
	}
	return groups, nil
}

type frame struct {
	id    string
	hasID bool
	left  *Node
	right *Node
	field string
}

func (f *frame) build(dec *json.Decoder) (*Node, error) {
	if !f.hasID {
		return nil, corrupt(dec, "node without id")
	}
	switch {
	case f.left == nil && f.right == nil:
		t, err := strconv.Atoi(f.id)
		if err != nil || t < 0 {
			return nil, corrupt(dec, "leaf id %q is not a target index", f.id)
		}
		return Leaf(t), nil
	case f.left == nil || f.right == nil:
		return nil, corrupt(dec, "node %q has a single child", f.id)
	}
	n := Join(f.left, f.right)
	want, err := SortID(f.id)
	if err != nil {
		return nil, corrupt(dec, "%v", err)
	}
	if got := n.ID(); got != want {
		return nil, corrupt(dec, "node id %q does not match its leaves %q", f.id, got)
	}
	return n, nil
}

func decodeNode(dec *json.Decoder) (*Node, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	stack := []*frame{{}}
	for {
		top := stack[len(stack)-1]
		if !dec.More() {
			if err := expectDelim(dec, '}'); err != nil {
				return nil, err
			}
			n, err := top.build(dec)
			if err != nil {
				return nil, err
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return n, nil
			}
			parent := stack[len(stack)-1]
			if parent.field == "left" {
				parent.left = n
			} else {
				parent.right = n
			}
			parent.field = ""
			continue
		}

		tok, err := dec.Token()
		if err != nil {
			return nil, corrupt(dec, "%v", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, corrupt(dec, "field name is %v, want string", tok)
		}
		switch key {
		case "id":
			tok, err := dec.Token()
			if err != nil {
				return nil, corrupt(dec, "%v", err)
			}
			switch v := tok.(type) {
			case string:
				top.id = v
			case json.Number:
				top.id = v.String()
			default:
				return nil, corrupt(dec, "id is %v, want string", tok)
			}
			top.hasID = true
		case "left", "right":
			tok, err := dec.Token()
			if err != nil {
				return nil, corrupt(dec, "%v", err)
			}
			if tok == nil {
				continue
			}
			if d, ok := tok.(json.Delim); ok && d == '{' {
				top.field = key
				stack = append(stack, &frame{})
				continue
			}
			return nil, corrupt(dec, "child %q is %v, want object or null", key, tok)
		default:
			if err := skipValue(dec); err != nil {
				return nil, err
			}
		}
	}
}

func skipValue(dec *json.Decoder) error {
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return corrupt(dec, "%v", err)
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
		if depth == 0 {
			return nil
		}
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return corrupt(dec, "expected %q: %v", want, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return corrupt(dec, "expected %q, found %v", want, tok)
	}
	return nil
}

func corrupt(dec *json.Decoder, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return errors.NewParseError(fmt.Sprintf("offset %d: %s", dec.InputOffset(), msg), errors.ErrCorruptArtifact)
}
