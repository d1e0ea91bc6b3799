package hpsdr

import (
	"fmt"
	"sort"
	"strings"
)

// Severity grades a diagnostic annotation.
type Severity uint8

const (
	SeverityNone Severity = iota
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	}
	return "none"
}

// ParseSeverity converts "warn"/"error" (case-insensitive) to a Severity.
// The empty string yields SeverityNone.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return SeverityNone, nil
	case "warn", "warning":
		return SeverityWarn, nil
	case "error":
		return SeverityError, nil
	}
	return SeverityNone, fmt.Errorf("hpsdr: unknown severity %q", s)
}

// Annotation is a diagnostic attached to a node.
type Annotation struct {
	Severity Severity
	Message  string
}

func (a Annotation) String() string {
	return fmt.Sprintf("[%s] %s", a.Severity, a.Message)
}

// Node is one decoded field. Offset and Length locate it in the payload;
// generated nodes carry derived values and own no payload bytes.
type Node struct {
	Field       *Field
	Offset      int
	Length      int
	Value       any
	Text        string
	Generated   bool
	Annotations []Annotation
	Children    []*Node

	raw uint64
}

// Abbrev returns the filter name of the node's field.
func (n *Node) Abbrev() string {
	if n.Field == nil {
		return ""
	}
	return n.Field.Abbrev
}

// Uint returns the value as an unsigned integer. Booleans map to 0/1.
func (n *Node) Uint() uint64 {
	switch v := n.Value.(type) {
	case uint64:
		return v
	case bool:
		if v {
			return 1
		}
	}
	return 0
}

// Display renders the node's one-line label.
func (n *Node) Display() string {
	if n.Text != "" {
		return n.Text
	}
	if n.Field == nil {
		return ""
	}
	f := n.Field
	switch {
	case f.Type == TypeBanner:
		return f.Label
	case f.Mask != 0:
		return fmt.Sprintf("%s = %s: %s", bitLine(f.Mask, n.Length, n.raw), f.Label, f.Format(n.Value))
	}
	s := fmt.Sprintf("%s: %s", f.Label, f.Format(n.Value))
	if n.Generated {
		s = "[" + s + "]"
	}
	return s
}

// Annotate attaches a diagnostic to the node.
func (n *Node) Annotate(sev Severity, format string, args ...any) {
	n.Annotations = append(n.Annotations, Annotation{Severity: sev, Message: fmt.Sprintf(format, args...)})
}

func (n *Node) add(c *Node) *Node {
	n.Children = append(n.Children, c)
	return c
}

func (n *Node) ownsBytes() bool {
	if n.Generated || n.Length <= 0 {
		return false
	}
	return n.Field == nil || n.Field.Mask == 0
}

// IsLeaf reports whether the node owns payload bytes that no child claims.
func (n *Node) IsLeaf() bool {
	if !n.ownsBytes() {
		return false
	}
	for _, c := range n.Children {
		if c.ownsBytes() {
			return false
		}
	}
	return true
}

// Tree is the decoded form of one datagram.
type Tree struct {
	Root    *Node
	payload []byte
}

func newTree(payload []byte, root *Field) *Tree {
	return &Tree{
		Root:    &Node{Field: root, Length: len(payload)},
		payload: payload,
	}
}

// Payload returns the bytes the tree was decoded from.
func (t *Tree) Payload() []byte { return t.payload }

// Walk visits nodes in pre-order. Returning false from fn skips the
// node's children.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	if t.Root != nil {
		visit(t.Root, 0)
	}
}

// Leaves returns every byte-owning leaf ordered by offset.
func (t *Tree) Leaves() []*Node {
	var out []*Node
	t.Walk(func(n *Node, _ int) bool {
		if n.IsLeaf() {
			out = append(out, n)
		}
		return true
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// Bytes re-emits the payload from the leaf layout. For a well-formed
// datagram it equals the decoded input.
func (t *Tree) Bytes() []byte {
	var out []byte
	for _, n := range t.Leaves() {
		end := n.Offset + n.Length
		if n.Offset < 0 || end > len(t.payload) {
			continue
		}
		out = append(out, t.payload[n.Offset:end]...)
	}
	return out
}

// Annotations collects every annotation in pre-order.
func (t *Tree) Annotations() []Annotation {
	var out []Annotation
	t.Walk(func(n *Node, _ int) bool {
		out = append(out, n.Annotations...)
		return true
	})
	return out
}

// MaxSeverity returns the highest annotation severity in the tree.
func (t *Tree) MaxSeverity() Severity {
	max := SeverityNone
	for _, a := range t.Annotations() {
		if a.Severity > max {
			max = a.Severity
		}
	}
	return max
}

// Find returns the first node whose field abbreviation matches. The
// AbbrevPrefix may be omitted.
func (t *Tree) Find(abbrev string) *Node {
	all := t.FindAll(abbrev)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// FindAll returns every node whose field abbreviation matches.
func (t *Tree) FindAll(abbrev string) []*Node {
	if !strings.HasPrefix(abbrev, AbbrevPrefix+".") && abbrev != AbbrevPrefix {
		abbrev = AbbrevPrefix + "." + abbrev
	}
	var out []*Node
	t.Walk(func(n *Node, _ int) bool {
		if n.Abbrev() == abbrev {
			out = append(out, n)
		}
		return true
	})
	return out
}
