package hpsdr

import (
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
)

// AnnotationView is the serialisable form of an Annotation.
type AnnotationView struct {
	Severity string `json:"severity" yaml:"severity"`
	Message  string `json:"message" yaml:"message"`
}

// NodeView is the serialisable form of a Node.
type NodeView struct {
	Abbrev      string           `json:"abbrev,omitempty" yaml:"abbrev,omitempty"`
	Display     string           `json:"display" yaml:"display"`
	Offset      int              `json:"offset" yaml:"offset"`
	Length      int              `json:"length" yaml:"length"`
	Value       any              `json:"value,omitempty" yaml:"value,omitempty"`
	Generated   bool             `json:"generated,omitempty" yaml:"generated,omitempty"`
	Annotations []AnnotationView `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Children    []NodeView       `json:"children,omitempty" yaml:"children,omitempty"`
}

// ResultView is the serialisable form of a Result.
type ResultView struct {
	Subprotocol string   `json:"subprotocol" yaml:"subprotocol"`
	Index       *int     `json:"index,omitempty" yaml:"index,omitempty"`
	Direction   string   `json:"direction" yaml:"direction"`
	SrcPort     uint16   `json:"src_port" yaml:"src_port"`
	DstPort     uint16   `json:"dst_port" yaml:"dst_port"`
	Info        string   `json:"info" yaml:"info"`
	MaxSeverity string   `json:"max_severity" yaml:"max_severity"`
	Tree        NodeView `json:"tree" yaml:"tree"`
}

// View converts a node and its subtree.
func (n *Node) View() NodeView {
	v := NodeView{
		Abbrev:    n.Abbrev(),
		Display:   n.Display(),
		Offset:    n.Offset,
		Length:    n.Length,
		Value:     viewValue(n.Value),
		Generated: n.Generated,
	}
	for _, a := range n.Annotations {
		v.Annotations = append(v.Annotations, AnnotationView{Severity: a.Severity.String(), Message: a.Message})
	}
	for _, c := range n.Children {
		v.Children = append(v.Children, c.View())
	}
	return v
}

func viewValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return hex.EncodeToString(x)
	case fmt.Stringer:
		return x.String()
	}
	return v
}

// View converts the result for JSON or YAML encoding.
func (r *Result) View() ResultView {
	v := ResultView{
		Subprotocol: r.Sub.String(),
		Direction:   r.Direction.String(),
		SrcPort:     r.SrcPort,
		DstPort:     r.DstPort,
		Info:        r.Info,
	}
	if r.Index >= 0 {
		idx := r.Index
		v.Index = &idx
	}
	if r.Tree != nil {
		v.MaxSeverity = r.Tree.MaxSeverity().String()
		v.Tree = r.Tree.Root.View()
	}
	return v
}

// TextOptions tunes WriteText.
type TextOptions struct {
	// Indent is repeated once per tree level. Defaults to four spaces.
	Indent string
	// MaxChildren elides entries of repeated lists, such as samples, past
	// this count; zero prints all.
	MaxChildren int
	// Bits prints masked boolean children.
	Bits bool
}

// WriteText prints a tree the way a protocol analyser's detail pane shows
// it, one node per line with annotations below their node.
func WriteText(w io.Writer, t *Tree, opts TextOptions) error {
	if opts.Indent == "" {
		opts.Indent = "    "
	}
	var b strings.Builder
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		pad := strings.Repeat(opts.Indent, depth)
		b.WriteString(pad)
		b.WriteString(n.Display())
		b.WriteByte('\n')
		for _, a := range n.Annotations {
			fmt.Fprintf(&b, "%s%s%s\n", pad, opts.Indent, a)
		}
		var shown []*Node
		for _, c := range n.Children {
			if !opts.Bits && c.Field != nil && c.Field.Mask != 0 && len(c.Annotations) == 0 {
				continue
			}
			shown = append(shown, c)
		}
		if opts.MaxChildren > 0 && len(shown) > opts.MaxChildren && repeated(n) {
			for _, c := range shown[:opts.MaxChildren] {
				visit(c, depth+1)
			}
			fmt.Fprintf(&b, "%s%s... %d more\n", pad, opts.Indent, len(shown)-opts.MaxChildren)
			return
		}
		for _, c := range shown {
			visit(c, depth+1)
		}
	}
	if t != nil && t.Root != nil {
		visit(t.Root, 0)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// repeated reports whether every child of n is an instance of one field,
// as in a sample list. Only such lists are elided.
func repeated(n *Node) bool {
	if len(n.Children) == 0 || n.Children[0].Field == nil {
		return false
	}
	f := n.Children[0].Field
	for _, c := range n.Children[1:] {
		if c.Field != f {
			return false
		}
	}
	return true
}

// FieldView is the serialisable form of a field descriptor.
type FieldView struct {
	ID     int               `json:"id" yaml:"id"`
	Abbrev string            `json:"abbrev" yaml:"abbrev"`
	Label  string            `json:"label" yaml:"label"`
	Type   string            `json:"type" yaml:"type"`
	Mask   string            `json:"mask,omitempty" yaml:"mask,omitempty"`
	Labels map[uint64]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// Views lists every registered descriptor, optionally restricted to those
// whose abbreviation starts with prefix.
func (r *Registry) Views(prefix string) []FieldView {
	var out []FieldView
	for _, f := range r.fields {
		if prefix != "" && !strings.HasPrefix(f.Abbrev, prefix) && !strings.HasPrefix(f.Abbrev, AbbrevPrefix+"."+prefix) {
			continue
		}
		v := FieldView{ID: int(f.ID), Abbrev: f.Abbrev, Label: f.Label, Type: f.Type.String(), Labels: f.Labels}
		if f.Mask != 0 {
			v.Mask = fmt.Sprintf("0x%02x", f.Mask)
		}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
