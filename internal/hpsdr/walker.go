package hpsdr

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// walker drives a Reader across the payload and appends nodes to a Tree.
// The first short read is sticky: every later read is a no-op so decoders
// can be written as straight-line field lists.
type walker struct {
	r     *Reader
	tree  *Tree
	prefs Prefs
	stack []*Node
	err   error
	info  []string
}

func newWalker(payload []byte, prefs Prefs) *walker {
	t := newTree(payload, hfProtocol)
	return &walker{
		r:     NewReader(payload),
		tree:  t,
		prefs: prefs,
		stack: []*Node{t.Root},
	}
}

func (w *walker) parent() *Node { return w.stack[len(w.stack)-1] }

func (w *walker) failed() bool { return w.err != nil }

func (w *walker) infof(format string, args ...any) {
	w.info = append(w.info, fmt.Sprintf(format, args...))
}

func (w *walker) infoLine() string { return strings.Join(w.info, " ") }

// begin opens a container node at the cursor. end closes it and sets its
// length to the bytes consumed in between.
func (w *walker) begin(f *Field, text string) *Node {
	n := w.parent().add(&Node{Field: f, Offset: w.r.Offset(), Text: text})
	w.stack = append(w.stack, n)
	return n
}

func (w *walker) end() {
	n := w.parent()
	n.Length = w.r.Offset() - n.Offset
	if len(w.stack) > 1 {
		w.stack = w.stack[:len(w.stack)-1]
	}
}

// short records where decoding stopped and makes the walker inert.
func (w *walker) short(f *Field, want int) {
	if w.err != nil {
		return
	}
	w.err = fmt.Errorf("%w: %s needs %d bytes at offset %d, %d left",
		ErrShortRead, f.Label, want, w.r.Offset(), w.r.Remaining())
	n := w.parent().add(&Node{Field: hfMalformed, Offset: w.r.Offset(), Generated: true})
	n.Annotate(SeverityError, "Malformed Packet: %s truncated, %d of %d bytes", f.Label, w.r.Remaining(), want)
}

func (w *walker) leaf(f *Field, width int, v any) *Node {
	return w.parent().add(&Node{Field: f, Offset: w.r.Offset() - width, Length: width, Value: v})
}

// uint reads an integer of the field's wire width.
func (w *walker) uint(f *Field) (uint64, *Node) {
	return w.uintW(f, f.Type.Width())
}

// uintW reads an integer of an explicit width, for fields whose width is
// carried in the payload.
func (w *walker) uintW(f *Field, width int) (uint64, *Node) {
	if w.failed() {
		return 0, nil
	}
	v, err := w.r.Uint(width)
	if err != nil {
		w.short(f, width)
		return 0, nil
	}
	var val any = v
	if f.Type == TypeBool {
		val = v != 0
	}
	n := w.leaf(f, width, val)
	n.raw = v
	return v, n
}

// version reads a one-byte version number shown as v/10.v%10.
func (w *walker) version(f *Field) (uint64, *Node) {
	v, n := w.uint(f)
	if n != nil {
		n.Text = fmt.Sprintf("%s: %s (%d)", f.Label, FormatVersion(uint8(v)), v)
	}
	return v, n
}

// flags reads a byte (or wider word) and adds one masked boolean child per
// bit field.
func (w *walker) flags(f *Field, bitFields []*Field) (uint64, *Node) {
	v, n := w.uint(f)
	if n == nil {
		return 0, nil
	}
	for _, bf := range bitFields {
		n.add(&Node{Field: bf, Offset: n.Offset, Length: n.Length, Value: v&bf.Mask != 0, raw: v})
	}
	return v, n
}

func (w *walker) bytes(f *Field, n int) ([]byte, bool) {
	if w.failed() {
		return nil, false
	}
	b, err := w.r.Bytes(n)
	if err != nil {
		w.short(f, n)
		return nil, false
	}
	return b, true
}

func (w *walker) mac(f *Field) (net.HardwareAddr, *Node) {
	b, ok := w.bytes(f, 6)
	if !ok {
		return nil, nil
	}
	hw := net.HardwareAddr(b)
	return hw, w.leaf(f, 6, hw)
}

func (w *walker) ipv4(f *Field) (netip.Addr, *Node) {
	b, ok := w.bytes(f, 4)
	if !ok {
		return netip.Addr{}, nil
	}
	a := netip.AddrFrom4([4]byte(b))
	return a, w.leaf(f, 4, a)
}

func (w *walker) raw(f *Field, n int) *Node {
	b, ok := w.bytes(f, n)
	if !ok {
		return nil
	}
	return w.leaf(f, n, b)
}

// reserved reads an expected-zero region and warns when it is not.
func (w *walker) reserved(f *Field, n int) *Node {
	node := w.raw(f, n)
	if node != nil && !allZero(node.Value.([]byte)) {
		node.Annotate(SeverityWarn, "Reserved bytes not zero")
	}
	return node
}

// pad reads the trailing zero pad of expected length n. Under strict pad
// the full region must be present and zero; relaxed, one byte suffices.
func (w *walker) pad(f *Field, n int) *Node {
	if w.failed() {
		return nil
	}
	rem := w.r.Remaining()
	if !w.prefs.StrictPad {
		if rem < 1 {
			w.short(f, 1)
			return nil
		}
		return w.raw(f, min(n, rem))
	}
	if rem < n {
		node := w.raw(f, rem)
		node.Annotate(SeverityError, "Malformed Packet: padding is %d bytes, expected %d", rem, n)
		return node
	}
	node := w.raw(f, n)
	if !allZero(node.Value.([]byte)) {
		node.Annotate(SeverityError, "Malformed Packet: padding not zero")
	}
	return node
}

// extra claims any bytes past the decoded layout.
func (w *walker) extra() *Node {
	if w.failed() {
		return nil
	}
	rem := w.r.Remaining()
	if rem <= 0 {
		return nil
	}
	node := w.raw(hfExtra, rem)
	if w.prefs.StrictSize {
		node.Annotate(SeverityWarn, "Extra Length: %d extra bytes", rem)
	}
	return node
}

// generated adds a derived value that owns no payload bytes.
func (w *walker) generated(f *Field, v any) *Node {
	return w.parent().add(&Node{Field: f, Offset: w.r.Offset(), Value: v, Generated: true})
}

func (w *walker) note(format string, args ...any) *Node {
	return w.parent().add(&Node{
		Field:     hfNote,
		Offset:    w.r.Offset(),
		Text:      fmt.Sprintf(format, args...),
		Generated: true,
	})
}
