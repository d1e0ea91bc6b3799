package hpsdr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotOpenHPSDR is returned when a datagram is declined.
	ErrNotOpenHPSDR = errors.New("hpsdr: not an openHPSDR-Ethernet datagram")
	// ErrTruncated is returned with a partial tree when the payload is
	// shorter than the minimum of the identified subprotocol.
	ErrTruncated = errors.New("hpsdr: payload truncated")
)

// usbOverIP marks the Protocol-1 (Metis) framing sharing port 1024.
const usbOverIP = 0xEFFE

// Subprotocol identifies one of the eleven message families.
type Subprotocol uint8

const (
	SubNone Subprotocol = iota
	SubCommandReply
	SubDDCCommand
	SubHPStatus
	SubDUCCommand
	SubMicLine
	SubHPCommand
	SubWideband
	SubDDCAudio
	SubDUCIQ
	SubDDCIQ
	SubMemory
)

type subInfo struct {
	short string
	long  string
	min   int
}

var subInfos = map[Subprotocol]subInfo{
	SubCommandReply: {"cr", "Command Reply", 5},
	SubDDCCommand:   {"ddcc", "DDC Command", 4},
	SubHPStatus:     {"hps", "High Priority Status", 4},
	SubDUCCommand:   {"ducc", "DUC Command", 4},
	SubMicLine:      {"micl", "Mic Line", 4},
	SubHPCommand:    {"hpc", "High Priority Command", 4},
	SubWideband:     {"wbd", "Wideband Data", 4},
	SubDDCAudio:     {"ddca", "DDC Audio", 4},
	SubDUCIQ:        {"duciq", "DUC I&Q", 4},
	SubDDCIQ:        {"ddciq", "DDC I&Q", 16},
	SubMemory:       {"mem", "Memory Mapped", 4},
}

// String returns the short filter name, e.g. "ddciq".
func (s Subprotocol) String() string {
	if i, ok := subInfos[s]; ok {
		return i.short
	}
	return "none"
}

// Name returns the display name, e.g. "DDC I&Q".
func (s Subprotocol) Name() string {
	if i, ok := subInfos[s]; ok {
		return i.long
	}
	return "Unknown"
}

// MinLen returns the minimum payload length the subprotocol needs to
// identify itself.
func (s Subprotocol) MinLen() int { return subInfos[s].min }

// Subprotocols returns every subprotocol in dispatch order.
func Subprotocols() []Subprotocol {
	return []Subprotocol{
		SubCommandReply, SubDDCCommand, SubHPStatus, SubDUCCommand, SubMicLine,
		SubHPCommand, SubWideband, SubDDCAudio, SubDUCIQ, SubDDCIQ, SubMemory,
	}
}

// ParseSubprotocol accepts the short name of a subprotocol.
func ParseSubprotocol(name string) (Subprotocol, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range Subprotocols() {
		if s.String() == name {
			return s, nil
		}
	}
	return SubNone, fmt.Errorf("hpsdr: unknown subprotocol %q", name)
}

// Direction of a datagram relative to the radio.
type Direction uint8

const (
	HostToHW Direction = iota + 1
	HWToHost
)

func (d Direction) String() string {
	switch d {
	case HostToHW:
		return "host->hw"
	case HWToHost:
		return "hw->host"
	}
	return "unknown"
}

// Class is the outcome of classification.
type Class struct {
	Sub       Subprotocol
	Index     int // stream index for ranged subprotocols, -1 otherwise
	Direction Direction
}

// Result is one dissected datagram.
type Result struct {
	Class
	SrcPort uint16
	DstPort uint16
	Tree    *Tree
	Info    string
}

// Dissector classifies and decodes datagrams against a Session.
type Dissector struct {
	session *Session
}

// NewDissector returns a Dissector bound to s. A nil Session gets a fresh
// one with default preferences.
func NewDissector(s *Session) *Dissector {
	if s == nil {
		s = NewSession()
	}
	return &Dissector{session: s}
}

// Session returns the bound session.
func (d *Dissector) Session() *Session { return d.session }

func (d *Dissector) matchPort(p uint16, def uint16, slot PortSlot) bool {
	if p == def {
		return true
	}
	l := d.session.Port(slot)
	return l != 0 && p == l
}

// matchRange reports whether p falls in the n-port range at the learned
// base or the default base, returning the offset from the matched base.
// The learned base wins when both match.
func (d *Dissector) matchRange(p uint16, def uint16, slot PortSlot, n int) (int, bool) {
	if l := d.session.Port(slot); l != 0 {
		if off := int(p) - int(l); off >= 0 && off < n {
			return off, true
		}
	}
	if off := int(p) - int(def); off >= 0 && off < n {
		return off, true
	}
	return 0, false
}

// Classify selects the subprotocol of a datagram from its ports and the
// learned session state. Only the first two payload bytes are inspected,
// for the USB-over-IP sentinel.
func (d *Dissector) Classify(payload []byte, src, dst uint16) (Class, bool) {
	if len(payload) >= 2 && uint16(payload[0])<<8|uint16(payload[1]) == usbOverIP {
		return Class{}, false
	}
	c := Class{Index: -1}
	switch {
	case src == PortCommandReply || dst == PortCommandReply:
		c.Sub = SubCommandReply
		c.Direction = HWToHost
		if dst == PortCommandReply {
			c.Direction = HostToHW
		}
		return c, true
	case d.matchPort(dst, PortDDCCommand, SlotDDCCommand):
		c.Sub, c.Direction = SubDDCCommand, HostToHW
		return c, true
	case d.matchPort(src, PortHPStatus, SlotHPStatus):
		c.Sub, c.Direction = SubHPStatus, HWToHost
		return c, true
	case d.matchPort(dst, PortDUCCommand, SlotDUCCommand):
		c.Sub, c.Direction = SubDUCCommand, HostToHW
		return c, true
	case d.matchPort(src, PortMicLine, SlotMicLine):
		c.Sub, c.Direction = SubMicLine, HWToHost
		return c, true
	case d.matchPort(dst, PortHPCommand, SlotHPCommand):
		c.Sub, c.Direction = SubHPCommand, HostToHW
		return c, true
	}
	if i, ok := d.matchRange(src, PortWidebandBase, SlotWidebandBase, NumWideband); ok {
		return Class{Sub: SubWideband, Index: i, Direction: HWToHost}, true
	}
	if d.matchPort(dst, PortDDCAudio, SlotDDCAudio) {
		c.Sub, c.Direction = SubDDCAudio, HostToHW
		return c, true
	}
	if i, ok := d.matchRange(dst, PortDUCIQBase, SlotDUCIQBase, NumDUC); ok {
		return Class{Sub: SubDUCIQ, Index: i, Direction: HostToHW}, true
	}
	if i, ok := d.matchRange(src, PortDDCIQBase, SlotDDCIQBase, NumDDC); ok {
		return Class{Sub: SubDDCIQ, Index: i, Direction: HWToHost}, true
	}
	if p := d.session.Port(SlotMemHost); p != 0 && dst == p && dst >= minMemHostPort {
		c.Sub, c.Direction = SubMemory, HostToHW
		return c, true
	}
	if p := d.session.Port(SlotMemHW); p != 0 && src == p && src >= minMemHWPort {
		c.Sub, c.Direction = SubMemory, HWToHost
		return c, true
	}
	return Class{}, false
}

type decodeFunc func(d *Dissector, w *walker, c Class)

var decoders map[Subprotocol]decodeFunc

func init() {
	decoders = map[Subprotocol]decodeFunc{
		SubCommandReply: decodeCommandReply,
		SubDDCCommand:   decodeDDCCommand,
		SubHPStatus:     decodeHPStatus,
		SubDUCCommand:   decodeDUCCommand,
		SubMicLine:      decodeMicLine,
		SubHPCommand:    decodeHPCommand,
		SubWideband:     decodeWideband,
		SubDDCAudio:     decodeDDCAudio,
		SubDUCIQ:        decodeDUCIQ,
		SubDDCIQ:        decodeDDCIQ,
		SubMemory:       decodeMemory,
	}
}

// Dissect classifies and decodes one UDP payload. Declined datagrams
// return ErrNotOpenHPSDR and no result. A payload shorter than the
// subprotocol minimum returns the partial result together with
// ErrTruncated; every other anomaly is an annotation in the tree.
func (d *Dissector) Dissect(payload []byte, src, dst uint16) (*Result, error) {
	c, ok := d.Classify(payload, src, dst)
	if !ok {
		return nil, ErrNotOpenHPSDR
	}
	w := newWalker(payload, d.session.prefs)
	w.infof("%s", strings.ToUpper(c.Sub.String()))
	top := w.begin(subFields[c.Sub], "")
	decoders[c.Sub](d, w, c)
	w.extra()
	w.end()
	w.tree.Root.Length = w.r.Offset()
	w.tree.Root.Children = append([]*Node{{
		Field:     hfDirection,
		Text:      fmt.Sprintf("Direction: %s (%d -> %d)", c.Direction, src, dst),
		Generated: true,
	}}, w.tree.Root.Children...)
	if d.session.prefs.SequenceCheck && c.Sub != SubCommandReply {
		d.checkSequence(top, c)
	}

	res := &Result{
		Class:   c,
		SrcPort: src,
		DstPort: dst,
		Tree:    w.tree,
		Info:    w.infoLine(),
	}
	if len(payload) < c.Sub.MinLen() {
		return res, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrTruncated, c.Sub.Name(), c.Sub.MinLen(), len(payload))
	}
	return res, nil
}

func (d *Dissector) checkSequence(top *Node, c Class) {
	for _, n := range top.Children {
		if n.Field != hfSequence {
			continue
		}
		if want, gap := d.session.observeSeq(c.Sub, c.Index, c.Direction, uint32(n.Uint())); gap {
			n.Annotate(SeverityWarn, "Sequence gap, expected %d", want)
		}
		return
	}
}

// Per-subprotocol top-level banners.
var subFields = map[Subprotocol]*Field{}

func init() {
	for _, s := range Subprotocols() {
		subFields[s] = reg(s.String(), s.Name(), TypeBanner)
	}
}
