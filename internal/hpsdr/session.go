package hpsdr

import (
	"fmt"
	"sync"
	"sync/atomic"

	"firestige.xyz/hpsdrdump/internal/log"
)

// PortSlot names one of the negotiable ports carried by a General message.
type PortSlot uint8

const (
	SlotDDCCommand PortSlot = iota
	SlotHPStatus
	SlotDUCCommand
	SlotMicLine
	SlotHPCommand
	SlotWidebandBase
	SlotDDCAudio
	SlotDUCIQBase
	SlotDDCIQBase
	SlotMemHost
	SlotMemHW

	numSlots
)

var slotNames = [numSlots]string{
	SlotDDCCommand:   "ddcc_port",
	SlotHPStatus:     "hps_port",
	SlotDUCCommand:   "ducc_port",
	SlotMicLine:      "micl_port",
	SlotHPCommand:    "hpc_port",
	SlotWidebandBase: "wbd_base_port",
	SlotDDCAudio:     "ddca_port",
	SlotDUCIQBase:    "duciq_base_port",
	SlotDDCIQBase:    "ddciq_base_port",
	SlotMemHost:      "mem_host_port",
	SlotMemHW:        "mem_hw_port",
}

func (s PortSlot) String() string {
	if s < numSlots {
		return slotNames[s]
	}
	return fmt.Sprintf("slot(%d)", uint8(s))
}

// Slots returns every port slot in declaration order.
func Slots() []PortSlot {
	out := make([]PortSlot, numSlots)
	for i := range out {
		out[i] = PortSlot(i)
	}
	return out
}

// Well-known ports.
const (
	PortCommandReply  = 1024
	PortDDCCommand    = 1025
	PortHPStatus      = 1025
	PortDUCCommand    = 1026
	PortMicLine       = 1026
	PortHPCommand     = 1027
	PortWidebandBase  = 1027
	PortDDCAudio      = 1028
	PortDUCIQBase     = 1029
	PortDDCIQBase     = 1035
	minMemHostPort    = 1037
	minMemHWPort      = 1115
	NumWideband       = 8
	NumDUC            = 8
	NumDDC            = 80
	boardUnset        = -1
	defaultMaxHistory = 4096
)

// Prefs are the user preferences consulted during a decode.
type Prefs struct {
	StrictSize            bool
	StrictPad             bool
	StrictProgramDataSize bool
	DDCIQMTUCheck         bool
	SequenceCheck         bool
}

// DefaultPrefs returns the preference defaults.
func DefaultPrefs() Prefs {
	return Prefs{
		StrictSize:            true,
		StrictPad:             true,
		StrictProgramDataSize: true,
		DDCIQMTUCheck:         true,
	}
}

type seqKey struct {
	sub   Subprotocol
	index int
	dir   Direction
}

// Session holds the state learned over one capture: the negotiated port
// map, the board identity and the last sequence number per stream.
// Port and board reads are lock free.
type Session struct {
	ports [numSlots]atomic.Uint32
	board atomic.Int32
	prefs Prefs

	mu   sync.Mutex
	seqs map[seqKey]uint32

	logger log.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithPrefs overrides the default preferences.
func WithPrefs(p Prefs) SessionOption {
	return func(s *Session) { s.prefs = p }
}

// WithLogger sets the logger used for port-map changes.
func WithLogger(l log.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// NewSession returns a Session with every port unset and no board id.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		prefs: DefaultPrefs(),
		seqs:  make(map[seqKey]uint32),
	}
	s.board.Store(boardUnset)
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = log.GetLogger()
	}
	return s
}

// Prefs returns the session preferences.
func (s *Session) Prefs() Prefs { return s.prefs }

// Port returns the learned port for slot, or 0 when unset.
func (s *Session) Port(slot PortSlot) uint16 {
	if slot >= numSlots {
		return 0
	}
	return uint16(s.ports[slot].Load())
}

// Learn records port for slot. A zero port never overwrites a learned
// value. It reports whether the stored value changed.
func (s *Session) Learn(slot PortSlot, port uint16) bool {
	if port == 0 || slot >= numSlots {
		return false
	}
	old := s.ports[slot].Swap(uint32(port))
	if old == uint32(port) {
		return false
	}
	s.logger.WithFields(map[string]interface{}{
		"slot": slot.String(),
		"port": port,
		"old":  old,
	}).Info("learned port")
	return true
}

// Ports returns a snapshot of every learned slot.
func (s *Session) Ports() map[PortSlot]uint16 {
	out := make(map[PortSlot]uint16)
	for i := range s.ports {
		if p := s.ports[i].Load(); p != 0 {
			out[PortSlot(i)] = uint16(p)
		}
	}
	return out
}

// BoardID returns the discovered board id.
func (s *Session) BoardID() (uint8, bool) {
	v := s.board.Load()
	if v < 0 {
		return 0, false
	}
	return uint8(v), true
}

// BoardName returns the display name of the discovered board, or "".
func (s *Session) BoardName() string {
	id, ok := s.BoardID()
	if !ok {
		return ""
	}
	if name, ok := BoardNames[uint64(id)]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", id)
}

func (s *Session) setBoard(id uint8) {
	if old := s.board.Swap(int32(id)); old != int32(id) {
		s.logger.WithField("board", id).Debug("discovered board")
	}
}

// Reset forgets every learned port, the board id and sequence history.
func (s *Session) Reset() {
	for i := range s.ports {
		s.ports[i].Store(0)
	}
	s.board.Store(boardUnset)
	s.mu.Lock()
	s.seqs = make(map[seqKey]uint32)
	s.mu.Unlock()
}

// observeSeq records seq for a stream and returns the expected value when
// it does not follow the previous one.
func (s *Session) observeSeq(sub Subprotocol, index int, dir Direction, seq uint32) (expected uint32, gap bool) {
	k := seqKey{sub: sub, index: index, dir: dir}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, seen := s.seqs[k]
	if len(s.seqs) >= defaultMaxHistory && !seen {
		s.seqs = make(map[seqKey]uint32)
	}
	s.seqs[k] = seq
	if !seen || seq == prev {
		return 0, false
	}
	if seq != prev+1 {
		return prev + 1, true
	}
	return 0, false
}
