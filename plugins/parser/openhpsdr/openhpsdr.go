// Package openhpsdr implements the openHPSDR-Ethernet parser plugin.
//
// CanHandle is the dissector's port classification against the shared
// session, so datagrams on renegotiated ports are recognised as soon as a
// General command has been seen. Handle produces a *hpsdr.Result whose
// tree the reporters render.
package openhpsdr

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/mitchellh/mapstructure"

	"firestige.xyz/hpsdrdump/internal/core"
	"firestige.xyz/hpsdrdump/internal/hpsdr"
	"firestige.xyz/hpsdrdump/internal/log"
	"firestige.xyz/hpsdrdump/internal/metrics"
	"firestige.xyz/hpsdrdump/pkg/plugin"
)

const Name = "openhpsdr"

const udpProto = 17

// Config holds the dissector preferences. Absent keys keep their defaults.
type Config struct {
	StrictSize            bool `mapstructure:"strict_size"`
	StrictPad             bool `mapstructure:"strict_pad"`
	StrictProgramDataSize bool `mapstructure:"strict_program_data_size"`
	DDCIQMTUCheck         bool `mapstructure:"ddciq_mtu_check"`
	SequenceCheck         bool `mapstructure:"sequence_check"`
}

func (c Config) prefs() hpsdr.Prefs {
	return hpsdr.Prefs{
		StrictSize:            c.StrictSize,
		StrictPad:             c.StrictPad,
		StrictProgramDataSize: c.StrictProgramDataSize,
		DDCIQMTUCheck:         c.DDCIQMTUCheck,
		SequenceCheck:         c.SequenceCheck,
	}
}

// Parser dissects openHPSDR-Ethernet datagrams.
type Parser struct {
	session   *hpsdr.Session
	dissector *hpsdr.Dissector

	perSub     [hpsdr.SubMemory + 1]atomic.Uint64
	bySeverity [hpsdr.SeverityError + 1]atomic.Uint64
	truncated  atomic.Uint64
}

// New creates a parser with default preferences. Init replaces the
// session with one built from the configured preferences.
func New() plugin.Parser {
	return NewWithSession(nil)
}

// NewWithSession binds the parser to an existing session, e.g. to decode
// single datagrams against a port map learned elsewhere.
func NewWithSession(s *hpsdr.Session) *Parser {
	if s == nil {
		s = hpsdr.NewSession()
	}
	return &Parser{session: s, dissector: hpsdr.NewDissector(s)}
}

func (p *Parser) Name() string { return Name }

func (p *Parser) Init(cfg map[string]any) error {
	d := hpsdr.DefaultPrefs()
	c := Config{
		StrictSize:            d.StrictSize,
		StrictPad:             d.StrictPad,
		StrictProgramDataSize: d.StrictProgramDataSize,
		DDCIQMTUCheck:         d.DDCIQMTUCheck,
		SequenceCheck:         d.SequenceCheck,
	}
	if err := mapstructure.Decode(cfg, &c); err != nil {
		return fmt.Errorf("%w: openhpsdr: %v", core.ErrConfigInvalid, err)
	}
	p.session = hpsdr.NewSession(hpsdr.WithPrefs(c.prefs()), hpsdr.WithLogger(log.GetLogger()))
	p.dissector = hpsdr.NewDissector(p.session)
	return nil
}

func (p *Parser) Start(_ context.Context) error { return nil }

func (p *Parser) Stop(_ context.Context) error { return nil }

// Session returns the session the parser learns into.
func (p *Parser) Session() *hpsdr.Session { return p.session }

// CanHandle reports whether the UDP ports classify as openHPSDR.
func (p *Parser) CanHandle(pkt *core.DecodedPacket) bool {
	if pkt.Transport.Protocol != udpProto {
		return false
	}
	_, ok := p.dissector.Classify(pkt.Payload, pkt.Transport.SrcPort, pkt.Transport.DstPort)
	return ok
}

// Handle dissects the datagram. A truncated datagram still yields its
// partial tree; the tree carries the error annotation.
func (p *Parser) Handle(pkt *core.DecodedPacket) (any, core.Labels, error) {
	res, err := p.dissector.Dissect(pkt.Payload, pkt.Transport.SrcPort, pkt.Transport.DstPort)
	switch {
	case errors.Is(err, hpsdr.ErrTruncated) && res != nil:
		p.truncated.Add(1)
	case err != nil:
		return nil, nil, err
	}

	p.perSub[res.Sub].Add(1)
	metrics.DatagramsTotal.WithLabelValues(res.Sub.String(), res.Direction.String()).Inc()
	for _, a := range res.Tree.Annotations() {
		p.bySeverity[a.Severity].Add(1)
		metrics.AnnotationsTotal.WithLabelValues(a.Severity.String()).Inc()
	}
	if res.Sub == hpsdr.SubCommandReply {
		p.publishPorts()
	}

	return res, Labels(res, p.session), nil
}

func (p *Parser) publishPorts() {
	ports := p.session.Ports()
	for _, slot := range hpsdr.Slots() {
		metrics.LearnedPort.WithLabelValues(slot.String()).Set(float64(ports[slot]))
	}
}

// Labels summarises a result for processors and reporter headers.
func Labels(res *hpsdr.Result, s *hpsdr.Session) core.Labels {
	l := core.Labels{
		core.LabelHPSDRSubprotocol: res.Sub.String(),
		core.LabelHPSDRDirection:   res.Direction.String(),
		core.LabelHPSDRInfo:        res.Info,
		core.LabelHPSDRSeverity:    hpsdr.SeverityNone.String(),
	}
	if res.Index >= 0 {
		l[core.LabelHPSDRIndex] = strconv.Itoa(res.Index)
	}
	if res.Tree != nil {
		l[core.LabelHPSDRSeverity] = res.Tree.MaxSeverity().String()
	}
	if s != nil {
		if name := s.BoardName(); name != "" {
			l[core.LabelHPSDRBoard] = name
		}
	}
	return l
}

// Summary is the end-of-run statistics of a parser.
type Summary struct {
	Datagrams   map[string]uint64 `json:"datagrams" yaml:"datagrams"`
	Truncated   uint64            `json:"truncated" yaml:"truncated"`
	Annotations map[string]uint64 `json:"annotations" yaml:"annotations"`
	Ports       map[string]uint16 `json:"ports" yaml:"ports"`
	Board       string            `json:"board,omitempty" yaml:"board,omitempty"`
}

// Summary snapshots the counters and the learned session state.
func (p *Parser) Summary() Summary {
	s := Summary{
		Datagrams:   make(map[string]uint64),
		Truncated:   p.truncated.Load(),
		Annotations: make(map[string]uint64),
		Ports:       make(map[string]uint16),
		Board:       p.session.BoardName(),
	}
	for _, sub := range hpsdr.Subprotocols() {
		if n := p.perSub[sub].Load(); n > 0 {
			s.Datagrams[sub.String()] = n
		}
	}
	for _, sev := range []hpsdr.Severity{hpsdr.SeverityWarn, hpsdr.SeverityError} {
		if n := p.bySeverity[sev].Load(); n > 0 {
			s.Annotations[sev.String()] = n
		}
	}
	for slot, port := range p.session.Ports() {
		s.Ports[slot.String()] = port
	}
	return s
}
