package pipeline

import "sync/atomic"

type counters struct {
	received     atomic.Uint64
	decoded      atomic.Uint64
	decodeErrors atomic.Uint64
	parsed       atomic.Uint64
	parseErrors  atomic.Uint64
	declined     atomic.Uint64
	dropped      atomic.Uint64
	reported     atomic.Uint64
	reportErrors atomic.Uint64
}

// Stats represents pipeline statistics.
type Stats struct {
	Received     uint64
	Decoded      uint64
	DecodeErrors uint64
	Parsed       uint64
	ParseErrors  uint64
	Declined     uint64
	Dropped      uint64
	Reported     uint64
	ReportErrors uint64
	CaptureDrops uint64
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	s := Stats{
		Received:     p.counters.received.Load(),
		Decoded:      p.counters.decoded.Load(),
		DecodeErrors: p.counters.decodeErrors.Load(),
		Parsed:       p.counters.parsed.Load(),
		ParseErrors:  p.counters.parseErrors.Load(),
		Declined:     p.counters.declined.Load(),
		Dropped:      p.counters.dropped.Load(),
		Reported:     p.counters.reported.Load(),
		ReportErrors: p.counters.reportErrors.Load(),
	}
	if p.capturer != nil {
		s.CaptureDrops = p.capturer.Stats().PacketsDropped
	}
	return s
}
