// Package metrics implements Prometheus metrics.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"firestige.xyz/hpsdrdump/internal/core"
)

const namespace = "hpsdrdump"

var (
	// PipelinePacketsTotal counts packets passing each pipeline stage.
	PipelinePacketsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_packets_total",
			Help:      "Total number of packets per pipeline stage",
		},
		[]string{"stage"},
	)

	// DecodeErrorsTotal counts frames the L2-L4 decoder rejected.
	DecodeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Total number of frames rejected by the L2-L4 decoder",
		},
		[]string{"reason"},
	)

	// CaptureDropsTotal counts packets the capture source dropped.
	CaptureDropsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_drops_total",
			Help:      "Total number of packets dropped by the capture source",
		},
	)

	// DatagramsTotal counts dissected datagrams.
	DatagramsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_total",
			Help:      "Total number of openHPSDR datagrams dissected",
		},
		[]string{"subprotocol", "direction"},
	)

	// DeclinedTotal counts UDP datagrams no parser accepted.
	DeclinedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "declined_total",
			Help:      "Total number of UDP datagrams not recognised as openHPSDR",
		},
	)

	// AnnotationsTotal counts tree diagnostics.
	AnnotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "annotations_total",
			Help:      "Total number of diagnostic annotations by severity",
		},
		[]string{"severity"},
	)

	// LearnedPort tracks the current port per session slot.
	LearnedPort = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "learned_port",
			Help:      "Port currently learned for a stream slot, 0 when unset",
		},
		[]string{"slot"},
	)

	// ProcessLatencySeconds measures per-packet processing time.
	ProcessLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "process_latency_seconds",
			Help:      "Time spent decoding, dissecting and reporting one packet",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 2, 20), // 1µs to ~1s
		},
	)

	// ReporterErrorsTotal counts reporter errors by name.
	ReporterErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reporter_errors_total",
			Help:      "Total number of reporter errors",
		},
		[]string{"reporter"},
	)
)

// Pipeline stage label values.
const (
	StageReceived = "received"
	StageDecoded  = "decoded"
	StageParsed   = "parsed"
	StageDropped  = "dropped"
	StageReported = "reported"
)

// DecodeReason maps a decoder error to a bounded label value.
func DecodeReason(err error) string {
	switch {
	case errors.Is(err, core.ErrFragmented):
		return "fragment"
	case errors.Is(err, core.ErrNotUDP):
		return "not_udp"
	case errors.Is(err, core.ErrNotIP):
		return "not_ip"
	case errors.Is(err, core.ErrUnsupportedLinkType):
		return "link_type"
	case errors.Is(err, core.ErrPacketTooShort):
		return "truncated"
	}
	return "other"
}
