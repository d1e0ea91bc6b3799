// Package pipeline implements the packet processing pipeline engine.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"firestige.xyz/hpsdrdump/internal/core"
	"firestige.xyz/hpsdrdump/internal/core/decoder"
	"firestige.xyz/hpsdrdump/internal/log"
	"firestige.xyz/hpsdrdump/internal/metrics"
	"firestige.xyz/hpsdrdump/pkg/plugin"
)

// Pipeline is a single-threaded capture -> decode -> parse -> process ->
// report chain. Capture runs in its own goroutine; everything after the
// channel runs on one goroutine so parsers may keep per-stream state
// without locking.
type Pipeline struct {
	name       string
	capturer   plugin.Capturer
	decoder    decoder.Decoder
	parsers    []plugin.Parser
	processors []plugin.Processor
	reporters  []plugin.Reporter
	counters   counters

	// Runtime state
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once

	mu         sync.Mutex
	captureErr error

	rawPacketChan chan core.RawPacket
}

// Config contains pipeline configuration.
type Config struct {
	Name       string
	Capturer   plugin.Capturer
	Decoder    decoder.Decoder
	Parsers    []plugin.Parser
	Processors []plugin.Processor
	Reporters  []plugin.Reporter
	BufferSize int // Raw packet channel buffer size
}

// New creates a new pipeline. A nil decoder gets the standard one.
func New(cfg Config) *Pipeline {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.Decoder == nil {
		cfg.Decoder = decoder.NewStandardDecoder()
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	return &Pipeline{
		name:          cfg.Name,
		capturer:      cfg.Capturer,
		decoder:       cfg.Decoder,
		parsers:       cfg.Parsers,
		processors:    cfg.Processors,
		reporters:     cfg.Reporters,
		done:          make(chan struct{}),
		rawPacketChan: make(chan core.RawPacket, cfg.BufferSize),
	}
}

func (p *Pipeline) logger() log.Logger {
	return log.GetLogger().WithField("pipeline", p.name)
}

// Start starts every plugin, reporters first and the capturer last, then
// the capture and processing goroutines.
func (p *Pipeline) Start(ctx context.Context) error {
	if p.capturer == nil {
		return fmt.Errorf("pipeline %s: %w: no capturer", p.name, core.ErrConfigInvalid)
	}
	p.ctx, p.cancel = context.WithCancel(ctx)

	var started []plugin.Plugin
	for _, pl := range p.plugins() {
		if err := pl.Start(p.ctx); err != nil {
			for i := len(started) - 1; i >= 0; i-- {
				_ = started[i].Stop(context.Background())
			}
			p.cancel()
			return fmt.Errorf("%w: %s: %v", core.ErrPluginInitFailed, pl.Name(), err)
		}
		started = append(started, pl)
	}

	p.logger().Info("pipeline starting")

	p.wg.Add(2)
	go p.captureLoop()
	go p.processLoop()
	return nil
}

// plugins lists every plugin in start order.
func (p *Pipeline) plugins() []plugin.Plugin {
	var out []plugin.Plugin
	for _, r := range p.reporters {
		out = append(out, r)
	}
	for _, pr := range p.processors {
		out = append(out, pr)
	}
	for _, pa := range p.parsers {
		out = append(out, pa)
	}
	return append(out, p.capturer)
}

// Done is closed when the processing loop has exited, either because the
// capturer is exhausted or because the pipeline was stopped.
func (p *Pipeline) Done() <-chan struct{} { return p.done }

// Err returns the capture error, if capture ended with one.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.captureErr
}

// Stop cancels the loops, flushes reporters and stops plugins in reverse
// start order. It is safe to call more than once.
func (p *Pipeline) Stop(ctx context.Context) error {
	var firstErr error
	p.stopOnce.Do(func() {
		if p.cancel == nil {
			return
		}
		p.logger().Info("pipeline stopping")

		p.cancel()
		p.wg.Wait()

		for _, reporter := range p.reporters {
			if err := reporter.Flush(ctx); err != nil {
				p.logger().WithError(err).WithField("reporter", reporter.Name()).Error("reporter flush failed")
				if firstErr == nil {
					firstErr = err
				}
			}
		}

		if drops := p.capturer.Stats().PacketsDropped; drops > 0 {
			metrics.CaptureDropsTotal.Add(float64(drops))
		}

		pls := p.plugins()
		for i := len(pls) - 1; i >= 0; i-- {
			if err := pls[i].Stop(ctx); err != nil {
				p.logger().WithError(err).WithField("plugin", pls[i].Name()).Warn("plugin stop failed")
			}
		}

		s := p.Stats()
		p.logger().WithFields(map[string]interface{}{
			"received":      s.Received,
			"decoded":       s.Decoded,
			"decode_errors": s.DecodeErrors,
			"parsed":        s.Parsed,
			"declined":      s.Declined,
			"dropped":       s.Dropped,
			"reported":      s.Reported,
		}).Info("pipeline stopped")
	})
	return firstErr
}

// Run starts the pipeline and blocks until the capturer is exhausted or
// ctx is cancelled, then stops it. A capture error takes precedence over
// a stop error.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.Start(ctx); err != nil {
		return err
	}
	select {
	case <-p.done:
	case <-ctx.Done():
	}
	stopErr := p.Stop(context.Background())
	if err := p.Err(); err != nil {
		return err
	}
	return stopErr
}

// captureLoop reads packets from capturer and sends to processing channel.
func (p *Pipeline) captureLoop() {
	defer p.wg.Done()

	if err := p.capturer.Capture(p.ctx, p.rawPacketChan); err != nil && p.ctx.Err() == nil {
		p.mu.Lock()
		p.captureErr = err
		p.mu.Unlock()
		p.logger().WithError(err).Error("capture failed")
	}

	close(p.rawPacketChan)
}

// processLoop drains the channel until it is closed or the pipeline is
// cancelled.
func (p *Pipeline) processLoop() {
	defer p.wg.Done()
	defer close(p.done)

	for {
		select {
		case <-p.ctx.Done():
			return

		case raw, ok := <-p.rawPacketChan:
			if !ok {
				return
			}
			frame := p.counters.received.Add(1)
			metrics.PipelinePacketsTotal.WithLabelValues(metrics.StageReceived).Inc()

			start := time.Now()
			if err := p.processPacket(frame, raw); err != nil {
				p.logger().WithField("frame", frame).WithError(err).Debug("packet processing failed")
			}
			metrics.ProcessLatencySeconds.Observe(time.Since(start).Seconds())
		}
	}
}

// processPacket runs one packet through the chain. Datagrams no parser
// accepts are counted as declined and not reported.
func (p *Pipeline) processPacket(frame uint64, raw core.RawPacket) error {
	decoded, err := p.decoder.Decode(raw)
	if err != nil {
		p.counters.decodeErrors.Add(1)
		metrics.DecodeErrorsTotal.WithLabelValues(metrics.DecodeReason(err)).Inc()
		return fmt.Errorf("decode failed: %w", err)
	}
	p.counters.decoded.Add(1)
	metrics.PipelinePacketsTotal.WithLabelValues(metrics.StageDecoded).Inc()

	var (
		parsedPayload any
		parsedLabels  core.Labels
		payloadType   string
	)
	for _, parser := range p.parsers {
		if !parser.CanHandle(&decoded) {
			continue
		}
		payload, labels, err := parser.Handle(&decoded)
		if err != nil {
			p.counters.parseErrors.Add(1)
			p.logger().WithField("parser", parser.Name()).WithError(err).Debug("parser failed")
			continue
		}
		// First successful parser wins.
		parsedPayload, parsedLabels, payloadType = payload, labels, parser.Name()
		break
	}
	if parsedPayload == nil {
		p.counters.declined.Add(1)
		metrics.DeclinedTotal.Inc()
		return nil
	}
	p.counters.parsed.Add(1)
	metrics.PipelinePacketsTotal.WithLabelValues(metrics.StageParsed).Inc()
	if parsedLabels == nil {
		parsedLabels = make(core.Labels)
	}

	output := core.OutputPacket{
		Frame:       frame,
		Timestamp:   decoded.Timestamp,
		SrcIP:       decoded.IP.SrcIP,
		DstIP:       decoded.IP.DstIP,
		SrcPort:     decoded.Transport.SrcPort,
		DstPort:     decoded.Transport.DstPort,
		Protocol:    decoded.IP.Protocol,
		Labels:      parsedLabels,
		PayloadType: payloadType,
		Payload:     parsedPayload,
		RawPayload:  decoded.Payload,
	}

	for _, processor := range p.processors {
		if !processor.Process(&output) {
			p.counters.dropped.Add(1)
			metrics.PipelinePacketsTotal.WithLabelValues(metrics.StageDropped).Inc()
			return nil
		}
	}

	for _, reporter := range p.reporters {
		if err := reporter.Report(p.ctx, &output); err != nil {
			p.counters.reportErrors.Add(1)
			metrics.ReporterErrorsTotal.WithLabelValues(reporter.Name()).Inc()
			p.logger().WithField("reporter", reporter.Name()).WithError(err).Error("reporter failed")
		}
	}
	p.counters.reported.Add(1)
	metrics.PipelinePacketsTotal.WithLabelValues(metrics.StageReported).Inc()
	return nil
}
