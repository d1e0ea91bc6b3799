package pipeline

import (
	"firestige.xyz/hpsdrdump/internal/core/decoder"
	"firestige.xyz/hpsdrdump/pkg/plugin"
)

// Builder provides a fluent interface for building pipelines.
type Builder struct {
	config Config
}

// NewBuilder creates a new pipeline builder.
func NewBuilder() *Builder {
	return &Builder{
		config: Config{
			BufferSize: 1024,
		},
	}
}

// WithName sets the name used in log lines.
func (b *Builder) WithName(name string) *Builder {
	b.config.Name = name
	return b
}

// WithCapturer sets the packet capturer.
func (b *Builder) WithCapturer(c plugin.Capturer) *Builder {
	b.config.Capturer = c
	return b
}

// WithDecoder sets the packet decoder.
func (b *Builder) WithDecoder(d decoder.Decoder) *Builder {
	b.config.Decoder = d
	return b
}

// WithParsers appends to the parser chain. Earlier parsers take
// precedence.
func (b *Builder) WithParsers(parsers ...plugin.Parser) *Builder {
	b.config.Parsers = append(b.config.Parsers, parsers...)
	return b
}

// WithProcessors appends to the processor chain.
func (b *Builder) WithProcessors(processors ...plugin.Processor) *Builder {
	b.config.Processors = append(b.config.Processors, processors...)
	return b
}

// WithReporters appends to the reporter chain.
func (b *Builder) WithReporters(reporters ...plugin.Reporter) *Builder {
	b.config.Reporters = append(b.config.Reporters, reporters...)
	return b
}

// WithBufferSize sets the raw packet channel buffer size.
func (b *Builder) WithBufferSize(size int) *Builder {
	b.config.BufferSize = size
	return b
}

// Build creates the pipeline.
func (b *Builder) Build() *Pipeline {
	return New(b.config)
}

