package plugin

import (
	"fmt"
	"sort"
	"sync"

	"firestige.xyz/hpsdrdump/internal/core"
)

type (
	CapturerFactory  func() Capturer
	ParserFactory    func() Parser
	ProcessorFactory func() Processor
	ReporterFactory  func() Reporter
)

var (
	mu         sync.RWMutex
	capturers  = map[string]CapturerFactory{}
	parsers    = map[string]ParserFactory{}
	processors = map[string]ProcessorFactory{}
	reporters  = map[string]ReporterFactory{}
)

func register[F any](m map[string]F, kind, name string, f F) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := m[name]; exists {
		panic(fmt.Sprintf("plugin: %s %q already registered", kind, name))
	}
	m[name] = f
}

func lookup[F any](m map[string]F, kind, name string) (F, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := m[name]
	if !ok {
		var zero F
		return zero, fmt.Errorf("%w: %s %q", core.ErrPluginNotFound, kind, name)
	}
	return f, nil
}

func names[F any](m map[string]F) []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RegisterCapturer registers a capturer factory. It panics on duplicates,
// registration happens from init.
func RegisterCapturer(name string, f CapturerFactory) { register(capturers, "capturer", name, f) }

func RegisterParser(name string, f ParserFactory) { register(parsers, "parser", name, f) }

func RegisterProcessor(name string, f ProcessorFactory) {
	register(processors, "processor", name, f)
}

func RegisterReporter(name string, f ReporterFactory) { register(reporters, "reporter", name, f) }

// NewCapturer builds a fresh capturer instance.
func NewCapturer(name string) (Capturer, error) {
	f, err := lookup(capturers, "capturer", name)
	if err != nil {
		return nil, err
	}
	return f(), nil
}

func NewParser(name string) (Parser, error) {
	f, err := lookup(parsers, "parser", name)
	if err != nil {
		return nil, err
	}
	return f(), nil
}

func NewProcessor(name string) (Processor, error) {
	f, err := lookup(processors, "processor", name)
	if err != nil {
		return nil, err
	}
	return f(), nil
}

func NewReporter(name string) (Reporter, error) {
	f, err := lookup(reporters, "reporter", name)
	if err != nil {
		return nil, err
	}
	return f(), nil
}

// Capturers lists registered capturer names, sorted.
func Capturers() []string  { return names(capturers) }
func Parsers() []string    { return names(parsers) }
func Processors() []string { return names(processors) }
func Reporters() []string  { return names(reporters) }
