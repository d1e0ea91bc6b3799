package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/hpsdrdump/internal/core"
	"firestige.xyz/hpsdrdump/internal/hpsdr"
)

func TestKafkaReporter_Init(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		wantErr bool
	}{
		{"nil config", nil, true},
		{"missing brokers", map[string]any{"topic": "test"}, true},
		{"missing topic", map[string]any{"brokers": []any{"localhost:9092"}}, true},
		{"valid minimal config", map[string]any{
			"brokers": []any{"localhost:9092"},
			"topic":   "test-topic",
		}, false},
		{"valid full config", map[string]any{
			"brokers":       []string{"broker1:9092", "broker2:9092"},
			"topic":         "test-topic",
			"batch_size":    float64(200),
			"batch_timeout": "200ms",
			"compression":   "zstd",
			"max_attempts":  5,
		}, false},
		{"invalid compression", map[string]any{
			"brokers":     []any{"localhost:9092"},
			"topic":       "test-topic",
			"compression": "invalid",
		}, true},
		{"invalid batch_timeout", map[string]any{
			"brokers":       []any{"localhost:9092"},
			"topic":         "test-topic",
			"batch_timeout": "invalid",
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewKafkaReporter().(*KafkaReporter)
			err := r.Init(tt.config)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrConfigInvalid)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, r.writer)
			require.NoError(t, r.Stop(context.Background()))
		})
	}
}

func TestDecodeConfig_Defaults(t *testing.T) {
	cfg, err := decodeConfig(map[string]any{"brokers": []string{"k:9092"}, "topic": "t"})
	require.NoError(t, err)
	assert.Equal(t, Config{
		Brokers:      []string{"k:9092"},
		Topic:        "t",
		BatchSize:    defaultBatchSize,
		BatchTimeout: defaultBatchTimeout,
		Compression:  defaultCompression,
		MaxAttempts:  defaultMaxAttempts,
	}, cfg)

	cfg, err = decodeConfig(map[string]any{"brokers": []string{"k:9092"}, "topic": "t", "batch_timeout": "1s", "batch_size": float64(7)})
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.BatchTimeout)
	assert.Equal(t, 7, cfg.BatchSize)
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func dissected(t *testing.T) *core.OutputPacket {
	t.Helper()
	payload := make([]byte, 60)
	payload[4] = hpsdr.CmdDiscovery
	res, err := hpsdr.NewDissector(nil).Dissect(payload, 50000, 1024)
	require.NoError(t, err)
	return &core.OutputPacket{
		Frame:       4,
		Timestamp:   time.UnixMilli(1700000000123),
		SrcIP:       netip.MustParseAddr("169.254.0.1"),
		DstIP:       netip.MustParseAddr("255.255.255.255"),
		SrcPort:     50000,
		DstPort:     1024,
		Protocol:    17,
		Labels:      core.Labels{core.LabelHPSDRSubprotocol: "cr", core.LabelHPSDRDirection: "host->hw"},
		PayloadType: "openhpsdr",
		Payload:     res,
		RawPayload:  payload,
	}
}

func TestKafkaReporter_Report(t *testing.T) {
	w := &fakeWriter{}
	r := &KafkaReporter{writer: w}

	require.NoError(t, r.Report(context.Background(), dissected(t)))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "cr/169.254.0.1:50000-255.255.255.255:1024", string(msg.Key))
	assert.Len(t, msg.Headers, 2)

	var m Message
	require.NoError(t, json.Unmarshal(msg.Value, &m))
	assert.Equal(t, uint64(4), m.Frame)
	assert.Equal(t, int64(1700000000123), m.Timestamp)
	assert.Equal(t, 60, m.RawPayloadLen)
	require.NotNil(t, m.Result)
	assert.Equal(t, "cr", m.Result.Subprotocol)
	assert.Equal(t, "host->hw", m.Result.Direction)
	assert.Contains(t, m.Result.Info, "Discovery Request")

	assert.Equal(t, uint64(1), r.reportedCount.Load())
	require.NoError(t, r.Stop(context.Background()))
	assert.True(t, w.closed)
}

func TestKafkaReporter_ReportErrors(t *testing.T) {
	r := &KafkaReporter{writer: &fakeWriter{err: errors.New("leader not available")}}
	assert.Error(t, r.Report(context.Background(), dissected(t)))
	assert.Equal(t, uint64(1), r.errorCount.Load())

	assert.Error(t, r.Report(context.Background(), nil))
	assert.Error(t, (&KafkaReporter{}).Report(context.Background(), dissected(t)))
}
