package console

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"firestige.xyz/hpsdrdump/internal/core"
	"firestige.xyz/hpsdrdump/internal/hpsdr"
)

func TestConsoleReporter_Init(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		wantErr bool
		wantFmt string
	}{
		{"nil config defaults to text", nil, false, FormatText},
		{"empty config defaults to text", map[string]any{}, false, FormatText},
		{"json format", map[string]any{"format": "json"}, false, FormatJSON},
		{"yaml format", map[string]any{"format": "yaml"}, false, FormatYAML},
		{"invalid format", map[string]any{"format": "xml"}, true, ""},
		{"invalid type", map[string]any{"bits": "yes"}, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewConsoleReporter().(*ConsoleReporter)
			err := r.Init(tt.config)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrConfigInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFmt, r.cfg.Format)
		})
	}
}

// discoveryPacket dissects an Orion discovery reply into an output packet.
func discoveryPacket(t *testing.T, frame uint64) *core.OutputPacket {
	t.Helper()
	b := make([]byte, 60)
	binary.BigEndian.PutUint32(b, 1)
	b[4] = hpsdr.CmdDiscovery
	copy(b[5:11], []byte{0x00, 0x1c, 0xc0, 0xa2, 0x13, 0xdd})
	b[11], b[12], b[13] = 0x04, 40, 30

	res, err := hpsdr.NewDissector(nil).Dissect(b, 1024, 50000)
	require.NoError(t, err)
	return &core.OutputPacket{
		Frame:       frame,
		Timestamp:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		SrcIP:       netip.MustParseAddr("169.254.19.221"),
		DstIP:       netip.MustParseAddr("169.254.0.1"),
		SrcPort:     1024,
		DstPort:     50000,
		Protocol:    17,
		Labels:      core.Labels{core.LabelHPSDRSubprotocol: "cr", core.LabelHPSDRInfo: res.Info},
		PayloadType: "openhpsdr",
		Payload:     res,
		RawPayload:  b,
	}
}

func report(t *testing.T, format string, pkts ...*core.OutputPacket) string {
	t.Helper()
	var buf bytes.Buffer
	r := NewWithWriter(&buf)
	require.NoError(t, r.Init(map[string]any{"format": format}))
	ctx := context.Background()
	require.NoError(t, r.Start(ctx))
	for _, p := range pkts {
		require.NoError(t, r.Report(ctx, p))
	}
	require.NoError(t, r.Flush(ctx))
	require.NoError(t, r.Stop(ctx))
	return buf.String()
}

func TestConsoleReporter_Text(t *testing.T) {
	out := report(t, FormatText, discoveryPacket(t, 1))

	lines := strings.Split(out, "\n")
	assert.True(t, strings.HasPrefix(lines[0], "Frame 1: 12:00:00.000000 169.254.19.221:1024 -> 169.254.0.1:50000 CR Discovery Reply"), lines[0])
	assert.Contains(t, out, "    Board Type: Orion (4)")
}

func TestConsoleReporter_JSON(t *testing.T) {
	out := report(t, FormatJSON, discoveryPacket(t, 1), discoveryPacket(t, 2))

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, float64(2), rec["frame"])
	assert.Equal(t, "2024-03-01T12:00:00Z", rec["timestamp"])
	result := rec["result"].(map[string]any)
	assert.Equal(t, "cr", result["subprotocol"])
	assert.Equal(t, "hw->host", result["direction"])
	assert.Equal(t, "none", result["max_severity"])
}

func TestConsoleReporter_YAML(t *testing.T) {
	out := report(t, FormatYAML, discoveryPacket(t, 1), discoveryPacket(t, 2))

	dec := yaml.NewDecoder(strings.NewReader(out))
	var frames []int
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		require.NotNil(t, rec.Result)
		assert.Equal(t, "cr", rec.Result.Subprotocol)
		frames = append(frames, int(rec.Frame))
	}
	assert.Equal(t, []int{1, 2}, frames)
}

func TestConsoleReporter_NonDissectedPayload(t *testing.T) {
	pkt := &core.OutputPacket{Frame: 9, Payload: []byte{1}, SrcIP: netip.MustParseAddr("10.0.0.1"), DstIP: netip.MustParseAddr("10.0.0.2")}
	out := report(t, FormatText, pkt)
	assert.Equal(t, 1, strings.Count(out, "\n"))

	rec := NewRecord(pkt)
	assert.Nil(t, rec.Result)
}

func TestConsoleReporter_NilPacket(t *testing.T) {
	r := NewWithWriter(io.Discard)
	assert.Error(t, r.Report(context.Background(), nil))
}
