package hpsdr

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type wellFormed struct {
	name     string
	payload  []byte
	src, dst uint16
	setup    func(s *Session)
}

func wellFormedDatagrams() []wellFormed {
	hpc := streamPayload(1, 1444)
	copy(hpc[1432:], []byte{0xFF, 0xFF, 0xFF, 0xFF})
	return []wellFormed{
		{name: "general", payload: makeGeneral(1, map[int]uint16{5: 1025}), src: hostPort, dst: 1024},
		{name: "discovery request", payload: cat(be32(1), []byte{CmdDiscovery}, zeros(55)), src: hostPort, dst: 1024},
		{name: "discovery reply", payload: makeDiscoveryReply(CmdDiscovery, 4, 40, 30, []byte{1, 2, 3, 4, 5, 6, 7, 1}), src: 1024, dst: hostPort},
		{name: "erase ack", payload: makeDiscoveryReply(CmdSetIP, 4, 40, 30, nil), src: 1024, dst: hostPort},
		{name: "set ip", payload: cat(be32(1), []byte{CmdSetIP}, fill(6, 1), []byte{10, 0, 0, 2}, zeros(45)), src: hostPort, dst: 1024},
		{name: "erase", payload: cat(be32(1), []byte{CmdErase}, zeros(55)), src: hostPort, dst: 1024},
		{name: "program", payload: cat(be32(1), []byte{CmdProgram}, be32(1000), fill(256, 0xAB)), src: hostPort, dst: 1024},
		{name: "ddc command", payload: streamPayload(1, 1444), src: hostPort, dst: 1025},
		{name: "hp status", payload: streamPayload(1, 60), src: 1025, dst: hostPort},
		{name: "duc command", payload: streamPayload(1, 60), src: hostPort, dst: 1026},
		{name: "mic line", payload: streamPayload(1, 1444), src: 1026, dst: hostPort},
		{name: "hp command", payload: hpc, src: hostPort, dst: 1027},
		{name: "wideband", payload: streamPayload(1, 1028), src: 1030, dst: hostPort},
		{name: "ddc audio", payload: streamPayload(1, 1444), src: hostPort, dst: 1028},
		{name: "duc iq", payload: streamPayload(1, 1444), src: hostPort, dst: 1029},
		{name: "ddc iq", payload: makeDDCIQ(1, 24, 238), src: 1040, dst: hostPort},
		{name: "memory", payload: cat(be32(1), fill(6*240, 0x5A)), src: 2000, dst: hostPort,
			setup: func(s *Session) { s.Learn(SlotMemHW, 2000) }},
	}
}

// Leaves tile the payload: contiguous, non-overlapping, covering every
// byte the decoder consumed.
func TestTree_LeavesCoverPayload(t *testing.T) {
	for _, tt := range wellFormedDatagrams() {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession()
			if tt.setup != nil {
				tt.setup(s)
			}
			res := dissect(t, NewDissector(s), tt.payload, tt.src, tt.dst)
			assert.Equal(t, SeverityNone, res.Tree.MaxSeverity(), "%v", res.Tree.Annotations())

			sum, next := 0, 0
			for _, n := range res.Tree.Leaves() {
				assert.Equal(t, next, n.Offset, "leaf %s", n.Abbrev())
				next = n.Offset + n.Length
				sum += n.Length
			}
			assert.Equal(t, len(tt.payload), sum)
			assert.Equal(t, len(tt.payload), res.Tree.Root.Length)
		})
	}
}

func TestTree_RoundTrip(t *testing.T) {
	for _, tt := range wellFormedDatagrams() {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession()
			if tt.setup != nil {
				tt.setup(s)
			}
			res := dissect(t, NewDissector(s), tt.payload, tt.src, tt.dst)
			assert.True(t, bytes.Equal(tt.payload, res.Tree.Bytes()))
		})
	}
}

func TestTree_RedispatchIsIdempotent(t *testing.T) {
	for _, tt := range wellFormedDatagrams() {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession()
			if tt.setup != nil {
				tt.setup(s)
			}
			d := NewDissector(s)
			first := dissect(t, d, tt.payload, tt.src, tt.dst)
			second := dissect(t, d, tt.payload, tt.src, tt.dst)
			assert.Equal(t, first, second)
		})
	}
}

func TestTree_PortsAloneChooseDecoder(t *testing.T) {
	d := NewDissector(NewSession())
	for _, first := range []byte{0x00, 0x02, 0x7F, 0xFF} {
		p := fill(60, first)
		c, ok := d.Classify(p, 1025, hostPort)
		require.True(t, ok)
		assert.Equal(t, SubHPStatus, c.Sub)
	}
}

func TestTree_Truncation(t *testing.T) {
	d := NewDissector(NewSession())
	full := streamPayload(1, 1444)
	for _, n := range []int{4, 5, 17, 500, 1443} {
		res, err := d.Dissect(full[:n], 1026, hostPort)
		require.NoError(t, err)
		if n == 4 {
			continue
		}
		assert.Equal(t, SeverityError, res.Tree.MaxSeverity(), "len %d", n)
		assert.True(t, bytes.Equal(full[:res.Tree.Root.Length], res.Tree.Bytes()))
	}

	_, err := d.Dissect(full[:3], 1026, hostPort)
	assert.True(t, errors.Is(err, ErrTruncated))
}

func TestWriteText(t *testing.T) {
	d := NewDissector(NewSession())
	res := dissect(t, d, cat(be32(1), []byte{CmdDiscovery}, zeros(56)), hostPort, 1024)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, res.Tree, TextOptions{}))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "openHPSDR Ethernet Protocol\n"))
	assert.Contains(t, out, "    Direction: host->hw (50000 -> 1024)\n")
	assert.Contains(t, out, "        Sequence Number: 1\n")
	assert.Contains(t, out, "        Command: Discovery (0x02)\n")
	assert.Contains(t, out, "            [warn] Extra Length: 1 extra bytes\n")
}

func TestWriteText_ElidesChildren(t *testing.T) {
	d := NewDissector(NewSession())
	res := dissect(t, d, streamPayload(1, 1028), 1027, hostPort)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, res.Tree, TextOptions{MaxChildren: 3}))
	out := buf.String()
	assert.Contains(t, out, "[Sample Count: 512]")
	assert.Contains(t, out, "        Samples\n")
	assert.Contains(t, out, "            Sample 2:")
	assert.Contains(t, out, "            ... 509 more\n")
	assert.NotContains(t, out, "Sample 3:")
	assert.Equal(t, 1, strings.Count(out, "more"))
}

func TestWriteText_ElidedCountSkipsHiddenBits(t *testing.T) {
	bit := &Field{Abbrev: "test.bit", Label: "Bit", Type: TypeBool, Mask: 0x01}
	parent := &Node{Field: &Field{Abbrev: "test.flags", Label: "Flags", Type: TypeBanner}}
	for i := 0; i < 6; i++ {
		c := &Node{Field: bit, Length: 1, Value: false}
		if i%3 != 0 {
			c.Annotate(SeverityWarn, "bit %d", i)
		}
		parent.add(c)
	}
	tree := &Tree{Root: parent}

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, tree, TextOptions{MaxChildren: 2}))
	assert.Contains(t, buf.String(), "    ... 2 more\n")

	buf.Reset()
	require.NoError(t, WriteText(&buf, tree, TextOptions{MaxChildren: 2, Bits: true}))
	assert.Contains(t, buf.String(), "    ... 4 more\n")

	buf.Reset()
	require.NoError(t, WriteText(&buf, tree, TextOptions{}))
	assert.NotContains(t, buf.String(), "more")
	assert.Equal(t, 4, strings.Count(buf.String(), "[warn] bit"))
}

func TestResultView_JSONAndYAML(t *testing.T) {
	s := NewSession()
	d := NewDissector(s)
	res := dissect(t, d, makeDDCIQ(1, 24, 241), 1037, hostPort)

	raw, err := json.Marshal(res.View())
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "ddciq", got["subprotocol"])
	assert.Equal(t, float64(2), got["index"])
	assert.Equal(t, "warn", got["max_severity"])
	assert.Contains(t, string(raw), "Larger then maximum MTU, 4 bytes over")

	y, err := yaml.Marshal(res.View())
	require.NoError(t, err)
	assert.Contains(t, string(y), "subprotocol: ddciq")
	assert.Contains(t, string(y), "abbrev: openhpsdr-e.ddciq.timestamp")
}

func TestNodeView_Values(t *testing.T) {
	p := cat(be32(1), []byte{CmdSetIP}, []byte{0, 1, 2, 3, 4, 5}, []byte{10, 0, 0, 9}, zeros(45))
	res := dissect(t, NewDissector(NewSession()), p, hostPort, 1024)

	assert.Equal(t, "00:01:02:03:04:05", res.Tree.Find("cr.setip.mac").View().Value)
	assert.Equal(t, "10.0.0.9", res.Tree.Find("cr.setip.ip").View().Value)
	assert.Equal(t, strings.Repeat("00", 45), res.Tree.Find("cr.setip.pad").View().Value)
}
