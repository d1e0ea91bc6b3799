package hpsdr

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Payload builders
// ---------------------------------------------------------------------------

const hostPort = 50000

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func be16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func be32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func be64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func zeros(n int) []byte { return make([]byte, n) }

func fill(n int, v byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = v
	}
	return b
}

// streamPayload is a sequence number followed by zeros up to total bytes.
func streamPayload(seq uint32, total int) []byte {
	return cat(be32(seq), zeros(total-4))
}

// makeGeneral builds a 60-byte General message. ports maps byte offsets
// (5, 7, ... 21, 28, 30) to the port value written there.
func makeGeneral(seq uint32, ports map[int]uint16) []byte {
	b := cat(be32(seq), []byte{CmdGeneral}, zeros(55))
	for off, p := range ports {
		binary.BigEndian.PutUint16(b[off:off+2], p)
	}
	return b
}

// makeDiscoveryReply builds the 60-byte reply layout for cmd.
//
//	5-10 MAC, 11 board, 12 protocol, 13 firmware, 14-17 mercury,
//	18 penny, 19 metis, 20 DDCs, 21 freq/phase, 22-59 pad
func makeDiscoveryReply(cmd byte, board, proto, fw byte, tail []byte) []byte {
	b := cat(be32(1), []byte{cmd}, []byte{0x00, 0x1c, 0xc0, 0xa2, 0x13, 0xdd}, []byte{board, proto, fw})
	b = append(b, tail...)
	return append(b, zeros(60-len(b))...)
}

// makeDDCIQ builds a DDC-I&Q datagram with the given header and sample
// bytes filled with 0x11.
func makeDDCIQ(seq uint32, bits, samples uint16) []byte {
	n := int(samples) * 2 * int(bits/8)
	return cat(be32(seq), be64(0x0102030405060708), be16(bits), be16(samples), fill(n, 0x11))
}

func dissect(t *testing.T, d *Dissector, p []byte, src, dst uint16) *Result {
	t.Helper()
	res, err := d.Dissect(p, src, dst)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func messages(t *Tree, sev Severity) []string {
	var out []string
	for _, a := range t.Annotations() {
		if a.Severity == sev {
			out = append(out, a.Message)
		}
	}
	return out
}
