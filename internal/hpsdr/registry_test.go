package hpsdr

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Integrity(t *testing.T) {
	r := Fields()
	require.Greater(t, r.Len(), 800)

	seen := make(map[string]bool)
	for i, f := range r.All() {
		assert.Equal(t, FieldID(i), f.ID)
		assert.True(t, f.Abbrev == AbbrevPrefix || strings.HasPrefix(f.Abbrev, AbbrevPrefix+"."), f.Abbrev)
		assert.False(t, seen[f.Abbrev], "duplicate %s", f.Abbrev)
		seen[f.Abbrev] = true
		assert.NotEmpty(t, f.Label, f.Abbrev)
		if f.Mask != 0 {
			assert.GreaterOrEqual(t, f.Bit(), 0)
		}
	}
}

func TestRegistry_Lookup(t *testing.T) {
	f, ok := Fields().Lookup("ddciq.bits")
	require.True(t, ok)
	assert.Equal(t, TypeU16, f.Type)

	g, ok := Fields().Lookup("openhpsdr-e.ddciq.bits")
	require.True(t, ok)
	assert.Same(t, f, g)

	byID, ok := Fields().ByID(f.ID)
	require.True(t, ok)
	assert.Same(t, f, byID)

	_, ok = Fields().Lookup("nope")
	assert.False(t, ok)
	_, ok = Fields().ByID(-1)
	assert.False(t, ok)
}

func TestRegistry_Views(t *testing.T) {
	views := Fields().Views("hps.")
	require.NotEmpty(t, views)
	for _, v := range views {
		assert.True(t, strings.HasPrefix(v.Abbrev, "openhpsdr-e.hps."))
	}
	pll, ok := Fields().Lookup("hps.pll")
	require.True(t, ok)
	found := false
	for _, v := range views {
		if v.ID == int(pll.ID) {
			found = true
			assert.Equal(t, "0x10", v.Mask)
			assert.Equal(t, "bool", v.Type)
		}
	}
	assert.True(t, found)
}

func TestField_Format(t *testing.T) {
	board, _ := Fields().Lookup("cr.disc.board")
	assert.Equal(t, "Saturn (10)", board.Format(uint64(10)))
	assert.Equal(t, "Unknown (9)", board.Format(uint64(9)))

	cmd, _ := Fields().Lookup("cr.command")
	assert.Equal(t, "Unknown (0x07)", cmd.Format(uint64(7)))

	data, _ := Fields().Lookup("mem.data")
	assert.Equal(t, "255 (0x000000ff)", data.Format(uint64(255)))

	pll, _ := Fields().Lookup("hps.pll")
	assert.Equal(t, "Unlocked", pll.Format(false))

	raw, _ := Fields().Lookup("extra")
	assert.Equal(t, "3 bytes", raw.Format([]byte{1, 2, 3}))
}

func TestBitLine(t *testing.T) {
	assert.Equal(t, ".... ..1.", bitLine(0x02, 1, 0x02))
	assert.Equal(t, "0... ....", bitLine(0x80, 1, 0x7F))
	assert.Equal(t, ".... .... .... ...1", bitLine(0x01, 2, 0x01))
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "4.0", FormatVersion(40))
	assert.Equal(t, "2.5", FormatVersion(25))
	assert.Equal(t, "0.9", FormatVersion(9))
}

func TestAbbrevOf(t *testing.T) {
	assert.Equal(t, "17_15m_lpf", abbrevOf("17/15m LPF"))
	assert.Equal(t, "t_r_relay", abbrevOf("T/R Relay"))
	assert.Equal(t, "9_5mhz_hpf", abbrevOf("9.5MHz HPF"))
}

func TestReader(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07})

	v24, err := r.U24()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x010203), v24)

	v16, err := r.U16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0405), v16)
	assert.Equal(t, 5, r.Offset())
	assert.Equal(t, 2, r.Remaining())

	_, err = r.U32()
	assert.True(t, errors.Is(err, ErrShortRead))
	assert.Equal(t, 5, r.Offset(), "a failed read does not advance")

	_, err = r.Uint(5)
	assert.Error(t, err)

	b, err := r.Bytes(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x06, 0x07}, b)
	assert.Equal(t, 0, r.Remaining())
}

func TestParseSeverity(t *testing.T) {
	for in, want := range map[string]Severity{"": SeverityNone, "WARN": SeverityWarn, "warning": SeverityWarn, "error": SeverityError} {
		got, err := ParseSeverity(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseSeverity("fatal")
	assert.Error(t, err)
}
