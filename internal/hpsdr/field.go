// Package hpsdr implements a stateful dissector for the openHPSDR Ethernet
// protocol (Protocol 2).
//
// A datagram is classified from its UDP ports and the learned Session state,
// walked by one of eleven subprotocol decoders and returned as a Tree of
// decoded fields. Anomalies never abort a decode; they are recorded as
// annotations on the node where they were found.
package hpsdr

import (
	"fmt"
	"math/bits"
)

// FieldID is the stable integer id of a field descriptor.
type FieldID int

// FieldType is the semantic type of a field.
type FieldType uint8

const (
	TypeU8 FieldType = iota + 1
	TypeU16
	TypeU24
	TypeU32
	TypeU64
	TypeMAC
	TypeIPv4
	TypeBool
	TypeBitmaskU8
	TypeEnumU8
	TypeRaw
	TypeBanner
)

var fieldTypeNames = map[FieldType]string{
	TypeU8:        "u8",
	TypeU16:       "u16",
	TypeU24:       "u24",
	TypeU32:       "u32",
	TypeU64:       "u64",
	TypeMAC:       "mac",
	TypeIPv4:      "ipv4",
	TypeBool:      "bool",
	TypeBitmaskU8: "bitmask-u8",
	TypeEnumU8:    "enum-u8",
	TypeRaw:       "raw",
	TypeBanner:    "banner",
}

func (t FieldType) String() string {
	if s, ok := fieldTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Width returns the wire width in bytes, or 0 for variable width types.
func (t FieldType) Width() int {
	switch t {
	case TypeU8, TypeBool, TypeBitmaskU8, TypeEnumU8:
		return 1
	case TypeU16:
		return 2
	case TypeU24:
		return 3
	case TypeU32, TypeIPv4:
		return 4
	case TypeMAC:
		return 6
	case TypeU64:
		return 8
	}
	return 0
}

// Base selects how integer values are displayed.
type Base uint8

const (
	BaseDec Base = iota
	BaseHex
	BaseDecHex
)

// TrueFalse holds the display strings of a boolean field.
type TrueFalse struct {
	True  string
	False string
}

var (
	tfSetNotSet         = &TrueFalse{"Set", "Not set"}
	tfEnabledDisabled   = &TrueFalse{"Enabled", "Disabled"}
	tfOnOff             = &TrueFalse{"On", "Off"}
	tfActiveInactive    = &TrueFalse{"Active", "Inactive"}
	tfSynchronizedNot   = &TrueFalse{"Synchronized", "Not synchronized"}
	tfPhaseFrequency    = &TrueFalse{"Phase word", "Frequency"}
	tfOverloadOK        = &TrueFalse{"Overload", "OK"}
	tfLockedUnlocked    = &TrueFalse{"Locked", "Unlocked"}
	tfRingTip           = &TrueFalse{"Ring", "Tip"}
	tfExternalInternal  = &TrueFalse{"External", "Internal"}
	tfBreakinManual     = &TrueFalse{"Break-in", "Manual"}
	tfModeBModeA        = &TrueFalse{"Mode B", "Mode A"}
	tfReversedNormal    = &TrueFalse{"Reversed", "Normal"}
	tfLineInMicIn       = &TrueFalse{"Line in", "Mic in"}
	tfMultiplexedSingle = &TrueFalse{"Multiplexed", "Not multiplexed"}
)

// Field is a static descriptor of one decoded field.
type Field struct {
	ID        FieldID
	Abbrev    string
	Label     string
	Type      FieldType
	Base      Base
	Mask      uint64
	Labels    map[uint64]string
	TrueFalse *TrueFalse
	Unit      string
}

// Bit returns the target bit of a masked boolean, or -1.
func (f *Field) Bit() int {
	if f.Mask == 0 {
		return -1
	}
	return bits.TrailingZeros64(f.Mask)
}

// Format renders v as the display value of the field.
func (f *Field) Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		tf := f.TrueFalse
		if tf == nil {
			tf = tfSetNotSet
		}
		if x {
			return tf.True
		}
		return tf.False
	case uint64:
		return f.formatUint(x)
	case []byte:
		return fmt.Sprintf("%d bytes", len(x))
	case fmt.Stringer:
		return x.String()
	case string:
		return x
	}
	return fmt.Sprint(v)
}

func (f *Field) formatUint(x uint64) string {
	var s string
	switch f.Base {
	case BaseHex:
		s = fmt.Sprintf("0x%0*x", f.Type.Width()*2, x)
	case BaseDecHex:
		s = fmt.Sprintf("%d (0x%0*x)", x, f.Type.Width()*2, x)
	default:
		s = fmt.Sprintf("%d", x)
	}
	if f.Labels != nil {
		if name, ok := f.Labels[x]; ok {
			return fmt.Sprintf("%s (%s)", name, s)
		}
		return fmt.Sprintf("Unknown (%s)", s)
	}
	return s + f.Unit
}

// bitLine renders a masked bit the way a protocol analyser shows it,
// e.g. ".... ..1. = Dot: Set".
func bitLine(mask uint64, width int, value uint64) string {
	nbits := width * 8
	buf := make([]byte, 0, nbits+nbits/4)
	for i := nbits - 1; i >= 0; i-- {
		m := uint64(1) << uint(i)
		switch {
		case mask&m == 0:
			buf = append(buf, '.')
		case value&m != 0:
			buf = append(buf, '1')
		default:
			buf = append(buf, '0')
		}
		if i%4 == 0 && i != 0 {
			buf = append(buf, ' ')
		}
	}
	return string(buf)
}

// FormatVersion renders a one-byte version number, 40 -> "4.0".
func FormatVersion(v uint8) string {
	return fmt.Sprintf("%d.%d", v/10, v%10)
}
