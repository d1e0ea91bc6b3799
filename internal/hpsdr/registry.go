package hpsdr

import (
	"fmt"
	"sort"
)

// AbbrevPrefix is the filter-name prefix of every registered field.
const AbbrevPrefix = "openhpsdr-e"

// Registry is the table of every field descriptor the dissector can emit.
// It is filled during package initialisation and read-only afterwards.
type Registry struct {
	fields   []*Field
	byAbbrev map[string]*Field
}

var registry = &Registry{byAbbrev: make(map[string]*Field)}

// Fields returns the process-wide field registry.
func Fields() *Registry { return registry }

// Len returns the number of registered fields.
func (r *Registry) Len() int { return len(r.fields) }

// ByID returns the descriptor with the given id.
func (r *Registry) ByID(id FieldID) (*Field, bool) {
	if id < 0 || int(id) >= len(r.fields) {
		return nil, false
	}
	return r.fields[id], true
}

// Lookup returns the descriptor registered under abbrev. The abbreviation
// may be given with or without the AbbrevPrefix.
func (r *Registry) Lookup(abbrev string) (*Field, bool) {
	if f, ok := r.byAbbrev[abbrev]; ok {
		return f, true
	}
	f, ok := r.byAbbrev[AbbrevPrefix+"."+abbrev]
	return f, ok
}

// All returns every descriptor ordered by id.
func (r *Registry) All() []*Field {
	out := make([]*Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Abbrevs returns the sorted list of registered abbreviations.
func (r *Registry) Abbrevs() []string {
	out := make([]string, 0, len(r.byAbbrev))
	for k := range r.byAbbrev {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) add(f *Field) *Field {
	if _, dup := r.byAbbrev[f.Abbrev]; dup {
		panic("hpsdr: duplicate field " + f.Abbrev)
	}
	f.ID = FieldID(len(r.fields))
	r.fields = append(r.fields, f)
	r.byAbbrev[f.Abbrev] = f
	return f
}

type fieldOpt func(*Field)

func baseHex(f *Field)    { f.Base = BaseHex }
func baseDecHex(f *Field) { f.Base = BaseDecHex }
func unit(u string) fieldOpt {
	return func(f *Field) { f.Unit = u }
}
func mask(m uint64) fieldOpt {
	return func(f *Field) { f.Mask = m }
}
func labels(m map[uint64]string) fieldOpt {
	return func(f *Field) { f.Labels = m }
}
func truefalse(tf *TrueFalse) fieldOpt {
	return func(f *Field) { f.TrueFalse = tf }
}

func reg(abbrev, label string, t FieldType, opts ...fieldOpt) *Field {
	f := &Field{Abbrev: AbbrevPrefix + "." + abbrev, Label: label, Type: t}
	for _, o := range opts {
		o(f)
	}
	return registry.add(f)
}

// regN registers n indexed fields. abbrev and label are format strings
// taking the index.
func regN(n int, abbrev, label string, t FieldType, opts ...fieldOpt) []*Field {
	out := make([]*Field, n)
	for i := range out {
		out[i] = reg(fmt.Sprintf(abbrev, i), fmt.Sprintf(label, i), t, opts...)
	}
	return out
}

// bitFields registers one masked boolean per name for a shared byte. Empty
// names leave the bit undecoded.
func bitFields(prefix string, names [8]string, tf *TrueFalse) []*Field {
	var out []*Field
	for bit, name := range names {
		if name == "" {
			continue
		}
		out = append(out, reg(
			fmt.Sprintf("%s.%s", prefix, abbrevOf(name)), name, TypeBool,
			mask(1<<uint(bit)), truefalse(tf)))
	}
	return out
}

// bitmaskFields registers one boolean per bit of a bitmask byte.
func bitmaskFields(prefix, label string, tf *TrueFalse) []*Field {
	out := make([]*Field, 8)
	for bit := range out {
		out[bit] = reg(fmt.Sprintf("%s.b%d", prefix, bit), fmt.Sprintf(label, bit), TypeBool,
			mask(1<<uint(bit)), truefalse(tf))
	}
	return out
}

func abbrevOf(name string) string {
	buf := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z':
			buf = append(buf, c+'a'-'A')
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			buf = append(buf, c)
		default:
			if len(buf) > 0 && buf[len(buf)-1] != '_' {
				buf = append(buf, '_')
			}
		}
	}
	for len(buf) > 0 && buf[len(buf)-1] == '_' {
		buf = buf[:len(buf)-1]
	}
	return string(buf)
}

// Value-label tables shared by several subprotocols.
var (
	BoardNames = map[uint64]string{
		0:  "Atlas",
		1:  "Hermes",
		2:  "Hermes II",
		3:  "Angelia",
		4:  "Orion",
		5:  "Orion MkII",
		6:  "Hermes Lite",
		10: "Saturn",
	}

	adcNames = map[uint64]string{
		0: "ADC0", 1: "ADC1", 2: "ADC2", 3: "ADC3",
		4: "ADC4", 5: "ADC5", 6: "ADC6", 7: "ADC7",
	}
)

// Fields shared by every subprotocol.
var (
	hfProtocol  = registry.add(&Field{Abbrev: AbbrevPrefix, Label: "openHPSDR Ethernet Protocol", Type: TypeBanner})
	hfSequence  = reg("seq", "Sequence Number", TypeU32)
	hfExtra     = reg("extra", "Extra Data", TypeRaw)
	hfMalformed = reg("malformed", "Malformed Packet", TypeBanner)
	hfNote      = reg("note", "Note", TypeBanner)
	hfDirection = reg("direction", "Direction", TypeBanner)
)

// indexedBits registers n booleans whose mask cycles through the bits of
// consecutive bytes, e.g. one enable bit per DDC across a 10-byte mask.
func indexedBits(n int, abbrev, label string, tf *TrueFalse) []*Field {
	out := make([]*Field, n)
	for i := range out {
		out[i] = reg(fmt.Sprintf(abbrev, i), fmt.Sprintf(label, i), TypeBool,
			mask(1<<uint(i%8)), truefalse(tf))
	}
	return out
}
