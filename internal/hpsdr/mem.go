package hpsdr

import "fmt"

// memEntrySize is one address/data pair.
const memEntrySize = 6

var (
	hfMemEntries = reg("mem.entries", "Registers", TypeBanner)
	hfMemEntry   = reg("mem.entry", "Register", TypeBanner)
	hfMemAddr    = reg("mem.addr", "Address", TypeU16, baseHex)
	hfMemData    = reg("mem.data", "Data", TypeU32, baseDecHex)
	hfMemCount   = reg("mem.count", "Register Count", TypeU16)
)

// decodeMemory walks a Memory-Mapped datagram: address/data pairs until
// fewer than six bytes remain. Leftovers are claimed as extra data.
func decodeMemory(_ *Dissector, w *walker, c Class) {
	seq, _ := w.uint(hfSequence)
	if w.failed() {
		return
	}
	count := w.r.Remaining() / memEntrySize
	w.generated(hfMemCount, uint64(count))
	w.infof("%s seq=%d registers=%d", c.Direction, seq, count)
	w.begin(hfMemEntries, "")
	for i := 0; i < count; i++ {
		e := w.begin(hfMemEntry, "")
		addr, _ := w.uint(hfMemAddr)
		data, _ := w.uint(hfMemData)
		w.end()
		e.Text = fmt.Sprintf("Register %d: [0x%04x] = 0x%08x", i, addr, data)
	}
	w.end()
}
