package hpsdr

import "fmt"

const (
	numAlex      = 8
	numStepAtten = 8
	hpcReserved  = 1052
)

var (
	hfHPCRun       = reg("hpc.run_flags", "Run", TypeU8, baseHex)
	hfHPCRunBit    = reg("hpc.run", "Run", TypeBool, mask(0x01), truefalse(tfSetNotSet))
	hfHPCPTT       = func() []*Field {
		out := make([]*Field, 4)
		for i := range out {
			out[i] = reg(fmt.Sprintf("hpc.ptt%d", i), fmt.Sprintf("PTT%d", i), TypeBool,
				mask(1<<uint(i+1)), truefalse(tfActiveInactive))
		}
		return out
	}()
	hfHPCCW        = reg("hpc.cw_flags", "CW", TypeU8, baseHex)
	hfHPCCWSource  = reg("hpc.cw_source", "CW Keyer Source", TypeBool, mask(0x01), truefalse(tfExternalInternal))
	hfHPCDot       = reg("hpc.dot", "Dot", TypeBool, mask(0x02), truefalse(tfActiveInactive))
	hfHPCDash      = reg("hpc.dash", "Dash", TypeBool, mask(0x04), truefalse(tfActiveInactive))
	hfHPCReserved1 = reg("hpc.reserved1", "Reserved", TypeRaw)
	hfHPCDDCFreq   = regN(NumDDC, "hpc.ddc%d_freq", "DDC%d Frequency / Phase Word", TypeU32)
	hfHPCDUCFreq   = regN(4, "hpc.duc%d_freq", "DUC%d Frequency / Phase Word", TypeU32)
	hfHPCDrive     = regN(4, "hpc.duc%d_drive", "DUC%d Drive Level", TypeU8)
	hfHPCReserved2 = reg("hpc.reserved2", "Reserved", TypeRaw)
	hfHPCOC        = reg("hpc.open_collector", "Open Collector Outputs", TypeBitmaskU8, baseHex)
	hfHPCOCBits    = bitmaskFields("hpc.open_collector", "Open Collector %d", tfSetNotSet)
	hfHPCDB9       = reg("hpc.db9", "DB9 Outputs", TypeBitmaskU8, baseHex)
	hfHPCDB9Bits   = bitFields("hpc.db9", [8]string{"DB9 Out 1", "DB9 Out 2", "DB9 Out 3", "DB9 Out 4"}, tfSetNotSet)
	hfHPCMercAtt   = reg("hpc.merc_att", "Mercury Attenuators", TypeBitmaskU8, baseHex)
	hfHPCMercBits  = bitFields("hpc.merc_att", [8]string{"Mercury1 20 dB", "Mercury2 20 dB", "Mercury3 20 dB", "Mercury4 20 dB"}, tfEnabledDisabled)
	hfHPCAlex      = regN(numAlex, "hpc.alex%d", "Alex%d Control", TypeU32, baseHex)
	hfHPCAlexByte  = regN(4, "hpc.alex0.byte%d", "Alex0 Byte %d", TypeBitmaskU8, baseHex)
	hfHPCAlexBits  = [4][]*Field{
		bitFields("hpc.alex0", [8]string{
			"ANT1", "ANT2", "ANT3", "T/R Relay", "TX Red LED", "6m LPF", "12/10m LPF", "17/15m LPF",
		}, tfSetNotSet),
		bitFields("hpc.alex0", [8]string{
			4: "30/20m LPF", 5: "60/40m LPF", 6: "80m LPF", 7: "160m LPF",
		}, tfSetNotSet),
		bitFields("hpc.alex0", [8]string{
			"XVTR RX In", "RX1 In", "RX1 Out", "RX Bypass Out", "HPF Bypass", "10dB Attenuator", "20dB Attenuator", "RX Red LED",
		}, tfSetNotSet),
		bitFields("hpc.alex0", [8]string{
			1: "13MHz HPF", 2: "20MHz HPF", 3: "6m Preamp", 4: "9.5MHz HPF", 5: "6.5MHz HPF", 6: "1.5MHz HPF",
		}, tfSetNotSet),
	}
	hfHPCStepAtt = regN(numStepAtten, "hpc.adc%d_step_att", "ADC%d Step Attenuator", TypeU8, unit(" dB"))
)

// decodeHPCommand walks a High-Priority-Command datagram. Alex words and
// step attenuators are sent highest index first.
func decodeHPCommand(_ *Dissector, w *walker, _ Class) {
	seq, _ := w.uint(hfSequence)
	w.infof("seq=%d", seq)
	run, _ := w.flags(hfHPCRun, append([]*Field{hfHPCRunBit}, hfHPCPTT...))
	w.flags(hfHPCCW, []*Field{hfHPCCWSource, hfHPCDot, hfHPCDash})
	w.reserved(hfHPCReserved1, 3)
	var ddc0 uint64
	for i, f := range hfHPCDDCFreq {
		v, _ := w.uint(f)
		if i == 0 {
			ddc0 = v
		}
	}
	for _, f := range hfHPCDUCFreq {
		w.uint(f)
	}
	for _, f := range hfHPCDrive {
		w.uint(f)
	}
	w.reserved(hfHPCReserved2, hpcReserved)
	w.flags(hfHPCOC, hfHPCOCBits)
	w.flags(hfHPCDB9, hfHPCDB9Bits)
	w.flags(hfHPCMercAtt, hfHPCMercBits)
	for i := numAlex - 1; i >= 0; i-- {
		if i == 0 {
			hpcAlex0(w)
			continue
		}
		w.uint(hfHPCAlex[i])
	}
	for i := numStepAtten - 1; i >= 0; i-- {
		w.uint(hfHPCStepAtt[i])
	}

	if run&0x01 != 0 {
		w.infof("run")
	}
	if run&0x1e != 0 {
		w.infof("ptt=0x%x", (run>>1)&0x0f)
	}
	w.infof("ddc0=%d", ddc0)
}

// hpcAlex0 decodes the live Alex word as four bytes of named bits, most
// significant byte first.
func hpcAlex0(w *walker) {
	b, ok := w.bytes(hfHPCAlex[0], 4)
	if !ok {
		return
	}
	word := uint64(b[0])<<24 | uint64(b[1])<<16 | uint64(b[2])<<8 | uint64(b[3])
	n := w.leaf(hfHPCAlex[0], 4, word)
	n.raw = word
	for i := 0; i < 4; i++ {
		v := uint64(b[i])
		sub := n.add(&Node{
			Field:  hfHPCAlexByte[i],
			Offset: n.Offset + i,
			Length: 1,
			Value:  v,
			Text:   fmt.Sprintf("Alex0 Bits %d-%d: 0x%02x", 31-8*i, 24-8*i, v),
			raw:    v,
		})
		for _, bf := range hfHPCAlexBits[i] {
			sub.add(&Node{Field: bf, Offset: sub.Offset, Length: 1, Value: v&bf.Mask != 0, raw: v})
		}
	}
}

