package hpsdr

import (
	"fmt"
	"math/bits"
)

const (
	ddcEnableBytes = NumDDC / 8
	ddccReserved   = 866
)

type ddcConfigFields struct {
	adc, rate, cic1, cic2, size *Field
}

var (
	hfDDCCADCs      = reg("ddcc.adcs", "Number of ADCs", TypeU8)
	hfDDCCDither    = reg("ddcc.dither", "ADC Dither", TypeBitmaskU8, baseHex)
	hfDDCCDitherB   = bitmaskFields("ddcc.dither", "ADC%d Dither", tfOnOff)
	hfDDCCRandom    = reg("ddcc.random", "ADC Random", TypeBitmaskU8, baseHex)
	hfDDCCRandomB   = bitmaskFields("ddcc.random", "ADC%d Random", tfOnOff)
	hfDDCCEnable    = reg("ddcc.ddc_enable", "DDC Enable", TypeBanner)
	hfDDCCEnableB   = reg("ddcc.ddc_enable.byte", "DDC Enable Byte", TypeBitmaskU8, baseHex)
	hfDDCCEnableBit = indexedBits(NumDDC, "ddcc.ddc_enable.ddc%d", "DDC%d", tfEnabledDisabled)
	hfDDCCConfig    = reg("ddcc.ddc", "DDC Configuration", TypeBanner)
	hfDDCCConfigs   = func() []ddcConfigFields {
		out := make([]ddcConfigFields, NumDDC)
		for i := range out {
			p := fmt.Sprintf("ddcc.ddc%d.", i)
			out[i] = ddcConfigFields{
				adc:  reg(p+"adc", "ADC Assignment", TypeEnumU8, labels(adcNames)),
				rate: reg(p+"rate", "Sample Rate", TypeU16, unit(" ksps")),
				cic1: reg(p+"cic1", "CIC1 (reserved)", TypeU8),
				cic2: reg(p+"cic2", "CIC2 (reserved)", TypeU8),
				size: reg(p+"sample_size", "I&Q Sample Size", TypeU8, unit(" bits")),
			}
		}
		return out
	}()
	hfDDCCReserved = reg("ddcc.reserved", "Reserved", TypeRaw)
	hfDDCCSync     = reg("ddcc.sync", "Synchronisation Matrix", TypeBanner)
	hfDDCCSyncB    = reg("ddcc.sync.byte", "DDC Synchronisation", TypeBitmaskU8, baseHex)
	hfDDCCSyncBits = bitmaskFields("ddcc.sync", "Synchronised to DDC%d", tfSynchronizedNot)
	hfDDCCMux      = reg("ddcc.mux", "DDC Multiplex", TypeBitmaskU8, baseHex)
	hfDDCCMuxBits  = bitmaskFields("ddcc.mux", "DDC%d", tfMultiplexedSingle)
)

// decodeDDCCommand walks a DDC-Command datagram. All 80 configuration
// slots are decoded whatever the ADC count says.
func decodeDDCCommand(_ *Dissector, w *walker, _ Class) {
	seq, _ := w.uint(hfSequence)
	w.infof("seq=%d", seq)
	adcs, _ := w.uint(hfDDCCADCs)
	w.flags(hfDDCCDither, hfDDCCDitherB)
	w.flags(hfDDCCRandom, hfDDCCRandomB)

	enabled := 0
	w.begin(hfDDCCEnable, "")
	for b := 0; b < ddcEnableBytes; b++ {
		v, n := w.flags(hfDDCCEnableB, hfDDCCEnableBit[b*8:b*8+8])
		if n == nil {
			break
		}
		n.Text = fmt.Sprintf("DDC%d-%d Enable: 0x%02x", b*8, b*8+7, v)
		enabled += bits.OnesCount8(uint8(v))
	}
	w.end()

	for i, f := range hfDDCCConfigs {
		if w.failed() {
			break
		}
		w.begin(hfDDCCConfig, fmt.Sprintf("DDC%d", i))
		w.uint(f.adc)
		w.uint(f.rate)
		w.uint(f.cic1)
		w.uint(f.cic2)
		w.uint(f.size)
		w.end()
	}
	w.reserved(hfDDCCReserved, ddccReserved)

	w.begin(hfDDCCSync, "")
	for i := 0; i < NumDDC; i++ {
		v, n := w.flags(hfDDCCSyncB, hfDDCCSyncBits)
		if n == nil {
			break
		}
		n.Text = fmt.Sprintf("DDC%d Synchronisation: 0x%02x", i, v)
	}
	w.end()
	w.flags(hfDDCCMux, hfDDCCMuxBits)
	w.infof("adcs=%d enabled=%d", adcs, enabled)
}

