package hpsdr

import "fmt"

// Per-datagram sample counts of the fixed-size streams.
const (
	MicSamples      = 720
	WidebandSamples = 512
	DDCAudioSamples = 360
	DUCIQSamples    = 240

	// ddciqDefaultSamples is the layout assumed for an unsupported sample
	// width: 240 samples of 24-bit I and Q.
	ddciqDefaultSamples = 240
	ddciqDefaultWidth   = 3

	// Ethernet, IPv4 and UDP headers plus the DDC-I&Q header.
	ddciqFrameOverhead = 42 + 16
	MaxMTU             = 1500
)

var (
	hfMicSamples = reg("micl.samples", "Samples", TypeBanner)
	hfMicSample  = reg("micl.sample", "Mic Sample", TypeU16)

	hfWBDADC     = reg("wbd.adc", "ADC", TypeEnumU8, labels(adcNames))
	hfWBDCount   = reg("wbd.sample_count", "Sample Count", TypeU16)
	hfWBDSamples = reg("wbd.samples", "Samples", TypeBanner)
	hfWBDSample  = reg("wbd.sample", "Wideband Sample", TypeU16)

	hfDDCASamples = reg("ddca.samples", "Samples", TypeBanner)
	hfDDCASample  = reg("ddca.sample", "Audio Sample", TypeBanner)
	hfDDCALeft    = reg("ddca.left", "Left", TypeU16)
	hfDDCARight   = reg("ddca.right", "Right", TypeU16)

	hfDUCIQDUC     = reg("duciq.duc", "DUC", TypeU8)
	hfDUCIQSamples = reg("duciq.samples", "Samples", TypeBanner)
	hfDUCIQSample  = reg("duciq.sample", "I&Q Sample", TypeBanner)
	hfDUCIQI       = reg("duciq.i", "I", TypeU24)
	hfDUCIQQ       = reg("duciq.q", "Q", TypeU24)

	hfDDCIQDDC       = reg("ddciq.ddc", "DDC", TypeU8)
	hfDDCIQTimestamp = reg("ddciq.timestamp", "Timestamp", TypeU64)
	hfDDCIQBits      = reg("ddciq.bits", "Bits per Sample", TypeU16)
	hfDDCIQCount     = reg("ddciq.samples_per_frame", "Samples per Frame", TypeU16)
	hfDDCIQFrameSize = reg("ddciq.frame_size", "Ethernet Frame Size", TypeU16, unit(" bytes"))
	hfDDCIQSamples   = reg("ddciq.samples", "Samples", TypeBanner)
	hfDDCIQSample    = reg("ddciq.sample", "I&Q Sample", TypeBanner)
	hfDDCIQI         = reg("ddciq.i", "I", TypeU32)
	hfDDCIQQ         = reg("ddciq.q", "Q", TypeU32)
)

// decodeMicLine walks a Mic-Line datagram of 720 16-bit samples.
func decodeMicLine(_ *Dissector, w *walker, _ Class) {
	seq, _ := w.uint(hfSequence)
	w.infof("seq=%d", seq)
	w.note("Sample count fixed at %d per datagram", MicSamples)
	w.begin(hfMicSamples, "")
	samples(w, MicSamples, func(i int) {
		if v, n := w.uint(hfMicSample); n != nil {
			n.Text = fmt.Sprintf("Sample %d: %d", i, v)
		}
	})
	w.end()
}

// decodeWideband walks a Wideband-Data datagram. The ADC is the offset of
// the source port from the wideband base.
func decodeWideband(_ *Dissector, w *walker, c Class) {
	w.generated(hfWBDADC, uint64(c.Index))
	seq, _ := w.uint(hfSequence)
	w.infof("adc=%d seq=%d", c.Index, seq)
	w.generated(hfWBDCount, uint64(WidebandSamples))
	w.begin(hfWBDSamples, "")
	samples(w, WidebandSamples, func(i int) {
		if v, n := w.uint(hfWBDSample); n != nil {
			n.Text = fmt.Sprintf("Sample %d: %d", i, v)
		}
	})
	w.end()
}

// decodeDDCAudio walks a DDC-Audio datagram of 360 left/right pairs.
func decodeDDCAudio(_ *Dissector, w *walker, _ Class) {
	seq, _ := w.uint(hfSequence)
	w.infof("seq=%d", seq)
	w.note("Sample count fixed at %d per datagram", DDCAudioSamples)
	w.begin(hfDDCASamples, "")
	samples(w, DDCAudioSamples, func(i int) {
		w.begin(hfDDCASample, fmt.Sprintf("Sample %d", i))
		w.uint(hfDDCALeft)
		w.uint(hfDDCARight)
		w.end()
	})
	w.end()
}

// decodeDUCIQ walks a DUC-I&Q datagram of 240 24-bit I&Q pairs.
func decodeDUCIQ(_ *Dissector, w *walker, c Class) {
	w.generated(hfDUCIQDUC, uint64(c.Index))
	seq, _ := w.uint(hfSequence)
	w.infof("duc=%d seq=%d", c.Index, seq)
	w.begin(hfDUCIQSamples, "")
	samples(w, DUCIQSamples, func(i int) {
		w.begin(hfDUCIQSample, fmt.Sprintf("Sample %d", i))
		w.uint(hfDUCIQI)
		w.uint(hfDUCIQQ)
		w.end()
	})
	w.end()
}

// DDCIQFrameSize returns the Ethernet frame size of a DDC-I&Q datagram.
func DDCIQFrameSize(bits, samples int) int {
	return ddciqFrameOverhead + 2*(bits/8)*samples
}

// decodeDDCIQ walks a DDC-I&Q datagram. The sample width and count come
// from the header; unsupported widths fall back to 240 24-bit pairs.
func decodeDDCIQ(d *Dissector, w *walker, c Class) {
	w.generated(hfDDCIQDDC, uint64(c.Index))
	seq, _ := w.uint(hfSequence)
	w.uint(hfDDCIQTimestamp)
	bits, bitsNode := w.uint(hfDDCIQBits)
	count, _ := w.uint(hfDDCIQCount)
	if w.failed() {
		return
	}
	w.infof("ddc=%d seq=%d bits=%d samples=%d", c.Index, seq, bits, count)

	width, n := int(bits/8), int(count)
	switch bits {
	case 8, 16, 24, 32:
	default:
		bitsNode.Annotate(SeverityWarn, "unsupported bits per sample %d, assuming %d x 24-bit", bits, ddciqDefaultSamples)
		width, n = ddciqDefaultWidth, ddciqDefaultSamples
	}

	frame := DDCIQFrameSize(width*8, n)
	fs := w.generated(hfDDCIQFrameSize, uint64(frame))
	if d.session.prefs.DDCIQMTUCheck && frame > MaxMTU {
		fs.Annotate(SeverityWarn, "Larger then maximum MTU, %d bytes over", frame-MaxMTU)
	}
	if n == 0 {
		return
	}
	w.note("Samples assume non-synchronous, non-multiplexed DDC operation")
	w.begin(hfDDCIQSamples, "")
	samples(w, n, func(i int) {
		w.begin(hfDDCIQSample, fmt.Sprintf("Sample %d", i))
		w.uintW(hfDDCIQI, width)
		w.uintW(hfDDCIQQ, width)
		w.end()
	})
	w.end()
}

// samples runs fn for each sample index until the walker runs dry.
func samples(w *walker, n int, fn func(i int)) {
	for i := 0; i < n && !w.failed(); i++ {
		fn(i)
	}
}
