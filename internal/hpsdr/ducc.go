package hpsdr

var (
	hfDUCCDACs       = reg("ducc.dacs", "Number of DACs", TypeU8)
	hfDUCCFlags      = reg("ducc.flags", "Mode", TypeU8, baseHex)
	hfDUCCEER        = reg("ducc.eer", "EER", TypeBool, mask(0x01), truefalse(tfEnabledDisabled))
	hfDUCCCW         = reg("ducc.cw", "CW", TypeBool, mask(0x02), truefalse(tfEnabledDisabled))
	hfDUCCRevCW      = reg("ducc.rev_cw", "CW Keys", TypeBool, mask(0x04), truefalse(tfReversedNormal))
	hfDUCCIambic     = reg("ducc.iambic", "Iambic Keyer", TypeBool, mask(0x08), truefalse(tfEnabledDisabled))
	hfDUCCSidetone   = reg("ducc.sidetone", "Sidetone", TypeBool, mask(0x10), truefalse(tfEnabledDisabled))
	hfDUCCModeB      = reg("ducc.cw_mode_b", "CW Keyer Mode", TypeBool, mask(0x20), truefalse(tfModeBModeA))
	hfDUCCStrict     = reg("ducc.cw_strict_spacing", "CW Strict Character Space", TypeBool, mask(0x40), truefalse(tfEnabledDisabled))
	hfDUCCBreakin    = reg("ducc.cw_breakin", "CW Break-in", TypeBool, mask(0x80), truefalse(tfBreakinManual))
	hfDUCCSTLevel    = reg("ducc.sidetone_level", "Sidetone Level", TypeU8)
	hfDUCCSTFreq     = reg("ducc.sidetone_freq", "Sidetone Frequency", TypeU16, unit(" Hz"))
	hfDUCCSpeed      = reg("ducc.keyer_speed", "Keyer Speed", TypeU8, unit(" WPM"))
	hfDUCCWeight     = reg("ducc.keyer_weight", "Keyer Weight", TypeU8)
	hfDUCCHang       = reg("ducc.cw_hang", "CW Hang Delay", TypeU16, unit(" ms"))
	hfDUCCRFDelay    = reg("ducc.rf_delay", "RF Delay", TypeU8, unit(" ms"))
	hfDUCCRate       = reg("ducc.duc0_rate", "DUC0 Sample Rate", TypeU16, unit(" ksps"))
	hfDUCCSize       = reg("ducc.duc0_sample_size", "DUC0 I&Q Sample Size", TypeU8, unit(" bits"))
	hfDUCCReserved1  = reg("ducc.reserved1", "Reserved", TypeRaw)
	hfDUCCPhase      = reg("ducc.duc0_phase_shift", "DUC0 Phase Shift", TypeU16)
	hfDUCCReserved2  = reg("ducc.reserved2", "Reserved", TypeRaw)
	hfDUCCMicFlags   = reg("ducc.mic", "Mic Control", TypeU8, baseHex)
	hfDUCCLineIn     = reg("ducc.line_in", "Input", TypeBool, mask(0x01), truefalse(tfLineInMicIn))
	hfDUCCMicBoost   = reg("ducc.mic_boost", "Mic Boost", TypeBool, mask(0x02), truefalse(tfOnOff))
	hfDUCCOrionPTT   = reg("ducc.orion_mic_ptt", "Orion Mic PTT", TypeBool, mask(0x04), truefalse(&TrueFalse{"Disabled", "Enabled"}))
	hfDUCCOrionRing  = reg("ducc.orion_mic_ring_tip", "Orion Mic PTT Select", TypeBool, mask(0x08), truefalse(tfRingTip))
	hfDUCCOrionBias  = reg("ducc.orion_mic_bias", "Orion Mic Bias", TypeBool, mask(0x10), truefalse(tfOnOff))
	hfDUCCReserved3  = reg("ducc.reserved3", "Reserved", TypeRaw)
	hfDUCCLineGain   = reg("ducc.line_in_gain", "Line In Gain", TypeU8)
	hfDUCCAttenuator = reg("ducc.adc0_attenuator", "ADC0 Step Attenuator for DUC0", TypeU8, unit(" dB"))
)

// decodeDUCCommand walks a DUC-Command datagram.
func decodeDUCCommand(_ *Dissector, w *walker, _ Class) {
	seq, _ := w.uint(hfSequence)
	w.infof("seq=%d", seq)
	w.uint(hfDUCCDACs)
	w.flags(hfDUCCFlags, []*Field{
		hfDUCCEER, hfDUCCCW, hfDUCCRevCW, hfDUCCIambic,
		hfDUCCSidetone, hfDUCCModeB, hfDUCCStrict, hfDUCCBreakin,
	})
	w.uint(hfDUCCSTLevel)
	w.uint(hfDUCCSTFreq)
	w.uint(hfDUCCSpeed)
	w.uint(hfDUCCWeight)
	w.uint(hfDUCCHang)
	w.uint(hfDUCCRFDelay)
	rate, _ := w.uint(hfDUCCRate)
	size, _ := w.uint(hfDUCCSize)
	w.reserved(hfDUCCReserved1, 9)
	w.uint(hfDUCCPhase)
	w.reserved(hfDUCCReserved2, 22)
	w.flags(hfDUCCMicFlags, []*Field{hfDUCCLineIn, hfDUCCMicBoost, hfDUCCOrionPTT, hfDUCCOrionRing, hfDUCCOrionBias})
	w.reserved(hfDUCCReserved3, 7)
	w.uint(hfDUCCLineGain)
	w.uint(hfDUCCAttenuator)
	w.infof("rate=%dksps bits=%d", rate, size)
}
