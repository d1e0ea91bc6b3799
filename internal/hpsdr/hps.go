package hpsdr

var (
	hfHPSFlags     = reg("hps.flags", "Status", TypeU8, baseHex)
	hfHPSPTT       = reg("hps.ptt", "PTT", TypeBool, mask(0x01), truefalse(tfActiveInactive))
	hfHPSDot       = reg("hps.dot", "Dot", TypeBool, mask(0x02), truefalse(tfActiveInactive))
	hfHPSDash      = reg("hps.dash", "Dash", TypeBool, mask(0x04), truefalse(tfActiveInactive))
	hfHPSRes3      = reg("hps.reserved_bit3", "Reserved", TypeBool, mask(0x08))
	hfHPSPLL       = reg("hps.pll", "PLL", TypeBool, mask(0x10), truefalse(tfLockedUnlocked))
	hfHPSFIFOEmpty = reg("hps.fifo_empty", "DUC FIFO Empty", TypeBool, mask(0x20))
	hfHPSFIFOFull  = reg("hps.fifo_full", "DUC FIFO Full", TypeBool, mask(0x40))
	hfHPSOverload  = reg("hps.adc_overload", "ADC Overload", TypeBitmaskU8, baseHex)
	hfHPSOverBits  = bitmaskFields("hps.adc_overload", "ADC%d", tfOverloadOK)
	hfHPSExciter   = regN(4, "hps.exciter_power%d", "Exciter Power %d", TypeU16)
	hfHPSForward   = regN(4, "hps.fwd_power%d", "Forward Power %d", TypeU16)
	hfHPSReverse   = regN(4, "hps.rev_power%d", "Reverse Power %d", TypeU16)
	hfHPSReserved  = reg("hps.reserved", "Reserved", TypeRaw)
	hfHPSSupply    = reg("hps.supply_volts", "Supply Voltage", TypeU16)
	hfHPSUserADC   = regN(4, "hps.user_adc%d", "User ADC%d", TypeU16)
	hfHPSUserLogic = reg("hps.user_logic", "User Logic", TypeBitmaskU8, baseHex)
	hfHPSUserBits  = bitmaskFields("hps.user_logic", "User I/O %d", tfSetNotSet)
)

// decodeHPStatus walks a High-Priority-Status datagram. Only the first
// of each four power words is driven by current hardware.
func decodeHPStatus(_ *Dissector, w *walker, _ Class) {
	seq, _ := w.uint(hfSequence)
	w.infof("seq=%d", seq)
	flags, _ := w.flags(hfHPSFlags, []*Field{hfHPSPTT, hfHPSDot, hfHPSDash, hfHPSRes3, hfHPSPLL, hfHPSFIFOEmpty, hfHPSFIFOFull})
	over, _ := w.flags(hfHPSOverload, hfHPSOverBits)
	for _, group := range [][]*Field{hfHPSExciter, hfHPSForward, hfHPSReverse} {
		for _, f := range group {
			w.uint(f)
		}
	}
	w.reserved(hfHPSReserved, 19)
	w.uint(hfHPSSupply)
	for _, f := range hfHPSUserADC {
		w.uint(f)
	}
	w.flags(hfHPSUserLogic, hfHPSUserBits)

	if flags&0x01 != 0 {
		w.infof("PTT")
	}
	if over != 0 {
		w.infof("overload=0x%02x", over)
	}
}
