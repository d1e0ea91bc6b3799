package hpsdr

import "fmt"

// Command-Reply command bytes.
const (
	CmdGeneral   = 0x00
	CmdDiscovery = 0x02
	CmdSetIP     = 0x03
	CmdErase     = 0x04
	CmdProgram   = 0x05
)

// Command-Reply datagrams are nominally this long.
const crLength = 60

const programBlockSize = 256

var crCommandNames = map[uint64]string{
	CmdGeneral:   "General",
	CmdDiscovery: "Discovery",
	CmdSetIP:     "Set IP / Erase Ack / In Use",
	CmdErase:     "Erase / Program Data Request",
	CmdProgram:   "Program",
}

var (
	atlasMercNames = map[uint64]string{
		0: "1 Mercury",
		1: "2 Mercury",
		2: "3 Mercury",
		3: "4 Mercury",
	}
	refClockNames = map[uint64]string{
		0: "Atlas / Excalibur",
		1: "Penelope",
		2: "Mercury",
	}
)

var (
	hfCRCommand = reg("cr.command", "Command", TypeEnumU8, baseHex, labels(crCommandNames))
	hfCRBody    = reg("cr.body", "Command Body", TypeRaw)

	// General
	hfGenDDCCPort   = reg("cr.gen.ddcc_port", "DDC Command Port", TypeU16)
	hfGenDUCCPort   = reg("cr.gen.ducc_port", "DUC Command Port", TypeU16)
	hfGenHPCPort    = reg("cr.gen.hpc_port", "High Priority Command Port", TypeU16)
	hfGenHPSPort    = reg("cr.gen.hps_port", "High Priority Status Port", TypeU16)
	hfGenDDCAPort   = reg("cr.gen.ddca_port", "DDC Audio Port", TypeU16)
	hfGenDUCIQPort  = reg("cr.gen.duciq_port", "DUC I&Q Base Port", TypeU16)
	hfGenDDCIQPort  = reg("cr.gen.ddciq_port", "DDC I&Q Base Port", TypeU16)
	hfGenMicLPort   = reg("cr.gen.micl_port", "Mic Line Port", TypeU16)
	hfGenWBDPort    = reg("cr.gen.wbd_port", "Wideband Base Port", TypeU16)
	hfGenWBEnable   = reg("cr.gen.wb_enable", "Wideband Enable", TypeBitmaskU8, baseHex)
	hfGenWBEnBits   = bitmaskFields("cr.gen.wb_enable", "ADC%d Wideband", tfEnabledDisabled)
	hfGenWBSamples  = reg("cr.gen.wb_samples", "Wideband Samples per Packet", TypeU16)
	hfGenWBSize     = reg("cr.gen.wb_sample_size", "Wideband Sample Size", TypeU8, unit(" bits"))
	hfGenWBRate     = reg("cr.gen.wb_update_rate", "Wideband Update Rate", TypeU8, unit(" ms"))
	hfGenMemHost    = reg("cr.gen.mem_host_port", "Memory Mapped Host Port", TypeU16)
	hfGenMemHW      = reg("cr.gen.mem_hw_port", "Memory Mapped Hardware Port", TypeU16)
	hfGenPWMMin     = reg("cr.gen.pwm_min", "Envelope PWM Min (reserved)", TypeU16)
	hfGenPWMMax     = reg("cr.gen.pwm_max", "Envelope PWM Max (reserved)", TypeU16)
	hfGenFlags      = reg("cr.gen.flags", "Options", TypeU8, baseHex)
	hfGenTimestamp  = reg("cr.gen.iq_timestamp", "I&Q Timestamp", TypeBool, mask(0x01), truefalse(tfEnabledDisabled))
	hfGenVITA       = reg("cr.gen.vita49", "VITA-49", TypeBool, mask(0x02), truefalse(tfEnabledDisabled))
	hfGenVNA        = reg("cr.gen.vna", "VNA Mode", TypeBool, mask(0x04), truefalse(tfEnabledDisabled))
	hfGenFreqPhase  = reg("cr.gen.freq_phase", "Frequency or Phase Word", TypeBool, mask(0x08), truefalse(tfPhaseFrequency))
	hfGenReserved   = reg("cr.gen.reserved", "Reserved", TypeRaw)
	hfGenAtlasMerc  = reg("cr.gen.atlas_merc_cfg", "Atlas Bus Mercury Configuration", TypeEnumU8, labels(atlasMercNames))
	hfGenRefClock   = reg("cr.gen.ref_10mhz", "10 MHz Reference", TypeEnumU8, labels(refClockNames))
	hfGenHWFlags    = reg("cr.gen.hw_flags", "Hardware Options", TypeU8, baseHex)
	hfGenPA         = reg("cr.gen.pa", "Power Amplifier", TypeBool, mask(0x01), truefalse(tfEnabledDisabled))
	hfGenApollo     = reg("cr.gen.apollo_atu_auto", "Apollo ATU Auto Tune", TypeBool, mask(0x02), truefalse(tfEnabledDisabled))
	hfGenMercCommon = reg("cr.gen.merc_common_freq", "Mercury Common Frequency", TypeBool, mask(0x04), truefalse(tfEnabledDisabled))
	hfGen12288      = reg("cr.gen.ref_122_88", "122.88 MHz Reference Source", TypeBool, mask(0x08), truefalse(&TrueFalse{"Mercury", "Penelope"}))
	hfGenAlex       = reg("cr.gen.alex_enable", "Alex Enable", TypeBitmaskU8, baseHex)
	hfGenAlexBits   = bitmaskFields("cr.gen.alex_enable", "Alex%d", tfEnabledDisabled)
	hfGenPad        = reg("cr.gen.pad", "Padding", TypeRaw)

	// Discovery, In-use Discovery, Program Data Request, Erase Ack
	hfDiscPad      = reg("cr.disc.pad", "Padding", TypeRaw)
	hfDiscMAC      = reg("cr.disc.mac", "MAC Address", TypeMAC)
	hfDiscBoard    = reg("cr.disc.board", "Board Type", TypeEnumU8, labels(BoardNames))
	hfDiscProto    = reg("cr.disc.proto_ver", "Protocol Version", TypeU8)
	hfDiscFW       = reg("cr.disc.fw_ver", "Firmware Version", TypeU8)
	hfDiscMercVer  = regN(4, "cr.disc.merc%d_ver", "Mercury%d Version", TypeU8)
	hfDiscPennyVer = reg("cr.disc.penny_ver", "Penny Version", TypeU8)
	hfDiscMetisVer = reg("cr.disc.metis_ver", "Metis Version", TypeU8)
	hfDiscDDCs     = reg("cr.disc.ddcs", "Number of DDCs", TypeU8)
	hfDiscFreqPh   = reg("cr.disc.freq_phase", "Frequency or Phase Word", TypeBool, truefalse(tfPhaseFrequency))
	hfDiscReplyPad = reg("cr.disc.reply_pad", "Padding", TypeRaw)
	hfEraseAckPad  = reg("cr.erase_ack.pad", "Padding", TypeRaw)

	// Set IP
	hfSetIPMAC = reg("cr.setip.mac", "MAC Address", TypeMAC)
	hfSetIPIP  = reg("cr.setip.ip", "IP Address", TypeIPv4)
	hfSetIPPad = reg("cr.setip.pad", "Padding", TypeRaw)

	// Erase
	hfErasePad = reg("cr.erase.pad", "Padding", TypeRaw)

	// Program
	hfProgBlocks   = reg("cr.prog.blocks", "Total Blocks", TypeU32)
	hfProgBlock    = reg("cr.prog.block", "Program Block", TypeBanner)
	hfProgData     = reg("cr.prog.data", "Program Data", TypeRaw)
	hfProgPad      = reg("cr.prog.pad", "Program Data Padding", TypeRaw)
	hfProgExpected = reg("cr.prog.expected", "Expected Data Length", TypeU32, unit(" bytes"))
)

// decodeCommandReply walks a port-1024 datagram.
func decodeCommandReply(d *Dissector, w *walker, c Class) {
	seq, _ := w.uint(hfSequence)
	cmd, cmdNode := w.uint(hfCRCommand)
	if cmdNode == nil {
		return
	}
	host := c.Direction == HostToHW
	switch {
	case cmd == CmdGeneral && host:
		w.infof("General seq=%d", seq)
		crGeneral(d, w)
	case cmd == CmdDiscovery && host:
		w.infof("Discovery Request seq=%d", seq)
		w.pad(hfDiscPad, crLength-5)
	case cmd == CmdDiscovery:
		w.infof("Discovery Reply seq=%d", seq)
		crDiscoveryReply(d, w, true)
	case cmd == CmdSetIP && host:
		w.infof("Set IP seq=%d", seq)
		crSetIP(w)
	case cmd == CmdSetIP:
		if crInUse(w.tree.payload) {
			w.infof("In-use Discovery Reply seq=%d", seq)
			crDiscoveryReply(d, w, true)
		} else {
			w.infof("Erase Ack seq=%d", seq)
			crEraseAck(w)
		}
	case cmd == CmdErase && host:
		w.infof("Erase seq=%d", seq)
		w.pad(hfErasePad, crLength-5)
	case cmd == CmdErase:
		w.infof("Program Data Request seq=%d", seq)
		crDiscoveryReply(d, w, false)
	case cmd == CmdProgram && host:
		w.infof("Program seq=%d", seq)
		crProgram(d, w, seq)
	default:
		w.infof("Unknown Command 0x%02x seq=%d", cmd, seq)
		cmdNode.Annotate(SeverityWarn, "unknown command 0x%02x (%s)", cmd, c.Direction)
		if rem := w.r.Remaining(); rem > 0 {
			w.raw(hfCRBody, rem)
		}
	}
	if name := d.session.BoardName(); name != "" {
		w.infof("board=%s", name)
	}
}

// crInUse tells an In-use Discovery Reply from an Erase Ack: the reply
// carries non-zero versions or DDC count past the fields both share.
func crInUse(p []byte) bool {
	span := func(from, to int) []byte {
		if from >= len(p) {
			return nil
		}
		return p[from:min(to, len(p))]
	}
	return !allZero(span(14, 20)) || !allZero(span(20, 22))
}

func crGeneral(d *Dissector, w *walker) {
	learn := func(f *Field, slot PortSlot) {
		if v, n := w.uint(f); n != nil {
			d.session.Learn(slot, uint16(v))
		}
	}
	learn(hfGenDDCCPort, SlotDDCCommand)
	learn(hfGenDUCCPort, SlotDUCCommand)
	learn(hfGenHPCPort, SlotHPCommand)
	learn(hfGenHPSPort, SlotHPStatus)
	learn(hfGenDDCAPort, SlotDDCAudio)
	learn(hfGenDUCIQPort, SlotDUCIQBase)
	learn(hfGenDDCIQPort, SlotDDCIQBase)
	learn(hfGenMicLPort, SlotMicLine)
	learn(hfGenWBDPort, SlotWidebandBase)
	w.flags(hfGenWBEnable, hfGenWBEnBits)
	w.uint(hfGenWBSamples)
	w.uint(hfGenWBSize)
	w.uint(hfGenWBRate)
	learn(hfGenMemHost, SlotMemHost)
	learn(hfGenMemHW, SlotMemHW)
	w.uint(hfGenPWMMin)
	w.uint(hfGenPWMMax)
	w.flags(hfGenFlags, []*Field{hfGenTimestamp, hfGenVITA, hfGenVNA, hfGenFreqPhase})
	w.reserved(hfGenReserved, 18)
	w.uint(hfGenAtlasMerc)
	w.uint(hfGenRefClock)
	w.flags(hfGenHWFlags, []*Field{hfGenPA, hfGenApollo, hfGenMercCommon, hfGen12288})
	w.flags(hfGenAlex, hfGenAlexBits)
	w.pad(hfGenPad, 1)
}

// crDiscoveryReply decodes the discovery layout. Only genuine discovery
// replies record the board id.
func crDiscoveryReply(d *Dissector, w *walker, record bool) {
	w.mac(hfDiscMAC)
	if board, n := w.uint(hfDiscBoard); n != nil && record {
		d.session.setBoard(uint8(board))
	}
	w.version(hfDiscProto)
	w.version(hfDiscFW)
	for _, f := range hfDiscMercVer {
		w.version(f)
	}
	w.version(hfDiscPennyVer)
	w.version(hfDiscMetisVer)
	w.uint(hfDiscDDCs)
	w.uint(hfDiscFreqPh)
	w.pad(hfDiscReplyPad, 38)
}

func crEraseAck(w *walker) {
	w.mac(hfDiscMAC)
	w.uint(hfDiscBoard)
	w.version(hfDiscProto)
	w.version(hfDiscFW)
	w.pad(hfEraseAckPad, 46)
}

func crSetIP(w *walker) {
	w.mac(hfSetIPMAC)
	w.ipv4(hfSetIPIP)
	w.pad(hfSetIPPad, 45)
}

// crProgram decodes one block of a firmware upload. The sequence number
// is the block number; the last block carries only what remains of the
// total.
func crProgram(d *Dissector, w *walker, seq uint64) {
	total, n := w.uint(hfProgBlocks)
	if n == nil {
		return
	}
	expected := programExpected(seq, total)
	w.infof("block=%d/%d", seq, total)

	block := w.begin(hfProgBlock, fmt.Sprintf("Program Block %d", seq))
	w.generated(hfProgExpected, uint64(expected))
	w.raw(hfProgData, expected)
	if rest := programBlockSize - expected; rest > 0 {
		w.raw(hfProgPad, rest)
	}
	w.end()
	if d.session.prefs.StrictProgramDataSize && seq*programBlockSize > total {
		block.Annotate(SeverityWarn, "Program data roll-over: %d x %d > %d, %d data bytes expected",
			seq, programBlockSize, total, expected)
	}
}

// programExpected returns max(0, min(256, total-(seq-1)*256)).
func programExpected(seq, total uint64) int {
	left := int64(total) - (int64(seq)-1)*programBlockSize
	switch {
	case left <= 0:
		return 0
	case left > programBlockSize:
		return programBlockSize
	}
	return int(left)
}
