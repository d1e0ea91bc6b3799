package hpsdr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S1: discovery query from the host.
func TestCommandReply_DiscoveryRequest(t *testing.T) {
	d := NewDissector(NewSession())
	res := dissect(t, d, cat(be32(1), []byte{CmdDiscovery}, zeros(55)), hostPort, 1024)

	assert.Equal(t, SubCommandReply, res.Sub)
	assert.Equal(t, HostToHW, res.Direction)
	assert.Equal(t, uint64(1), res.Tree.Find("seq").Uint())
	assert.Equal(t, uint64(CmdDiscovery), res.Tree.Find("cr.command").Uint())
	pad := res.Tree.Find("cr.disc.pad")
	require.NotNil(t, pad)
	assert.Equal(t, 5, pad.Offset)
	assert.Equal(t, 55, pad.Length)
	assert.Empty(t, res.Tree.Annotations())
	assert.Equal(t, "CR Discovery Request seq=1", res.Info)
}

// S2: discovery reply records the board.
func TestCommandReply_DiscoveryReply(t *testing.T) {
	s := NewSession()
	d := NewDissector(s)
	p := makeDiscoveryReply(CmdDiscovery, 0x04, 0x28, 0x1E, []byte{0x28, 0, 0, 0, 0x17, 0x00, 0x01, 0x00})
	res := dissect(t, d, p, 1024, hostPort)

	assert.Equal(t, HWToHost, res.Direction)
	id, ok := s.BoardID()
	require.True(t, ok)
	assert.Equal(t, uint8(0x04), id)

	assert.Equal(t, "00:1c:c0:a2:13:dd", res.Tree.Find("cr.disc.mac").Value.(interface{ String() string }).String())
	assert.Equal(t, "Board Type: Orion (4)", res.Tree.Find("cr.disc.board").Display())
	assert.Equal(t, "Protocol Version: 4.0 (40)", res.Tree.Find("cr.disc.proto_ver").Display())
	assert.Equal(t, "Firmware Version: 3.0 (30)", res.Tree.Find("cr.disc.fw_ver").Display())
	assert.Equal(t, uint64(1), res.Tree.Find("cr.disc.ddcs").Uint())
	assert.Equal(t, 38, res.Tree.Find("cr.disc.reply_pad").Length)
	assert.Empty(t, res.Tree.Annotations())
	assert.Contains(t, res.Info, "board=Orion")
}

func TestCommandReply_EraseAckVersusInUse(t *testing.T) {
	t.Run("zero body is erase ack", func(t *testing.T) {
		s := NewSession()
		d := NewDissector(s)
		res := dissect(t, d, makeDiscoveryReply(CmdSetIP, 0x01, 0x28, 0x1E, nil), 1024, hostPort)

		assert.Contains(t, res.Info, "Erase Ack")
		assert.NotNil(t, res.Tree.Find("cr.erase_ack.pad"))
		assert.Equal(t, 46, res.Tree.Find("cr.erase_ack.pad").Length)
		assert.Nil(t, res.Tree.Find("cr.disc.ddcs"))
		_, ok := s.BoardID()
		assert.False(t, ok)
	})
	t.Run("ddc count marks in-use discovery", func(t *testing.T) {
		s := NewSession()
		d := NewDissector(s)
		tail := []byte{0, 0, 0, 0, 0, 0, 0x02, 0x00}
		res := dissect(t, d, makeDiscoveryReply(CmdSetIP, 0x01, 0x28, 0x1E, tail), 1024, hostPort)

		assert.Contains(t, res.Info, "In-use Discovery Reply")
		assert.Equal(t, uint64(2), res.Tree.Find("cr.disc.ddcs").Uint())
		id, ok := s.BoardID()
		require.True(t, ok)
		assert.Equal(t, uint8(1), id)
	})
	t.Run("mercury version marks in-use discovery", func(t *testing.T) {
		d := NewDissector(NewSession())
		res := dissect(t, d, makeDiscoveryReply(CmdSetIP, 0x00, 0x28, 0x1E, []byte{0x21}), 1024, hostPort)
		assert.Contains(t, res.Info, "In-use Discovery Reply")
	})
}

func TestCommandReply_SetIP(t *testing.T) {
	d := NewDissector(NewSession())
	p := cat(be32(3), []byte{CmdSetIP}, []byte{1, 2, 3, 4, 5, 6}, []byte{192, 168, 1, 50}, zeros(45))
	res := dissect(t, d, p, hostPort, 1024)

	assert.Contains(t, res.Info, "Set IP")
	assert.Equal(t, "192.168.1.50", res.Tree.Find("cr.setip.ip").Value.(interface{ String() string }).String())
	assert.Equal(t, 45, res.Tree.Find("cr.setip.pad").Length)
	assert.Empty(t, res.Tree.Annotations())
}

func TestCommandReply_EraseAndProgramDataRequest(t *testing.T) {
	s := NewSession()
	d := NewDissector(s)

	res := dissect(t, d, cat(be32(0), []byte{CmdErase}, zeros(55)), hostPort, 1024)
	assert.Contains(t, res.Info, "Erase")
	assert.Equal(t, 55, res.Tree.Find("cr.erase.pad").Length)

	res = dissect(t, d, makeDiscoveryReply(CmdErase, 0x05, 0x28, 0x1E, nil), 1024, hostPort)
	assert.Contains(t, res.Info, "Program Data Request")
	assert.NotNil(t, res.Tree.Find("cr.disc.board"))
	_, ok := s.BoardID()
	assert.False(t, ok, "program data request does not record the board")
}

// S5 and the matching boundary: block 2 of a 300-block upload.
func TestCommandReply_ProgramRollOver(t *testing.T) {
	d := NewDissector(NewSession())
	p := cat(be32(2), []byte{CmdProgram}, []byte{0x00, 0x00, 0x01, 0x2C}, fill(256, 0xAA))
	require.Len(t, p, 265)
	res := dissect(t, d, p, hostPort, 1024)

	assert.Equal(t, uint64(300), res.Tree.Find("cr.prog.blocks").Uint())
	block := res.Tree.Find("cr.prog.block")
	require.NotNil(t, block)
	assert.Equal(t, 256, block.Length)
	assert.Equal(t, 44, res.Tree.Find("cr.prog.data").Length)
	assert.Equal(t, 212, res.Tree.Find("cr.prog.pad").Length)
	assert.Equal(t, uint64(44), res.Tree.Find("cr.prog.expected").Uint())

	warns := messages(res.Tree, SeverityWarn)
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0], "roll-over")
	assert.Nil(t, res.Tree.Find("extra"))
}

func TestCommandReply_ProgramFullBlock(t *testing.T) {
	d := NewDissector(NewSession())
	p := cat(be32(1), []byte{CmdProgram}, be32(1000), fill(256, 0x55))
	res := dissect(t, d, p, hostPort, 1024)

	assert.Equal(t, 256, res.Tree.Find("cr.prog.data").Length)
	assert.Nil(t, res.Tree.Find("cr.prog.pad"))
	assert.Empty(t, res.Tree.Annotations())
}

func TestCommandReply_ProgramRollOverPref(t *testing.T) {
	prefs := DefaultPrefs()
	prefs.StrictProgramDataSize = false
	d := NewDissector(NewSession(WithPrefs(prefs)))
	p := cat(be32(2), []byte{CmdProgram}, be32(300), fill(256, 0xAA))
	res := dissect(t, d, p, hostPort, 1024)
	assert.Empty(t, res.Tree.Annotations())
}

func TestProgramExpected(t *testing.T) {
	tests := []struct {
		seq, total uint64
		want       int
	}{
		{1, 300, 256},
		{2, 300, 44},
		{3, 300, 0},
		{2, 512, 256},
		{0, 10, 256},
		{1, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, programExpected(tt.seq, tt.total), "seq=%d total=%d", tt.seq, tt.total)
	}
}

func TestCommandReply_UnknownCommand(t *testing.T) {
	d := NewDissector(NewSession())
	res := dissect(t, d, cat(be32(7), []byte{0x07}, zeros(55)), hostPort, 1024)

	cmd := res.Tree.Find("cr.command")
	require.NotNil(t, cmd)
	require.Len(t, cmd.Annotations, 1)
	assert.Contains(t, cmd.Annotations[0].Message, "unknown command")
	assert.Equal(t, 55, res.Tree.Find("cr.body").Length)
	assert.Nil(t, res.Tree.Find("extra"))

	// General is host to hardware only.
	res = dissect(t, d, makeGeneral(0, nil), 1024, hostPort)
	assert.Contains(t, res.Tree.Find("cr.command").Annotations[0].Message, "unknown command")
}

func TestCommandReply_Padding(t *testing.T) {
	query := cat(be32(1), []byte{CmdDiscovery}, zeros(55))

	t.Run("extra length under strict size", func(t *testing.T) {
		d := NewDissector(NewSession())
		res := dissect(t, d, cat(query, zeros(4)), hostPort, 1024)
		assert.Equal(t, []string{"Extra Length: 4 extra bytes"}, messages(res.Tree, SeverityWarn))
		assert.Equal(t, 4, res.Tree.Find("extra").Length)
	})
	t.Run("extra length without strict size", func(t *testing.T) {
		prefs := DefaultPrefs()
		prefs.StrictSize = false
		d := NewDissector(NewSession(WithPrefs(prefs)))
		res := dissect(t, d, cat(query, zeros(4)), hostPort, 1024)
		assert.Empty(t, res.Tree.Annotations())
		assert.Equal(t, 4, res.Tree.Find("extra").Length)
	})
	t.Run("short pad under strict pad", func(t *testing.T) {
		d := NewDissector(NewSession())
		res := dissect(t, d, query[:59], hostPort, 1024)
		errs := messages(res.Tree, SeverityError)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "padding is 54 bytes, expected 55")
	})
	t.Run("non-zero pad under strict pad", func(t *testing.T) {
		d := NewDissector(NewSession())
		bad := append([]byte(nil), query...)
		bad[40] = 0x01
		res := dissect(t, d, bad, hostPort, 1024)
		assert.Equal(t, []string{"Malformed Packet: padding not zero"}, messages(res.Tree, SeverityError))
	})
	t.Run("relaxed pad needs one byte", func(t *testing.T) {
		prefs := DefaultPrefs()
		prefs.StrictPad = false
		d := NewDissector(NewSession(WithPrefs(prefs)))
		res := dissect(t, d, query[:6], hostPort, 1024)
		assert.Empty(t, res.Tree.Annotations())
		assert.Equal(t, 1, res.Tree.Find("cr.disc.pad").Length)

		res = dissect(t, d, query[:5], hostPort, 1024)
		assert.Equal(t, SeverityError, res.Tree.MaxSeverity())
	})
}

func TestCommandReply_GeneralFields(t *testing.T) {
	p := makeGeneral(0, map[int]uint16{5: 1025})
	p[23] = 0x05 // wideband ADC0 and ADC2
	p[24], p[25] = 0x02, 0x00
	p[26] = 16
	p[36] = 0x09 // timestamp, phase word
	p[58] = 0x01
	res := dissect(t, NewDissector(NewSession()), p, hostPort, 1024)

	tr := res.Tree
	assert.True(t, tr.Find("cr.gen.wb_enable.b0").Value.(bool))
	assert.False(t, tr.Find("cr.gen.wb_enable.b1").Value.(bool))
	assert.True(t, tr.Find("cr.gen.wb_enable.b2").Value.(bool))
	assert.Equal(t, uint64(512), tr.Find("cr.gen.wb_samples").Uint())
	assert.Equal(t, "Wideband Sample Size: 16 bits", tr.Find("cr.gen.wb_sample_size").Display())
	assert.True(t, tr.Find("cr.gen.iq_timestamp").Value.(bool))
	assert.Equal(t, ".... 1... = Frequency or Phase Word: Phase word", tr.Find("cr.gen.freq_phase").Display())
	assert.True(t, tr.Find("cr.gen.alex_enable.b0").Value.(bool))
	assert.Equal(t, 59, tr.Find("cr.gen.pad").Offset)
	assert.Empty(t, tr.Annotations())

	p[40] = 0xFF
	res = dissect(t, NewDissector(NewSession()), p, hostPort, 1024)
	assert.Equal(t, []string{"Reserved bytes not zero"}, messages(res.Tree, SeverityWarn))
}
