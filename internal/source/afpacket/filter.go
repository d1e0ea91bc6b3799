package afpacket

import "golang.org/x/net/bpf"

// udpFilter accepts IPv4 and IPv6 UDP over Ethernet. VLAN-tagged frames
// are passed through and left to the userspace decoder.
func udpFilter(snapLen int) ([]bpf.RawInstruction, error) {
	return bpf.Assemble([]bpf.Instruction{
		bpf.LoadAbsolute{Off: 12, Size: 2},                                 // ethertype
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: 0x8100, SkipTrue: 6},           // 802.1Q
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: 0x0800, SkipFalse: 2},          // IPv4
		bpf.LoadAbsolute{Off: 23, Size: 1},                                 // ip.proto
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: 17, SkipTrue: 3, SkipFalse: 4},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: 0x86DD, SkipFalse: 3},          // IPv6
		bpf.LoadAbsolute{Off: 20, Size: 1},                                 // ip6.nxt
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: 17, SkipFalse: 1},
		bpf.RetConstant{Val: uint32(snapLen)},
		bpf.RetConstant{Val: 0},
	})
}
