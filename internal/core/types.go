// Package core defines core types with zero external dependencies.
package core

import "net/netip"

// EthernetHeader represents the L2 header. Frames captured on the Linux
// "any" device or on loopback have no MAC addresses.
type EthernetHeader struct {
	SrcMAC    [6]byte
	DstMAC    [6]byte
	EtherType uint16   // 0x0800=IPv4, 0x86DD=IPv6
	VLANs     []uint16 // 0~2 VLAN IDs (QinQ scenarios have 2)
}

// IPHeader represents the L3 header (IPv4/IPv6).
type IPHeader struct {
	Version  uint8
	SrcIP    netip.Addr
	DstIP    netip.Addr
	Protocol uint8 // UDP=17
	TTL      uint8
	TotalLen uint16
}

// TransportHeader represents the UDP header.
type TransportHeader struct {
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8
	Length   uint16
}
