// Package core defines core data structures with zero external dependencies.
package core

import (
	"net/netip"
	"time"
)

// Link types understood by the L2 decoder. Values are the pcap LINKTYPE_*
// numbers so capture files can hand them over unchanged.
const (
	LinkTypeNull     = 0
	LinkTypeEthernet = 1
	LinkTypeRaw      = 101
	LinkTypeLinuxSLL = 113
)

// RawPacket is one captured frame.
type RawPacket struct {
	Data           []byte
	Timestamp      time.Time
	CaptureLen     uint32
	OrigLen        uint32
	InterfaceIndex int
	LinkType       int
}

// DecodedPacket is the result of L2-L4 decoding.
type DecodedPacket struct {
	Timestamp  time.Time
	Ethernet   EthernetHeader
	IP         IPHeader
	Transport  TransportHeader
	Payload    []byte // UDP payload, zero-copy slice of RawPacket.Data
	CaptureLen uint32
	OrigLen    uint32
}

// OutputPacket is the final output sent to reporters.
type OutputPacket struct {
	// Envelope
	Frame     uint64 // 1-based position in the capture
	Timestamp time.Time

	// Network context
	SrcIP    netip.Addr
	DstIP    netip.Addr
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8

	// Labels set by parsers and processors
	Labels Labels

	// Typed payload, PayloadType names the parser that produced it
	PayloadType string
	Payload     any
	RawPayload  []byte
}
