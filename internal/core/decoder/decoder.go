// Package decoder implements L2-L4 protocol stack decoding.
package decoder

import (
	"fmt"
	"net/netip"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/hpsdrdump/internal/core"
)

// Decoder decodes raw packets into structured format.
type Decoder interface {
	Decode(raw core.RawPacket) (core.DecodedPacket, error)
}

// Stats counts decode outcomes.
type Stats struct {
	IPv4        uint64
	IPv6        uint64
	UDP         uint64
	NonUDP      uint64
	Fragments   uint64
	Truncated   uint64
	Unsupported uint64
}

// StandardDecoder decodes Ethernet, 802.1Q, Linux cooked, BSD loopback and
// raw IP framings down to UDP with gopacket's DecodingLayerParser. It is not
// safe for concurrent use: the layer structs are reused between packets.
type StandardDecoder struct {
	eth   layers.Ethernet
	dot1q layers.Dot1Q
	sll   layers.LinuxSLL
	lo    layers.Loopback
	ip4   layers.IPv4
	ip6   layers.IPv6
	udp   layers.UDP

	parsers map[gopacket.LayerType]*gopacket.DecodingLayerParser
	decoded []gopacket.LayerType

	ipv4, ipv6, udpCount, nonUDP, fragments, truncated, unsupported atomic.Uint64
}

// NewStandardDecoder creates a decoder.
func NewStandardDecoder() *StandardDecoder {
	d := &StandardDecoder{}
	d.parsers = make(map[gopacket.LayerType]*gopacket.DecodingLayerParser)
	for _, first := range []gopacket.LayerType{
		layers.LayerTypeEthernet,
		layers.LayerTypeLinuxSLL,
		layers.LayerTypeLoopback,
		layers.LayerTypeIPv4,
		layers.LayerTypeIPv6,
	} {
		p := gopacket.NewDecodingLayerParser(first,
			&d.eth, &d.dot1q, &d.sll, &d.lo, &d.ip4, &d.ip6, &d.udp)
		p.IgnoreUnsupported = true
		d.parsers[first] = p
	}
	d.decoded = make([]gopacket.LayerType, 0, 8)
	return d
}

func (d *StandardDecoder) firstLayer(raw core.RawPacket) (gopacket.LayerType, error) {
	switch lt := raw.LinkType; lt {
	case core.LinkTypeEthernet:
		return layers.LayerTypeEthernet, nil
	case core.LinkTypeLinuxSLL:
		return layers.LayerTypeLinuxSLL, nil
	case core.LinkTypeNull:
		return layers.LayerTypeLoopback, nil
	case core.LinkTypeRaw:
		if len(raw.Data) == 0 {
			return 0, core.ErrPacketTooShort
		}
		if raw.Data[0]>>4 == 6 {
			return layers.LayerTypeIPv6, nil
		}
		return layers.LayerTypeIPv4, nil
	default:
		return 0, fmt.Errorf("%w: %d", core.ErrUnsupportedLinkType, lt)
	}
}

// Decode extracts the UDP payload and the addressing around it.
func (d *StandardDecoder) Decode(raw core.RawPacket) (core.DecodedPacket, error) {
	out := core.DecodedPacket{
		Timestamp:  raw.Timestamp,
		CaptureLen: raw.CaptureLen,
		OrigLen:    raw.OrigLen,
	}

	first, err := d.firstLayer(raw)
	if err != nil {
		d.unsupported.Add(1)
		return out, err
	}

	d.decoded = d.decoded[:0]
	if err := d.parsers[first].DecodeLayers(raw.Data, &d.decoded); err != nil {
		d.truncated.Add(1)
		return out, fmt.Errorf("%w: %v", core.ErrPacketTooShort, err)
	}

	var sawIP, sawUDP bool
	for _, lt := range d.decoded {
		switch lt {
		case layers.LayerTypeEthernet:
			copy(out.Ethernet.SrcMAC[:], d.eth.SrcMAC)
			copy(out.Ethernet.DstMAC[:], d.eth.DstMAC)
			out.Ethernet.EtherType = uint16(d.eth.EthernetType)
		case layers.LayerTypeDot1Q:
			out.Ethernet.VLANs = append(out.Ethernet.VLANs, d.dot1q.VLANIdentifier)
			out.Ethernet.EtherType = uint16(d.dot1q.Type)
		case layers.LayerTypeLinuxSLL:
			if d.sll.AddrLen == 6 {
				copy(out.Ethernet.SrcMAC[:], d.sll.Addr)
			}
			out.Ethernet.EtherType = uint16(d.sll.EthernetType)
		case layers.LayerTypeIPv4:
			sawIP = true
			d.ipv4.Add(1)
			out.IP = core.IPHeader{
				Version:  4,
				SrcIP:    addrOf(d.ip4.SrcIP),
				DstIP:    addrOf(d.ip4.DstIP),
				Protocol: uint8(d.ip4.Protocol),
				TTL:      d.ip4.TTL,
				TotalLen: d.ip4.Length,
			}
			if d.ip4.Flags&layers.IPv4MoreFragments != 0 || d.ip4.FragOffset != 0 {
				d.fragments.Add(1)
				return out, core.ErrFragmented
			}
		case layers.LayerTypeIPv6:
			sawIP = true
			d.ipv6.Add(1)
			out.IP = core.IPHeader{
				Version:  6,
				SrcIP:    addrOf(d.ip6.SrcIP),
				DstIP:    addrOf(d.ip6.DstIP),
				Protocol: uint8(d.ip6.NextHeader),
				TTL:      d.ip6.HopLimit,
				TotalLen: d.ip6.Length + 40,
			}
			if d.ip6.NextHeader == layers.IPProtocolIPv6Fragment {
				d.fragments.Add(1)
				return out, core.ErrFragmented
			}
		case layers.LayerTypeUDP:
			sawUDP = true
			out.Transport = core.TransportHeader{
				SrcPort:  uint16(d.udp.SrcPort),
				DstPort:  uint16(d.udp.DstPort),
				Protocol: uint8(layers.IPProtocolUDP),
				Length:   d.udp.Length,
			}
			out.Payload = d.udp.Payload
		}
	}

	if !sawIP {
		d.unsupported.Add(1)
		return out, core.ErrNotIP
	}
	if !sawUDP {
		d.nonUDP.Add(1)
		return out, core.ErrNotUDP
	}
	d.udpCount.Add(1)
	return out, nil
}

// Stats returns a snapshot of the decode counters.
func (d *StandardDecoder) Stats() Stats {
	return Stats{
		IPv4:        d.ipv4.Load(),
		IPv6:        d.ipv6.Load(),
		UDP:         d.udpCount.Load(),
		NonUDP:      d.nonUDP.Load(),
		Fragments:   d.fragments.Load(),
		Truncated:   d.truncated.Load(),
		Unsupported: d.unsupported.Load(),
	}
}

func addrOf(ip []byte) netip.Addr {
	a, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}
	}
	return a.Unmap()
}
