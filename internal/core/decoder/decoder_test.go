package decoder

import (
	"errors"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/hpsdrdump/internal/core"
)

var (
	hostMAC  = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	radioMAC = net.HardwareAddr{0x00, 0x1c, 0xc0, 0xa2, 0x13, 0xdd}
)

func serialize(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return buf.Bytes()
}

func ipv4UDP(src, dst string, sport, dport uint16) (*layers.IPv4, *layers.UDP) {
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.ParseIP(src).To4(),
		DstIP:    net.ParseIP(dst).To4(),
	}
	udp := &layers.UDP{SrcPort: layers.UDPPort(sport), DstPort: layers.UDPPort(dport)}
	_ = udp.SetNetworkLayerForChecksum(ip)
	return ip, udp
}

func TestDecode_EthernetIPv4UDP(t *testing.T) {
	eth := &layers.Ethernet{SrcMAC: radioMAC, DstMAC: hostMAC, EthernetType: layers.EthernetTypeIPv4}
	ip, udp := ipv4UDP("169.254.19.221", "169.254.0.1", 1025, 50000)
	payload := []byte{0, 0, 0, 1, 0xAA}
	frame := serialize(t, eth, ip, udp, gopacket.Payload(payload))

	now := time.Now()
	d := NewStandardDecoder()
	pkt, err := d.Decode(core.RawPacket{Data: frame, Timestamp: now, LinkType: core.LinkTypeEthernet})
	require.NoError(t, err)

	assert.Equal(t, now, pkt.Timestamp)
	assert.Equal(t, [6]byte(radioMAC), pkt.Ethernet.SrcMAC)
	assert.Equal(t, uint16(0x0800), pkt.Ethernet.EtherType)
	assert.Equal(t, uint8(4), pkt.IP.Version)
	assert.Equal(t, netip.MustParseAddr("169.254.19.221"), pkt.IP.SrcIP)
	assert.Equal(t, netip.MustParseAddr("169.254.0.1"), pkt.IP.DstIP)
	assert.Equal(t, uint16(1025), pkt.Transport.SrcPort)
	assert.Equal(t, uint16(50000), pkt.Transport.DstPort)
	assert.Equal(t, uint8(17), pkt.Transport.Protocol)
	assert.Equal(t, payload, pkt.Payload)

	assert.Equal(t, uint64(1), d.Stats().IPv4)
	assert.Equal(t, uint64(1), d.Stats().UDP)
}

func TestDecode_VLAN(t *testing.T) {
	eth := &layers.Ethernet{SrcMAC: radioMAC, DstMAC: hostMAC, EthernetType: layers.EthernetTypeDot1Q}
	vlan := &layers.Dot1Q{VLANIdentifier: 42, Type: layers.EthernetTypeIPv4}
	ip, udp := ipv4UDP("10.0.0.2", "10.0.0.1", 1024, 50000)
	frame := serialize(t, eth, vlan, ip, udp, gopacket.Payload([]byte{1, 2, 3, 4}))

	pkt, err := NewStandardDecoder().Decode(core.RawPacket{Data: frame, LinkType: core.LinkTypeEthernet})
	require.NoError(t, err)
	assert.Equal(t, []uint16{42}, pkt.Ethernet.VLANs)
	assert.Equal(t, uint16(1024), pkt.Transport.SrcPort)
}

func TestDecode_IPv6(t *testing.T) {
	eth := &layers.Ethernet{SrcMAC: hostMAC, DstMAC: radioMAC, EthernetType: layers.EthernetTypeIPv6}
	ip := &layers.IPv6{
		Version:    6,
		HopLimit:   64,
		NextHeader: layers.IPProtocolUDP,
		SrcIP:      net.ParseIP("fe80::1"),
		DstIP:      net.ParseIP("fe80::2"),
	}
	udp := &layers.UDP{SrcPort: 50000, DstPort: 1027}
	_ = udp.SetNetworkLayerForChecksum(ip)
	frame := serialize(t, eth, ip, udp, gopacket.Payload(make([]byte, 60)))

	pkt, err := NewStandardDecoder().Decode(core.RawPacket{Data: frame, LinkType: core.LinkTypeEthernet})
	require.NoError(t, err)
	assert.Equal(t, uint8(6), pkt.IP.Version)
	assert.Equal(t, netip.MustParseAddr("fe80::1"), pkt.IP.SrcIP)
	assert.Len(t, pkt.Payload, 60)
}

func TestDecode_RawIP(t *testing.T) {
	ip, udp := ipv4UDP("10.0.0.2", "10.0.0.1", 1026, 50000)
	frame := serialize(t, ip, udp, gopacket.Payload([]byte{9, 9, 9, 9}))

	pkt, err := NewStandardDecoder().Decode(core.RawPacket{Data: frame, LinkType: core.LinkTypeRaw})
	require.NoError(t, err)
	assert.Equal(t, uint16(1026), pkt.Transport.SrcPort)
	assert.Equal(t, []byte{9, 9, 9, 9}, pkt.Payload)
}

func TestDecode_Errors(t *testing.T) {
	d := NewStandardDecoder()

	_, err := d.Decode(core.RawPacket{Data: []byte{1, 2, 3}, LinkType: core.LinkTypeEthernet})
	assert.True(t, errors.Is(err, core.ErrPacketTooShort))

	_, err = d.Decode(core.RawPacket{Data: make([]byte, 64), LinkType: 147})
	assert.True(t, errors.Is(err, core.ErrUnsupportedLinkType))

	arp := serialize(t,
		&layers.Ethernet{SrcMAC: hostMAC, DstMAC: radioMAC, EthernetType: layers.EthernetTypeARP},
		&layers.ARP{
			AddrType: layers.LinkTypeEthernet, Protocol: layers.EthernetTypeIPv4,
			HwAddressSize: 6, ProtAddressSize: 4, Operation: layers.ARPRequest,
			SourceHwAddress: hostMAC, SourceProtAddress: []byte{10, 0, 0, 1},
			DstHwAddress: make([]byte, 6), DstProtAddress: []byte{10, 0, 0, 2},
		})
	_, err = d.Decode(core.RawPacket{Data: arp, LinkType: core.LinkTypeEthernet})
	assert.True(t, errors.Is(err, core.ErrNotIP))

	tcpIP := &layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolTCP,
		SrcIP: net.IP{10, 0, 0, 1}, DstIP: net.IP{10, 0, 0, 2}}
	tcp := &layers.TCP{SrcPort: 40000, DstPort: 1024, DataOffset: 5, SYN: true}
	_ = tcp.SetNetworkLayerForChecksum(tcpIP)
	frame := serialize(t, &layers.Ethernet{SrcMAC: hostMAC, DstMAC: radioMAC, EthernetType: layers.EthernetTypeIPv4}, tcpIP, tcp)
	_, err = d.Decode(core.RawPacket{Data: frame, LinkType: core.LinkTypeEthernet})
	assert.True(t, errors.Is(err, core.ErrNotUDP))

	assert.Equal(t, uint64(1), d.Stats().NonUDP)
}

func TestDecode_Fragment(t *testing.T) {
	ip, udp := ipv4UDP("10.0.0.2", "10.0.0.1", 1035, 50000)
	ip.Flags = layers.IPv4MoreFragments
	frame := serialize(t, &layers.Ethernet{SrcMAC: radioMAC, DstMAC: hostMAC, EthernetType: layers.EthernetTypeIPv4},
		ip, udp, gopacket.Payload(make([]byte, 32)))

	d := NewStandardDecoder()
	_, err := d.Decode(core.RawPacket{Data: frame, LinkType: core.LinkTypeEthernet})
	assert.True(t, errors.Is(err, core.ErrFragmented))
	assert.Equal(t, uint64(1), d.Stats().Fragments)
}
