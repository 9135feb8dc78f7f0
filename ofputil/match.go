package ofputil

import (
	"net"

	"github.com/netrack/ofswitch/ofp"
)

// MatchBuilder incrementally constructs a standard match, tracking
// which fields have been constrained so the final Wildcards bitmap
// (and per-field masks) come out correct without the caller having
// to compute them by hand.
type MatchBuilder struct {
	m ofp.Match
	w ofp.Wildcards
}

// NewMatchBuilder returns a builder whose initial match wildcards
// every field.
func NewMatchBuilder() *MatchBuilder {
	return &MatchBuilder{w: ofp.WildcardAll}
}

// InPort constrains the match to the given ingress port.
func (b *MatchBuilder) InPort(port ofp.PortNo) *MatchBuilder {
	b.m.InPort = uint32(port)
	b.w &^= ofp.WildcardInPort
	return b
}

// EthSrc constrains the match to the given ethernet source address.
func (b *MatchBuilder) EthSrc(addr net.HardwareAddr) *MatchBuilder {
	copy(b.m.DLSrc[:], addr)
	for i := range b.m.DLSrcMask {
		b.m.DLSrcMask[i] = 0xff
	}
	return b
}

// EthDst constrains the match to the given ethernet destination
// address.
func (b *MatchBuilder) EthDst(addr net.HardwareAddr) *MatchBuilder {
	copy(b.m.DLDst[:], addr)
	for i := range b.m.DLDstMask {
		b.m.DLDstMask[i] = 0xff
	}
	return b
}

// EthType constrains the match to the given ethernet frame type.
func (b *MatchBuilder) EthType(ethType uint16) *MatchBuilder {
	b.m.DLType = ethType
	b.w &^= ofp.WildcardDLType
	return b
}

// VLAN constrains the match to the given VLAN id and priority.
func (b *MatchBuilder) VLAN(vid uint16, pcp uint8) *MatchBuilder {
	b.m.DLVLAN = vid
	b.m.DLVLANPCP = pcp
	b.w &^= ofp.WildcardDLVLAN | ofp.WildcardDLVLANPCP
	return b
}

// IPProto constrains the match to the given IP protocol number (or
// ARP opcode, when the frame type is ARP).
func (b *MatchBuilder) IPProto(proto uint8) *MatchBuilder {
	b.m.NWProto = proto
	b.w &^= ofp.WildcardNWProto
	return b
}

// IPTos constrains the match to the given IP ToS/DSCP value.
func (b *MatchBuilder) IPTos(tos uint8) *MatchBuilder {
	b.m.NWTos = tos
	b.w &^= ofp.WildcardNWTos
	return b
}

// IPSrc constrains the match to the given IPv4 source prefix.
func (b *MatchBuilder) IPSrc(ip net.IP, mask net.IPMask) *MatchBuilder {
	b.m.NWSrc = ipToUint32(ip)
	b.m.NWSrcMask = maskToUint32(mask)
	return b
}

// IPDst constrains the match to the given IPv4 destination prefix.
func (b *MatchBuilder) IPDst(ip net.IP, mask net.IPMask) *MatchBuilder {
	b.m.NWDst = ipToUint32(ip)
	b.m.NWDstMask = maskToUint32(mask)
	return b
}

// TPSrc constrains the match to the given L4 source port.
func (b *MatchBuilder) TPSrc(port uint16) *MatchBuilder {
	b.m.TPSrc = port
	b.w &^= ofp.WildcardTPSrc
	return b
}

// TPDst constrains the match to the given L4 destination port.
func (b *MatchBuilder) TPDst(port uint16) *MatchBuilder {
	b.m.TPDst = port
	b.w &^= ofp.WildcardTPDst
	return b
}

// MPLS constrains the match to the given top-of-stack MPLS label and
// traffic class.
func (b *MatchBuilder) MPLS(label uint32, tc uint8) *MatchBuilder {
	b.m.MPLSLabel = label
	b.m.MPLSTC = tc
	b.w &^= ofp.WildcardMPLSLabel | ofp.WildcardMPLSTC
	return b
}

// Metadata constrains the match to the given table metadata bits.
func (b *MatchBuilder) Metadata(metadata, mask uint64) *MatchBuilder {
	b.m.Metadata = metadata
	b.m.MetadataMask = mask
	return b
}

// Match returns the constructed match.
func (b *MatchBuilder) Match() ofp.Match {
	b.m.Wildcards = b.w
	return b.m
}

func ipToUint32(ip net.IP) uint32 {
	ip4 := ip.To4()
	if ip4 == nil {
		return 0
	}
	return uint32(ip4[0])<<24 | uint32(ip4[1])<<16 |
		uint32(ip4[2])<<8 | uint32(ip4[3])
}

func maskToUint32(mask net.IPMask) uint32 {
	if len(mask) == 0 {
		return 0
	}
	ones, bits := mask.Size()
	if bits != 32 {
		return 0
	}
	if ones == 0 {
		return 0
	}
	return ^uint32(0) << uint(32-ones)
}
