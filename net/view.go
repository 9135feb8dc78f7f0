package net

import (
	"encoding/binary"

	"github.com/netrack/ofswitch/ofp"
)

// Ethertypes recognized while walking a frame.
const (
	EtherTypeIPv4   EtherType = 0x0800
	EtherTypeARP    EtherType = 0x0806
	EtherTypeVLAN   EtherType = 0x8100
	EtherTypeVLANQ  EtherType = 0x88a8
	EtherTypeMPLSUC EtherType = 0x8847
	EtherTypeMPLSMC EtherType = 0x8848
)

// IP protocol numbers recognized while walking a frame.
const (
	ProtoICMP = 1
	ProtoTCP  = 6
	ProtoUDP  = 17
	ProtoSCTP = 132
)

const (
	ethernetHeaderLen = 14
	llcSNAPHeaderLen  = 8
	vlanTagLen        = 4
	mplsShimLen       = 4
	arpHeaderLen      = 28
)

// offsetNone marks a layer as absent from the protocol view.
const offsetNone = -1

// View is a set of cached byte offsets into a Frame naming the
// headers recognized during the last Parse call. offsetNone means
// "not present in this frame". A View is only meaningful alongside
// the Frame it was built from; Valid is cleared by any mutation that
// might move header offsets (see Frame.PushHeader/PopHeader and the
// Invalidate method), forcing callers to re-Parse.
type View struct {
	Valid bool

	EthernetOffset int
	SNAP           bool
	SNAPOffset     int

	// VLANOffsets lists every stacked VLAN tag, outermost first.
	VLANOffsets []int

	MPLSOffset int
	ARPOffset  int
	IPv4Offset int
	TCPOffset  int
	UDPOffset  int
	ICMPOffset int
	SCTPOffset int

	// EtherType is the frame's outermost protocol type after any
	// LLC-SNAP de-encapsulation but before VLAN tags are consumed.
	EtherType EtherType
}

// Invalidate marks the view stale; the next field access must go
// through a fresh Parse.
func (v *View) Invalidate() {
	v.Valid = false
}

// Parse walks f from the start of the frame, populating v and
// returning the extracted standard match. Parsing stops as soon as
// bounds would be exceeded or a recognized terminal layer (MPLS, a
// fragmented IPv4 datagram, ARP) is reached; later fields are left
// at their zero value and the corresponding offsets at offsetNone.
func (v *View) Parse(f *Frame) ofp.Match {
	*v = View{
		EthernetOffset: offsetNone,
		SNAPOffset:     offsetNone,
		MPLSOffset:     offsetNone,
		ARPOffset:      offsetNone,
		IPv4Offset:     offsetNone,
		TCPOffset:      offsetNone,
		UDPOffset:      offsetNone,
		ICMPOffset:     offsetNone,
		SCTPOffset:     offsetNone,
	}

	var m ofp.Match
	m.Wildcards = ofp.WildcardAll
	m.DLVLAN = ofp.OFPVIDNone

	b := f.Bytes()
	if len(b) < ethernetHeaderLen {
		return m
	}

	v.EthernetOffset = 0
	copy(m.DLDst[:], b[0:6])
	copy(m.DLSrc[:], b[6:12])
	m.Wildcards &^= ofp.WildcardDLType

	etherType := EtherType(binary.BigEndian.Uint16(b[12:14]))
	off := ethernetHeaderLen

	if etherType < 0x0600 {
		// 802.3 length field: expect an LLC-SNAP header next.
		if len(b) < off+llcSNAPHeaderLen {
			return m
		}
		if b[off] != 0xaa || b[off+1] != 0xaa || b[off+2] != 0x03 {
			return m
		}

		v.SNAP = true
		v.SNAPOffset = off
		etherType = EtherType(binary.BigEndian.Uint16(b[off+6 : off+8]))
		off += llcSNAPHeaderLen
	}

	v.Valid = true

	for etherType == EtherTypeVLAN || etherType == EtherTypeVLANQ {
		if len(b) < off+vlanTagLen {
			v.EtherType = etherType
			m.DLType = uint16(etherType)
			return m
		}

		tci := binary.BigEndian.Uint16(b[off : off+2])
		inner := EtherType(binary.BigEndian.Uint16(b[off+2 : off+4]))

		if len(v.VLANOffsets) == 0 {
			m.DLVLAN = tci & 0x0fff
			m.DLVLANPCP = uint8(tci >> 13)
			m.Wildcards &^= ofp.WildcardDLVLAN | ofp.WildcardDLVLANPCP
		}

		v.VLANOffsets = append(v.VLANOffsets, off)
		off += vlanTagLen
		etherType = inner
	}

	v.EtherType = etherType
	m.DLType = uint16(etherType)

	switch etherType {
	case EtherTypeMPLSUC, EtherTypeMPLSMC:
		if len(b) < off+mplsShimLen {
			return m
		}
		v.MPLSOffset = off

		shim := binary.BigEndian.Uint32(b[off : off+4])
		m.MPLSLabel = shim >> 12
		m.MPLSTC = uint8((shim >> 9) & 0x7)
		m.Wildcards &^= ofp.WildcardMPLSLabel | ofp.WildcardMPLSTC

	case EtherTypeARP:
		if len(b) < off+arpHeaderLen {
			return m
		}
		v.ARPOffset = off

		oper := binary.BigEndian.Uint16(b[off+6 : off+8])
		m.NWSrc = binary.BigEndian.Uint32(b[off+14 : off+18])
		m.NWDst = binary.BigEndian.Uint32(b[off+24 : off+28])
		m.NWSrcMask = 0xffffffff
		m.NWDstMask = 0xffffffff

		if oper <= 0xff {
			m.NWProto = uint8(oper)
			m.Wildcards &^= ofp.WildcardNWProto
		}

	case EtherTypeIPv4:
		if len(b) < off+20 {
			return m
		}
		v.IPv4Offset = off

		ihl := int(b[off]&0x0f) * 4
		if ihl < 20 || len(b) < off+ihl {
			return m
		}

		m.NWTos = (b[off+1] >> 2) & 0x3f
		m.Wildcards &^= ofp.WildcardNWTos

		proto := b[off+9]
		m.NWProto = proto
		m.Wildcards &^= ofp.WildcardNWProto

		m.NWSrc = binary.BigEndian.Uint32(b[off+12 : off+16])
		m.NWDst = binary.BigEndian.Uint32(b[off+16 : off+20])
		m.NWSrcMask = 0xffffffff
		m.NWDstMask = 0xffffffff

		fragOff := binary.BigEndian.Uint16(b[off+6:off+8]) & 0x1fff
		moreFrags := b[off+6]&0x20 != 0
		if fragOff != 0 || moreFrags {
			return m
		}

		l4 := off + ihl
		switch proto {
		case ProtoTCP:
			if len(b) < l4+4 {
				return m
			}
			v.TCPOffset = l4
			m.TPSrc = binary.BigEndian.Uint16(b[l4 : l4+2])
			m.TPDst = binary.BigEndian.Uint16(b[l4+2 : l4+4])
			m.Wildcards &^= ofp.WildcardTPSrc | ofp.WildcardTPDst

		case ProtoUDP:
			if len(b) < l4+4 {
				return m
			}
			v.UDPOffset = l4
			m.TPSrc = binary.BigEndian.Uint16(b[l4 : l4+2])
			m.TPDst = binary.BigEndian.Uint16(b[l4+2 : l4+4])
			m.Wildcards &^= ofp.WildcardTPSrc | ofp.WildcardTPDst

		case ProtoSCTP:
			if len(b) < l4+4 {
				return m
			}
			v.SCTPOffset = l4
			m.TPSrc = binary.BigEndian.Uint16(b[l4 : l4+2])
			m.TPDst = binary.BigEndian.Uint16(b[l4+2 : l4+4])
			m.Wildcards &^= ofp.WildcardTPSrc | ofp.WildcardTPDst

		case ProtoICMP:
			if len(b) < l4+2 {
				return m
			}
			v.ICMPOffset = l4
			m.TPSrc = uint16(b[l4])
			m.TPDst = uint16(b[l4+1])
			m.Wildcards &^= ofp.WildcardTPSrc | ofp.WildcardTPDst
		}
	}

	return m
}
