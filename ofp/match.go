package ofp

import (
	"io"

	"github.com/netrack/ofswitch/internal/encoding"
)

// MatchType indicates the match structure (set of fields that compose
// the match) in use. The match type is placed in the type field at the
// beginning of all match structures.
type MatchType uint16

const (
	// MatchTypeStandard is the only match type defined by OpenFlow 1.1.
	// It selects the fixed-schema "standard match" struct below, as
	// opposed to the OXM/TLV match introduced by later wire versions.
	MatchTypeStandard MatchType = iota
)

// Wildcards is a bitmap of standard match fields that are not
// constrained, i.e. match any value. Fields governed by an explicit
// mask (DLSrc, DLDst, NWSrc, NWDst, Metadata) are not represented
// here; a field is wildcarded by setting its mask to all zeroes.
type Wildcards uint32

const (
	// WildcardInPort wildcards switch input port.
	WildcardInPort Wildcards = 1 << iota

	// WildcardDLVLAN wildcards VLAN id.
	WildcardDLVLAN

	// WildcardDLVLANPCP wildcards VLAN priority.
	WildcardDLVLANPCP

	// WildcardDLType wildcards ethernet frame type.
	WildcardDLType

	// WildcardNWTos wildcards IP ToS/DSCP.
	WildcardNWTos

	// WildcardNWProto wildcards IP protocol (or ARP opcode).
	WildcardNWProto

	// WildcardTPSrc wildcards TCP/UDP/SCTP source port.
	WildcardTPSrc

	// WildcardTPDst wildcards TCP/UDP/SCTP destination port.
	WildcardTPDst

	// WildcardMPLSLabel wildcards the top-of-stack MPLS label.
	WildcardMPLSLabel

	// WildcardMPLSTC wildcards the top-of-stack MPLS traffic class.
	WildcardMPLSTC
)

// WildcardAll wildcards every field governed by the Wildcards bitmap.
const WildcardAll Wildcards = (1 << 10) - 1

const (
	matchHeaderLen = 4  // Type + Length.
	matchBodyLen   = 84 // everything after Type + Length.
	matchLen       = matchHeaderLen + matchBodyLen
)

// Match is the OpenFlow 1.1 standard match: a fixed-schema selector
// over L1-L4 packet fields. Fields not explicitly wildcarded or
// masked off must match the corresponding packet field exactly.
//
// A field governed by a mask (DLSrc, DLDst, NWSrc, NWDst, Metadata)
// is wildcarded by setting its mask to the zero value; every bit set
// in a mask must be compared, every bit clear in a mask is ignored.
type Match struct {
	// Wildcards marks fields with no explicit mask as unconstrained.
	Wildcards Wildcards

	// InPort is the switch ingress port.
	InPort uint32

	// DLSrc and DLSrcMask match the ethernet source address.
	DLSrc     [6]byte
	DLSrcMask [6]byte

	// DLDst and DLDstMask match the ethernet destination address.
	DLDst     [6]byte
	DLDstMask [6]byte

	// DLVLAN matches the outermost VLAN id, or OFPVID_NONE if the
	// packet carries no VLAN tag.
	DLVLAN uint16

	// DLVLANPCP matches the outermost VLAN priority.
	DLVLANPCP uint8

	// DLType matches the ethernet frame type (after VLAN tags).
	DLType uint16

	// NWTos matches the 6 upper (DSCP) bits of the IP ToS byte.
	NWTos uint8

	// NWProto matches the IP protocol number, or the ARP opcode
	// when DLType is 0x0806.
	NWProto uint8

	// NWSrc and NWSrcMask match the IPv4 source address.
	NWSrc     uint32
	NWSrcMask uint32

	// NWDst and NWDstMask match the IPv4 destination address.
	NWDst     uint32
	NWDstMask uint32

	// TPSrc and TPDst match the L4 source/destination port (or
	// the ICMP type/code, respectively).
	TPSrc uint16
	TPDst uint16

	// MPLSLabel matches the top-of-stack MPLS label.
	MPLSLabel uint32

	// MPLSTC matches the top-of-stack MPLS traffic class.
	MPLSTC uint8

	// Metadata and MetadataMask match table metadata carried
	// between pipeline tables.
	Metadata     uint64
	MetadataMask uint64
}

// OFPVIDNone is the DLVLAN sentinel used when a packet carries no
// VLAN tag.
const OFPVIDNone uint16 = 0xffff

// Wildcarded reports whether the field named by bit w is
// unconstrained in this match.
func (m *Match) Wildcarded(w Wildcards) bool {
	return m.Wildcards&w != 0
}

// ReadFrom implements io.ReaderFrom interface. It deserializes the
// standard match from the wire format.
func (m *Match) ReadFrom(r io.Reader) (n int64, err error) {
	var typ MatchType
	var length uint16

	n, err = encoding.ReadFrom(r, &typ, &length)
	if err != nil {
		return
	}

	var pad1 [1]uint8
	var mpad [3]uint8

	nn, err := encoding.ReadFrom(r,
		&m.Wildcards, &m.InPort,
		&m.DLSrc, &m.DLSrcMask,
		&m.DLDst, &m.DLDstMask,
		&m.DLVLAN, &m.DLVLANPCP, &pad1,
		&m.DLType,
		&m.NWTos, &m.NWProto,
		&m.NWSrc, &m.NWSrcMask,
		&m.NWDst, &m.NWDstMask,
		&m.TPSrc, &m.TPDst,
		&m.MPLSLabel, &m.MPLSTC, &mpad,
		&m.Metadata, &m.MetadataMask,
	)

	n += nn
	return n, err
}

// WriteTo implements io.WriterTo interface. It serializes the match
// into the wire format.
func (m *Match) WriteTo(w io.Writer) (int64, error) {
	var pad1 [1]uint8
	var mpad [3]uint8

	return encoding.WriteTo(w,
		MatchTypeStandard, uint16(matchLen),
		m.Wildcards, m.InPort,
		m.DLSrc, m.DLSrcMask,
		m.DLDst, m.DLDstMask,
		m.DLVLAN, m.DLVLANPCP, pad1,
		m.DLType,
		m.NWTos, m.NWProto,
		m.NWSrc, m.NWSrcMask,
		m.NWDst, m.NWDstMask,
		m.TPSrc, m.TPDst,
		m.MPLSLabel, m.MPLSTC, mpad,
		m.Metadata, m.MetadataMask,
	)
}

// Matches reports whether m non-strictly matches a candidate match c
// drawn from a packet's extracted fields. It is the exported form of
// matches, used by flow table lookups outside this package.
func (m *Match) Matches(c *Match) bool {
	return m.matches(c)
}

// StrictEqual reports whether m and o specify exactly the same
// wildcards, masks, and field values. It is the exported form of
// strictEqual, used by flow-mod MODIFY_STRICT/DELETE_STRICT and
// overlap checks outside this package.
func (m *Match) StrictEqual(o *Match) bool {
	return m.strictEqual(o)
}

// matches reports whether m non-strictly matches a candidate match c
// drawn from a packet's extracted fields (c carries no wildcards of
// its own; every field in c is concrete). Used by the flow table
// lookup path.
func (m *Match) matches(c *Match) bool {
	if !m.Wildcarded(WildcardInPort) && m.InPort != c.InPort {
		return false
	}
	if !maskedEqual6(m.DLSrcMask, m.DLSrc, c.DLSrc) {
		return false
	}
	if !maskedEqual6(m.DLDstMask, m.DLDst, c.DLDst) {
		return false
	}
	if !m.Wildcarded(WildcardDLVLAN) && m.DLVLAN != c.DLVLAN {
		return false
	}
	if !m.Wildcarded(WildcardDLVLANPCP) && m.DLVLANPCP != c.DLVLANPCP {
		return false
	}
	if !m.Wildcarded(WildcardDLType) && m.DLType != c.DLType {
		return false
	}
	if !m.Wildcarded(WildcardNWTos) && m.NWTos != c.NWTos {
		return false
	}
	if !m.Wildcarded(WildcardNWProto) && m.NWProto != c.NWProto {
		return false
	}
	if m.NWSrcMask&m.NWSrc != m.NWSrcMask&c.NWSrc {
		return false
	}
	if m.NWDstMask&m.NWDst != m.NWDstMask&c.NWDst {
		return false
	}
	if !m.Wildcarded(WildcardTPSrc) && m.TPSrc != c.TPSrc {
		return false
	}
	if !m.Wildcarded(WildcardTPDst) && m.TPDst != c.TPDst {
		return false
	}
	if !m.Wildcarded(WildcardMPLSLabel) && m.MPLSLabel != c.MPLSLabel {
		return false
	}
	if !m.Wildcarded(WildcardMPLSTC) && m.MPLSTC != c.MPLSTC {
		return false
	}
	if m.MetadataMask&m.Metadata != m.MetadataMask&c.Metadata {
		return false
	}

	return true
}

func maskedEqual6(mask, a, b [6]byte) bool {
	for i := range mask {
		if mask[i]&a[i] != mask[i]&b[i] {
			return false
		}
	}
	return true
}

// strictEqual reports whether m and o specify exactly the same
// wildcards, masks, and field values -- the strict-match test used
// by modify-strict and delete-strict flow-mods and by overlap checks.
func (m *Match) strictEqual(o *Match) bool {
	return *m == *o
}
