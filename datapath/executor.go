package datapath

import (
	"encoding/binary"
	"fmt"

	dpnet "github.com/netrack/ofswitch/net"
	"github.com/netrack/ofswitch/ofp"
	"github.com/netrack/ofswitch/ratelog"
)

// Executor applies a single action to a packet, mutating its frame
// buffer and scratch fields in place. A zero Executor is ready to
// use; Log is optional and, when nil, every anomaly is skipped
// silently rather than logged.
type Executor struct {
	Log *ratelog.Limiter
}

// Execute mutates pkt according to a. It is undefined behavior to
// call Execute with an action type it does not recognize; unknown
// concrete types are rejected with an error rather than panicking so
// a future unregistered action kind fails safely.
func (e *Executor) Execute(pkt *Packet, a ofp.Action) error {
	pkt.Revalidate()

	switch act := a.(type) {
	case *ofp.ActionOutput:
		pkt.OutPort = act.Port
		pkt.OutPortMaxLen = act.MaxLen
	case *ofp.ActionGroup:
		pkt.OutGroup = act.Group
	case *ofp.ActionSetQueue:
		pkt.OutQueue = act.QueueID

	case *ofp.ActionSetDLSrc:
		e.setEthernet(pkt, 6, act.DLSrc[:])
	case *ofp.ActionSetDLDst:
		e.setEthernet(pkt, 0, act.DLDst[:])

	case *ofp.ActionSetVLANVID:
		e.setVLANTCI(pkt, act.VLANVID, 0x0fff, 0)
	case *ofp.ActionSetVLANPCP:
		e.setVLANTCI(pkt, uint16(act.VLANPCP), 0x7, 13)

	case *ofp.ActionSetNWSrc:
		e.setIPv4Addr(pkt, 12, act.NWSrc)
	case *ofp.ActionSetNWDst:
		e.setIPv4Addr(pkt, 16, act.NWDst)
	case *ofp.ActionSetNWTos:
		e.setIPv4Tos(pkt, act.NWTos<<2, 0xfc)
	case *ofp.ActionSetNWECN:
		e.setIPv4Tos(pkt, act.NWECN, 0x03)
	case *ofp.ActionSetNetworkTTL:
		e.setIPv4TTL(pkt, act.TTL)
	case *ofp.ActionDecNetworkTTL:
		e.decIPv4TTL(pkt)

	case *ofp.ActionSetTPSrc:
		e.setL4Port(pkt, true, act.TPSrc)
	case *ofp.ActionSetTPDst:
		e.setL4Port(pkt, false, act.TPDst)

	case *ofp.ActionSetMPLSLabel:
		e.setMPLS(pkt, &act.MPLSLabel, nil, nil)
	case *ofp.ActionSetMPLSTC:
		tc := uint32(act.MPLSTC)
		e.setMPLS(pkt, nil, &tc, nil)
	case *ofp.ActionSetMPLSTTL:
		ttl := uint32(act.TTL)
		e.setMPLS(pkt, nil, nil, &ttl)
	case *ofp.ActionDecMPLSTTL:
		e.decMPLSTTL(pkt)

	case *ofp.ActionCopyTTLOut:
		e.copyTTLOut(pkt)
	case *ofp.ActionCopyTTLIn:
		e.copyTTLIn(pkt)

	case *ofp.ActionPushVLAN:
		e.pushVLAN(pkt, act.EtherType)
	case *ofp.ActionPopVLAN:
		e.popVLAN(pkt)
	case *ofp.ActionPushMPLS:
		e.pushMPLS(pkt, act.EtherType)
	case *ofp.ActionPopMPLS:
		e.popMPLS(pkt, act.EtherType)

	case *ofp.ActionExperimenter:
		// No experimenter callback is registered by default; log and
		// skip rather than fail the whole action set.
		e.Log.Warnf("datapath: experimenter action skipped, no callback registered")

	default:
		return fmt.Errorf("datapath: unsupported action type %T", a)
	}

	return nil
}

func (e *Executor) setEthernet(pkt *Packet, offset int, addr []byte) {
	if pkt.View.EthernetOffset < 0 {
		e.Log.Warnf("datapath: set-dl-addr on packet with no ethernet header")
		return
	}
	b := pkt.Frame.Bytes()
	copy(b[pkt.View.EthernetOffset+offset:pkt.View.EthernetOffset+offset+6], addr)
}

// setVLANTCI replaces the bits of the outermost VLAN tag's TCI
// selected by mask<<shift with the low bits of value.
func (e *Executor) setVLANTCI(pkt *Packet, value, mask uint16, shift uint) {
	if len(pkt.View.VLANOffsets) == 0 {
		e.Log.Warnf("datapath: set-vlan-tci on packet with no VLAN tag")
		return
	}
	off := pkt.View.VLANOffsets[0]
	b := pkt.Frame.Bytes()

	tci := binary.BigEndian.Uint16(b[off : off+2])
	tci = tci&^(mask<<shift) | (value&mask)<<shift
	binary.BigEndian.PutUint16(b[off:off+2], tci)
}

func (e *Executor) ipv4Checksum(pkt *Packet) uint16 {
	off := pkt.View.IPv4Offset
	b := pkt.Frame.Bytes()
	return binary.BigEndian.Uint16(b[off+10 : off+12])
}

func (e *Executor) setIPv4Checksum(pkt *Packet, csum uint16) {
	off := pkt.View.IPv4Offset
	b := pkt.Frame.Bytes()
	binary.BigEndian.PutUint16(b[off+10:off+12], csum)
}

func (e *Executor) setIPv4Addr(pkt *Packet, fieldOffset int, addr uint32) {
	if pkt.View.IPv4Offset < 0 {
		e.Log.Warnf("datapath: set-nw-addr on packet with no IPv4 header")
		return
	}
	off := pkt.View.IPv4Offset
	b := pkt.Frame.Bytes()

	old := binary.BigEndian.Uint32(b[off+fieldOffset : off+fieldOffset+4])
	binary.BigEndian.PutUint32(b[off+fieldOffset:off+fieldOffset+4], addr)

	csum := dpnet.ChecksumUpdate32(e.ipv4Checksum(pkt), old, addr)
	e.setIPv4Checksum(pkt, csum)

	if csumOff := e.l4ChecksumOffset(pkt); csumOff >= 0 {
		l4csum := binary.BigEndian.Uint16(b[csumOff : csumOff+2])
		l4csum = dpnet.ChecksumUpdate32(l4csum, old, addr)
		binary.BigEndian.PutUint16(b[csumOff:csumOff+2], l4csum)
	}

	pkt.View.Invalidate()
}

func (e *Executor) setIPv4Tos(pkt *Packet, value, mask uint8) {
	if pkt.View.IPv4Offset < 0 {
		e.Log.Warnf("datapath: set-nw-tos on packet with no IPv4 header")
		return
	}
	off := pkt.View.IPv4Offset
	b := pkt.Frame.Bytes()

	old := b[off+1]
	updated := old&^mask | value&mask
	b[off+1] = updated

	csum := dpnet.ChecksumUpdate16(e.ipv4Checksum(pkt), uint16(old)<<8, uint16(updated)<<8)
	e.setIPv4Checksum(pkt, csum)
}

func (e *Executor) setIPv4TTL(pkt *Packet, ttl uint8) {
	if pkt.View.IPv4Offset < 0 {
		e.Log.Warnf("datapath: set-nw-ttl on packet with no IPv4 header")
		return
	}
	off := pkt.View.IPv4Offset
	b := pkt.Frame.Bytes()

	oldWord := uint16(b[off+8])<<8 | uint16(b[off+9])
	b[off+8] = ttl
	newWord := uint16(ttl)<<8 | uint16(b[off+9])

	csum := dpnet.ChecksumUpdate16(e.ipv4Checksum(pkt), oldWord, newWord)
	e.setIPv4Checksum(pkt, csum)
}

func (e *Executor) decIPv4TTL(pkt *Packet) {
	if pkt.View.IPv4Offset < 0 {
		e.Log.Warnf("datapath: dec-nw-ttl on packet with no IPv4 header")
		return
	}
	ttl := pkt.Frame.Bytes()[pkt.View.IPv4Offset+8]
	if ttl == 0 {
		e.Log.Warnf("datapath: dec-nw-ttl on packet with TTL already zero")
		return
	}
	e.setIPv4TTL(pkt, ttl-1)
}

// l4ChecksumOffset returns the byte offset of the TCP/UDP checksum
// field within the frame, or -1 if no TCP/UDP header was parsed (SCTP
// uses a CRC32c checksum unaffected by incremental 1's-complement
// update and ICMP has no pseudo-header dependency on addresses).
func (e *Executor) l4ChecksumOffset(pkt *Packet) int {
	switch {
	case pkt.View.TCPOffset >= 0:
		return pkt.View.TCPOffset + 16
	case pkt.View.UDPOffset >= 0:
		return pkt.View.UDPOffset + 6
	}
	return -1
}

func (e *Executor) setL4Port(pkt *Packet, src bool, port uint16) {
	b := pkt.Frame.Bytes()

	var off int
	switch {
	case pkt.View.TCPOffset >= 0:
		off = pkt.View.TCPOffset
	case pkt.View.UDPOffset >= 0:
		off = pkt.View.UDPOffset
	default:
		e.Log.Warnf("datapath: set-tp-port on packet with no TCP/UDP header")
		return
	}
	if !src {
		off += 2
	}

	old := binary.BigEndian.Uint16(b[off : off+2])
	binary.BigEndian.PutUint16(b[off:off+2], port)

	csumOff := pkt.View.TCPOffset + 16
	if pkt.View.TCPOffset < 0 {
		csumOff = pkt.View.UDPOffset + 6
	}
	csum := binary.BigEndian.Uint16(b[csumOff : csumOff+2])
	csum = dpnet.ChecksumUpdate16(csum, old, port)
	binary.BigEndian.PutUint16(b[csumOff:csumOff+2], csum)
}

func (e *Executor) mplsShim(pkt *Packet) (label, tc, s, ttl uint32) {
	off := pkt.View.MPLSOffset
	word := binary.BigEndian.Uint32(pkt.Frame.Bytes()[off : off+4])
	return word >> 12, (word >> 9) & 0x7, (word >> 8) & 0x1, word & 0xff
}

func (e *Executor) putMPLSShim(pkt *Packet, label, tc, s, ttl uint32) {
	off := pkt.View.MPLSOffset
	word := label<<12 | tc<<9 | s<<8 | ttl
	binary.BigEndian.PutUint32(pkt.Frame.Bytes()[off:off+4], word)
}

func (e *Executor) setMPLS(pkt *Packet, label, tc, ttl *uint32) {
	if pkt.View.MPLSOffset < 0 {
		e.Log.Warnf("datapath: set-mpls field on packet with no MPLS shim")
		return
	}
	l, t, s, ttlv := e.mplsShim(pkt)
	if label != nil {
		l = *label
	}
	if tc != nil {
		t = *tc
	}
	if ttl != nil {
		ttlv = *ttl
	}
	e.putMPLSShim(pkt, l, t, s, ttlv)
}

func (e *Executor) decMPLSTTL(pkt *Packet) {
	if pkt.View.MPLSOffset < 0 {
		e.Log.Warnf("datapath: dec-mpls-ttl on packet with no MPLS shim")
		return
	}
	l, t, s, ttl := e.mplsShim(pkt)
	if ttl == 0 {
		e.Log.Warnf("datapath: dec-mpls-ttl on packet with TTL already zero")
		return
	}
	e.putMPLSShim(pkt, l, t, s, ttl-1)
}

// innerMPLSOffset returns the offset of a second MPLS shim stacked
// beneath the outermost one, or -1 if the outermost shim's S-bit
// marks it as the bottom of the label stack.
func (e *Executor) innerMPLSOffset(pkt *Packet) int {
	_, _, s, _ := e.mplsShim(pkt)
	if s == 1 {
		return -1
	}
	inner := pkt.View.MPLSOffset + mplsShimLen
	if inner+4 > len(pkt.Frame.Bytes()) {
		return -1
	}
	return inner
}

// copyTTLOut copies the TTL from the next-to-outermost header (the
// second MPLS shim if present, otherwise the IPv4 header) onto the
// outermost MPLS shim.
func (e *Executor) copyTTLOut(pkt *Packet) {
	if pkt.View.MPLSOffset < 0 {
		e.Log.Warnf("datapath: copy-ttl-out on packet with no MPLS shim")
		return
	}
	b := pkt.Frame.Bytes()
	l, t, s, _ := e.mplsShim(pkt)

	if inner := e.innerMPLSOffset(pkt); inner >= 0 {
		e.putMPLSShim(pkt, l, t, s, uint32(b[inner+3]))
		return
	}
	if pkt.View.IPv4Offset >= 0 {
		e.putMPLSShim(pkt, l, t, s, uint32(b[pkt.View.IPv4Offset+8]))
	}
}

// copyTTLIn copies the TTL from the outermost MPLS shim to the
// next-to-outermost header (inner MPLS shim, or IPv4 beneath it).
func (e *Executor) copyTTLIn(pkt *Packet) {
	if pkt.View.MPLSOffset < 0 {
		e.Log.Warnf("datapath: copy-ttl-in on packet with no MPLS shim")
		return
	}
	_, _, _, outerTTL := e.mplsShim(pkt)

	if inner := e.innerMPLSOffset(pkt); inner >= 0 {
		b := pkt.Frame.Bytes()
		word := binary.BigEndian.Uint32(b[inner : inner+4])
		word = word&^0xff | outerTTL
		binary.BigEndian.PutUint32(b[inner:inner+4], word)
		return
	}
	if pkt.View.IPv4Offset >= 0 {
		e.setIPv4TTL(pkt, uint8(outerTTL))
	}
}

func (e *Executor) pushVLAN(pkt *Packet, ethertype uint16) {
	if pkt.View.EthernetOffset < 0 {
		e.Log.Warnf("datapath: push-vlan on packet with no ethernet header")
		return
	}

	headerEnd := ethernetHeaderEnd(pkt)
	pkt.Frame.PushHeader(headerEnd, vlanTagLen)

	b := pkt.Frame.Bytes()
	var tci uint16
	nextType := uint16(pkt.View.EtherType)

	if len(pkt.View.VLANOffsets) > 0 {
		old := pkt.View.VLANOffsets[0]
		tci = binary.BigEndian.Uint16(b[old : old+2])
	}

	binary.BigEndian.PutUint16(b[headerEnd:headerEnd+2], tci)
	binary.BigEndian.PutUint16(b[headerEnd+2:headerEnd+4], nextType)

	e.setEtherTypeField(pkt, ethertype)
	pkt.View.Invalidate()
}

func (e *Executor) popVLAN(pkt *Packet) {
	if len(pkt.View.VLANOffsets) == 0 {
		e.Log.Warnf("datapath: pop-vlan on packet with no VLAN tag")
		return
	}
	off := pkt.View.VLANOffsets[0]
	b := pkt.Frame.Bytes()
	innerType := binary.BigEndian.Uint16(b[off+2 : off+4])

	pkt.Frame.PopHeader(off, vlanTagLen)
	e.setEtherTypeField(pkt, innerType)
	pkt.View.Invalidate()
}

func (e *Executor) pushMPLS(pkt *Packet, ethertype uint16) {
	if pkt.View.EthernetOffset < 0 {
		e.Log.Warnf("datapath: push-mpls on packet with no ethernet header")
		return
	}

	insertAt := ethernetHeaderEnd(pkt)
	if len(pkt.View.VLANOffsets) > 0 {
		last := pkt.View.VLANOffsets[len(pkt.View.VLANOffsets)-1]
		insertAt = last + vlanTagLen
	}

	var label, tc, s, ttl uint32
	s = 1

	if pkt.View.MPLSOffset >= 0 {
		label, tc, _, ttl = e.mplsShim(pkt)
		s = 0
	} else if pkt.View.IPv4Offset >= 0 {
		ttl = uint32(pkt.Frame.Bytes()[pkt.View.IPv4Offset+8])
	}

	pkt.Frame.PushHeader(insertAt, mplsShimLen)
	word := label<<12 | tc<<9 | s<<8 | ttl
	binary.BigEndian.PutUint32(pkt.Frame.Bytes()[insertAt:insertAt+4], word)

	e.setEtherTypeField(pkt, ethertype)
	pkt.View.Invalidate()
}

func (e *Executor) popMPLS(pkt *Packet, ethertype uint16) {
	if pkt.View.MPLSOffset < 0 {
		e.Log.Warnf("datapath: pop-mpls on packet with no MPLS shim")
		return
	}
	pkt.Frame.PopHeader(pkt.View.MPLSOffset, mplsShimLen)
	e.setEtherTypeField(pkt, ethertype)
	pkt.View.Invalidate()
}

// ethernetHeaderEnd returns the offset immediately after the
// Ethernet header (and its LLC-SNAP header, if any).
func ethernetHeaderEnd(pkt *Packet) int {
	off := ethernetHeaderLen
	if pkt.View.SNAP {
		off += llcSNAPHeaderLen
	}
	return off
}

const (
	ethernetHeaderLen = 14
	llcSNAPHeaderLen  = 8
	vlanTagLen        = 4
	mplsShimLen       = 4
)

// setEtherTypeField overwrites the ethertype/SNAP-type field that
// currently follows the Ethernet (and any LLC-SNAP) header -- i.e.
// the field a freshly pushed tag's "next type" was copied from, and
// that a freshly popped tag's type is restored into.
func (e *Executor) setEtherTypeField(pkt *Packet, ethertype uint16) {
	b := pkt.Frame.Bytes()
	var off int
	if pkt.View.SNAP {
		off = pkt.View.SNAPOffset + 6
	} else {
		off = 12
	}
	binary.BigEndian.PutUint16(b[off:off+2], ethertype)
}
