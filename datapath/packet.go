// Package datapath implements the OpenFlow 1.1 multi-table packet
// processing pipeline: the action executor, the per-packet action
// set, flow and group tables, and the pipeline driver that ties them
// together around a mutable frame buffer.
package datapath

import (
	dpnet "github.com/netrack/ofswitch/net"
	"github.com/netrack/ofswitch/ofp"
)

// Packet is a single frame traversing the pipeline, together with
// the scratch state that accumulates as tables and actions run.
type Packet struct {
	Frame *dpnet.Frame
	View  dpnet.View

	// InPort is the ingress port the frame arrived on.
	InPort ofp.PortNo

	// TableID is the table currently evaluating the packet.
	TableID ofp.Table

	// Match is the standard match extracted from the frame by the
	// last (re)parse. It is stale whenever View.Valid is false.
	Match ofp.Match

	// Actions accumulates WRITE_ACTIONS across the tables visited,
	// flushed on pipeline exit.
	Actions ActionSet

	// Metadata carries the WRITE_METADATA value between tables.
	Metadata uint64

	OutPort       ofp.PortNo
	OutQueue      ofp.Queue
	OutPortMaxLen uint16
	OutGroup      ofp.Group

	BufferID uint32

	// PacketOut marks a packet injected via a PACKET_OUT message;
	// OFPP_TABLE resubmission is only honored once, to guard against
	// an infinite resubmission loop.
	PacketOut bool
}

// NewPacket builds a packet from a raw wire frame arriving on port
// in, parsing its protocol view and standard match immediately.
func NewPacket(raw []byte, in ofp.PortNo) *Packet {
	p := &Packet{
		Frame:    dpnet.NewFrame(raw),
		InPort:   in,
		OutPort:  ofp.PortAny,
		OutGroup: ofp.GroupAny,
		BufferID: ofp.NoBuffer,
	}
	p.reparse()
	return p
}

// Revalidate re-runs the packet parser if the protocol view was
// invalidated by a mutating action.
func (p *Packet) Revalidate() {
	if !p.View.Valid {
		p.reparse()
	}
}

func (p *Packet) reparse() {
	p.Match = p.View.Parse(p.Frame)
	p.Match.InPort = uint32(p.InPort)
	p.Match.Wildcards &^= ofp.WildcardInPort
	p.Match.Metadata = p.Metadata
	p.Match.MetadataMask = ^uint64(0)
}

// Clone returns a deep copy of the packet's frame and scratch state,
// suitable for fan-out to multiple group buckets. The copy's
// protocol view is re-derived rather than shared, since the clone's
// backing array is distinct.
func (p *Packet) Clone() *Packet {
	raw := append([]byte(nil), p.Frame.Bytes()...)
	clone := &Packet{
		Frame:         dpnet.NewFrame(raw),
		InPort:        p.InPort,
		TableID:       p.TableID,
		Metadata:      p.Metadata,
		Actions:       p.Actions,
		OutPort:       p.OutPort,
		OutQueue:      p.OutQueue,
		OutPortMaxLen: p.OutPortMaxLen,
		OutGroup:      p.OutGroup,
		BufferID:      p.BufferID,
		PacketOut:     p.PacketOut,
	}
	clone.reparse()
	return clone
}
