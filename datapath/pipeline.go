// Package datapath implements the OpenFlow 1.1 multi-table packet
// processing pipeline: the action executor, the per-packet action
// set, flow and group tables, and the pipeline driver that ties them
// together around a mutable frame buffer.
package datapath

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/netrack/ofswitch/metrics"
	"github.com/netrack/ofswitch/ofp"
	"github.com/netrack/ofswitch/ratelog"
)

// Datapath is the aggregate root tying together every table, the
// port and buffer registries, and the ambient logging/metrics used
// while driving packets through the pipeline. It is built once per
// switch instance and passed by reference to every handler; nothing
// in this package expects to be copied by value.
type Datapath struct {
	Tables []*FlowTable
	Groups *GroupTable

	Ports   Ports
	Buffers Buffers

	Executor Executor

	Log     logrus.FieldLogger
	Metrics *metrics.Registry

	// InvalidTTLToController mirrors the feature configuration bit
	// that routes TTL-exhausted packets to the controller instead of
	// silently dropping them.
	InvalidTTLToController bool

	// SendPacketIn and SendFlowRemoved deliver asynchronous messages
	// to the controller connection; nil fields silently drop the
	// message, which is convenient for tests that don't care about
	// the control channel.
	SendPacketIn    func(*ofp.PacketIn) error
	SendFlowRemoved func(*ofp.FlowRemoved) error
}

// NewDatapath builds a Datapath with numTables empty flow tables and
// an empty group table, both wired to reg for metrics.
func NewDatapath(numTables int, ports Ports, buffers Buffers, log logrus.FieldLogger, reg *metrics.Registry) *Datapath {
	tables := make([]*FlowTable, numTables)
	for i := range tables {
		tables[i] = NewFlowTable(ofp.Table(i), reg)
	}

	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Datapath{
		Tables:   tables,
		Groups:   NewGroupTable(reg),
		Ports:    ports,
		Buffers:  buffers,
		Executor: Executor{Log: ratelog.New(log, 5, time.Second)},
		Log:      log,
		Metrics:  reg,
	}
}

// Process drives pkt through the pipeline starting at table 0: the
// pre-ingress TTL check, then table lookups with miss-policy
// dispatch, fixed instruction evaluation order, and finally egress
// dispatch of whatever the action set and scratch fields name.
func (d *Datapath) Process(pkt *Packet) error {
	if drop := d.checkTTL(pkt); drop {
		return nil
	}

	table := ofp.Table(0)
	for int(table) < len(d.Tables) {
		pkt.TableID = table
		t := d.Tables[table]

		entry := t.Lookup(&pkt.Match)
		if entry == nil {
			switch t.Config & ofp.TableConfigMissMask {
			case ofp.TableConfigMissContinue:
				table++
				continue
			case ofp.TableConfigMissDrop:
				return nil
			default:
				return d.sendPacketIn(pkt, ofp.PacketInReasonNoMatch, table, 0)
			}
		}

		entry.touch(pkt.Frame.Len())

		next, halt, err := d.runInstructions(pkt, entry.Instructions, table)
		if err != nil {
			return err
		}
		if halt {
			break
		}
		table = next
	}

	return d.dispatchEgress(pkt)
}

// checkTTL implements the pre-table-0 TTL check: an MPLS or IPv4
// packet already at TTL<=1 never enters table 0. With
// InvalidTTLToController set the packet is reported to the
// controller; otherwise it is dropped silently. Returns true when the
// packet must not proceed through the pipeline.
func (d *Datapath) checkTTL(pkt *Packet) bool {
	b := pkt.Frame.Bytes()

	ttl, has := -1, false
	if pkt.View.MPLSOffset >= 0 {
		ttl, has = int(b[pkt.View.MPLSOffset+3]), true
	} else if pkt.View.IPv4Offset >= 0 {
		ttl, has = int(b[pkt.View.IPv4Offset+8]), true
	}

	if !has || ttl > 1 {
		return false
	}

	if d.InvalidTTLToController {
		d.sendPacketIn(pkt, ofp.PacketInReasonNoMatch, 0, 0)
	}
	return true
}

// runInstructions evaluates entry's instructions in the fixed order
// required regardless of how the controller listed them: APPLY_ACTIONS
// (executed immediately, action by action, in list order), then
// CLEAR_ACTIONS, then WRITE_ACTIONS (merged into the packet's action
// set), then WRITE_METADATA, then GOTO_TABLE. It returns the next
// table to visit, or halt=true if the packet's pipeline traversal is
// done (no GOTO_TABLE was present).
func (d *Datapath) runInstructions(pkt *Packet, instrs ofp.Instructions, current ofp.Table) (next ofp.Table, halt bool, err error) {
	var (
		apply   *ofp.InstructionApplyActions
		clear   *ofp.InstructionClearActions
		write   *ofp.InstructionWriteActions
		meta    *ofp.InstructionWriteMetadata
		goTable *ofp.InstructionGotoTable
	)

	for _, instr := range instrs {
		switch in := instr.(type) {
		case *ofp.InstructionApplyActions:
			apply = in
		case *ofp.InstructionClearActions:
			clear = in
		case *ofp.InstructionWriteActions:
			write = in
		case *ofp.InstructionWriteMetadata:
			meta = in
		case *ofp.InstructionGotoTable:
			goTable = in
		}
	}

	if apply != nil {
		if err := d.runActions(pkt, apply.Actions); err != nil {
			return 0, false, err
		}
	}
	if clear != nil {
		pkt.Actions.Clear()
	}
	if write != nil {
		pkt.Actions.WriteAll(write.Actions)
	}
	if meta != nil {
		pkt.Metadata = pkt.Metadata&^meta.MetadataMask | meta.Metadata&meta.MetadataMask
	}

	if goTable == nil {
		return 0, true, nil
	}
	if goTable.Table <= current {
		return 0, false, d.badInstruction(pkt, current, ofp.ErrCodeBadInstructionTableID)
	}

	return goTable.Table, false, nil
}

// runActions executes actions immediately against pkt, in list order,
// used both by APPLY_ACTIONS and by group bucket actions.
func (d *Datapath) runActions(pkt *Packet, actions ofp.Actions) error {
	for _, a := range actions {
		if err := d.Executor.Execute(pkt, a); err != nil {
			return err
		}
	}
	return nil
}

func (d *Datapath) badInstruction(pkt *Packet, table ofp.Table, code ofp.ErrCode) error {
	return &ofp.Error{Type: ofp.ErrTypeBadInstruction, Code: code}
}

// dispatchEgress drains the packet's accumulated action set and then
// forwards it according to whichever of OutGroup/OutPort the drained
// actions (or an immediate APPLY_ACTIONS) left set.
func (d *Datapath) dispatchEgress(pkt *Packet) error {
	if err := pkt.Actions.Execute(&d.Executor, pkt); err != nil {
		return err
	}

	switch {
	case pkt.OutGroup != ofp.GroupAny:
		return d.Groups.Execute(pkt.OutGroup, pkt, portLiveness(d.Ports), d.applyBucket)

	case pkt.OutPort != ofp.PortAny:
		return d.output(pkt, pkt.OutPort)
	}

	return nil
}

// applyBucket runs a group bucket's action list against pkt and
// immediately dispatches whatever egress fields it leaves set, since
// bucket actions execute eagerly rather than through the per-table
// action set.
func (d *Datapath) applyBucket(pkt *Packet, b ofp.Bucket) error {
	if err := d.runActions(pkt, b.Actions); err != nil {
		return err
	}

	switch {
	case pkt.OutGroup != ofp.GroupAny:
		return d.Groups.Execute(pkt.OutGroup, pkt, portLiveness(d.Ports), d.applyBucket)
	case pkt.OutPort != ofp.PortAny:
		return d.output(pkt, pkt.OutPort)
	}
	return nil
}

// output dispatches pkt to a concrete or reserved port number.
func (d *Datapath) output(pkt *Packet, port ofp.PortNo) error {
	switch port {
	case ofp.PortTable:
		if !pkt.PacketOut {
			// Only a packet injected by PACKET_OUT may be resubmitted;
			// the flag is cleared on resubmission, guarding against an
			// infinite loop through the pipeline.
			return nil
		}
		pkt.PacketOut = false
		return d.Process(pkt)

	case ofp.PortIn:
		return d.Ports.Output(pkt.InPort, pkt)

	case ofp.PortController:
		return d.sendPacketIn(pkt, ofp.PacketInReasonAction, pkt.TableID, 0)

	case ofp.PortFlood, ofp.PortAll:
		return d.Ports.OutputAll(pkt.InPort, pkt)

	case ofp.PortNormal, ofp.PortLocal:
		return d.Ports.Output(port, pkt)

	default:
		// Direct output to the ingress port is refused; OFPP_IN_PORT
		// above is the only sanctioned way to send a packet back out
		// the port it arrived on.
		if port == pkt.InPort {
			d.Executor.Log.Warnf("datapath: output to in-port %d refused", port)
			return nil
		}
		return d.Ports.Output(port, pkt)
	}
}

func (d *Datapath) sendPacketIn(pkt *Packet, reason ofp.PacketInReason, table ofp.Table, cookie uint64) error {
	if d.SendPacketIn == nil {
		return nil
	}

	buffer := ofp.NoBuffer
	if d.Buffers != nil {
		buffer = d.Buffers.Save(pkt)
	}

	data := pkt.Frame.Bytes()
	return d.SendPacketIn(&ofp.PacketIn{
		Buffer: buffer,
		Length: uint16(len(data)),
		Reason: reason,
		Table:  table,
		Cookie: cookie,
		Match:  pkt.Match,
		Data:   data,
	})
}

// HandlePacketOut executes a controller-injected PACKET_OUT message:
// raw is the packet data carried alongside msg (or the buffered
// packet's data when msg.Buffer references one already held by the
// switch). Actions run immediately, in list order, exactly like an
// APPLY_ACTIONS instruction; no table is consulted.
func (d *Datapath) HandlePacketOut(msg *ofp.PacketOut, raw []byte) error {
	if err := msg.Actions.Validate(); err != nil {
		return err
	}

	pkt := NewPacket(raw, msg.InPort)
	pkt.BufferID = msg.Buffer
	pkt.PacketOut = true

	if err := d.runActions(pkt, msg.Actions); err != nil {
		return err
	}

	switch {
	case pkt.OutGroup != ofp.GroupAny:
		return d.Groups.Execute(pkt.OutGroup, pkt, portLiveness(d.Ports), d.applyBucket)
	case pkt.OutPort != ofp.PortAny:
		return d.output(pkt, pkt.OutPort)
	}
	return nil
}

// ApplyFlowMod routes a FlowMod message to the table(s) it names,
// fanning out FlowDelete/FlowDeleteStrict to every table when Table
// is TableAll. Add and the non-strict/strict modify commands always
// target a single table; TableAll is rejected for those since there
// is no sensible single flow entry to create or change across every
// table at once.
func (d *Datapath) ApplyFlowMod(mod *ofp.FlowMod) ([]*ofp.FlowRemoved, error) {
	if err := mod.Validate(); err != nil {
		return nil, err
	}

	if mod.Table == ofp.TableAll {
		if mod.Command != ofp.FlowDelete && mod.Command != ofp.FlowDeleteStrict {
			return nil, &ofp.Error{Type: ofp.ErrTypeFlowModFailed, Code: ofp.ErrCodeFlowModFailedBadTableID}
		}

		var removed []*ofp.FlowRemoved
		strict := mod.Command == ofp.FlowDeleteStrict
		for _, t := range d.Tables {
			for _, e := range t.Delete(mod, strict) {
				if e.Flags&ofp.FlowFlagSendFlowRem != 0 {
					removed = append(removed, d.flowRemoved(e, t.ID))
				}
			}
		}
		return removed, nil
	}

	if int(mod.Table) >= len(d.Tables) {
		return nil, &ofp.Error{Type: ofp.ErrTypeFlowModFailed, Code: ofp.ErrCodeFlowModFailedBadTableID}
	}
	t := d.Tables[mod.Table]

	switch mod.Command {
	case ofp.FlowAdd:
		return nil, t.Add(mod)
	case ofp.FlowModify, ofp.FlowModifyStrict:
		t.Modify(mod, mod.Command == ofp.FlowModifyStrict)
		return nil, nil
	case ofp.FlowDelete, ofp.FlowDeleteStrict:
		var removed []*ofp.FlowRemoved
		for _, e := range t.Delete(mod, mod.Command == ofp.FlowDeleteStrict) {
			if e.Flags&ofp.FlowFlagSendFlowRem != 0 {
				removed = append(removed, d.flowRemoved(e, t.ID))
			}
		}
		return removed, nil
	}
	return nil, nil
}

func (d *Datapath) flowRemoved(e *FlowEntry, table ofp.Table) *ofp.FlowRemoved {
	sec, nsec := e.durationSec()
	return &ofp.FlowRemoved{
		Match:       e.Match,
		Cookie:      e.Cookie,
		Priority:    e.Priority,
		Reason:      ofp.FlowReasonDelete,
		Table:       table,
		DurationSec: sec, DurationNSec: nsec,
		IdleTimeout: e.IdleTimeout,
		PacketCount: e.PacketCount,
		ByteCount:   e.ByteCount,
	}
}

// Expire runs the idle/hard timeout sweep over every table as of now,
// emitting a FlowRemoved for each expired entry that requested one.
// Intended to be invoked periodically by the runner driving this
// datapath.
func (d *Datapath) Expire(now time.Time) {
	for _, t := range d.Tables {
		for _, removed := range t.Expire(now) {
			if d.SendFlowRemoved == nil {
				continue
			}
			if err := d.SendFlowRemoved(removed); err != nil {
				d.Log.WithError(err).Warn("failed to send flow removed notification")
			}
		}
	}
}

// portLiveness adapts a Ports value to the group table's narrower
// PortLiveness interface, tolerating a Ports implementation that
// doesn't track liveness at all.
func portLiveness(p Ports) PortLiveness {
	if live, ok := p.(PortLiveness); ok {
		return live
	}
	return nil
}
