package datapath

import (
	"sort"
	"strconv"
	"time"

	"github.com/netrack/ofswitch/metrics"
	"github.com/netrack/ofswitch/ofp"
)

// FlowEntry is a single row of a FlowTable: a match, the instruction
// set to run on a hit, and the bookkeeping needed to support
// timeouts, statistics, and flow-removed notifications.
type FlowEntry struct {
	Cookie       uint64
	Priority     uint16
	Match        ofp.Match
	Instructions ofp.Instructions
	Flags        ofp.FlowModFlag

	IdleTimeout uint16
	HardTimeout uint16

	installedAt time.Time
	lastUsedAt  time.Time

	PacketCount uint64
	ByteCount   uint64

	// seq breaks priority ties in favor of the earlier-inserted entry,
	// matching the at-rest "equal priority, insertion order" invariant.
	seq uint64
}

func (e *FlowEntry) touch(bytes int) {
	e.lastUsedAt = time.Now()
	e.PacketCount++
	e.ByteCount += uint64(bytes)
}

func (e *FlowEntry) durationSec() (sec, nsec uint32) {
	d := time.Since(e.installedAt)
	return uint32(d / time.Second), uint32(d % time.Second)
}

// expired reports whether e should be evicted given now, and the
// FlowRemovedReason to report if so.
func (e *FlowEntry) expired(now time.Time) (ofp.FlowRemovedReason, bool) {
	if e.HardTimeout != 0 {
		if now.Sub(e.installedAt) >= time.Duration(e.HardTimeout)*time.Second {
			return ofp.FlowReasonHardTimeout, true
		}
	}
	if e.IdleTimeout != 0 {
		if now.Sub(e.lastUsedAt) >= time.Duration(e.IdleTimeout)*time.Second {
			return ofp.FlowReasonIdleTimeout, true
		}
	}
	return 0, false
}

// referencedGroups returns every group id named by a GROUP action in
// e's instruction set, used by the group table to refuse deleting a
// group still in use.
func (e *FlowEntry) referencedGroups() []ofp.Group {
	var groups []ofp.Group
	walkActions(e.Instructions, func(a ofp.Action) {
		if g, ok := a.(*ofp.ActionGroup); ok {
			groups = append(groups, g.Group)
		}
	})
	return groups
}

func walkActions(instrs ofp.Instructions, fn func(ofp.Action)) {
	for _, instr := range instrs {
		switch in := instr.(type) {
		case *ofp.InstructionApplyActions:
			for _, a := range in.Actions {
				fn(a)
			}
		case *ofp.InstructionWriteActions:
			for _, a := range in.Actions {
				fn(a)
			}
		}
	}
}

// FlowTable is one table of the multi-table pipeline: a priority
// ordered set of flow entries plus the miss policy applied when none
// match.
type FlowTable struct {
	ID     ofp.Table
	Config ofp.TableConfig

	MaxEntries uint32

	entries []*FlowEntry
	nextSeq uint64

	lookupCount  uint64
	matchedCount uint64

	metrics *metrics.Registry
}

// NewFlowTable returns an empty table with the controller-miss policy
// in effect, as required of every table before a TableMod configures
// it otherwise.
func NewFlowTable(id ofp.Table, reg *metrics.Registry) *FlowTable {
	return &FlowTable{ID: id, Config: ofp.TableConfigMissController, metrics: reg}
}

func (t *FlowTable) label() string {
	return strconv.Itoa(int(t.ID))
}

// Lookup performs the non-strict, highest-priority-wins match against
// c, a concrete match drawn from a packet's current fields. It
// returns nil if no entry matches.
func (t *FlowTable) Lookup(c *ofp.Match) *FlowEntry {
	t.lookupCount++
	t.metrics.FlowLookup(t.label())

	for _, e := range t.entries {
		if e.Match.Matches(c) {
			t.matchedCount++
			t.metrics.FlowMatch(t.label())
			return e
		}
	}
	return nil
}

// insertSorted inserts e keeping entries ordered by descending
// priority, insertion order breaking ties.
func (t *FlowTable) insertSorted(e *FlowEntry) {
	e.seq = t.nextSeq
	t.nextSeq++

	i := sort.Search(len(t.entries), func(i int) bool {
		if t.entries[i].Priority != e.Priority {
			return t.entries[i].Priority < e.Priority
		}
		return t.entries[i].seq > e.seq
	})

	t.entries = append(t.entries, nil)
	copy(t.entries[i+1:], t.entries[i:])
	t.entries[i] = e
	t.metrics.SetFlowEntries(t.label(), len(t.entries))
}

func (t *FlowTable) removeAt(i int) *FlowEntry {
	e := t.entries[i]
	t.entries = append(t.entries[:i], t.entries[i+1:]...)
	t.metrics.SetFlowEntries(t.label(), len(t.entries))
	return e
}

// overlaps reports whether any existing entry has the same priority
// and a match that intersects m -- the FlowFlagCheckOverlap guard
// against ambiguous additions.
func (t *FlowTable) overlaps(m *ofp.Match, priority uint16) bool {
	for _, e := range t.entries {
		if e.Priority == priority && matchesOverlap(&e.Match, m) {
			return true
		}
	}
	return false
}

// matchesOverlap reports whether a and b could both match some
// concrete packet, i.e. neither excludes the other on any
// non-wildcarded, non-masked-off field.
func matchesOverlap(a, b *ofp.Match) bool {
	if !a.Wildcarded(ofp.WildcardInPort) && !b.Wildcarded(ofp.WildcardInPort) && a.InPort != b.InPort {
		return false
	}
	if !a.Wildcarded(ofp.WildcardDLType) && !b.Wildcarded(ofp.WildcardDLType) && a.DLType != b.DLType {
		return false
	}
	if !a.Wildcarded(ofp.WildcardNWProto) && !b.Wildcarded(ofp.WildcardNWProto) && a.NWProto != b.NWProto {
		return false
	}
	if !a.Wildcarded(ofp.WildcardTPSrc) && !b.Wildcarded(ofp.WildcardTPSrc) && a.TPSrc != b.TPSrc {
		return false
	}
	if !a.Wildcarded(ofp.WildcardTPDst) && !b.Wildcarded(ofp.WildcardTPDst) && a.TPDst != b.TPDst {
		return false
	}
	return true
}

// Add applies a FlowAdd command. It returns an *ofp.Error with code
// ErrCodeFlowModFailedOverlap if FlowFlagCheckOverlap is set and an overlapping same-priority entry
// already exists. If an entry with an identical strict match and the
// same priority already exists, it is replaced in place rather than
// shadowed by a second, duplicate-priority entry; its packet/byte
// counters are preserved when the replacing FlowMod's cookie matches
// the existing entry's and FlowFlagResetCounts isn't set, and reset
// otherwise.
func (t *FlowTable) Add(mod *ofp.FlowMod) error {
	if mod.Flags&ofp.FlowFlagCheckOverlap != 0 && t.overlaps(&mod.Match, mod.Priority) {
		return &ofp.Error{
			Type: ofp.ErrTypeFlowModFailed,
			Code: ofp.ErrCodeFlowModFailedOverlap,
		}
	}

	now := time.Now()
	if e := t.findStrict(&mod.Match, mod.Priority); e != nil {
		if mod.Flags&ofp.FlowFlagResetCounts != 0 || mod.Cookie != e.Cookie {
			e.PacketCount, e.ByteCount = 0, 0
		}
		e.Cookie = mod.Cookie
		e.Instructions = mod.Instructions
		e.Flags = mod.Flags
		e.IdleTimeout = mod.IdleTimeout
		e.HardTimeout = mod.HardTimeout
		e.installedAt = now
		e.lastUsedAt = now
		return nil
	}

	t.insertSorted(&FlowEntry{
		Cookie:       mod.Cookie,
		Priority:     mod.Priority,
		Match:        mod.Match,
		Instructions: mod.Instructions,
		Flags:        mod.Flags,
		IdleTimeout:  mod.IdleTimeout,
		HardTimeout:  mod.HardTimeout,
		installedAt:  now,
		lastUsedAt:   now,
	})
	return nil
}

// findStrict returns the entry with the given priority and a strictly
// equal match, or nil if none exists.
func (t *FlowTable) findStrict(m *ofp.Match, priority uint16) *FlowEntry {
	for _, e := range t.entries {
		if e.Priority == priority && e.Match.StrictEqual(m) {
			return e
		}
	}
	return nil
}

// Modify applies FlowModify/FlowModifyStrict: matching entries keep
// their counters but get a new instruction set (and, per the
// FlowFlagResetCounts flag, reset counters).
func (t *FlowTable) Modify(mod *ofp.FlowMod, strict bool) {
	for _, e := range t.entries {
		if !flowModSelects(e, mod, strict) {
			continue
		}
		e.Instructions = mod.Instructions
		if mod.Flags&ofp.FlowFlagResetCounts != 0 {
			e.PacketCount, e.ByteCount = 0, 0
		}
	}
}

// Delete applies FlowDelete/FlowDeleteStrict, returning the removed
// entries so the caller can emit FlowRemoved notifications for the
// ones with FlowFlagSendFlowRem set.
func (t *FlowTable) Delete(mod *ofp.FlowMod, strict bool) []*FlowEntry {
	var removed []*FlowEntry

	kept := t.entries[:0]
	for _, e := range t.entries {
		if flowModSelects(e, mod, strict) && outPortGroupMatch(e, mod) {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	t.entries = kept
	t.metrics.SetFlowEntries(t.label(), len(t.entries))

	return removed
}

func outPortGroupMatch(e *FlowEntry, mod *ofp.FlowMod) bool {
	if mod.OutPort != ofp.PortAny && !actionsOutputTo(e.Instructions, mod.OutPort) {
		return false
	}
	if mod.OutGroup != ofp.GroupAny && !actionsGroupTo(e.Instructions, mod.OutGroup) {
		return false
	}
	return true
}

func actionsOutputTo(instrs ofp.Instructions, port ofp.PortNo) bool {
	found := false
	walkActions(instrs, func(a ofp.Action) {
		if o, ok := a.(*ofp.ActionOutput); ok && o.Port == port {
			found = true
		}
	})
	return found
}

func actionsGroupTo(instrs ofp.Instructions, group ofp.Group) bool {
	found := false
	walkActions(instrs, func(a ofp.Action) {
		if g, ok := a.(*ofp.ActionGroup); ok && g.Group == group {
			found = true
		}
	})
	return found
}

// flowModSelects reports whether e is addressed by mod's match,
// cookie filter, and priority (when strict).
func flowModSelects(e *FlowEntry, mod *ofp.FlowMod, strict bool) bool {
	if mod.CookieMask != 0 && mod.Cookie&mod.CookieMask != e.Cookie&mod.CookieMask {
		return false
	}
	if strict {
		return e.Priority == mod.Priority && e.Match.StrictEqual(&mod.Match)
	}
	return e.Match.Matches(&mod.Match) || mod.Match.Matches(&e.Match)
}

// Expire evicts entries whose idle or hard timeout has elapsed as of
// now, returning a FlowRemoved for each one that requested
// notification via FlowFlagSendFlowRem.
//
// A FlowRemoved's HardTimeout is left at zero even when the entry
// expired due to its idle timeout and carried a nonzero hard timeout;
// matching the wire behavior of the reference datapath rather than
// "fixing" it, since no controller is known to depend on the field
// once the entry is gone.
func (t *FlowTable) Expire(now time.Time) []*ofp.FlowRemoved {
	var removed []*ofp.FlowRemoved

	kept := t.entries[:0]
	for _, e := range t.entries {
		reason, dead := e.expired(now)
		if !dead {
			kept = append(kept, e)
			continue
		}

		reasonLabel := "idle_timeout"
		if reason == ofp.FlowReasonHardTimeout {
			reasonLabel = "hard_timeout"
		}
		t.metrics.FlowExpired(t.label(), reasonLabel)

		if e.Flags&ofp.FlowFlagSendFlowRem != 0 {
			sec, nsec := e.durationSec()
			removed = append(removed, &ofp.FlowRemoved{
				Cookie:       e.Cookie,
				Priority:     e.Priority,
				Reason:       reason,
				Table:        t.ID,
				DurationSec:  sec,
				DurationNSec: nsec,
				IdleTimeout:  e.IdleTimeout,
				PacketCount:  e.PacketCount,
				ByteCount:    e.ByteCount,
				Match:        e.Match,
			})
		}
	}
	t.entries = kept
	t.metrics.SetFlowEntries(t.label(), len(t.entries))

	return removed
}

// Stats returns the TableStats snapshot for this table.
func (t *FlowTable) Stats(name string) ofp.TableStats {
	return ofp.TableStats{
		Table:        t.ID,
		Name:         name,
		Config:       t.Config,
		MaxEntries:   t.MaxEntries,
		ActiveCount:  uint32(len(t.entries)),
		LookupCount:  t.lookupCount,
		MatchedCount: t.matchedCount,
	}
}

// RemoveByGroup evicts every entry whose instructions reference
// group, reporting FlowReasonGroupDelete for FlowRemoved purposes.
// GroupTable.Delete does not call it: flows referencing a deleted
// group stay installed.
func (t *FlowTable) RemoveByGroup(group ofp.Group) []*ofp.FlowRemoved {
	var removed []*ofp.FlowRemoved

	kept := t.entries[:0]
	for _, e := range t.entries {
		refs := false
		for _, g := range e.referencedGroups() {
			if g == group {
				refs = true
				break
			}
		}
		if !refs {
			kept = append(kept, e)
			continue
		}

		if e.Flags&ofp.FlowFlagSendFlowRem != 0 {
			sec, nsec := e.durationSec()
			removed = append(removed, &ofp.FlowRemoved{
				Cookie:       e.Cookie,
				Priority:     e.Priority,
				Reason:       ofp.FlowReasonGroupDelete,
				Table:        t.ID,
				DurationSec:  sec,
				DurationNSec: nsec,
				PacketCount:  e.PacketCount,
				ByteCount:    e.ByteCount,
				Match:        e.Match,
			})
		}
	}
	t.entries = kept
	t.metrics.SetFlowEntries(t.label(), len(t.entries))

	return removed
}
