package datapath

import (
	"strconv"
	"time"

	"github.com/netrack/ofswitch/metrics"
	"github.com/netrack/ofswitch/ofp"
)

// SelectPolicy picks a bucket index from a select group given the
// candidate buckets, so the load-balancing strategy can be swapped
// without touching GroupTable.
type SelectPolicy interface {
	Select(buckets []ofp.Bucket) int
}

// WeightedRoundRobin is the default SelectPolicy: it cycles through
// buckets proportionally to their Weight. A bucket with zero weight is
// never selected; when every bucket has zero weight, Select returns -1.
type WeightedRoundRobin struct {
	cursor uint64
}

func (p *WeightedRoundRobin) Select(buckets []ofp.Bucket) int {
	if len(buckets) == 0 {
		return -1
	}

	total := uint64(0)
	for _, b := range buckets {
		total += weightOf(b)
	}
	if total == 0 {
		return -1
	}

	target := p.cursor % total
	p.cursor++

	var sum uint64
	for i, b := range buckets {
		sum += weightOf(b)
		if target < sum {
			return i
		}
	}
	return len(buckets) - 1
}

func weightOf(b ofp.Bucket) uint64 {
	return uint64(b.Weight)
}

// GroupEntry is a single row of the group table.
type GroupEntry struct {
	Type    ofp.GroupType
	Buckets []ofp.Bucket

	installedAt time.Time

	PacketCount  uint64
	ByteCount    uint64
	BucketStats  []ofp.BucketCounter
	selectPolicy SelectPolicy
}

func newGroupEntry(typ ofp.GroupType, buckets []ofp.Bucket) *GroupEntry {
	return &GroupEntry{
		Type:         typ,
		Buckets:      buckets,
		installedAt:  time.Now(),
		BucketStats:  make([]ofp.BucketCounter, len(buckets)),
		selectPolicy: &WeightedRoundRobin{},
	}
}

// PortLiveness reports whether a port is viable for an FF bucket;
// ports not registered are assumed live so a datapath that doesn't
// track link state degrades to "always forward" rather than
// blackholing traffic.
type PortLiveness interface {
	PortLive(ofp.PortNo) bool
}

// GroupTable is the OpenFlow group table: a map of group id to
// GroupEntry, with the acyclicity and chaining rules of SPEC_FULL's
// group module enforced on every mutation.
type GroupTable struct {
	entries map[ofp.Group]*GroupEntry
	metrics *metrics.Registry

	MaxGroups      map[ofp.GroupType]uint32
	MaxBucketCount uint32
}

// NewGroupTable returns an empty group table.
func NewGroupTable(reg *metrics.Registry) *GroupTable {
	return &GroupTable{
		entries: make(map[ofp.Group]*GroupEntry),
		metrics: reg,
	}
}

func groupModError(code ofp.ErrCode) error {
	return &ofp.Error{Type: ofp.ErrTypeGroupModFailed, Code: code}
}

// Add applies a GroupAdd command.
func (t *GroupTable) Add(mod *ofp.GroupMod) error {
	if err := mod.Validate(); err != nil {
		return err
	}
	if _, exists := t.entries[mod.Group]; exists {
		return groupModError(ofp.ErrCodeGroupModFailedGroupExists)
	}
	if mod.Type == ofp.GroupTypeIndirect && len(mod.Buckets) != 1 {
		return groupModError(ofp.ErrCodeGroupModFailedInvalidGroup)
	}
	if t.MaxBucketCount != 0 && uint32(len(mod.Buckets)) > t.MaxBucketCount {
		return groupModError(ofp.ErrCodeGroupModFailedOutOfBuckets)
	}
	if max, ok := t.MaxGroups[mod.Type]; ok && uint32(t.countByType(mod.Type)) >= max {
		return groupModError(ofp.ErrCodeGroupModFailedOutOfGroups)
	}

	candidate := newGroupEntry(mod.Type, mod.Buckets)
	if t.wouldCycle(mod.Group, candidate) {
		return groupModError(ofp.ErrCodeGroupModFailedLoop)
	}

	t.entries[mod.Group] = candidate
	return nil
}

// Modify applies a GroupModify command, replacing the bucket list of
// an existing group while preserving its packet/byte counters.
func (t *GroupTable) Modify(mod *ofp.GroupMod) error {
	if err := mod.Validate(); err != nil {
		return err
	}
	existing, ok := t.entries[mod.Group]
	if !ok {
		return groupModError(ofp.ErrCodeGroupModFailedUnknownGroup)
	}
	if mod.Type == ofp.GroupTypeIndirect && len(mod.Buckets) != 1 {
		return groupModError(ofp.ErrCodeGroupModFailedInvalidGroup)
	}

	candidate := newGroupEntry(mod.Type, mod.Buckets)
	candidate.installedAt = existing.installedAt
	candidate.PacketCount = existing.PacketCount
	candidate.ByteCount = existing.ByteCount

	if t.wouldCycleReplacing(mod.Group, candidate) {
		return groupModError(ofp.ErrCodeGroupModFailedLoop)
	}

	t.entries[mod.Group] = candidate
	return nil
}

// Delete applies a GroupDelete command. Deleting ofp.GroupAll clears
// the whole table unconditionally; deleting a single group id that is
// still referenced by another group's bucket is refused with
// ChainingUnsupported, per the decided OF1.1 semantics (flows that
// reference it are left in place and silently drop on a future GROUP
// action against the now-missing id). flowTables is not modified.
func (t *GroupTable) Delete(group ofp.Group, flowTables []*FlowTable) ([]ofp.Group, error) {
	if group == ofp.GroupAll {
		var deleted []ofp.Group
		for id := range t.entries {
			deleted = append(deleted, id)
		}
		t.entries = make(map[ofp.Group]*GroupEntry)
		return deleted, nil
	}

	if _, ok := t.entries[group]; !ok {
		return nil, nil
	}
	if t.referencedByOtherGroup(group) {
		return nil, groupModError(ofp.ErrCodeGroupModFailedChainedGroup)
	}

	delete(t.entries, group)
	return []ofp.Group{group}, nil
}

func (t *GroupTable) countByType(typ ofp.GroupType) int {
	n := 0
	for _, e := range t.entries {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func (t *GroupTable) referencedByOtherGroup(group ofp.Group) bool {
	for id, e := range t.entries {
		if id == group {
			continue
		}
		for _, b := range e.Buckets {
			if bucketReferences(b, group) {
				return true
			}
		}
	}
	return false
}

func bucketReferences(b ofp.Bucket, group ofp.Group) bool {
	for _, a := range b.Actions {
		if g, ok := a.(*ofp.ActionGroup); ok && g.Group == group {
			return true
		}
	}
	return false
}

// wouldCycle reports whether installing candidate under id would
// create a cycle in the group reference graph, checked by iterated
// leaf removal over the graph as it would exist after the insertion.
func (t *GroupTable) wouldCycle(id ofp.Group, candidate *GroupEntry) bool {
	graph := t.graphWith(id, candidate)
	return hasCycle(graph)
}

func (t *GroupTable) wouldCycleReplacing(id ofp.Group, candidate *GroupEntry) bool {
	return t.wouldCycle(id, candidate)
}

// graphWith builds the adjacency map of the group reference graph,
// substituting candidate for id (whether id already exists or not).
func (t *GroupTable) graphWith(id ofp.Group, candidate *GroupEntry) map[ofp.Group][]ofp.Group {
	graph := make(map[ofp.Group][]ofp.Group, len(t.entries)+1)
	for gid, e := range t.entries {
		graph[gid] = groupRefs(e)
	}
	graph[id] = groupRefs(candidate)
	return graph
}

func groupRefs(e *GroupEntry) []ofp.Group {
	var refs []ofp.Group
	for _, b := range e.Buckets {
		for _, a := range b.Actions {
			if g, ok := a.(*ofp.ActionGroup); ok {
				refs = append(refs, g.Group)
			}
		}
	}
	return refs
}

// hasCycle detects a cycle in graph by iterated leaf removal: a DAG
// can always be fully reduced to nothing by repeatedly deleting nodes
// with no remaining outgoing edge into the current graph; a node left
// over after no more leaves can be removed proves a cycle.
func hasCycle(graph map[ofp.Group][]ofp.Group) bool {
	remaining := make(map[ofp.Group][]ofp.Group, len(graph))
	for k, v := range graph {
		remaining[k] = v
	}

	for len(remaining) > 0 {
		removedAny := false

		for id, refs := range remaining {
			isLeaf := true
			for _, r := range refs {
				if _, ok := remaining[r]; ok {
					isLeaf = false
					break
				}
			}
			if isLeaf {
				delete(remaining, id)
				removedAny = true
			}
		}

		if !removedAny {
			return true
		}
	}
	return false
}

func (t *GroupTable) label(id ofp.Group) string {
	return strconv.FormatUint(uint64(id), 10)
}

// Execute runs the bucket(s) selected by id's type against pkt,
// invoking apply once per resulting packet (the original for
// INDIRECT/SELECT/FF, one clone per bucket for ALL). apply is
// responsible for draining the packet's action set and dispatching
// its egress fields; Execute itself only fans out buckets.
func (t *GroupTable) Execute(id ofp.Group, pkt *Packet, live PortLiveness, apply func(*Packet, ofp.Bucket) error) error {
	e, ok := t.entries[id]
	if !ok {
		return nil
	}

	typeLabel := groupTypeLabel(e.Type)
	t.metrics.GroupPacket(t.label(id), typeLabel)
	e.PacketCount++
	e.ByteCount += uint64(pkt.Frame.Len())

	switch e.Type {
	case ofp.GroupTypeAll:
		for i, b := range e.Buckets {
			clone := pkt
			if i < len(e.Buckets)-1 {
				clone = pkt.Clone()
			}
			e.BucketStats[i].PacketCount++
			e.BucketStats[i].ByteCount += uint64(clone.Frame.Len())
			t.metrics.BucketBytes(t.label(id), strconv.Itoa(i), clone.Frame.Len())

			if err := apply(clone, b); err != nil {
				return err
			}
		}
		return nil

	case ofp.GroupTypeIndirect:
		if len(e.Buckets) == 0 {
			return nil
		}
		e.BucketStats[0].PacketCount++
		e.BucketStats[0].ByteCount += uint64(pkt.Frame.Len())
		return apply(pkt, e.Buckets[0])

	case ofp.GroupTypeSelect:
		i := e.selectPolicy.Select(e.Buckets)
		if i < 0 {
			return nil
		}
		e.BucketStats[i].PacketCount++
		e.BucketStats[i].ByteCount += uint64(pkt.Frame.Len())
		return apply(pkt, e.Buckets[i])

	case ofp.GroupTypeFastFailover:
		for i, b := range e.Buckets {
			if !t.bucketLive(b, live) {
				continue
			}
			e.BucketStats[i].PacketCount++
			e.BucketStats[i].ByteCount += uint64(pkt.Frame.Len())
			return apply(pkt, b)
		}
		return nil
	}

	return nil
}

// bucketLive reports whether a fast-failover bucket's watched port and
// watched group are both currently live; a watch set to ANY is not
// consulted. A bucket watching nothing is always live.
func (t *GroupTable) bucketLive(b ofp.Bucket, live PortLiveness) bool {
	if b.WatchPort != ofp.PortAny && live != nil && !live.PortLive(b.WatchPort) {
		return false
	}
	if b.WatchGroup != ofp.GroupAny && !t.groupLive(b.WatchGroup, live) {
		return false
	}
	return true
}

// groupLive reports whether any bucket of the watched group is
// itself live, recursing through nested FF groups.
func (t *GroupTable) groupLive(id ofp.Group, live PortLiveness) bool {
	e, ok := t.entries[id]
	if !ok {
		return false
	}
	for _, b := range e.Buckets {
		if t.bucketLive(b, live) {
			return true
		}
	}
	return false
}

func groupTypeLabel(t ofp.GroupType) string {
	switch t {
	case ofp.GroupTypeAll:
		return "all"
	case ofp.GroupTypeSelect:
		return "select"
	case ofp.GroupTypeIndirect:
		return "indirect"
	case ofp.GroupTypeFastFailover:
		return "fast_failover"
	default:
		return "unknown"
	}
}

// Stats returns the GroupStats snapshot for id, or false if no such
// group exists.
func (t *GroupTable) Stats(id ofp.Group) (ofp.GroupStats, bool) {
	e, ok := t.entries[id]
	if !ok {
		return ofp.GroupStats{}, false
	}

	d := time.Since(e.installedAt)
	return ofp.GroupStats{
		Group:        id,
		RefCount:     uint32(t.refCount(id)),
		PacketCount:  e.PacketCount,
		ByteCount:    e.ByteCount,
		DurationSec:  uint32(d / time.Second),
		DurationNSec: uint32(d % time.Second),
		BucketStats:  e.BucketStats,
	}, true
}

func (t *GroupTable) refCount(id ofp.Group) int {
	n := 0
	for gid, e := range t.entries {
		if gid == id {
			continue
		}
		for _, b := range e.Buckets {
			if bucketReferences(b, id) {
				n++
			}
		}
	}
	return n
}
