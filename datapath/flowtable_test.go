package datapath

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netrack/ofswitch/ofp"
)

func outputActions(port ofp.PortNo) ofp.Instructions {
	return ofp.Instructions{
		&ofp.InstructionApplyActions{Actions: ofp.Actions{&ofp.ActionOutput{Port: port}}},
	}
}

func TestFlowTableLookupHighestPriorityWins(t *testing.T) {
	ft := NewFlowTable(0, nil)

	low := &ofp.FlowMod{Priority: 1, Match: ofp.Match{Wildcards: ofp.WildcardAll}, Instructions: outputActions(1)}
	high := &ofp.FlowMod{Priority: 10, Match: ofp.Match{Wildcards: ofp.WildcardAll}, Instructions: outputActions(2)}

	require.NoError(t, ft.Add(low))
	require.NoError(t, ft.Add(high))

	m := ofp.Match{Wildcards: ofp.WildcardAll}
	entry := ft.Lookup(&m)
	require.NotNil(t, entry)

	apply := entry.Instructions[0].(*ofp.InstructionApplyActions)
	out := apply.Actions[0].(*ofp.ActionOutput)
	assert.Equal(t, ofp.PortNo(2), out.Port)
}

func TestFlowTableAddOverlapRejected(t *testing.T) {
	ft := NewFlowTable(0, nil)

	m := ofp.Match{Wildcards: ofp.WildcardAll}
	first := &ofp.FlowMod{Priority: 5, Match: m, Flags: ofp.FlowFlagCheckOverlap}
	require.NoError(t, ft.Add(first))

	second := &ofp.FlowMod{Priority: 5, Match: m, Flags: ofp.FlowFlagCheckOverlap}
	err := ft.Add(second)
	require.Error(t, err)

	ofErr, ok := err.(*ofp.Error)
	require.True(t, ok)
	assert.Equal(t, ofp.ErrTypeFlowModFailed, ofErr.Type)
	assert.Equal(t, ofp.ErrCodeFlowModFailedOverlap, ofErr.Code)
}

func TestFlowTableAddReplacesIdenticalStrictMatch(t *testing.T) {
	ft := NewFlowTable(0, nil)

	m := ofp.Match{Wildcards: ofp.WildcardAll, InPort: 1}
	require.NoError(t, ft.Add(&ofp.FlowMod{Cookie: 1, Priority: 5, Match: m, Instructions: outputActions(1)}))

	entry := ft.Lookup(&m)
	require.NotNil(t, entry)
	entry.PacketCount, entry.ByteCount = 10, 1000

	// Same strict match and priority, same cookie: replace in place,
	// keeping the counters, rather than inserting a second entry.
	require.NoError(t, ft.Add(&ofp.FlowMod{Cookie: 1, Priority: 5, Match: m, Instructions: outputActions(2)}))

	stats := ft.Stats("t0")
	assert.Equal(t, uint32(1), stats.ActiveCount)

	entry = ft.Lookup(&m)
	require.NotNil(t, entry)
	apply := entry.Instructions[0].(*ofp.InstructionApplyActions)
	out := apply.Actions[0].(*ofp.ActionOutput)
	assert.Equal(t, ofp.PortNo(2), out.Port)
	assert.Equal(t, uint64(10), entry.PacketCount)
	assert.Equal(t, uint64(1000), entry.ByteCount)

	// A mismatched cookie resets the counters even though the match
	// and priority are still identical.
	require.NoError(t, ft.Add(&ofp.FlowMod{Cookie: 2, Priority: 5, Match: m, Instructions: outputActions(3)}))
	stats = ft.Stats("t0")
	assert.Equal(t, uint32(1), stats.ActiveCount)

	entry = ft.Lookup(&m)
	require.NotNil(t, entry)
	assert.Equal(t, uint64(0), entry.PacketCount)
	assert.Equal(t, uint64(0), entry.ByteCount)
}

func TestFlowTableDeleteStrict(t *testing.T) {
	ft := NewFlowTable(0, nil)

	m := ofp.Match{Wildcards: ofp.WildcardAll, InPort: 1}
	require.NoError(t, ft.Add(&ofp.FlowMod{Priority: 5, Match: m}))

	del := &ofp.FlowMod{Priority: 5, Match: m, OutPort: ofp.PortAny, OutGroup: ofp.GroupAny}
	removed := ft.Delete(del, true)
	assert.Len(t, removed, 1)
	assert.Nil(t, ft.Lookup(&ofp.Match{Wildcards: ofp.WildcardAll, InPort: 1}))
}

func TestFlowTableHardTimeoutExpires(t *testing.T) {
	ft := NewFlowTable(0, nil)

	m := ofp.Match{Wildcards: ofp.WildcardAll}
	require.NoError(t, ft.Add(&ofp.FlowMod{
		Priority:    1,
		Match:       m,
		HardTimeout: 1,
		Flags:       ofp.FlowFlagSendFlowRem,
	}))

	removed := ft.Expire(time.Now().Add(2 * time.Second))
	require.Len(t, removed, 1)
	assert.Equal(t, ofp.FlowReasonHardTimeout, removed[0].Reason)
	assert.Nil(t, ft.Lookup(&m))
}

func TestFlowTableRemoveByGroup(t *testing.T) {
	ft := NewFlowTable(0, nil)

	m := ofp.Match{Wildcards: ofp.WildcardAll}
	instrs := ofp.Instructions{
		&ofp.InstructionApplyActions{Actions: ofp.Actions{&ofp.ActionGroup{Group: 7}}},
	}
	require.NoError(t, ft.Add(&ofp.FlowMod{Priority: 1, Match: m, Instructions: instrs, Flags: ofp.FlowFlagSendFlowRem}))

	removed := ft.RemoveByGroup(7)
	require.Len(t, removed, 1)
	assert.Equal(t, ofp.FlowReasonGroupDelete, removed[0].Reason)
	assert.Nil(t, ft.Lookup(&m))
}
