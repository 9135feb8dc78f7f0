package datapath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netrack/ofswitch/ofp"
)

func TestGroupTableAddIndirectRequiresSingleBucket(t *testing.T) {
	gt := NewGroupTable(nil)

	err := gt.Add(&ofp.GroupMod{
		Group:   1,
		Type:    ofp.GroupTypeIndirect,
		Buckets: []ofp.Bucket{{}, {}},
	})
	require.Error(t, err)
}

func TestGroupTableRejectsSelfReferencingLoop(t *testing.T) {
	gt := NewGroupTable(nil)

	err := gt.Add(&ofp.GroupMod{
		Group: 1,
		Type:  ofp.GroupTypeIndirect,
		Buckets: []ofp.Bucket{{
			Actions: ofp.Actions{&ofp.ActionGroup{Group: 1}},
		}},
	})
	require.Error(t, err)

	ofErr, ok := err.(*ofp.Error)
	require.True(t, ok)
	assert.Equal(t, ofp.ErrCodeGroupModFailedLoop, ofErr.Code)
}

func TestGroupTableRejectsIndirectCycle(t *testing.T) {
	gt := NewGroupTable(nil)

	require.NoError(t, gt.Add(&ofp.GroupMod{
		Group: 1,
		Type:  ofp.GroupTypeIndirect,
		Buckets: []ofp.Bucket{{
			Actions: ofp.Actions{&ofp.ActionOutput{Port: 3}},
		}},
	}))

	err := gt.Add(&ofp.GroupMod{
		Group: 2,
		Type:  ofp.GroupTypeIndirect,
		Buckets: []ofp.Bucket{{
			Actions: ofp.Actions{&ofp.ActionGroup{Group: 1}},
		}},
	})
	require.NoError(t, err)

	// Modifying group 1 to point back at group 2 would close the cycle.
	err = gt.Modify(&ofp.GroupMod{
		Group: 1,
		Type:  ofp.GroupTypeIndirect,
		Buckets: []ofp.Bucket{{
			Actions: ofp.Actions{&ofp.ActionGroup{Group: 2}},
		}},
	})
	require.Error(t, err)
}

func TestGroupTableDeleteRefusesChained(t *testing.T) {
	gt := NewGroupTable(nil)

	require.NoError(t, gt.Add(&ofp.GroupMod{
		Group:   1,
		Type:    ofp.GroupTypeIndirect,
		Buckets: []ofp.Bucket{{Actions: ofp.Actions{&ofp.ActionOutput{Port: 3}}}},
	}))
	require.NoError(t, gt.Add(&ofp.GroupMod{
		Group:   2,
		Type:    ofp.GroupTypeIndirect,
		Buckets: []ofp.Bucket{{Actions: ofp.Actions{&ofp.ActionGroup{Group: 1}}}},
	}))

	_, err := gt.Delete(1, nil)
	require.Error(t, err)

	ofErr, ok := err.(*ofp.Error)
	require.True(t, ok)
	assert.Equal(t, ofp.ErrCodeGroupModFailedChainedGroup, ofErr.Code)
}

func TestGroupTableExecuteAllClonesPerBucket(t *testing.T) {
	gt := NewGroupTable(nil)

	require.NoError(t, gt.Add(&ofp.GroupMod{
		Group: 1,
		Type:  ofp.GroupTypeAll,
		Buckets: []ofp.Bucket{
			{Actions: ofp.Actions{&ofp.ActionOutput{Port: 1}}},
			{Actions: ofp.Actions{&ofp.ActionOutput{Port: 2}}},
		},
	}))

	raw := make([]byte, 14)
	pkt := NewPacket(raw, ofp.PortNo(9))

	var seen []ofp.PortNo
	err := gt.Execute(1, pkt, nil, func(p *Packet, b ofp.Bucket) error {
		out := b.Actions[0].(*ofp.ActionOutput)
		seen = append(seen, out.Port)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []ofp.PortNo{1, 2}, seen)
}

func TestWeightedRoundRobinDistributesByWeight(t *testing.T) {
	buckets := []ofp.Bucket{{Weight: 1}, {Weight: 3}}
	p := &WeightedRoundRobin{}

	counts := map[int]int{}
	for i := 0; i < 4; i++ {
		counts[p.Select(buckets)]++
	}
	assert.Equal(t, 1, counts[0])
	assert.Equal(t, 3, counts[1])
}
