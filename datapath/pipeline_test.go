package datapath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netrack/ofswitch/ofp"
)

type recordingSink struct {
	packets []*Packet
}

func (s *recordingSink) Send(pkt *Packet) error {
	s.packets = append(s.packets, pkt)
	return nil
}

func newTestDatapath(numTables int) (*Datapath, *MapPorts) {
	ports := NewMapPorts()
	dp := NewDatapath(numTables, ports, NewMapBuffers(), nil, nil)
	return dp, ports
}

func TestPipelineFlowModOutputRewrite(t *testing.T) {
	dp, ports := newTestDatapath(1)

	sink := &recordingSink{}
	ports.Register(2, sink)

	match := ofp.Match{Wildcards: ofp.WildcardAll &^ ofp.WildcardInPort, InPort: 1}
	instrs := ofp.Instructions{
		&ofp.InstructionApplyActions{Actions: ofp.Actions{
			&ofp.ActionSetNWDst{NWDst: uint32(10)<<24 | 9},
		}},
		&ofp.InstructionWriteActions{Actions: ofp.Actions{
			&ofp.ActionOutput{Port: 2},
		}},
	}
	require.NoError(t, dp.Tables[0].Add(&ofp.FlowMod{Priority: 1, Match: match, Instructions: instrs}))

	raw := ipv4TCPFrame([4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2}, 64)
	pkt := NewPacket(raw, ofp.PortNo(1))

	require.NoError(t, dp.Process(pkt))
	require.Len(t, sink.packets, 1)

	got := sink.packets[0]
	assert.Equal(t, uint32(10)<<24|9, got.Match.NWDst)
}

func TestPipelineGotoMustAdvance(t *testing.T) {
	dp, _ := newTestDatapath(2)

	match := ofp.Match{Wildcards: ofp.WildcardAll}
	badGoto := ofp.Instructions{&ofp.InstructionGotoTable{Table: 0}}
	require.NoError(t, dp.Tables[0].Add(&ofp.FlowMod{Priority: 1, Match: match, Instructions: badGoto}))

	pkt := NewPacket(ipv4TCPFrame([4]byte{1, 1, 1, 1}, [4]byte{2, 2, 2, 2}, 64), ofp.PortNo(1))
	err := dp.Process(pkt)
	require.Error(t, err)

	ofErr, ok := err.(*ofp.Error)
	require.True(t, ok)
	assert.Equal(t, ofp.ErrTypeBadInstruction, ofErr.Type)
}

func TestPipelineMissSendsPacketIn(t *testing.T) {
	dp, _ := newTestDatapath(1)

	var sent *ofp.PacketIn
	dp.SendPacketIn = func(p *ofp.PacketIn) error {
		sent = p
		return nil
	}

	pkt := NewPacket(ipv4TCPFrame([4]byte{1, 1, 1, 1}, [4]byte{2, 2, 2, 2}, 64), ofp.PortNo(1))
	require.NoError(t, dp.Process(pkt))
	require.NotNil(t, sent)
	assert.Equal(t, ofp.PacketInReasonNoMatch, sent.Reason)
}

func TestPipelineGroupAllFanOut(t *testing.T) {
	dp, ports := newTestDatapath(1)

	sinkA, sinkB := &recordingSink{}, &recordingSink{}
	ports.Register(2, sinkA)
	ports.Register(3, sinkB)

	require.NoError(t, dp.Groups.Add(&ofp.GroupMod{
		Group: 1,
		Type:  ofp.GroupTypeAll,
		Buckets: []ofp.Bucket{
			{Actions: ofp.Actions{&ofp.ActionOutput{Port: 2}}},
			{Actions: ofp.Actions{&ofp.ActionOutput{Port: 3}}},
		},
	}))

	match := ofp.Match{Wildcards: ofp.WildcardAll}
	instrs := ofp.Instructions{
		&ofp.InstructionApplyActions{Actions: ofp.Actions{&ofp.ActionGroup{Group: 1}}},
	}
	require.NoError(t, dp.Tables[0].Add(&ofp.FlowMod{Priority: 1, Match: match, Instructions: instrs}))

	pkt := NewPacket(ipv4TCPFrame([4]byte{1, 1, 1, 1}, [4]byte{2, 2, 2, 2}, 64), ofp.PortNo(1))
	require.NoError(t, dp.Process(pkt))

	assert.Len(t, sinkA.packets, 1)
	assert.Len(t, sinkB.packets, 1)
}

func TestApplyFlowModRejectsInvalidAction(t *testing.T) {
	dp, _ := newTestDatapath(1)

	match := ofp.Match{Wildcards: ofp.WildcardAll}
	instrs := ofp.Instructions{
		&ofp.InstructionApplyActions{Actions: ofp.Actions{
			&ofp.ActionSetVLANVID{VLANVID: 0xffff},
		}},
	}

	_, err := dp.ApplyFlowMod(&ofp.FlowMod{Priority: 1, Match: match, Instructions: instrs})
	require.Error(t, err)

	ofErr, ok := err.(*ofp.Error)
	require.True(t, ok)
	assert.Equal(t, ofp.ErrTypeBadAction, ofErr.Type)
	assert.Equal(t, ofp.ErrCodeBadActionArgument, ofErr.Code)

	assert.Nil(t, dp.Tables[0].Lookup(&match))
}

func TestHandlePacketOutRejectsInvalidAction(t *testing.T) {
	dp, _ := newTestDatapath(1)

	msg := &ofp.PacketOut{
		InPort: ofp.PortNo(1),
		Buffer: ofp.NoBuffer,
		Actions: ofp.Actions{
			&ofp.ActionGroup{Group: ofp.Group(0xfffffffe)},
		},
	}

	raw := ipv4TCPFrame([4]byte{1, 1, 1, 1}, [4]byte{2, 2, 2, 2}, 64)
	err := dp.HandlePacketOut(msg, raw)
	require.Error(t, err)

	ofErr, ok := err.(*ofp.Error)
	require.True(t, ok)
	assert.Equal(t, ofp.ErrTypeBadAction, ofErr.Type)
	assert.Equal(t, ofp.ErrCodeBadActionOutGroup, ofErr.Code)
}

func TestGroupTableAddRejectsInvalidGroupMod(t *testing.T) {
	dp, _ := newTestDatapath(1)

	err := dp.Groups.Add(&ofp.GroupMod{
		Command: ofp.GroupAdd,
		Type:    ofp.GroupType(0xff),
		Group:   ofp.Group(1),
	})
	require.Error(t, err)

	ofErr, ok := err.(*ofp.Error)
	require.True(t, ok)
	assert.Equal(t, ofp.ErrTypeGroupModFailed, ofErr.Type)
	assert.Equal(t, ofp.ErrCodeGroupModBadType, ofErr.Code)
}

func TestPipelineTableMissDropConfig(t *testing.T) {
	dp, _ := newTestDatapath(1)
	dp.Tables[0].Config = ofp.TableConfigMissDrop

	var called bool
	dp.SendPacketIn = func(p *ofp.PacketIn) error {
		called = true
		return nil
	}

	pkt := NewPacket(ipv4TCPFrame([4]byte{1, 1, 1, 1}, [4]byte{2, 2, 2, 2}, 64), ofp.PortNo(1))
	require.NoError(t, dp.Process(pkt))
	assert.False(t, called)
}
