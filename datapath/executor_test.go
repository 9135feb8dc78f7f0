package datapath

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netrack/ofswitch/ofp"
)

func ipv4TCPFrame(srcIP, dstIP [4]byte, ttl uint8) []byte {
	b := make([]byte, 60)

	copy(b[0:6], []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55})
	copy(b[6:12], []byte{0x00, 0xaa, 0xbb, 0xcc, 0xdd, 0xee})
	b[12], b[13] = 0x08, 0x00

	ip := b[14:]
	ip[0] = 0x45
	ip[8] = ttl
	ip[9] = 6 // TCP
	copy(ip[12:16], srcIP[:])
	copy(ip[16:20], dstIP[:])

	return b
}

func TestExecutorSetNWDstUpdatesChecksum(t *testing.T) {
	raw := ipv4TCPFrame([4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2}, 64)
	pkt := NewPacket(raw, ofp.PortNo(1))

	tcpCsumOff := pkt.View.TCPOffset + 16
	before := append([]byte(nil), pkt.Frame.Bytes()[tcpCsumOff:tcpCsumOff+2]...)

	var exec Executor
	err := exec.Execute(pkt, &ofp.ActionSetNWDst{NWDst: uint32(10)<<24 | 3})
	require.NoError(t, err)

	pkt.Revalidate()
	assert.Equal(t, uint32(10)<<24|3, pkt.Match.NWDst)

	after := pkt.Frame.Bytes()[tcpCsumOff : tcpCsumOff+2]
	assert.NotEqual(t, before, after, "TCP checksum must be updated in the frame buffer, not a discarded copy")
}

func TestExecutorDecNetworkTTL(t *testing.T) {
	raw := ipv4TCPFrame([4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2}, 2)
	pkt := NewPacket(raw, ofp.PortNo(1))

	var exec Executor
	require.NoError(t, exec.Execute(pkt, &ofp.ActionDecNetworkTTL{}))

	pkt.Revalidate()
	assert.Equal(t, uint8(1), pkt.Frame.Bytes()[pkt.View.IPv4Offset+8])
}

func TestExecutorDecNetworkTTLFloorsAtZero(t *testing.T) {
	raw := ipv4TCPFrame([4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2}, 0)
	pkt := NewPacket(raw, ofp.PortNo(1))

	var exec Executor
	require.NoError(t, exec.Execute(pkt, &ofp.ActionDecNetworkTTL{}))

	pkt.Revalidate()
	assert.Equal(t, uint8(0), pkt.Frame.Bytes()[pkt.View.IPv4Offset+8])
}

func TestExecutorPushPopVLANRoundtrip(t *testing.T) {
	raw := ipv4TCPFrame([4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2}, 64)
	pkt := NewPacket(raw, ofp.PortNo(1))
	origLen := pkt.Frame.Len()

	var exec Executor
	require.NoError(t, exec.Execute(pkt, &ofp.ActionPushVLAN{EtherType: 0x8100}))
	pkt.Revalidate()
	require.Len(t, pkt.View.VLANOffsets, 1)
	assert.Equal(t, origLen+4, pkt.Frame.Len())

	require.NoError(t, exec.Execute(pkt, &ofp.ActionPopVLAN{}))
	pkt.Revalidate()
	assert.Len(t, pkt.View.VLANOffsets, 0)
	assert.Equal(t, origLen, pkt.Frame.Len())
	assert.Equal(t, uint16(0x0800), pkt.Match.DLType)
}

func TestExecutorPushPopMPLSRoundtrip(t *testing.T) {
	raw := ipv4TCPFrame([4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2}, 64)
	pkt := NewPacket(raw, ofp.PortNo(1))
	origLen := pkt.Frame.Len()

	var exec Executor
	require.NoError(t, exec.Execute(pkt, &ofp.ActionPushMPLS{EtherType: 0x8847}))
	pkt.Revalidate()
	require.NotEqual(t, -1, pkt.View.MPLSOffset)
	assert.Equal(t, origLen+4, pkt.Frame.Len())

	require.NoError(t, exec.Execute(pkt, &ofp.ActionPopMPLS{EtherType: 0x0800}))
	pkt.Revalidate()
	assert.Equal(t, origLen, pkt.Frame.Len())
	assert.Equal(t, uint16(0x0800), pkt.Match.DLType)
}

func TestExecutorOutputRecordsScratchFieldsOnly(t *testing.T) {
	raw := ipv4TCPFrame([4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2}, 64)
	pkt := NewPacket(raw, ofp.PortNo(1))
	before := append([]byte(nil), pkt.Frame.Bytes()...)

	var exec Executor
	require.NoError(t, exec.Execute(pkt, &ofp.ActionOutput{Port: ofp.PortNo(7), MaxLen: 128}))

	assert.Equal(t, ofp.PortNo(7), pkt.OutPort)
	assert.Equal(t, uint16(128), pkt.OutPortMaxLen)
	assert.Equal(t, before, pkt.Frame.Bytes())
}

func TestExecutorUnsupportedActionErrors(t *testing.T) {
	var exec Executor
	pkt := NewPacket(ipv4TCPFrame([4]byte{1, 1, 1, 1}, [4]byte{2, 2, 2, 2}, 64), ofp.PortNo(1))

	err := exec.Execute(pkt, unsupportedAction{})
	assert.Error(t, err)
}

type unsupportedAction struct{}

func (unsupportedAction) Type() ofp.ActionType            { return ofp.ActionType(0xdead) }
func (unsupportedAction) ReadFrom(r io.Reader) (int64, error) { return 0, nil }
func (unsupportedAction) WriteTo(w io.Writer) (int64, error)  { return 0, nil }
