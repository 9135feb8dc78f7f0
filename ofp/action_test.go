package ofp

import (
	"testing"

	"github.com/netrack/ofswitch/internal/encodingtest"
)

func TestActionCopyTTLInOut(t *testing.T) {
	tests := []encodingtest.MU{
		{&ActionCopyTTLOut{}, []byte{
			0x00, 0xb, // Action type.
			0x00, 0x08, // Action lenght.
			0x00, 0x00, 0x00, 0x00, // 4-byte padding.
		}},
		{&ActionCopyTTLIn{}, []byte{
			0x00, 0xc,
			0x00, 0x08,
			0x00, 0x00, 0x00, 0x00,
		}},
	}

	encodingtest.RunMU(t, tests)
}

func TestActionOutput(t *testing.T) {
	tests := []encodingtest.MU{
		{&ActionOutput{Port: PortIn, MaxLen: 0}, []byte{
			0x0, 0x0, // Action type.
			0x0, 0x10, // Action length.
			0xff, 0xff, 0xff, 0xf8, // Port number.
			0x0, 0x0, // Maximum length.
			0x0, 0x0, 0x0, 0x0, 0x0, 0x0}}, // 6-byte padding.
		{&ActionOutput{Port: PortFlood, MaxLen: 0}, []byte{
			0x0, 0x0,
			0x0, 0x10,
			0xff, 0xff, 0xff, 0xfb,
			0x0, 0x0,
			0x0, 0x0, 0x0, 0x0, 0x0, 0x0}},
		{&ActionOutput{Port: PortController, MaxLen: 0x80}, []byte{
			0x0, 0x0,
			0x0, 0x10,
			0xff, 0xff, 0xff, 0xfd,
			0x0, 0x80,
			0x0, 0x0, 0x0, 0x0, 0x0, 0x0}},
	}

	encodingtest.RunMU(t, tests)
}

func TestActionGroup(t *testing.T) {
	tests := []encodingtest.MU{
		{&ActionGroup{Group: GroupMax}, []byte{
			0x0, 0x16, // Action type.
			0x0, 0x08, // Action length.
			0xff, 0xff, 0xff, 0x00}}, // Group identifier.
		{&ActionGroup{Group: GroupAll}, []byte{
			0x0, 0x16,
			0x0, 0x08,
			0xff, 0xff, 0xff, 0xfc}},
		{&ActionGroup{Group: GroupAny}, []byte{
			0x0, 0x16,
			0x0, 0x08,
			0xff, 0xff, 0xff, 0xff}},
	}

	encodingtest.RunMU(t, tests)
}

func TestActionSetQueue(t *testing.T) {
	tests := []encodingtest.MU{
		{&ActionSetQueue{QueueID: QueueAll}, []byte{
			0x0, 0x15, // Action type.
			0x0, 0x08, // Action length.
			0xff, 0xff, 0xff, 0xff}}, // Queue identifier.
		{&ActionSetQueue{QueueID: 0x4200}, []byte{
			0x0, 0x15,
			0x0, 0x08,
			0x0, 0x0, 0x42, 0x00}},
	}

	encodingtest.RunMU(t, tests)
}

func TestActionMPLSTTL(t *testing.T) {
	tests := []encodingtest.MU{
		{&ActionSetMPLSTTL{TTL: 64}, []byte{
			0x0, 0x0f, // Action type.
			0x0, 0x08, // Action length.
			0x40,            // Time to live.
			0x0, 0x0, 0x0}}, // 3-bytes padding.
		{&ActionSetMPLSTTL{TTL: 32}, []byte{
			0x0, 0x0f,
			0x0, 0x08,
			0x20,
			0x0, 0x0, 0x0}},
	}

	encodingtest.RunMU(t, tests)
}

func TestActionSetNetworkTTL(t *testing.T) {
	tests := []encodingtest.MU{
		{&ActionSetNetworkTTL{TTL: 48}, []byte{
			0x0, 0x17, // Action type.
			0x0, 0x08, // Action length.
			0x30,            // Time to live.
			0x0, 0x0, 0x0}}, // 3-bytes padding.
	}

	encodingtest.RunMU(t, tests)
}

func TestActionPushPopVLAN(t *testing.T) {
	tests := []encodingtest.MU{
		{&ActionPushVLAN{EtherType: 1000}, []byte{
			0x0, 0x11, // Action type.
			0x0, 0x08, // Action length.
			0x03, 0xe8, // Ethernet type.
			0x0, 0x0}}, // 2-bytes padding.
		{&ActionPopVLAN{}, []byte{
			0x0, 0x12,
			0x0, 0x08,
			0x0, 0x0, 0x0, 0x0}},
	}

	encodingtest.RunMU(t, tests)
}

func TestActionPopMPLS(t *testing.T) {
	tests := []encodingtest.MU{
		{&ActionPopMPLS{EtherType: 1001}, []byte{
			0x0, 0x14, // Action type.
			0x0, 0x08, // Action length.
			0x03, 0xe9, // Ethernet type.
			0x0, 0x0}}, // 2-bytes padding.
		{&ActionPopMPLS{EtherType: 9}, []byte{
			0x0, 0x14,
			0x0, 0x8,
			0x0, 0x9,
			0x0, 0x0}},
	}

	encodingtest.RunMU(t, tests)
}

func TestActionSetDLAddr(t *testing.T) {
	tests := []encodingtest.MU{
		{&ActionSetDLSrc{DLSrc: [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}}, []byte{
			0x00, 0x03, // Action type.
			0x00, 0x10, // Action length.
			0x00, 0x11, 0x22, 0x33, 0x44, 0x55, // Ethernet address.
			0x0, 0x0, 0x0, 0x0, 0x0, 0x0}}, // 6-byte padding.
		{&ActionSetDLDst{DLDst: [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}}, []byte{
			0x00, 0x04,
			0x00, 0x10,
			0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff,
			0x0, 0x0, 0x0, 0x0, 0x0, 0x0}},
	}

	encodingtest.RunMU(t, tests)
}

func TestActionSetNWAddr(t *testing.T) {
	tests := []encodingtest.MU{
		{&ActionSetNWSrc{NWSrc: 0xac110019}, []byte{
			0x00, 0x05, // Action type.
			0x00, 0x08, // Action length.
			0xac, 0x11, 0x00, 0x19}}, // IPv4 address.
		{&ActionSetNWDst{NWDst: 0xc0a80001}, []byte{
			0x00, 0x06,
			0x00, 0x08,
			0xc0, 0xa8, 0x00, 0x01}},
	}

	encodingtest.RunMU(t, tests)
}

func TestActionSetVLAN(t *testing.T) {
	tests := []encodingtest.MU{
		{&ActionSetVLANVID{VLANVID: 100}, []byte{
			0x00, 0x01, // Action type.
			0x00, 0x08, // Action length.
			0x00, 0x64, // VLAN id.
			0x0, 0x0}}, // 2-byte padding.
		{&ActionSetVLANPCP{VLANPCP: 5}, []byte{
			0x00, 0x02,
			0x00, 0x08,
			0x05,
			0x0, 0x0, 0x0}},
	}

	encodingtest.RunMU(t, tests)
}

func TestActionSetTP(t *testing.T) {
	tests := []encodingtest.MU{
		{&ActionSetTPSrc{TPSrc: 8080}, []byte{
			0x00, 0x09, // Action type.
			0x00, 0x08, // Action length.
			0x1f, 0x90, // Port.
			0x0, 0x0}}, // 2-byte padding.
		{&ActionSetTPDst{TPDst: 53}, []byte{
			0x00, 0x0a,
			0x00, 0x08,
			0x00, 0x35,
			0x0, 0x0}},
	}

	encodingtest.RunMU(t, tests)
}

func TestActionSetNWTosECN(t *testing.T) {
	tests := []encodingtest.MU{
		{&ActionSetNWTos{NWTos: 0x2e}, []byte{
			0x00, 0x07, // Action type.
			0x00, 0x08, // Action length.
			0x2e,
			0x0, 0x0, 0x0}},
		{&ActionSetNWECN{NWECN: 0x3}, []byte{
			0x00, 0x08,
			0x00, 0x08,
			0x03,
			0x0, 0x0, 0x0}},
	}

	encodingtest.RunMU(t, tests)
}

func TestActionSetMPLS(t *testing.T) {
	tests := []encodingtest.MU{
		{&ActionSetMPLSLabel{MPLSLabel: 0x64}, []byte{
			0x00, 0x0d, // Action type.
			0x00, 0x08, // Action length.
			0x00, 0x00, 0x00, 0x64}},
		{&ActionSetMPLSTC{MPLSTC: 0x3}, []byte{
			0x00, 0x0e,
			0x00, 0x08,
			0x03,
			0x0, 0x0, 0x0}},
	}

	encodingtest.RunMU(t, tests)
}

func TestActionExperimenter(t *testing.T) {
	tests := []encodingtest.MU{
		{&ActionExperimenter{41}, []byte{
			0xff, 0x0ff, // Action type.
			0x0, 0x08, // Action length.
			0x0, 0x0, 0x0, 0x29, // Experimeter.
		}},
		{&ActionExperimenter{42}, []byte{
			0xff, 0x0ff,
			0x0, 0x08,
			0x0, 0x0, 0x0, 0x2a,
		}},
	}

	encodingtest.RunMU(t, tests)
}
