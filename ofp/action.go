package ofp

import (
	"bytes"
	"fmt"
	"io"

	"github.com/netrack/ofswitch/internal/encoding"
)

// ActionType specifies the action type.
type ActionType uint16

// String returns a string representation of the action type.
func (a ActionType) String() string {
	text, ok := actionText[a]
	// If action is now known just say it.
	if !ok {
		return fmt.Sprintf("Action(%d)", a)
	}

	return text
}

const (
	// ActionTypeOutput outputs the packet to the switch port.
	ActionTypeOutput ActionType = iota

	// ActionTypeSetVLANVID sets the 802.1q VLAN id.
	ActionTypeSetVLANVID

	// ActionTypeSetVLANPCP sets the 802.1q priority.
	ActionTypeSetVLANPCP

	// ActionTypeSetDLSrc sets the ethernet source address.
	ActionTypeSetDLSrc

	// ActionTypeSetDLDst sets the ethernet destination address.
	ActionTypeSetDLDst

	// ActionTypeSetNWSrc sets the IPv4 source address.
	ActionTypeSetNWSrc

	// ActionTypeSetNWDst sets the IPv4 destination address.
	ActionTypeSetNWDst

	// ActionTypeSetNWTos sets the IP ToS (DSCP) bits.
	ActionTypeSetNWTos

	// ActionTypeSetNWECN sets the IP ECN bits.
	ActionTypeSetNWECN

	// ActionTypeSetTPSrc sets the TCP/UDP source port.
	ActionTypeSetTPSrc

	// ActionTypeSetTPDst sets the TCP/UDP destination port.
	ActionTypeSetTPDst

	// ActionTypeCopyTTLOut copies the TTL from the next-to-outermost
	// header to outermost header with TTL.
	ActionTypeCopyTTLOut

	// ActionTypeCopyTTLIn copies the TTL from the outermost header to
	// the next-to-outermost header with TTL.
	ActionTypeCopyTTLIn

	// ActionTypeSetMPLSLabel sets the MPLS label.
	ActionTypeSetMPLSLabel

	// ActionTypeSetMPLSTC sets the MPLS traffic class.
	ActionTypeSetMPLSTC

	// ActionTypeSetMPLSTTL replaces the existing MPLS TTL. This applies
	// only to the packets with existing MPLS shim header.
	ActionTypeSetMPLSTTL

	// ActionTypeDecMPLSTTL decrements the MPLS TTL. This applies only
	// to the packets with existing MPLS shim header.
	ActionTypeDecMPLSTTL

	// ActionTypePushVLAN pushes a new VLAN header onto the packet.
	ActionTypePushVLAN

	// ActionTypePopVLAN pops the outer-most VLAN header from the packet.
	ActionTypePopVLAN

	// ActionTypePushMPLS pushes a new MPLS shim header onto the packet.
	ActionTypePushMPLS

	// ActionTypePopMPLS pops the outer-most MPLS tag or shim header from
	// the packet.
	ActionTypePopMPLS

	// ActionTypeSetQueue specifies on which queue attached to the port
	// should be used to queue and forward packet.
	ActionTypeSetQueue

	// ActionTypeGroup specifies that action should be set to the group
	// action, when a packet has to be processed by the group table.
	ActionTypeGroup

	// ActionTypeSetNWTTL replaces the existing IPv4 TTL and updates
	// the IP checksum.
	ActionTypeSetNWTTL

	// ActionTypeDecNWTTL decrements the IPv4 TTL and updates the IP
	// checksum.
	ActionTypeDecNWTTL

	// ActionTypeExperimenter applies the experimental action.
	ActionTypeExperimenter ActionType = 0xffff
)

var actionText = map[ActionType]string{
	ActionTypeOutput:        "ActionOutput",
	ActionTypeSetVLANVID:    "ActionSetVLANVID",
	ActionTypeSetVLANPCP:    "ActionSetVLANPCP",
	ActionTypeSetDLSrc:      "ActionSetDLSrc",
	ActionTypeSetDLDst:      "ActionSetDLDst",
	ActionTypeSetNWSrc:      "ActionSetNWSrc",
	ActionTypeSetNWDst:      "ActionSetNWDst",
	ActionTypeSetNWTos:      "ActionSetNWTos",
	ActionTypeSetNWECN:      "ActionSetNWECN",
	ActionTypeSetTPSrc:      "ActionSetTPSrc",
	ActionTypeSetTPDst:      "ActionSetTPDst",
	ActionTypeCopyTTLOut:    "ActionCopyTTLOut",
	ActionTypeCopyTTLIn:     "ActionCopyTTLIn",
	ActionTypeSetMPLSLabel:  "ActionSetMPLSLabel",
	ActionTypeSetMPLSTC:     "ActionSetMPLSTC",
	ActionTypeSetMPLSTTL:    "ActionSetMPLSTTL",
	ActionTypeDecMPLSTTL:    "ActionDecMPLSTTL",
	ActionTypePushVLAN:      "ActionPushVLAN",
	ActionTypePushMPLS:      "ActionPushMPLS",
	ActionTypePopVLAN:       "ActionPopVLAN",
	ActionTypePopMPLS:       "ActionPopMPLS",
	ActionTypeSetQueue:      "ActionSetQueue",
	ActionTypeGroup:         "ActionGroup",
	ActionTypeSetNWTTL:      "ActionSetNWTTL",
	ActionTypeDecNWTTL:      "ActionDecNWTTL",
	ActionTypeExperimenter:  "ActionExperimenter",
}

var actionMap = map[ActionType]encoding.ReaderMaker{
	ActionTypeOutput:       encoding.ReaderMakerOf(ActionOutput{}),
	ActionTypeSetVLANVID:   encoding.ReaderMakerOf(ActionSetVLANVID{}),
	ActionTypeSetVLANPCP:   encoding.ReaderMakerOf(ActionSetVLANPCP{}),
	ActionTypeSetDLSrc:     encoding.ReaderMakerOf(ActionSetDLSrc{}),
	ActionTypeSetDLDst:     encoding.ReaderMakerOf(ActionSetDLDst{}),
	ActionTypeSetNWSrc:     encoding.ReaderMakerOf(ActionSetNWSrc{}),
	ActionTypeSetNWDst:     encoding.ReaderMakerOf(ActionSetNWDst{}),
	ActionTypeSetNWTos:     encoding.ReaderMakerOf(ActionSetNWTos{}),
	ActionTypeSetNWECN:     encoding.ReaderMakerOf(ActionSetNWECN{}),
	ActionTypeSetTPSrc:     encoding.ReaderMakerOf(ActionSetTPSrc{}),
	ActionTypeSetTPDst:     encoding.ReaderMakerOf(ActionSetTPDst{}),
	ActionTypeCopyTTLOut:   encoding.ReaderMakerOf(ActionCopyTTLOut{}),
	ActionTypeCopyTTLIn:    encoding.ReaderMakerOf(ActionCopyTTLIn{}),
	ActionTypeSetMPLSLabel: encoding.ReaderMakerOf(ActionSetMPLSLabel{}),
	ActionTypeSetMPLSTC:    encoding.ReaderMakerOf(ActionSetMPLSTC{}),
	ActionTypeSetMPLSTTL:   encoding.ReaderMakerOf(ActionSetMPLSTTL{}),
	ActionTypeDecMPLSTTL:   encoding.ReaderMakerOf(ActionDecMPLSTTL{}),
	ActionTypePushVLAN:     encoding.ReaderMakerOf(ActionPushVLAN{}),
	ActionTypePushMPLS:     encoding.ReaderMakerOf(ActionPushMPLS{}),
	ActionTypePopVLAN:      encoding.ReaderMakerOf(ActionPopVLAN{}),
	ActionTypePopMPLS:      encoding.ReaderMakerOf(ActionPopMPLS{}),
	ActionTypeSetQueue:     encoding.ReaderMakerOf(ActionSetQueue{}),
	ActionTypeGroup:        encoding.ReaderMakerOf(ActionGroup{}),
	ActionTypeSetNWTTL:     encoding.ReaderMakerOf(ActionSetNetworkTTL{}),
	ActionTypeDecNWTTL:     encoding.ReaderMakerOf(ActionDecNetworkTTL{}),
	ActionTypeExperimenter: encoding.ReaderMakerOf(ActionExperimenter{}),
}

const (
	// ContentLenMax defines the maximum length of the bytes, that should
	// be submitted to the controller on output action type.
	ContentLenMax uint16 = 0xffe5

	// ContentLenNoBuffer indicates that no buffering should be applied and
	// the whole packet is to be sent to the controller on output action type.
	ContentLenNoBuffer uint16 = 0xffff
)

// action defines a header of each action, it will be used for
// marshalling and unmarshalling actions.
type action struct {
	Type ActionType

	// Length of action, including this header.
	Len uint16
}

func (a *action) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &a.Type, &a.Len)
}

const (
	// actionLen is a minimum length of the action.
	actionLen uint16 = 8

	// actionHeaderLen is a length of the action header.
	actionHeaderLen uint16 = 4
)

// Action is an interface representing an OpenFlow action.
type Action interface {
	encoding.ReadWriter

	// Type returns the type of the single action.
	Type() ActionType
}

// validator is implemented by actions that carry fields the switch must
// bound-check before acting on them. Actions with no fields to validate
// (ActionCopyTTLOut, ActionPopVLAN, ...) simply don't implement it.
type validator interface {
	Validate() error
}

// Actions group the set of actions.
type Actions []Action

// Validate runs semantic validation on every action in the list that
// implements it, stopping at the first failure. It reports the same
// *Error the OpenFlow wire protocol expects in an error reply, so
// callers can pass the result straight to a response writer.
func (a Actions) Validate() error {
	for _, action := range a {
		if v, ok := action.(validator); ok {
			if err := v.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Actions) bytes() ([]byte, error) {
	var buf bytes.Buffer

	for _, action := range *a {
		_, err := action.WriteTo(&buf)
		if err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// WriteTo writes the list of action to the given writer instance.
func (a *Actions) WriteTo(w io.Writer) (int64, error) {
	buf, err := a.bytes()
	if err != nil {
		return int64(len(buf)), err
	}

	return encoding.WriteTo(w, buf)
}

// ReadFrom decodes the list of actions from the wire format into
// the list of types that implement Action interface.
func (a *Actions) ReadFrom(r io.Reader) (int64, error) {
	var actionType ActionType
	*a = nil

	rm := func() (io.ReaderFrom, error) {
		if rm, ok := actionMap[actionType]; ok {
			rd, err := rm.MakeReader()
			*a = append(*a, rd.(Action))
			return rd, err
		}

		format := "ofp: unknown action type: '%x'"
		return nil, fmt.Errorf(format, actionType)
	}

	return encoding.ScanFrom(r, &actionType,
		encoding.ReaderMakerFunc(rm))
}

// ActionOutput is an action used to output the packets to the switch port.
//
// When the port is the PortController, MaxLen indicates the max number of
// bytes to send. A MaxLen of zero means no bytes of the packet should be
// sent.
//
// A MaxLen of ContentLenNoBuffer means that the packet is not buffered and
// the complete packet is to be sent to the controller.
type ActionOutput struct {
	// Output port.
	Port PortNo

	// Max length to send to controller.
	MaxLen uint16
}

// Type retuns the type of the action.
func (a *ActionOutput) Type() ActionType {
	return ActionTypeOutput
}

// WriteTo implements the io.WriterTo interface. It serializes
// the action with a necessary padding.
func (a *ActionOutput) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), 16}, *a, pad6{})
}

// ReadFrom implements the io.ReaderFrom interface. It deserialized
// the output action from a wire format.
func (a *ActionOutput) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &action{}, &a.Port, &a.MaxLen, &defaultPad6)
}

// Validate reports a BadActionOutPort error when the output port is
// neither one of the reserved logical ports nor a physical port number
// within the switch's usable range.
func (a *ActionOutput) Validate() error {
	switch a.Port {
	case PortIn, PortTable, PortNormal, PortFlood, PortAll, PortController, PortLocal:
		return nil
	}
	if a.Port > PortMax {
		return &Error{Type: ErrTypeBadAction, Code: ErrCodeBadActionOutPort}
	}
	return nil
}

// ActionSetVLANVID sets the VLAN id of the processing packet's
// outermost tag.
type ActionSetVLANVID struct {
	VLANVID uint16
}

func (a *ActionSetVLANVID) Type() ActionType { return ActionTypeSetVLANVID }

func (a *ActionSetVLANVID) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen}, a.VLANVID, pad2{})
}

func (a *ActionSetVLANVID) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad4, &a.VLANVID, &defaultPad2)
}

// Validate reports a BadActionArgument error when the VLAN id does not
// fit in the 12-bit 802.1Q VID field.
func (a *ActionSetVLANVID) Validate() error {
	if a.VLANVID > 0x0fff {
		return &Error{Type: ErrTypeBadAction, Code: ErrCodeBadActionArgument}
	}
	return nil
}

// ActionSetVLANPCP sets the priority bits of the processing packet's
// outermost VLAN tag.
type ActionSetVLANPCP struct {
	VLANPCP uint8
}

func (a *ActionSetVLANPCP) Type() ActionType { return ActionTypeSetVLANPCP }

func (a *ActionSetVLANPCP) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen}, a.VLANPCP, pad3{})
}

func (a *ActionSetVLANPCP) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad4, &a.VLANPCP, &defaultPad3)
}

// ActionSetDLSrc sets the ethernet source address.
type ActionSetDLSrc struct {
	DLSrc [6]byte
}

func (a *ActionSetDLSrc) Type() ActionType { return ActionTypeSetDLSrc }

func (a *ActionSetDLSrc) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), 16}, a.DLSrc, pad6{})
}

func (a *ActionSetDLSrc) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad4, &a.DLSrc, &defaultPad6)
}

// ActionSetDLDst sets the ethernet destination address.
type ActionSetDLDst struct {
	DLDst [6]byte
}

func (a *ActionSetDLDst) Type() ActionType { return ActionTypeSetDLDst }

func (a *ActionSetDLDst) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), 16}, a.DLDst, pad6{})
}

func (a *ActionSetDLDst) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad4, &a.DLDst, &defaultPad6)
}

// ActionSetNWSrc sets the IPv4 source address.
type ActionSetNWSrc struct {
	NWSrc uint32
}

func (a *ActionSetNWSrc) Type() ActionType { return ActionTypeSetNWSrc }

func (a *ActionSetNWSrc) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen}, a.NWSrc)
}

func (a *ActionSetNWSrc) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad4, &a.NWSrc)
}

// ActionSetNWDst sets the IPv4 destination address.
type ActionSetNWDst struct {
	NWDst uint32
}

func (a *ActionSetNWDst) Type() ActionType { return ActionTypeSetNWDst }

func (a *ActionSetNWDst) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen}, a.NWDst)
}

func (a *ActionSetNWDst) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad4, &a.NWDst)
}

// ActionSetNWTos sets the 6 DSCP bits of the IP ToS field.
type ActionSetNWTos struct {
	NWTos uint8
}

func (a *ActionSetNWTos) Type() ActionType { return ActionTypeSetNWTos }

func (a *ActionSetNWTos) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen}, a.NWTos, pad3{})
}

func (a *ActionSetNWTos) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad4, &a.NWTos, &defaultPad3)
}

// Validate reports a BadActionArgument error when the ToS value uses
// bits outside the 6-bit DSCP field.
func (a *ActionSetNWTos) Validate() error {
	if a.NWTos > 0x3f {
		return &Error{Type: ErrTypeBadAction, Code: ErrCodeBadActionArgument}
	}
	return nil
}

// ActionSetNWECN sets the 2 ECN bits of the IP ToS field.
type ActionSetNWECN struct {
	NWECN uint8
}

func (a *ActionSetNWECN) Type() ActionType { return ActionTypeSetNWECN }

func (a *ActionSetNWECN) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen}, a.NWECN, pad3{})
}

func (a *ActionSetNWECN) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad4, &a.NWECN, &defaultPad3)
}

// ActionSetTPSrc sets the TCP/UDP/SCTP source port.
type ActionSetTPSrc struct {
	TPSrc uint16
}

func (a *ActionSetTPSrc) Type() ActionType { return ActionTypeSetTPSrc }

func (a *ActionSetTPSrc) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen}, a.TPSrc, pad2{})
}

func (a *ActionSetTPSrc) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad4, &a.TPSrc, &defaultPad2)
}

// ActionSetTPDst sets the TCP/UDP/SCTP destination port.
type ActionSetTPDst struct {
	TPDst uint16
}

func (a *ActionSetTPDst) Type() ActionType { return ActionTypeSetTPDst }

func (a *ActionSetTPDst) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen}, a.TPDst, pad2{})
}

func (a *ActionSetTPDst) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad4, &a.TPDst, &defaultPad2)
}

// ActionCopyTTLOut is an action used to copy TTL from next-to-outermost
// to outermost header.
type ActionCopyTTLOut struct{}

// Type returns type of the action.
func (a *ActionCopyTTLOut) Type() ActionType {
	return ActionTypeCopyTTLOut
}

// WriteTo implements io.WriterTo interface. It serializes
// the "copy TTL out" action with a necessary padding.
func (a *ActionCopyTTLOut) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen}, pad4{})
}

// ReadFrom implements io.ReaderFrom interface. It deserializes
// the "copy TTL out" action from a wire format.
func (a *ActionCopyTTLOut) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad8)
}

// ActionCopyTTLIn is an action used to copy TTL from outermost to
// next-to-outermost header.
type ActionCopyTTLIn struct{}

// Type returns type of the action.
func (a *ActionCopyTTLIn) Type() ActionType {
	return ActionTypeCopyTTLIn
}

// WriteTo implements io.WriterTo interface. It serializes
// the "copy TTL in" action with a necessary padding.
func (a *ActionCopyTTLIn) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen}, pad4{})
}

// ReadFrom implements io.ReaderFrom interface. It deserializes
// the "copy TTL in" action from a wire format.
func (a *ActionCopyTTLIn) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad8)
}

// ActionSetMPLSLabel sets the MPLS label of the topmost MPLS shim
// header.
type ActionSetMPLSLabel struct {
	MPLSLabel uint32
}

func (a *ActionSetMPLSLabel) Type() ActionType { return ActionTypeSetMPLSLabel }

func (a *ActionSetMPLSLabel) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen}, a.MPLSLabel)
}

func (a *ActionSetMPLSLabel) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad4, &a.MPLSLabel)
}

// Validate reports a BadActionArgument error when the label does not
// fit in the 20-bit MPLS label field.
func (a *ActionSetMPLSLabel) Validate() error {
	if a.MPLSLabel > 0xfffff {
		return &Error{Type: ErrTypeBadAction, Code: ErrCodeBadActionArgument}
	}
	return nil
}

// ActionSetMPLSTC sets the traffic class of the topmost MPLS shim
// header.
type ActionSetMPLSTC struct {
	MPLSTC uint8
}

func (a *ActionSetMPLSTC) Type() ActionType { return ActionTypeSetMPLSTC }

func (a *ActionSetMPLSTC) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen}, a.MPLSTC, pad3{})
}

func (a *ActionSetMPLSTC) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad4, &a.MPLSTC, &defaultPad3)
}

// ActionSetMPLSTTL is an action used to replace the MPLS TTL
// value of the processing packet.
type ActionSetMPLSTTL struct {
	// The TTL field is the MPLS time-to-live value to set.
	TTL uint8
}

// Type returns type of the action.
func (a *ActionSetMPLSTTL) Type() ActionType {
	return ActionTypeSetMPLSTTL
}

// WriteTo implement the io.WriterTo interface. It serializes
// the "set MPLS TTL" action with a necessary padding.
func (a *ActionSetMPLSTTL) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen}, a.TTL, pad3{})
}

// ReadFrom implements io.ReaderFrom interface. It deserializes
// the "set MPLS TTL" action from a wire format.
func (a *ActionSetMPLSTTL) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &action{}, &a.TTL, &defaultPad3)
}

// ActionDecMPLSTTL is an actions used to decrement time to live value
// of the MPLS header of the processing packet.
type ActionDecMPLSTTL struct{}

// Type returns type of the action.
func (a *ActionDecMPLSTTL) Type() ActionType {
	return ActionTypeDecMPLSTTL
}

// WriteTo implement the io.WriterTo interface. It serializes
// the "decrement MPLS TTL" action with a necessary padding.
func (a *ActionDecMPLSTTL) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen}, pad4{})
}

// ReadFrom implements io.ReaderFrom interface. It deserializes
// the "decrement MPLS TTL" action from a wire format.
func (a *ActionDecMPLSTTL) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad8)
}

// ActionPushVLAN is an action used to push the VLAN tag onto the
// processing packet.
type ActionPushVLAN struct {
	// The EtherType indicates the Ethertype of the new tag.
	//
	// It is used when pushing a new VLAN tag, new MPLS header
	// or PBB service header.
	EtherType uint16
}

// Type returns type of the action.
func (a *ActionPushVLAN) Type() ActionType {
	return ActionTypePushVLAN
}

// WriteTo implement the io.WriterTo interface. It serializes
// the "push VLAN" action with a necessary padding.
func (a *ActionPushVLAN) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen},
		a.EtherType, pad2{})
}

// ReadFrom implements io.ReaderFrom interface. It deserializes
// the "push VLAN" action from a wire format.
func (a *ActionPushVLAN) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad4, &a.EtherType, &defaultPad2)
}

// ethTypeVLAN and ethTypeVLANQ are the only ethertypes PUSH_VLAN may
// tag the new header with: 802.1Q and 802.1ad (QinQ).
const (
	ethTypeVLAN  uint16 = 0x8100
	ethTypeVLANQ uint16 = 0x88a8
)

// Validate reports a BadActionTag error when the ethertype is not one
// of the VLAN tag protocol identifiers.
func (a *ActionPushVLAN) Validate() error {
	switch a.EtherType {
	case ethTypeVLAN, ethTypeVLANQ:
		return nil
	}
	return &Error{Type: ErrTypeBadAction, Code: ErrCodeBadActionTag}
}

// ActionPopVLAN is an action used to pop the VLAN tag from the
// processing packet.
type ActionPopVLAN struct{}

// Type returns type of the action.
func (a *ActionPopVLAN) Type() ActionType {
	return ActionTypePopVLAN
}

// WriteTo implement the io.WriterTo interface. It serializes
// the "pop VLAN" action with a necessary padding.
func (a *ActionPopVLAN) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen}, pad4{})
}

// ReadFrom implements io.ReaderFrom interface. It deserializes
// the "pop VLAN" action from a wire format.
func (a *ActionPopVLAN) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad8)
}

// ActionPushMPLS is an action used to push the MPLS tag onto the
// processing packet.
type ActionPushMPLS struct {
	EtherType uint16
}

// Type returns type of the action.
func (a *ActionPushMPLS) Type() ActionType {
	return ActionTypePushMPLS
}

// WriteTo implement the io.WriterTo interface. It serializes
// the "push MPLS" action with a necessary padding.
func (a *ActionPushMPLS) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen},
		a.EtherType, pad2{})
}

// ReadFrom implements io.ReaderFrom interface. It deserializes
// the "push MPLS" action from a wire format.
func (a *ActionPushMPLS) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad4, &a.EtherType, &defaultPad2)
}

// ethTypeMPLSUC and ethTypeMPLSMC are the only ethertypes PUSH_MPLS may
// tag the new shim header with: MPLS unicast and multicast.
const (
	ethTypeMPLSUC uint16 = 0x8847
	ethTypeMPLSMC uint16 = 0x8848
)

// Validate reports a BadActionTag error when the ethertype is not one
// of the MPLS protocol identifiers.
func (a *ActionPushMPLS) Validate() error {
	switch a.EtherType {
	case ethTypeMPLSUC, ethTypeMPLSMC:
		return nil
	}
	return &Error{Type: ErrTypeBadAction, Code: ErrCodeBadActionTag}
}

// ActionPopMPLS is an action used to extract the outer-most MPLS tag
// or shim header from the processing packet.
type ActionPopMPLS struct {
	// The EtherType indicates the Ethertype of the payload.
	EtherType uint16
}

// Type returns type of the action.
func (a *ActionPopMPLS) Type() ActionType {
	return ActionTypePopMPLS
}

// WriteTo implement the io.WriterTo interface. It serializes
// the "pop MPLS" action with a necessary padding.
func (a *ActionPopMPLS) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen},
		a.EtherType, pad2{})
}

// ReadFrom implements io.ReaderFrom interface. It deserializes
// the "pop MPLS" action from a wire format.
func (a *ActionPopMPLS) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad4, &a.EtherType, &defaultPad2)
}

// ActionSetQueue sets the queue ID that will be used to map a flow entry
// to an already-configured queue on a port, regardless of the ToS and VLAN
// PCP bits.
//
// The packet should not change as a result of a Set-Queue action. If the
// switch needs to set the ToS/PCP bits for internal handling, the original
// values should be restored before sending the packet out.
type ActionSetQueue struct {
	// The QueueID indicates the queue used to forward the packet.
	QueueID Queue
}

// Type results type of the action.
func (a *ActionSetQueue) Type() ActionType {
	return ActionTypeSetQueue
}

// WriteTo implement the io.WriterTo interface. It serializes
// the "set queue" action with a necessary padding.
func (a *ActionSetQueue) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen}, a.QueueID)
}

// ReadFrom implements io.ReaderFrom interface. It deserializes
// the "set queue" action from a wire format.
func (a *ActionSetQueue) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad4, &a.QueueID)
}

// ActionGroup is an action that specifies the group used to process
// the packet.
type ActionGroup struct {
	// The Group indicates the group used to process this packet.
	// The set of buckets to apply depends on the group type.
	Group Group
}

// Type returns type of the action.
func (a *ActionGroup) Type() ActionType {
	return ActionTypeGroup
}

// WriteTo implement the io.WriterTo interface. It serializes
// the "group" action with a necessary padding.
func (a *ActionGroup) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen}, a.Group)
}

// ReadFrom implements io.ReaderFrom interface. It deserializes
// the "group" action from a wire format.
func (a *ActionGroup) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad4, &a.Group)
}

// Validate reports a BadActionOutGroup error when the group id is
// neither GroupAll nor within the usable group id range.
func (a *ActionGroup) Validate() error {
	if a.Group == GroupAll || a.Group <= GroupMax {
		return nil
	}
	return &Error{Type: ErrTypeBadAction, Code: ErrCodeBadActionOutGroup}
}

// ActionSetNetworkTTL is an action used to replace the network
// TTL of the processing packet.
type ActionSetNetworkTTL struct {
	// The TTL field is the TTL address to set in the IP header.
	TTL uint8
}

// Type returns type of the action.
func (a *ActionSetNetworkTTL) Type() ActionType {
	return ActionTypeSetNWTTL
}

// WriteTo implement the io.WriterTo interface. It serializes
// the "set network TTL" action with a necessary padding.
func (a *ActionSetNetworkTTL) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen}, a.TTL, pad3{})
}

// ReadFrom implements io.ReaderFrom interface. It deserializes
// the "set network TTL" action from a wire format.
func (a *ActionSetNetworkTTL) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad4, &a.TTL, &defaultPad3)
}

// ActionDecNetworkTTL is an actions used to decrement time to live value
// of the network-layer header of the processing packet.
type ActionDecNetworkTTL struct{}

// Type returns type of the action.
func (a *ActionDecNetworkTTL) Type() ActionType {
	return ActionTypeDecNWTTL
}

// WriteTo implement the io.WriterTo interface. It serializes
// the "decrement network TTL" action with a necessary padding.
func (a *ActionDecNetworkTTL) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen}, pad4{})
}

// ReadFrom implements io.ReaderFrom interface. It deserializes
// the "decrement network TTL" action from a wire format.
func (a *ActionDecNetworkTTL) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad8)
}

// ActionExperimenter is an experimenter action.
type ActionExperimenter struct {
	// The Experimenter identifies the experimental feature.
	Experimenter uint32
}

// Type returns type of the action.
func (a *ActionExperimenter) Type() ActionType {
	return ActionTypeExperimenter
}

// WriteTo implements the io.WriterTo interface. It serializes
// the "experimenter" action with a necessary padding.
func (a *ActionExperimenter) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionLen}, a.Experimenter)
}

// ReadFrom implements io.ReaderFrom interface. It deserializes
// the "experimenter" action from a wire format.
func (a *ActionExperimenter) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &defaultPad4, &a.Experimenter)
}
