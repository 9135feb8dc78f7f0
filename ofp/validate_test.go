package ofp

import "testing"

func errCode(err error) (ErrType, ErrCode, bool) {
	oerr, ok := err.(*Error)
	if !ok {
		return 0, 0, false
	}
	return oerr.Type, oerr.Code, true
}

func TestActionOutputValidate(t *testing.T) {
	if err := (&ActionOutput{Port: PortController}).Validate(); err != nil {
		t.Fatalf("reserved port rejected: %s", err)
	}
	if err := (&ActionOutput{Port: PortNo(5)}).Validate(); err != nil {
		t.Fatalf("physical port rejected: %s", err)
	}

	err := (&ActionOutput{Port: PortNo(0xfffffff0)}).Validate()
	typ, code, ok := errCode(err)
	if !ok || typ != ErrTypeBadAction || code != ErrCodeBadActionOutPort {
		t.Fatalf("expected BadActionOutPort, got %v", err)
	}
}

func TestActionSetVLANVIDValidate(t *testing.T) {
	if err := (&ActionSetVLANVID{VLANVID: 0x0fff}).Validate(); err != nil {
		t.Fatalf("max valid VID rejected: %s", err)
	}

	err := (&ActionSetVLANVID{VLANVID: 0xffff}).Validate()
	typ, code, ok := errCode(err)
	if !ok || typ != ErrTypeBadAction || code != ErrCodeBadActionArgument {
		t.Fatalf("expected BadActionArgument, got %v", err)
	}
}

func TestActionSetNWTosValidate(t *testing.T) {
	if err := (&ActionSetNWTos{NWTos: 0x3f}).Validate(); err != nil {
		t.Fatalf("max valid ToS rejected: %s", err)
	}

	err := (&ActionSetNWTos{NWTos: 0xff}).Validate()
	typ, code, ok := errCode(err)
	if !ok || typ != ErrTypeBadAction || code != ErrCodeBadActionArgument {
		t.Fatalf("expected BadActionArgument, got %v", err)
	}
}

func TestActionSetMPLSLabelValidate(t *testing.T) {
	if err := (&ActionSetMPLSLabel{MPLSLabel: 0xfffff}).Validate(); err != nil {
		t.Fatalf("max valid label rejected: %s", err)
	}

	err := (&ActionSetMPLSLabel{MPLSLabel: 0x100000}).Validate()
	typ, code, ok := errCode(err)
	if !ok || typ != ErrTypeBadAction || code != ErrCodeBadActionArgument {
		t.Fatalf("expected BadActionArgument, got %v", err)
	}
}

func TestActionPushVLANValidate(t *testing.T) {
	if err := (&ActionPushVLAN{EtherType: 0x8100}).Validate(); err != nil {
		t.Fatalf("802.1Q rejected: %s", err)
	}
	if err := (&ActionPushVLAN{EtherType: 0x88a8}).Validate(); err != nil {
		t.Fatalf("802.1ad rejected: %s", err)
	}

	err := (&ActionPushVLAN{EtherType: 0x0800}).Validate()
	typ, code, ok := errCode(err)
	if !ok || typ != ErrTypeBadAction || code != ErrCodeBadActionTag {
		t.Fatalf("expected BadActionTag, got %v", err)
	}
}

func TestActionPushMPLSValidate(t *testing.T) {
	if err := (&ActionPushMPLS{EtherType: 0x8847}).Validate(); err != nil {
		t.Fatalf("MPLS unicast rejected: %s", err)
	}

	err := (&ActionPushMPLS{EtherType: 0x0800}).Validate()
	typ, code, ok := errCode(err)
	if !ok || typ != ErrTypeBadAction || code != ErrCodeBadActionTag {
		t.Fatalf("expected BadActionTag, got %v", err)
	}
}

func TestActionGroupValidate(t *testing.T) {
	if err := (&ActionGroup{Group: GroupMax}).Validate(); err != nil {
		t.Fatalf("max usable group rejected: %s", err)
	}
	if err := (&ActionGroup{Group: GroupAll}).Validate(); err != nil {
		t.Fatalf("GroupAll rejected: %s", err)
	}

	err := (&ActionGroup{Group: Group(0xfffffffe)}).Validate()
	typ, code, ok := errCode(err)
	if !ok || typ != ErrTypeBadAction || code != ErrCodeBadActionOutGroup {
		t.Fatalf("expected BadActionOutGroup, got %v", err)
	}
}

func TestActionsValidateStopsAtFirstFailure(t *testing.T) {
	actions := Actions{
		&ActionSetVLANVID{VLANVID: 1},
		&ActionSetNWTos{NWTos: 0xff},
	}

	err := actions.Validate()
	typ, code, ok := errCode(err)
	if !ok || typ != ErrTypeBadAction || code != ErrCodeBadActionArgument {
		t.Fatalf("expected BadActionArgument from the second action, got %v", err)
	}
}

func TestGroupModValidate(t *testing.T) {
	good := &GroupMod{Command: GroupAdd, Type: GroupTypeAll, Group: Group(1)}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid group mod rejected: %s", err)
	}

	badCommand := &GroupMod{Command: GroupCommand(0xff), Type: GroupTypeAll, Group: Group(1)}
	typ, code, ok := errCode(badCommand.Validate())
	if !ok || typ != ErrTypeGroupModFailed || code != ErrCodeGroupModBadCommand {
		t.Fatalf("expected GroupModBadCommand, got %v", badCommand.Validate())
	}

	badType := &GroupMod{Command: GroupAdd, Type: GroupType(0xff), Group: Group(1)}
	typ, code, ok = errCode(badType.Validate())
	if !ok || typ != ErrTypeGroupModFailed || code != ErrCodeGroupModBadType {
		t.Fatalf("expected GroupModBadType, got %v", badType.Validate())
	}

	badGroup := &GroupMod{Command: GroupAdd, Type: GroupTypeAll, Group: Group(0xfffffffe)}
	typ, code, ok = errCode(badGroup.Validate())
	if !ok || typ != ErrTypeGroupModFailed || code != ErrCodeGroupModFailedInvalidGroup {
		t.Fatalf("expected GroupModFailedInvalidGroup, got %v", badGroup.Validate())
	}

	badBucket := &GroupMod{
		Command: GroupAdd, Type: GroupTypeAll, Group: Group(1),
		Buckets: []Bucket{{Actions: Actions{&ActionSetNWTos{NWTos: 0xff}}}},
	}
	typ, code, ok = errCode(badBucket.Validate())
	if !ok || typ != ErrTypeBadAction || code != ErrCodeBadActionArgument {
		t.Fatalf("expected the bucket's action error to propagate, got %v", badBucket.Validate())
	}
}

func TestFlowModValidate(t *testing.T) {
	good := &FlowMod{Table: Table(0), Command: FlowAdd}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid flow mod rejected: %s", err)
	}

	badCommand := &FlowMod{Table: Table(0), Command: FlowModCommand(0xff)}
	typ, code, ok := errCode(badCommand.Validate())
	if !ok || typ != ErrTypeFlowModFailed || code != ErrCodeFlowModFailedBadCommand {
		t.Fatalf("expected FlowModFailedBadCommand, got %v", badCommand.Validate())
	}

	badFlags := &FlowMod{Table: Table(0), Command: FlowAdd, Flags: FlowModFlag(0x8000)}
	typ, code, ok = errCode(badFlags.Validate())
	if !ok || typ != ErrTypeFlowModFailed || code != ErrCodeFlowModFailedBadFlags {
		t.Fatalf("expected FlowModFailedBadFlags, got %v", badFlags.Validate())
	}

	badAction := &FlowMod{
		Table: Table(0), Command: FlowAdd,
		Instructions: Instructions{
			&InstructionApplyActions{Actions: Actions{&ActionSetNWTos{NWTos: 0xff}}},
		},
	}
	typ, code, ok = errCode(badAction.Validate())
	if !ok || typ != ErrTypeBadAction || code != ErrCodeBadActionArgument {
		t.Fatalf("expected the instruction's action error to propagate, got %v", badAction.Validate())
	}
}
