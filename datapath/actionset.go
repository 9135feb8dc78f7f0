package datapath

import "github.com/netrack/ofswitch/ofp"

// ActionSet is the canonical, order-preserving accumulator of
// WRITE_ACTIONS a packet collects while traversing the pipeline. It
// is a fixed-size record of at most one action per kind, never a map
// or a slice: the execution order in Execute is a property of this
// type, not of insertion order, so it cannot be perturbed by the
// order flow entries happened to write actions in.
type ActionSet struct {
	copyTTLIn  *ofp.ActionCopyTTLIn
	popVLAN    *ofp.ActionPopVLAN
	popMPLS    *ofp.ActionPopMPLS
	pushMPLS   *ofp.ActionPushMPLS
	pushVLAN   *ofp.ActionPushVLAN
	copyTTLOut *ofp.ActionCopyTTLOut
	decMPLSTTL *ofp.ActionDecMPLSTTL
	decNWTTL   *ofp.ActionDecNetworkTTL

	setVLANVID   *ofp.ActionSetVLANVID
	setVLANPCP   *ofp.ActionSetVLANPCP
	setDLSrc     *ofp.ActionSetDLSrc
	setDLDst     *ofp.ActionSetDLDst
	setNWSrc     *ofp.ActionSetNWSrc
	setNWDst     *ofp.ActionSetNWDst
	setNWTos     *ofp.ActionSetNWTos
	setNWECN     *ofp.ActionSetNWECN
	setTPSrc     *ofp.ActionSetTPSrc
	setTPDst     *ofp.ActionSetTPDst
	setMPLSLabel *ofp.ActionSetMPLSLabel
	setMPLSTC    *ofp.ActionSetMPLSTC
	setMPLSTTL   *ofp.ActionSetMPLSTTL
	setNWTTL     *ofp.ActionSetNetworkTTL

	setQueue *ofp.ActionSetQueue
	group    *ofp.ActionGroup
	output   *ofp.ActionOutput
}

// Write inserts a into the set, keyed by its action kind, replacing
// any previous action of that same kind.
func (s *ActionSet) Write(a ofp.Action) {
	switch v := a.(type) {
	case *ofp.ActionCopyTTLIn:
		s.copyTTLIn = v
	case *ofp.ActionPopVLAN:
		s.popVLAN = v
	case *ofp.ActionPopMPLS:
		s.popMPLS = v
	case *ofp.ActionPushMPLS:
		s.pushMPLS = v
	case *ofp.ActionPushVLAN:
		s.pushVLAN = v
	case *ofp.ActionCopyTTLOut:
		s.copyTTLOut = v
	case *ofp.ActionDecMPLSTTL:
		s.decMPLSTTL = v
	case *ofp.ActionDecNetworkTTL:
		s.decNWTTL = v
	case *ofp.ActionSetVLANVID:
		s.setVLANVID = v
	case *ofp.ActionSetVLANPCP:
		s.setVLANPCP = v
	case *ofp.ActionSetDLSrc:
		s.setDLSrc = v
	case *ofp.ActionSetDLDst:
		s.setDLDst = v
	case *ofp.ActionSetNWSrc:
		s.setNWSrc = v
	case *ofp.ActionSetNWDst:
		s.setNWDst = v
	case *ofp.ActionSetNWTos:
		s.setNWTos = v
	case *ofp.ActionSetNWECN:
		s.setNWECN = v
	case *ofp.ActionSetTPSrc:
		s.setTPSrc = v
	case *ofp.ActionSetTPDst:
		s.setTPDst = v
	case *ofp.ActionSetMPLSLabel:
		s.setMPLSLabel = v
	case *ofp.ActionSetMPLSTC:
		s.setMPLSTC = v
	case *ofp.ActionSetMPLSTTL:
		s.setMPLSTTL = v
	case *ofp.ActionSetNetworkTTL:
		s.setNWTTL = v
	case *ofp.ActionSetQueue:
		s.setQueue = v
	case *ofp.ActionGroup:
		s.group = v
	case *ofp.ActionOutput:
		s.output = v
	}
}

// WriteAll writes every action in actions into the set.
func (s *ActionSet) WriteAll(actions ofp.Actions) {
	for _, a := range actions {
		s.Write(a)
	}
}

// Clear empties the set.
func (s *ActionSet) Clear() {
	*s = ActionSet{}
}

// Execute drains the set in the fixed order required by the action
// set semantics, applying each populated slot to pkt via exec, and
// empties the set afterward.
func (s *ActionSet) Execute(exec *Executor, pkt *Packet) error {
	defer s.Clear()

	for _, a := range s.ordered() {
		if err := exec.Execute(pkt, a); err != nil {
			return err
		}
	}

	return nil
}

// ordered returns the populated slots in the fixed execution order:
// copy-ttl-in, pop, push-mpls, push-vlan, copy-ttl-out,
// dec-{mpls,nw}-ttl, set-* (any order among themselves), qos, group,
// output.
func (s *ActionSet) ordered() []ofp.Action {
	var out []ofp.Action

	if s.copyTTLIn != nil {
		out = append(out, s.copyTTLIn)
	}
	if s.popVLAN != nil {
		out = append(out, s.popVLAN)
	}
	if s.popMPLS != nil {
		out = append(out, s.popMPLS)
	}
	if s.pushMPLS != nil {
		out = append(out, s.pushMPLS)
	}
	if s.pushVLAN != nil {
		out = append(out, s.pushVLAN)
	}
	if s.copyTTLOut != nil {
		out = append(out, s.copyTTLOut)
	}
	if s.decMPLSTTL != nil {
		out = append(out, s.decMPLSTTL)
	}
	if s.decNWTTL != nil {
		out = append(out, s.decNWTTL)
	}

	if s.setVLANVID != nil {
		out = append(out, s.setVLANVID)
	}
	if s.setVLANPCP != nil {
		out = append(out, s.setVLANPCP)
	}
	if s.setDLSrc != nil {
		out = append(out, s.setDLSrc)
	}
	if s.setDLDst != nil {
		out = append(out, s.setDLDst)
	}
	if s.setNWSrc != nil {
		out = append(out, s.setNWSrc)
	}
	if s.setNWDst != nil {
		out = append(out, s.setNWDst)
	}
	if s.setNWTos != nil {
		out = append(out, s.setNWTos)
	}
	if s.setNWECN != nil {
		out = append(out, s.setNWECN)
	}
	if s.setTPSrc != nil {
		out = append(out, s.setTPSrc)
	}
	if s.setTPDst != nil {
		out = append(out, s.setTPDst)
	}
	if s.setMPLSLabel != nil {
		out = append(out, s.setMPLSLabel)
	}
	if s.setMPLSTC != nil {
		out = append(out, s.setMPLSTC)
	}
	if s.setMPLSTTL != nil {
		out = append(out, s.setMPLSTTL)
	}
	if s.setNWTTL != nil {
		out = append(out, s.setNWTTL)
	}

	if s.setQueue != nil {
		out = append(out, s.setQueue)
	}
	if s.group != nil {
		out = append(out, s.group)
	}
	if s.output != nil {
		out = append(out, s.output)
	}

	return out
}
