package ofputil

import (
	"github.com/netrack/ofswitch"
	"github.com/netrack/ofswitch/ofp"
)

func TableFlush(table ofp.Table) *of.Request {
	r, _ := of.NewRequest(of.TypeFlowMod, &ofp.FlowMod{
		Table:    table,
		Command:  ofp.FlowDelete,
		Buffer:   ofp.NoBuffer,
		OutPort:  ofp.PortAny,
		OutGroup: ofp.GroupAny,
		Match:    NewMatchBuilder().Match(),
	})

	return r
}

func FlowFlush(table ofp.Table, match ofp.Match) *of.Request {
	r, _ := of.NewRequest(of.TypeFlowMod, &ofp.FlowMod{
		Table:    table,
		Command:  ofp.FlowDelete,
		Buffer:   ofp.NoBuffer,
		OutPort:  ofp.PortAny,
		OutGroup: ofp.GroupAny,
		Match:    match,
	})

	return r
}

func FlowDrop(table ofp.Table) *of.Request {
	r, _ := of.NewRequest(of.TypeFlowMod, &ofp.FlowMod{
		Table:   table,
		Command: ofp.FlowAdd,
		Buffer:  ofp.NoBuffer,
		Match:   NewMatchBuilder().Match(),
	})

	return r
}
