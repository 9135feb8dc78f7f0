// +build integration

package of_test

import (
	"testing"
	"time"

	"github.com/netrack/ofswitch"
	"github.com/netrack/ofswitch/datapath"
	"github.com/netrack/ofswitch/ofp"
	"github.com/netrack/ofswitch/ofptest"
)

func TestDatapathHandlerFlowMod(t *testing.T) {
	ports := datapath.NewMapPorts()
	dp := datapath.NewDatapath(1, ports, datapath.NewMapBuffers(), nil, nil)

	handler := &of.DatapathHandler{Datapath: dp}
	s := ofptest.NewServer(handler)
	defer s.Close()

	conn, err := of.Dial("tcp", s.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	mod := &ofp.FlowMod{
		Command:  ofp.FlowAdd,
		Priority: 5,
		Match:    ofp.Match{Wildcards: ofp.WildcardAll},
		OutPort:  ofp.PortAny,
		OutGroup: ofp.GroupAny,
	}

	req, err := of.NewRequest(of.TypeFlowMod, mod)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.Send(req); err != nil {
		t.Fatal(err)
	}
	if err := conn.Flush(); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if dp.Tables[0].Lookup(&ofp.Match{Wildcards: ofp.WildcardAll}) != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("flow entry was not installed within the deadline")
}
