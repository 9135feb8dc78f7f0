package ofputil

import (
	"testing"

	"github.com/netrack/ofswitch/ofp"
	"github.com/netrack/ofswitch/ofptest"
	of "github.com/netrack/ofswitch"
)

func TestHelloHandler(t *testing.T) {
	ver := uint8(4)

	rw := ofptest.NewRecorder()
	h := HelloHandler(ver, nil)

	req, err := of.NewRequest(of.TypeHello, nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Version = 3
	req.Header.XID = 42

	h.Serve(rw, req)

	resp := rw.First()
	if resp.Header.Type != of.TypeHello {
		text := "hello message expected: %d"
		t.Errorf(text, resp.Header.Type)
	}

	if resp.Header.Version != ver {
		text := "unexpected version returned: %d"
		t.Errorf(text, resp.Header.Version)
	}
}

func TestEchoHandler(t *testing.T) {
	rw := ofptest.NewRecorder()
	h := EchoHandler(nil)

	echo := &ofp.EchoRequest{Data: []byte{1, 2, 3, 4}}
	req, err := of.NewRequest(of.TypeEchoReply, echo)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.XID = 43

	h.Serve(rw, req)

	resp := rw.First()
	if resp.Header.Type != of.TypeEchoReply {
		text := "echo reply message expected: %d"
		t.Errorf(text, resp.Header.Type)
	}
}
