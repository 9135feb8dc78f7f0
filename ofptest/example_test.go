package ofptest

import (
	"bytes"
	"fmt"
	"log"

	of "github.com/netrack/ofswitch"
	"github.com/netrack/ofswitch/ofp"
)

func ExampleResponseRecorder() {
	handler := func(w of.ResponseWriter, r *of.Request) {
		w.Header().Set(of.TypeHeaderKey, r.Header.Type)
		w.WriteHeader()
	}

	req, _ := of.NewRequest(of.TypeHello, nil)
	w := NewRecorder()

	handler(w, req)
	fmt.Printf("type: %d", w.First().Header.Type)
	// Output: type: 0
}

func ExampleServer() {
	ts := NewServer(of.HandlerFunc(func(w of.ResponseWriter, r *of.Request) {
		res := &ofp.EchoReply{Data: []byte("pong")}

		var buf bytes.Buffer
		res.WriteTo(&buf)

		w.Header().Set(of.TypeHeaderKey, of.TypeEchoReply)
		w.Write(buf.Bytes())
		w.WriteHeader()
	}))

	defer ts.Close()

	echoReq := &ofp.EchoRequest{Data: []byte("ping")}
	req, _ := of.NewRequest(of.TypeEchoRequest, echoReq)

	conn, err := of.Dial("tcp", ts.Listener.Addr().String())
	if err != nil {
		log.Fatal(err)
	}

	conn.Send(req)
	conn.Flush()
	resp, _ := conn.Receive()

	var echoResp ofp.EchoReply
	echoResp.ReadFrom(resp.Body)

	fmt.Printf("%s", echoResp.Data)
	// Output: pong
}
