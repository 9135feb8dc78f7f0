package of

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/netrack/ofswitch/datapath"
	"github.com/netrack/ofswitch/ofp"
)

// ErrBufferNotFound is returned when a PACKET_OUT references a
// buffer id the datapath is no longer holding.
var ErrBufferNotFound = errors.New("openflow: buffer not found")

// DatapathHandler adapts a datapath.Datapath to the Handler
// interface, decoding each OpenFlow control message and dispatching
// it to the datapath, and replying with an TypeError message when
// the datapath rejects the request.
//
// A single DatapathHandler is shared by every connection the Server
// accepts; the controller connection currently allowed to receive
// asynchronous PACKET_IN/FLOW_REMOVED pushes is tracked separately
// via Track/Untrack, called from the Server's ConnState hook.
type DatapathHandler struct {
	Datapath *datapath.Datapath
	Log      logrus.FieldLogger

	mu   sync.RWMutex
	conn Conn
}

// Track records c as the connection asynchronous messages are
// pushed to. Intended to be used as part of a Server.ConnState
// callback on StateHelloReceived.
func (h *DatapathHandler) Track(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conn = c

	h.Datapath.SendPacketIn = func(p *ofp.PacketIn) error {
		return h.push(TypePacketIn, p)
	}
	h.Datapath.SendFlowRemoved = func(f *ofp.FlowRemoved) error {
		return h.push(TypeFlowRemoved, f)
	}
}

// Untrack clears the tracked connection when c disconnects.
func (h *DatapathHandler) Untrack(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn == c {
		h.conn = nil
	}
}

func (h *DatapathHandler) push(t Type, body io.WriterTo) error {
	h.mu.RLock()
	c := h.conn
	h.mu.RUnlock()

	if c == nil {
		return nil
	}

	req, err := NewRequest(t, body)
	if err != nil {
		return err
	}
	return Send(c, req)
}

// Serve implements Handler, dispatching req to the datapath method
// matching its header type.
func (h *DatapathHandler) Serve(rw ResponseWriter, req *Request) {
	switch req.Header.Type {
	case TypeHello:
		return

	case TypeEchoRequest:
		var er ofp.EchoRequest
		if _, err := er.ReadFrom(req.Body); err != nil {
			return
		}
		rw.Header().Set(TypeHeaderKey, TypeEchoReply)
		reply := ofp.EchoReply{Data: er.Data}
		reply.WriteTo(rw)
		rw.WriteHeader()

	case TypeFlowMod:
		var mod ofp.FlowMod
		if _, err := mod.ReadFrom(req.Body); err != nil {
			return
		}
		if _, err := h.Datapath.ApplyFlowMod(&mod); err != nil {
			h.replyError(rw, err)
		}

	case TypeGroupMod:
		var mod ofp.GroupMod
		if _, err := mod.ReadFrom(req.Body); err != nil {
			return
		}
		h.applyGroupMod(rw, &mod)

	case TypePacketOut:
		var out ofp.PacketOut
		if _, err := out.ReadFrom(req.Body); err != nil {
			return
		}
		// Whatever ofp.PacketOut.ReadFrom left unconsumed in the
		// request body is the raw packet data trailing the action
		// list, present whenever Buffer is NoBuffer.
		raw, err := bufferedData(h.Datapath, &out, req.Body)
		if err != nil {
			return
		}
		if err := h.Datapath.HandlePacketOut(&out, raw); err != nil {
			h.replyError(rw, err)
		}

	default:
		h.Log.WithField("type", req.Header.Type).Debug("unhandled openflow message")
	}
}

// LogPanic reports a recovered internal invariant violation, letting
// Server tear the offending connection down without losing the
// reason. Satisfies the optional interface Server.serveOne looks for.
func (h *DatapathHandler) LogPanic(c Conn, r interface{}) {
	if h.Log == nil {
		return
	}
	h.Log.WithField("panic", r).Error("openflow: connection closed after internal invariant violation")
}

func (h *DatapathHandler) applyGroupMod(rw ResponseWriter, mod *ofp.GroupMod) {
	var err error
	switch mod.Command {
	case ofp.GroupAdd:
		err = h.Datapath.Groups.Add(mod)
	case ofp.GroupModify:
		err = h.Datapath.Groups.Modify(mod)
	case ofp.GroupDelete:
		_, err = h.Datapath.Groups.Delete(mod.Group, h.Datapath.Tables)
	}
	if err != nil {
		h.replyError(rw, err)
	}
}

func bufferedData(dp *datapath.Datapath, out *ofp.PacketOut, body io.Reader) ([]byte, error) {
	if out.Buffer == ofp.NoBuffer {
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(body); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	pkt, ok := dp.Buffers.Retrieve(out.Buffer)
	if !ok {
		return nil, ErrBufferNotFound
	}
	dp.Buffers.Discard(out.Buffer)
	return pkt.Frame.Bytes(), nil
}

func (h *DatapathHandler) replyError(rw ResponseWriter, err error) {
	ofErr, ok := err.(*ofp.Error)
	if !ok {
		return
	}
	rw.Header().Set(TypeHeaderKey, TypeError)
	ofErr.WriteTo(rw)
	rw.WriteHeader()
}
