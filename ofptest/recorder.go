package ofptest

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"net"

	of "github.com/netrack/ofswitch"
)

// recHeader is a minimal, independent implementation of the of.Header
// interface used to back a ResponseRecorder without requiring a real
// network connection.
type recHeader struct {
	Version uint8
	Type    of.Type
	Length  uint16
	XID     uint32
}

func (h *recHeader) Set(k of.HeaderKey, v interface{}) error {
	switch k {
	case of.VersionHeaderKey:
		ver, ok := v.(uint8)
		if !ok {
			return errors.New("ofptest: Version must be uint8")
		}
		h.Version = ver
	case of.TypeHeaderKey:
		t, ok := v.(of.Type)
		if !ok {
			return errors.New("ofptest: Type must be of.Type")
		}
		h.Type = t
	case of.XIDHeaderKey:
		xid, ok := v.(uint32)
		if !ok {
			return errors.New("ofptest: XID must be uint32")
		}
		h.XID = xid
	default:
		return errors.New("ofptest: unsettable field")
	}

	return nil
}

func (h *recHeader) Get(k of.HeaderKey) interface{} {
	switch k {
	case of.VersionHeaderKey:
		return h.Version
	case of.TypeHeaderKey:
		return h.Type
	case of.XIDHeaderKey:
		return h.XID
	}

	return nil
}

func (h *recHeader) Len() int { return int(h.Length) }

func (h *recHeader) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, 8)
	buf[0] = h.Version
	buf[1] = byte(h.Type)
	binary.BigEndian.PutUint16(buf[2:4], h.Length)
	binary.BigEndian.PutUint32(buf[4:8], h.XID)

	n, err := w.Write(buf)
	return int64(n), err
}

func (h *recHeader) ReadFrom(r io.Reader) (int64, error) {
	buf := make([]byte, 8)
	n, err := io.ReadFull(r, buf)
	if err != nil {
		return int64(n), err
	}

	h.Version = buf[0]
	h.Type = of.Type(buf[1])
	h.Length = binary.BigEndian.Uint16(buf[2:4])
	h.XID = binary.BigEndian.Uint32(buf[4:8])
	return int64(n), nil
}

// Recorded is a single response captured by a ResponseRecorder.
type Recorded struct {
	Header recHeader
	Body   []byte
}

// ResponseRecorder is an implementation of of.ResponseWriter that
// records the responses written by a handler for later inspection,
// in the fashion of net/http/httptest.ResponseRecorder.
type ResponseRecorder struct {
	header  recHeader
	buf     bytes.Buffer
	History []Recorded
}

// NewRecorder returns an initialized ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{}
}

// Header implements of.ResponseWriter interface.
func (w *ResponseRecorder) Header() of.Header {
	return &w.header
}

// Write implements of.ResponseWriter interface. It appends the
// written bytes to the body of the response being constructed.
func (w *ResponseRecorder) Write(b []byte) (int, error) {
	return w.buf.Write(b)
}

// WriteHeader implements of.ResponseWriter interface. It snapshots
// the current header and body into the recorder's history.
func (w *ResponseRecorder) WriteHeader() error {
	body := make([]byte, w.buf.Len())
	copy(body, w.buf.Bytes())

	rec := Recorded{Header: w.header, Body: body}
	rec.Header.Length = 8 + uint16(len(body))

	w.History = append(w.History, rec)
	w.buf.Reset()
	return nil
}

// Close implements of.ResponseWriter interface.
func (w *ResponseRecorder) Close() error { return nil }

// Hijack implements the of.Hijacker interface. A ResponseRecorder
// is never backed by a real connection, so hijacking always fails.
func (w *ResponseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return nil, nil, errors.New("ofptest: recorder connection can't be hijacked")
}

// First returns the first response recorded by the recorder. It
// panics when no response has been recorded yet.
func (w *ResponseRecorder) First() Recorded {
	return w.History[0]
}
