package protocol

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Writer builds a frame payload out of the protocol's primitive encodings:
// little-endian fixed-width integers, one-byte booleans, and strings prefixed
// with a uvarint byte length.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// PutByte appends a single byte.
func (w *Writer) PutByte(b byte) {
	w.buf.WriteByte(b)
}

// PutBool appends a boolean as a single byte.
func (w *Writer) PutBool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

// PutInt16 appends a little-endian int16.
func (w *Writer) PutInt16(v int16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	w.buf.Write(b[:])
}

// PutInt32 appends a little-endian int32.
func (w *Writer) PutInt32(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	w.buf.Write(b[:])
}

// PutFloat32 appends a little-endian IEEE 754 float32.
func (w *Writer) PutFloat32(v float32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	w.buf.Write(b[:])
}

// PutString appends a uvarint length prefix followed by the UTF-8 bytes.
func (w *Writer) PutString(s string) {
	var b [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(b[:], uint64(len(s)))
	w.buf.Write(b[:n])
	w.buf.WriteString(s)
}

// Bytes returns the accumulated payload.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// BuildCommand constructs a command record: marker, command code, then the
// payload written by build (which may be nil for payload-less commands).
func BuildCommand(code byte, build func(w *Writer)) []byte {
	w := NewWriter()
	w.PutByte(MarkerCommand)
	w.PutByte(code)
	if build != nil {
		build(w)
	}
	return w.Bytes()
}

// BuildChat constructs a chat command record carrying a message type and text.
func BuildChat(mt MessageType, message string) []byte {
	return BuildCommand(CmdChat, func(w *Writer) {
		w.PutByte(byte(mt))
		w.PutString(message)
	})
}

// BuildServerMessage constructs a lobby server-message record.
func BuildServerMessage(message string) []byte {
	return BuildCommand(CmdServerMessage, func(w *Writer) {
		w.PutString(message)
	})
}

// BuildResponse constructs a bare response payload for the most recent
// request. Responses carry no marker or code; the client correlates them by
// order.
func BuildResponse(build func(w *Writer)) []byte {
	w := NewWriter()
	build(w)
	return w.Bytes()
}

// BuildBoolResponse constructs a single-boolean response payload.
func BuildBoolResponse(v bool) []byte {
	return BuildResponse(func(w *Writer) {
		w.PutBool(v)
	})
}

// BuildConnectResponse constructs the handshake reply: the flag bit-set, the
// server-assigned tag when flagged, then the message of the day. The day
// message is always present, possibly empty, to keep the wire shape fixed.
func BuildConnectResponse(flags LoginFlag, tag, dayMessage string) []byte {
	w := NewWriter()
	w.PutInt32(int32(flags))
	if flags&LoginServerAssignedTag != 0 {
		w.PutString(tag)
	}
	w.PutString(dayMessage)
	return w.Bytes()
}
