package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrTruncated is returned when a frame ends mid-value.
var ErrTruncated = errors.New("truncated frame")

// maxStringLen bounds decoded string lengths so a corrupt length prefix
// cannot force a huge allocation.
const maxStringLen = 1 << 20

// Reader decodes a frame payload. It carries a sticky error: after the first
// decode failure every accessor returns a zero value and Err reports the
// cause, so call sites can decode a whole record and check once.
type Reader struct {
	r   *bytes.Reader
	err error
}

// NewReader creates a Reader over the given frame payload.
func NewReader(frame []byte) *Reader {
	return &Reader{r: bytes.NewReader(frame)}
}

// Err returns the first decode error encountered, if any.
func (r *Reader) Err() error {
	return r.err
}

// More reports whether undecoded bytes remain and no error has occurred.
func (r *Reader) More() bool {
	return r.err == nil && r.r.Len() > 0
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Byte decodes a single byte.
func (r *Reader) Byte() byte {
	if r.err != nil {
		return 0
	}
	b, err := r.r.ReadByte()
	if err != nil {
		r.fail(ErrTruncated)
		return 0
	}
	return b
}

// Bool decodes a one-byte boolean.
func (r *Reader) Bool() bool {
	return r.Byte() != 0
}

// Int16 decodes a little-endian int16.
func (r *Reader) Int16() int16 {
	var b [2]byte
	if !r.take(b[:]) {
		return 0
	}
	return int16(binary.LittleEndian.Uint16(b[:]))
}

// Int32 decodes a little-endian int32.
func (r *Reader) Int32() int32 {
	var b [4]byte
	if !r.take(b[:]) {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b[:]))
}

// Float32 decodes a little-endian IEEE 754 float32.
func (r *Reader) Float32() float32 {
	var b [4]byte
	if !r.take(b[:]) {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b[:]))
}

// String decodes a uvarint length prefix followed by that many UTF-8 bytes.
func (r *Reader) String() string {
	if r.err != nil {
		return ""
	}
	n, err := binary.ReadUvarint(r.r)
	if err != nil {
		r.fail(ErrTruncated)
		return ""
	}
	if n > maxStringLen {
		r.fail(fmt.Errorf("string length %d exceeds limit", n))
		return ""
	}
	b := make([]byte, n)
	if !r.take(b) {
		return ""
	}
	return string(b)
}

func (r *Reader) take(dst []byte) bool {
	if r.err != nil {
		return false
	}
	if _, err := io.ReadFull(r.r, dst); err != nil {
		r.fail(ErrTruncated)
		return false
	}
	return true
}
