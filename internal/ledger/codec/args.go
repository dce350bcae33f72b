// internal/ledger/codec/args.go
package codec

import (
	"encoding/binary"
	"errors"
)

// ErrEndOfArgs is returned when a read runs past the end of the buffer.
// Callers iterating a repeated result treat it as the ordinary
// end-of-sequence condition, not a failure.
var ErrEndOfArgs = errors.New("END_OF_ARGS")

// Args is a positional cursor over an opaque argument buffer. Values are
// read back in the order they were written: strings as a u32
// little-endian byte length followed by UTF-8 bytes, u32 as four
// little-endian bytes.
type Args struct {
	buf    []byte
	offset int
}

// NewArgs wraps an argument buffer for reading.
func NewArgs(buf []byte) *Args {
	return &Args{buf: buf}
}

// NewArgsWriter returns an empty Args for building a result buffer.
func NewArgsWriter() *Args {
	return &Args{}
}

// NextString reads the next string argument and advances the cursor.
func (a *Args) NextString() (string, error) {
	n, err := a.NextU32()
	if err != nil {
		return "", err
	}
	if a.offset+int(n) > len(a.buf) {
		return "", ErrEndOfArgs
	}
	s := string(a.buf[a.offset : a.offset+int(n)])
	a.offset += int(n)
	return s, nil
}

// NextU32 reads the next 32-bit unsigned argument and advances the cursor.
func (a *Args) NextU32() (uint32, error) {
	if a.offset+4 > len(a.buf) {
		return 0, ErrEndOfArgs
	}
	v := binary.LittleEndian.Uint32(a.buf[a.offset : a.offset+4])
	a.offset += 4
	return v, nil
}

// AddString appends a length-prefixed string to the buffer.
func (a *Args) AddString(s string) *Args {
	a.AddU32(uint32(len(s)))
	a.buf = append(a.buf, s...)
	return a
}

// AddU32 appends a 32-bit unsigned value to the buffer.
func (a *Args) AddU32(v uint32) *Args {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	a.buf = append(a.buf, b[:]...)
	return a
}

// Serialize returns the accumulated buffer.
func (a *Args) Serialize() []byte {
	return a.buf
}

// Remaining reports whether unread bytes are left in the buffer.
func (a *Args) Remaining() bool {
	return a.offset < len(a.buf)
}
