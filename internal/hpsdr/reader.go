package hpsdr

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrShortRead is returned by Reader when fewer bytes remain than requested.
var ErrShortRead = errors.New("hpsdr: short read")

// Reader is a bounded, advancing big-endian cursor over a payload.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the current cursor position.
func (r *Reader) Offset() int { return r.off }

// Len returns the total payload length.
func (r *Reader) Len() int { return len(r.buf) }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) need(n int) error {
	if n < 0 || r.Remaining() < n {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortRead, n, r.off, r.Remaining())
	}
	return nil
}

// Peek returns the next n bytes without advancing.
func (r *Reader) Peek(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	return r.buf[r.off : r.off+n], nil
}

// Bytes returns the next n bytes and advances past them. The slice aliases
// the payload.
func (r *Reader) Bytes(n int) ([]byte, error) {
	b, err := r.Peek(n)
	if err != nil {
		return nil, err
	}
	r.off += n
	return b, nil
}

// Skip advances n bytes.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.off += n
	return nil
}

func (r *Reader) U8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *Reader) U16() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *Reader) U24() (uint32, error) {
	b, err := r.Bytes(3)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), nil
}

func (r *Reader) U32() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *Reader) U64() (uint64, error) {
	b, err := r.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// Uint reads an unsigned integer of width 1, 2, 3, 4 or 8 bytes.
func (r *Reader) Uint(width int) (uint64, error) {
	switch width {
	case 1:
		v, err := r.U8()
		return uint64(v), err
	case 2:
		v, err := r.U16()
		return uint64(v), err
	case 3:
		v, err := r.U24()
		return uint64(v), err
	case 4:
		v, err := r.U32()
		return uint64(v), err
	case 8:
		return r.U64()
	}
	return 0, fmt.Errorf("hpsdr: unsupported integer width %d", width)
}

// allZero reports whether every byte of b is zero.
func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
