// Package binread provides bounds-checked random-access reads over an
// io.ReaderAt. Every accessor validates the requested range against the
// source size before touching the reader, so container parsing code never
// performs unchecked offset arithmetic.
package binread

import (
	"encoding/binary"
	"fmt"
	"io"
)

// OutOfRangeError reports a read that would fall outside the source.
type OutOfRangeError struct {
	Offset int64
	Length int
	Size   int64
	What   string
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("read of %d bytes at offset %d exceeds source size %d while reading %s",
		e.Length, e.Offset, e.Size, e.What)
}

// Source wraps an io.ReaderAt with a known size and bounds checking.
type Source struct {
	r    io.ReaderAt
	size int64
}

// NewSource creates a Source over r with the given total size.
func NewSource(r io.ReaderAt, size int64) *Source {
	return &Source{r: r, size: size}
}

// Size returns the total size of the underlying source.
func (s *Source) Size() int64 {
	return s.size
}

// ReadAt fills b from the given offset. The what argument names the field
// being read for error messages.
func (s *Source) ReadAt(b []byte, off int64, what string) error {
	if off < 0 || off+int64(len(b)) > s.size {
		return &OutOfRangeError{Offset: off, Length: len(b), Size: s.size, What: what}
	}

	n, err := s.r.ReadAt(b, off)
	if err != nil && err != io.EOF {
		return fmt.Errorf("read %s at offset %d: %w", what, off, err)
	}
	if n < len(b) {
		return &OutOfRangeError{Offset: off, Length: len(b), Size: s.size, What: what}
	}
	return nil
}

// Read reads a big-endian value of type T at the given offset.
func Read[T uint8 | uint16 | uint32 | uint64](s *Source, off int64, what string) (T, error) {
	var zero T

	buf := make([]byte, sizeOf[T]())
	if err := s.ReadAt(buf, off, what); err != nil {
		return zero, err
	}

	var val T
	switch any(zero).(type) {
	case uint8:
		val = T(buf[0])
	case uint16:
		val = T(binary.BigEndian.Uint16(buf))
	case uint32:
		val = T(binary.BigEndian.Uint32(buf))
	case uint64:
		val = T(binary.BigEndian.Uint64(buf))
	}
	return val, nil
}

func sizeOf[T uint8 | uint16 | uint32 | uint64]() int {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return 1
	case uint16:
		return 2
	case uint32:
		return 4
	default:
		return 8
	}
}

// Cursor provides sequential reading with automatic offset tracking.
type Cursor struct {
	*Source
	offset int64
}

// NewCursor creates a Cursor over s starting at offset.
func NewCursor(s *Source, offset int64) *Cursor {
	return &Cursor{Source: s, offset: offset}
}

// Offset returns the current position.
func (c *Cursor) Offset() int64 {
	return c.offset
}

// Skip advances the position by n bytes without reading.
func (c *Cursor) Skip(n int64) {
	c.offset += n
}

// Bytes reads length bytes at the current position and advances past them.
func (c *Cursor) Bytes(length int, what string) ([]byte, error) {
	buf := make([]byte, length)
	if err := c.Source.ReadAt(buf, c.offset, what); err != nil {
		return nil, err
	}
	c.offset += int64(length)
	return buf, nil
}

// Next reads a big-endian value of type T at the current position and
// advances past it.
func Next[T uint8 | uint16 | uint32 | uint64](c *Cursor, what string) (T, error) {
	val, err := Read[T](c.Source, c.offset, what)
	if err != nil {
		var zero T
		return zero, err
	}
	c.offset += int64(sizeOf[T]())
	return val, nil
}
