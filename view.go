// Copyright 2025 Arne Vik
// SPDX-License-Identifier: MIT

package gameres

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrOutOfRange is returned for any read that would touch bytes outside the
// view. It signals a broken byte source, never a format mismatch.
var ErrOutOfRange = errors.New("gameres: read out of range")

// View is a read-only, bounds-checked window over an immutable byte source.
// All multi-byte reads are little-endian. A View carries no cursor; every
// read names its offset.
type View struct {
	r    io.ReaderAt
	size int64
}

// NewView wraps r, exposing its first size bytes.
func NewView(r io.ReaderAt, size int64) *View {
	return &View{r: r, size: size}
}

// NewViewBytes wraps an in-memory byte slice. The slice must not be modified
// while the view is in use.
func NewViewBytes(b []byte) *View {
	return &View{r: bytes.NewReader(b), size: int64(len(b))}
}

// Size returns the total number of addressable bytes.
func (v *View) Size() int64 {
	return v.size
}

// ReadBytes reads exactly n bytes starting at off.
func (v *View) ReadBytes(off int64, n int) ([]byte, error) {
	if off < 0 || n < 0 || !checkPlacement(uint64(off), uint64(n), uint64(v.size)) {
		return nil, fmt.Errorf("%w: %d bytes at offset %#x (size %#x)", ErrOutOfRange, n, off, v.size)
	}
	b := make([]byte, n)
	if _, err := v.r.ReadAt(b, off); err != nil {
		return nil, fmt.Errorf("gameres: reading %d bytes at offset %#x: %w", n, off, err)
	}
	return b, nil
}

// ReadU32 reads a little-endian uint32 at off.
func (v *View) ReadU32(off int64) (uint32, error) {
	b, err := v.ReadBytes(off, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads a little-endian uint64 at off.
func (v *View) ReadU64(off int64) (uint64, error) {
	b, err := v.ReadBytes(off, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadI64 reads a little-endian int64 at off.
func (v *View) ReadI64(off int64) (int64, error) {
	u, err := v.ReadU64(off)
	return int64(u), err
}

// ReadASCII reads an n-byte fixed-width field at off and strips trailing
// NUL and space padding.
func (v *View) ReadASCII(off int64, n int) (string, error) {
	b, err := v.ReadBytes(off, n)
	if err != nil {
		return "", err
	}
	return string(trimPadding(b)), nil
}

// CheckPlacement reports whether [off, off+size) lies within the view,
// with no overflow on the addition.
func (v *View) CheckPlacement(off, size uint64) bool {
	return checkPlacement(off, size, uint64(v.size))
}

// SectionReader returns a reader over the n bytes at off. The caller is
// expected to have validated the placement.
func (v *View) SectionReader(off, n int64) *io.SectionReader {
	return io.NewSectionReader(v.r, off, n)
}

func checkPlacement(off, size, max uint64) bool {
	if off > max {
		return false
	}
	return size <= max-off
}

func trimPadding(b []byte) []byte {
	i := len(b)
	for i > 0 && (b[i-1] == 0 || b[i-1] == ' ') {
		i--
	}
	return b[:i]
}
