// Copyright 2025 Arne Vik
// SPDX-License-Identifier: MIT

package gameres

import (
	"fmt"
	"io"
)

const (
	sectionTagSize    = 8
	sectionHeaderSize = sectionTagSize + 8
)

// SectionHeader frames one record of a tagged-section stream: an 8-byte tag
// followed by a signed 64-bit payload length. The payload occupies exactly
// Length bytes immediately after the header.
type SectionHeader struct {
	Tag    [sectionTagSize]byte
	Length int64
}

// TagString returns the tag with trailing padding stripped.
func (h SectionHeader) TagString() string {
	return string(trimPadding(h.Tag[:]))
}

// TagIs compares the tag against tag padded with spaces to the full width.
func (h SectionHeader) TagIs(tag string) bool {
	if len(tag) > sectionTagSize {
		return false
	}
	for i := 0; i < sectionTagSize; i++ {
		c := byte(' ')
		if i < len(tag) {
			c = tag[i]
		}
		if h.Tag[i] != c {
			return false
		}
	}
	return true
}

// Scanner walks a tagged-section stream inside a view. It carries an
// explicit cursor and a remaining-bytes budget for the enclosing region, and
// never reads or interprets payload bytes. Repositioning is always explicit
// through Seek; no state survives beyond the cursor.
type Scanner struct {
	view      *View
	pos       int64
	remaining int64
	limit     int
}

// NewScanner positions a scanner at pos with remaining region bytes.
func NewScanner(v *View, pos, remaining int64) *Scanner {
	return &Scanner{view: v, pos: pos, remaining: remaining, limit: defaultLimitSections}
}

// Pos returns the current cursor offset.
func (s *Scanner) Pos() int64 {
	return s.pos
}

// Remaining returns the unconsumed byte budget of the current region.
func (s *Scanner) Remaining() int64 {
	return s.remaining
}

// Seek repositions the cursor and resets the region budget.
func (s *Scanner) Seek(pos, remaining int64) {
	s.pos = pos
	s.remaining = remaining
}

// Skip advances the cursor past n payload bytes without reading them.
func (s *Scanner) Skip(n int64) {
	s.pos += n
	s.remaining -= n
}

// Descend narrows the region budget to the current section's payload, so
// that a container section's declared length bounds all further reads.
func (s *Scanner) Descend(length int64) {
	if length < s.remaining {
		s.remaining = length
	}
}

// ReadNext reads the section header at the cursor and advances past the
// header only, not the payload. It returns io.EOF when fewer than a full
// header's worth of bytes remain in the region.
func (s *Scanner) ReadNext() (SectionHeader, error) {
	if s.remaining < sectionHeaderSize {
		return SectionHeader{}, io.EOF
	}
	if s.limit <= 0 {
		return SectionHeader{}, fmt.Errorf("gameres: section budget exhausted at offset %#x", s.pos)
	}
	s.limit--

	tag, err := s.view.ReadBytes(s.pos, sectionTagSize)
	if err != nil {
		return SectionHeader{}, err
	}
	length, err := s.view.ReadI64(s.pos + sectionTagSize)
	if err != nil {
		return SectionHeader{}, err
	}

	var h SectionHeader
	copy(h.Tag[:], tag)
	h.Length = length
	s.pos += sectionHeaderSize
	s.remaining -= sectionHeaderSize
	return h, nil
}

// Find scans forward for a section with the given tag, skipping the payloads
// of every section before it. On success the cursor sits at the start of the
// matching section's payload and its length is returned.
//
// Find returns io.EOF if the region is exhausted before the tag turns up. A
// negative declared length yields ErrMalformedSection: the cursor is already
// inside a confirmed header region, so a negative length is corruption, not
// a format mismatch.
func (s *Scanner) Find(tag string) (int64, error) {
	for {
		h, err := s.ReadNext()
		if err != nil {
			return 0, err
		}
		if h.Length < 0 {
			return 0, fmt.Errorf("%w: %d for section %q at offset %#x",
				ErrMalformedSection, h.Length, h.TagString(), s.pos-sectionHeaderSize)
		}
		if h.TagIs(tag) {
			return h.Length, nil
		}
		if h.Length > s.remaining {
			return 0, io.EOF
		}
		s.Skip(h.Length)
	}
}
