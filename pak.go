// Copyright 2025 Arne Vik
// SPDX-License-Identifier: MIT

package gameres

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/text/encoding/japanese"
)

var pakMagic = [4]byte{'P', 'A', 'K', 0x1a}

const (
	pakHeaderSize  = 16
	pakNameWidth   = 8
	pakEntryStride = pakNameWidth + 4 + 4

	// Directories above this entry count are implausible and rejected
	// before any allocation is sized from the count field.
	pakMaxEntries = 1 << 20
)

// Entry is one record of a PAK directory, in on-disk order. Entries are
// immutable once parsed.
type Entry struct {
	// Name is the entry name decoded from Shift-JIS.
	Name string
	// RawName holds the undecoded name bytes with padding stripped.
	RawName []byte

	Offset uint32
	Size   uint32
}

// Archive is a parsed PAK container.
type Archive struct {
	view      *View
	dataStart uint32
	entries   []Entry
}

// Entries returns the directory in on-disk order. Names are not required to
// be unique, and entry byte ranges may overlap.
func (a *Archive) Entries() []Entry {
	return a.entries
}

// DataStart returns the declared start of the data region.
func (a *Archive) DataStart() uint32 {
	return a.dataStart
}

// Open returns a reader over the entry's validated byte range.
func (a *Archive) Open(e Entry) *io.SectionReader {
	return a.view.SectionReader(int64(e.Offset), int64(e.Size))
}

// Extract reads the entry's payload bytes as stored.
func (a *Archive) Extract(e Entry) ([]byte, error) {
	return a.view.ReadBytes(int64(e.Offset), int(e.Size))
}

// ExtractZlib inflates a zlib-packed entry payload.
func (a *Archive) ExtractZlib(e Entry) ([]byte, error) {
	zr, err := zlib.NewReader(a.Open(e))
	if err != nil {
		return nil, fmt.Errorf("gameres: entry %q: %w", e.Name, err)
	}
	defer zr.Close()
	b, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gameres: inflating entry %q: %w", e.Name, err)
	}
	return b, nil
}

func probePak(v *View, opts Options) (*Resource, error) {
	a, err := ParsePak(v, opts)
	if err != nil {
		return nil, err
	}
	return &Resource{Archive: a}, nil
}

// ParsePak decodes a PAK directory from a view whose leading bytes already
// matched the PAK magic.
//
// The directory is all-or-nothing: a single malformed entry rejects the
// whole parse with a format-mismatch error rather than dropping the entry.
// Only failures of the byte source itself surface as hard errors.
func ParsePak(v *View, opts Options) (*Archive, error) {
	opts = opts.withDefaults()
	total := uint64(v.Size())

	count, err := v.ReadU32(4)
	if err != nil {
		return nil, err
	}
	if count > pakMaxEntries {
		return nil, newInvalidFormatErrorf("pak: implausible entry count %d", count)
	}
	if !checkPlacement(pakHeaderSize, uint64(count)*pakEntryStride, total) {
		return nil, newInvalidFormatErrorf("pak: directory of %d entries does not fit container", count)
	}

	dataStart, err := v.ReadU32(8)
	if err != nil {
		return nil, err
	}
	if uint64(dataStart) < pakHeaderSize || uint64(dataStart) > total {
		return nil, newInvalidFormatErrorf("pak: data region start %#x outside container", dataStart)
	}

	dec := japanese.ShiftJIS.NewDecoder()
	entries := make([]Entry, 0, count)
	for i := uint32(0); i < count; i++ {
		rec := pakHeaderSize + int64(i)*pakEntryStride
		nameb, err := v.ReadBytes(rec, pakNameWidth)
		if err != nil {
			return nil, err
		}
		size, err := v.ReadU32(rec + pakNameWidth)
		if err != nil {
			return nil, err
		}
		offset, err := v.ReadU32(rec + pakNameWidth + 4)
		if err != nil {
			return nil, err
		}
		if uint64(offset) < uint64(dataStart) || !checkPlacement(uint64(offset), uint64(size), total) {
			return nil, newInvalidFormatErrorf("pak: entry %d range %#x+%#x outside data region", i, offset, size)
		}

		raw := trimPadding(nameb)
		name, derr := dec.Bytes(raw)
		if derr != nil {
			opts.Warnf("pak: entry %d name is not valid Shift-JIS", i)
			name = raw
		}
		entries = append(entries, Entry{
			Name:    string(name),
			RawName: raw,
			Offset:  offset,
			Size:    size,
		})
	}

	return &Archive{view: v, dataStart: dataStart, entries: entries}, nil
}
