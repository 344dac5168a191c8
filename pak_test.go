// Copyright 2025 Arne Vik
// SPDX-License-Identifier: MIT

package gameres_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zlib"

	"github.com/arnevik/gameres"
)

func TestParsePak(t *testing.T) {
	c := qt.New(t)

	// Directory header: count=2, data region at 0x10, container 0x40 bytes.
	data := buildPak(c, 0x40, 0x10, []pakEntrySpec{
		{name: []byte("a.bmp"), size: 0x20, offset: 0x10},
		{name: []byte("b.bmp"), size: 0x10, offset: 0x30},
	})

	a, err := gameres.ParsePak(gameres.NewViewBytes(data), gameres.Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(a.DataStart(), qt.Equals, uint32(0x10))

	want := []gameres.Entry{
		{Name: "a.bmp", RawName: []byte("a.bmp"), Offset: 0x10, Size: 0x20},
		{Name: "b.bmp", RawName: []byte("b.bmp"), Offset: 0x30, Size: 0x10},
	}
	c.Assert(cmp.Diff(want, a.Entries()), qt.Equals, "")
}

func TestParsePakEntryPastEnd(t *testing.T) {
	c := qt.New(t)

	// Entry 1 now reaches 0x45 in a 0x40-byte container.
	data := buildPak(c, 0x40, 0x10, []pakEntrySpec{
		{name: []byte("a.bmp"), size: 0x20, offset: 0x10},
		{name: []byte("b.bmp"), size: 0x10, offset: 0x35},
	})

	_, err := gameres.ParsePak(gameres.NewViewBytes(data), gameres.Options{})
	c.Assert(gameres.IsInvalidFormat(err), qt.IsTrue)

	// The dispatcher maps the rejection to the unrecognized outcome.
	_, err = gameres.Open(gameres.NewViewBytes(data), gameres.Options{})
	c.Assert(errors.Is(err, gameres.ErrUnknownFormat), qt.IsTrue)
}

func TestParsePakEntryBeforeDataRegion(t *testing.T) {
	c := qt.New(t)

	data := buildPak(c, 0x80, 0x40, []pakEntrySpec{
		{name: []byte("a.bmp"), size: 8, offset: 0x20},
	})

	_, err := gameres.ParsePak(gameres.NewViewBytes(data), gameres.Options{})
	c.Assert(gameres.IsInvalidFormat(err), qt.IsTrue)
}

func TestParsePakOverlappingEntriesAllowed(t *testing.T) {
	c := qt.New(t)

	// Overlap between entry ranges is deliberate permissiveness; real
	// containers alias payloads to save space.
	data := buildPak(c, 0x80, 0x40, []pakEntrySpec{
		{name: []byte("a"), size: 0x20, offset: 0x40},
		{name: []byte("b"), size: 0x20, offset: 0x50},
	})

	a, err := gameres.ParsePak(gameres.NewViewBytes(data), gameres.Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(len(a.Entries()), qt.Equals, 2)
}

func TestParsePakImplausibleCount(t *testing.T) {
	c := qt.New(t)

	data := buildPak(c, 0x40, 0x10, nil)
	binary.LittleEndian.PutUint32(data[4:], 1<<20+1)

	_, err := gameres.ParsePak(gameres.NewViewBytes(data), gameres.Options{})
	c.Assert(gameres.IsInvalidFormat(err), qt.IsTrue)
}

func TestParsePakDirectoryDoesNotFit(t *testing.T) {
	c := qt.New(t)

	// Count is under the ceiling but the directory would run past the end
	// of the container.
	data := buildPak(c, 0x40, 0x10, nil)
	binary.LittleEndian.PutUint32(data[4:], 100)

	_, err := gameres.ParsePak(gameres.NewViewBytes(data), gameres.Options{})
	c.Assert(gameres.IsInvalidFormat(err), qt.IsTrue)
}

func TestParsePakBadDataStart(t *testing.T) {
	c := qt.New(t)

	for _, dataStart := range []uint32{0x08, 0x41} {
		data := buildPak(c, 0x40, dataStart, nil)
		_, err := gameres.ParsePak(gameres.NewViewBytes(data), gameres.Options{})
		c.Assert(gameres.IsInvalidFormat(err), qt.IsTrue, qt.Commentf("dataStart: %#x", dataStart))
	}
}

func TestParsePakShiftJISNames(t *testing.T) {
	c := qt.New(t)

	// Shift-JIS katakana "テスト".
	sjis := []byte{0x83, 0x65, 0x83, 0x58, 0x83, 0x67}
	data := buildPak(c, 0x40, 0x20, []pakEntrySpec{
		{name: sjis, size: 4, offset: 0x20},
	})

	a, err := gameres.ParsePak(gameres.NewViewBytes(data), gameres.Options{})
	c.Assert(err, qt.IsNil)
	c.Assert(a.Entries()[0].Name, qt.Equals, "テスト")
	c.Assert(a.Entries()[0].RawName, qt.DeepEquals, sjis)
}

func TestArchiveOpenAndExtract(t *testing.T) {
	c := qt.New(t)

	data := buildPak(c, 0x40, 0x20, []pakEntrySpec{
		{name: []byte("raw"), size: 8, offset: 0x20},
	})
	copy(data[0x20:], "payload!")

	a, err := gameres.ParsePak(gameres.NewViewBytes(data), gameres.Options{})
	c.Assert(err, qt.IsNil)

	got, err := a.Extract(a.Entries()[0])
	c.Assert(err, qt.IsNil)
	c.Assert(string(got), qt.Equals, "payload!")

	r := a.Open(a.Entries()[0])
	got2, err := io.ReadAll(r)
	c.Assert(err, qt.IsNil)
	c.Assert(got2, qt.DeepEquals, got)
}

func TestArchiveExtractZlib(t *testing.T) {
	c := qt.New(t)

	plain := bytes.Repeat([]byte("tile data "), 20)
	var packed bytes.Buffer
	zw := zlib.NewWriter(&packed)
	_, err := zw.Write(plain)
	c.Assert(err, qt.IsNil)
	c.Assert(zw.Close(), qt.IsNil)

	total := 0x20 + packed.Len()
	data := buildPak(c, total, 0x20, []pakEntrySpec{
		{name: []byte("packed"), size: uint32(packed.Len()), offset: 0x20},
	})
	copy(data[0x20:], packed.Bytes())

	a, err := gameres.ParsePak(gameres.NewViewBytes(data), gameres.Options{})
	c.Assert(err, qt.IsNil)

	got, err := a.ExtractZlib(a.Entries()[0])
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, plain)

	// A stored (unpacked) entry is not silently passed through.
	stored := buildPak(c, 0x40, 0x20, []pakEntrySpec{
		{name: []byte("raw"), size: 8, offset: 0x20},
	})
	copy(stored[0x20:], "notzlib!")
	a2, err := gameres.ParsePak(gameres.NewViewBytes(stored), gameres.Options{})
	c.Assert(err, qt.IsNil)
	_, err = a2.ExtractZlib(a2.Entries()[0])
	c.Assert(err, qt.IsNotNil)
}

func TestOpenPak(t *testing.T) {
	c := qt.New(t)

	data := buildPak(c, 0x40, 0x10, []pakEntrySpec{
		{name: []byte("a.bmp"), size: 0x20, offset: 0x10},
	})

	res := mustOpen(c, data, gameres.Options{})
	c.Assert(res.Format, qt.Equals, "pak")
	c.Assert(res.Archive, qt.IsNotNil)
	c.Assert(res.Image, qt.IsNil)
}
