// Copyright 2025 Arne Vik
// SPDX-License-Identifier: MIT

package gameres_test

import (
	"encoding/binary"

	qt "github.com/frankban/quicktest"

	"github.com/arnevik/gameres"
)

type pakEntrySpec struct {
	name   []byte
	size   uint32
	offset uint32
}

// buildPak assembles a synthetic PAK container of total bytes with the given
// directory. Entry payload bytes are left zero unless the caller writes them.
func buildPak(c *qt.C, total int, dataStart uint32, entries []pakEntrySpec) []byte {
	c.Helper()
	b := make([]byte, total)
	copy(b, "PAK\x1a")
	binary.LittleEndian.PutUint32(b[4:], uint32(len(entries)))
	binary.LittleEndian.PutUint32(b[8:], dataStart)
	for i, e := range entries {
		rec := 16 + i*16
		c.Assert(len(e.name) <= 8, qt.IsTrue)
		copy(b[rec:rec+8], e.name)
		binary.LittleEndian.PutUint32(b[rec+8:], e.size)
		binary.LittleEndian.PutUint32(b[rec+12:], e.offset)
	}
	return b
}

// section frames payload as one tagged-section record. The tag is space
// padded to its full 8-byte width.
func section(tag string, payload []byte) []byte {
	return sectionWithLength(tag, int64(len(payload)), payload)
}

// sectionWithLength frames payload under an arbitrary declared length, valid
// or not.
func sectionWithLength(tag string, length int64, payload []byte) []byte {
	b := make([]byte, 16+len(payload))
	for i := 0; i < 8; i++ {
		c := byte(' ')
		if i < len(tag) {
			c = tag[i]
		}
		b[i] = c
	}
	binary.LittleEndian.PutUint64(b[8:], uint64(length))
	copy(b[16:], payload)
	return b
}

// buildERI assembles a tagged-section image container: the 0x40-byte
// prologue, a header region of the given bytes, then any trailing sections.
func buildERI(hdrRegion []byte, tail ...[]byte) []byte {
	b := make([]byte, 0x40)
	copy(b, "Entis\x1a\x00\x00")
	binary.LittleEndian.PutUint32(b[8:], 0x00000003)
	binary.LittleEndian.PutUint32(b[12:], uint32(len(hdrRegion)))
	copy(b[16:], "Entis Rasterized Image")
	b = append(b, hdrRegion...)
	for _, t := range tail {
		b = append(b, t...)
	}
	return b
}

// infoPayload encodes the full ordered field set of an image info record.
func infoPayload(version, transform, arch, formatType, width uint32, height int32, depth, clipped uint32) []byte {
	b := make([]byte, 32)
	for i, v := range []uint32{version, transform, arch, formatType, width, uint32(height), depth, clipped} {
		binary.LittleEndian.PutUint32(b[i*4:], v)
	}
	return b
}

// headerRegion wraps records in the distinguished "Header  " container
// section, the shape every real file starts its header region with.
func headerRegion(records ...[]byte) []byte {
	var payload []byte
	for _, r := range records {
		payload = append(payload, r...)
	}
	return section("Header", payload)
}

func mustOpen(c *qt.C, data []byte, opts gameres.Options) *gameres.Resource {
	c.Helper()
	res, err := gameres.Open(gameres.NewViewBytes(data), opts)
	c.Assert(err, qt.IsNil)
	return res
}
