// Copyright 2025 Arne Vik
// SPDX-License-Identifier: MIT

package gameres

import (
	"fmt"
	"io"
)

var eriMagic = [8]byte{'E', 'n', 't', 'i', 's', 0x1a, 0, 0}

const (
	eriPrologueSize  = 0x40
	eriFileIDOffset  = 0x08
	eriHdrLenOffset  = 0x0c
	eriLabelOffset   = 0x10
	eriLabelWidth    = 0x30
	eriImageFileID   = 0x00000003
	eriPaletteMaxLen = 1024
)

// Info-record versions this reader understands. Anything else is a format
// identity signal, not corruption.
const (
	eriInfoVersion21 = 0x00020100
	eriInfoVersion22 = 0x00020200
)

// Section tags of the tagged image stream.
const (
	eriTagHeader   = "Header"
	eriTagImageInf = "ImageInf"
	eriTagStream   = "Stream"
	eriTagPalette  = "Palette"
	eriTagImageFrm = "ImageFrm"
)

// ImageInfo is the metadata record extracted from an image header region.
// The stored height field is signed, with the sign carrying the row order;
// it is unpacked here into a magnitude and the TopDown flag.
type ImageInfo struct {
	Version        uint32
	Transformation uint32
	Architecture   uint32
	FormatType     uint32
	Width          uint32
	Height         uint32
	TopDown        bool
	Depth          uint32 // bits per pixel
	ClippedPixels  uint32
}

// Image is a parsed tagged-section image container. The pixel payload is not
// touched until Frame is called.
type Image struct {
	// Label is the human-readable format label from the prologue.
	Label string
	// Info is the extracted metadata record.
	Info ImageInfo

	view      *View
	opts      Options
	streamPos int64 // first record past the header region
}

func probeERI(v *View, opts Options) (*Resource, error) {
	img, err := ParseImage(v, opts)
	if err != nil {
		return nil, err
	}
	return &Resource{Image: img}, nil
}

// ParseImage decodes the prologue and header region of a tagged-section
// image container whose leading bytes already matched the magic.
func ParseImage(v *View, opts Options) (*Image, error) {
	opts = opts.withDefaults()
	if v.Size() < eriPrologueSize {
		return nil, newInvalidFormatErrorf("eri: container smaller than %#x-byte prologue", eriPrologueSize)
	}

	fileID, err := v.ReadU32(eriFileIDOffset)
	if err != nil {
		return nil, err
	}
	if fileID != eriImageFileID {
		return nil, newInvalidFormatErrorf("eri: unknown file id %#x", fileID)
	}

	hdrLen, err := v.ReadU32(eriHdrLenOffset)
	if err != nil {
		return nil, err
	}
	if !checkPlacement(eriPrologueSize, uint64(hdrLen), uint64(v.Size())) {
		return nil, newInvalidFormatErrorf("eri: header region of %d bytes does not fit container", hdrLen)
	}

	label, err := v.ReadASCII(eriLabelOffset, eriLabelWidth)
	if err != nil {
		return nil, err
	}

	s := NewScanner(v, eriPrologueSize, int64(hdrLen))
	s.limit = opts.LimitSections
	info, err := extractImageInfo(s)
	if err != nil {
		return nil, err
	}

	return &Image{
		Label:     label,
		Info:      info,
		view:      v,
		opts:      opts,
		streamPos: eriPrologueSize + int64(hdrLen),
	}, nil
}

// extractImageInfo walks the header region until the info record is found,
// then stops; sections past it are never visited. The region must open with
// the distinguished "Header" wrapper; the wrapper is a transparent
// container, and the scan descends into its payload rather than skipping it.
//
// An exhausted region, an opening record that is not the wrapper, or a
// section claiming more bytes than the region has left all mean the input is
// some other format. A negative length is corruption: the region is already
// confirmed.
func extractImageInfo(s *Scanner) (ImageInfo, error) {
	for first := true; ; first = false {
		h, err := s.ReadNext()
		if err == io.EOF {
			return ImageInfo{}, newInvalidFormatErrorf("eri: no image info record in header region")
		}
		if err != nil {
			return ImageInfo{}, err
		}
		if h.Length < 0 {
			return ImageInfo{}, fmt.Errorf("%w: %d for section %q at offset %#x",
				ErrMalformedSection, h.Length, h.TagString(), s.Pos()-sectionHeaderSize)
		}
		if h.Length > s.Remaining() {
			return ImageInfo{}, newInvalidFormatErrorf("eri: section %q length %d exceeds its region",
				h.TagString(), h.Length)
		}
		if first && !h.TagIs(eriTagHeader) {
			return ImageInfo{}, newInvalidFormatErrorf("eri: header region opens with %q, not a header record",
				h.TagString())
		}

		switch {
		case h.TagIs(eriTagHeader):
			s.Descend(h.Length)
		case h.TagIs(eriTagImageInf):
			return readImageInfo(s, h.Length)
		default:
			s.Skip(h.Length)
		}
	}
}

// readImageInfo decodes the ordered scalar fields of the info record at the
// scanner's cursor. The caller has verified that length fits the enclosing
// region. The version selector gates everything else. Fields past the end of
// a short payload are left zero, so minimal old-style records still parse.
func readImageInfo(s *Scanner, length int64) (ImageInfo, error) {
	var info ImageInfo

	pos := s.Pos()
	end := pos + length

	if length < 4 {
		return info, newInvalidFormatErrorf("eri: image info record of %d bytes has no version field", length)
	}
	version, err := s.view.ReadU32(pos)
	if err != nil {
		return info, err
	}
	switch version {
	case eriInfoVersion21, eriInfoVersion22:
	default:
		return info, newInvalidFormatErrorf("eri: unknown image info version %#x", version)
	}
	info.Version = version
	pos += 4

	for _, f := range []*uint32{&info.Transformation, &info.Architecture, &info.FormatType, &info.Width} {
		if pos+4 > end {
			return info, nil
		}
		u, err := s.view.ReadU32(pos)
		if err != nil {
			return info, err
		}
		*f = u
		pos += 4
	}

	if pos+4 <= end {
		u, err := s.view.ReadU32(pos)
		if err != nil {
			return info, err
		}
		h := int64(int32(u))
		if h < 0 {
			info.TopDown = true
			h = -h
		}
		info.Height = uint32(h)
		pos += 4
	}

	for _, f := range []*uint32{&info.Depth, &info.ClippedPixels} {
		if pos+4 > end {
			return info, nil
		}
		u, err := s.view.ReadU32(pos)
		if err != nil {
			return info, err
		}
		*f = u
		pos += 4
	}

	return info, nil
}
