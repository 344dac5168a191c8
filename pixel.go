// Copyright 2025 Arne Vik
// SPDX-License-Identifier: MIT

package gameres

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pierrec/lz4/v4"
)

// PixelDecoder turns an encoded frame payload into raw pixels.
//
// Implementations must return a buffer of exactly RowBytes(info)*info.Height
// bytes or fail; silently truncating or padding is not acceptable, and the
// glue in Frame.DecodeWith enforces the length. The payload reader is
// bounded to the frame section; palette is nil unless a color table section
// was present and collected.
type PixelDecoder interface {
	DecodePixels(info ImageInfo, payload io.Reader, palette []byte) ([]byte, error)
}

// Architecture selectors stored in the image info record. The entropy-coded
// architectures of the originating format have no built-in decoder; callers
// supply one through RegisterPixelDecoder.
const (
	ArchRaw   uint32 = 0
	ArchFlate uint32 = 1
	ArchLZ4   uint32 = 2
)

// 1 GB of decoded pixels is plenty for game resources.
const maxPixelBufSize = 1 << 30

var pixelDecoders = map[uint32]PixelDecoder{
	ArchRaw:   rawPixelDecoder{},
	ArchFlate: flatePixelDecoder{},
	ArchLZ4:   lz4PixelDecoder{},
}

// RegisterPixelDecoder installs d for an architecture selector, replacing
// any existing decoder.
func RegisterPixelDecoder(architecture uint32, d PixelDecoder) {
	pixelDecoders[architecture] = d
}

// RowBytes returns the byte width of one decoded pixel row. The product is
// computed in uint64: width and depth are attacker-controlled, and their
// signed product can wrap.
func RowBytes(info ImageInfo) int64 {
	return int64((uint64(info.Width)*uint64(info.Depth) + 7) / 8)
}

// pixelBufSize returns the exact decoded buffer size for info, rejecting
// dimension combinations over the pixel budget before anything is allocated
// from untrusted fields.
func pixelBufSize(info ImageInfo) (int64, error) {
	row := uint64(RowBytes(info))
	if row > maxPixelBufSize {
		return 0, fmt.Errorf("gameres: pixel row of %d bytes exceeds max %d", row, maxPixelBufSize)
	}
	n := row * uint64(info.Height)
	if n > maxPixelBufSize {
		return 0, fmt.Errorf("gameres: decoded image of %d bytes exceeds max %d", n, maxPixelBufSize)
	}
	return int64(n), nil
}

// Frame is a located pixel payload: a bounded cursor into the encoded frame
// section plus everything a decoder needs to select its transform variant.
type Frame struct {
	Info    ImageInfo
	Palette []byte

	view       *View
	payloadOff int64
	payloadLen int64
}

// PayloadReader returns a fresh reader over the encoded frame bytes.
func (f *Frame) PayloadReader() *io.SectionReader {
	return f.view.SectionReader(f.payloadOff, f.payloadLen)
}

// Frame re-enters the section stream past the header region and locates the
// encoded pixel payload, collecting the color table on the way when the bit
// depth calls for one. The payload itself is handed over undecoded.
func (img *Image) Frame() (*Frame, error) {
	s := NewScanner(img.view, img.streamPos, img.view.Size()-img.streamPos)
	s.limit = img.opts.LimitSections

	streamLen, err := s.Find(eriTagStream)
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("gameres: eri: no stream section after header region")
		}
		return nil, err
	}
	s.Descend(streamLen)

	var palette []byte
	for {
		h, err := s.ReadNext()
		if err == io.EOF {
			return nil, fmt.Errorf("gameres: eri: stream section holds no image frame")
		}
		if err != nil {
			return nil, err
		}
		if h.Length < 0 {
			return nil, fmt.Errorf("%w: %d for section %q at offset %#x",
				ErrMalformedSection, h.Length, h.TagString(), s.Pos()-sectionHeaderSize)
		}

		switch {
		case h.TagIs(eriTagPalette):
			if img.Info.Depth <= 8 && h.Length <= eriPaletteMaxLen {
				palette, err = img.view.ReadBytes(s.Pos(), int(h.Length))
				if err != nil {
					return nil, err
				}
			} else {
				img.opts.Warnf("eri: ignoring palette section of %d bytes at depth %d", h.Length, img.Info.Depth)
			}
			s.Skip(h.Length)
		case h.TagIs(eriTagImageFrm):
			if !img.view.CheckPlacement(uint64(s.Pos()), uint64(h.Length)) {
				return nil, fmt.Errorf("gameres: eri: image frame of %d bytes at offset %#x is truncated",
					h.Length, s.Pos())
			}
			return &Frame{
				Info:       img.Info,
				Palette:    palette,
				view:       img.view,
				payloadOff: s.Pos(),
				payloadLen: h.Length,
			}, nil
		default:
			if h.Length > s.Remaining() {
				return nil, fmt.Errorf("gameres: eri: stream section holds no image frame")
			}
			s.Skip(h.Length)
		}
	}
}

// Decode runs the decoder registered for the frame's architecture selector.
func (f *Frame) Decode() ([]byte, error) {
	d, ok := pixelDecoders[f.Info.Architecture]
	if !ok {
		return nil, fmt.Errorf("gameres: no pixel decoder registered for architecture %#x", f.Info.Architecture)
	}
	return f.DecodeWith(d)
}

// DecodeWith runs d over the frame payload and validates that the decoded
// buffer matches the metadata record exactly.
func (f *Frame) DecodeWith(d PixelDecoder) ([]byte, error) {
	want, err := pixelBufSize(f.Info)
	if err != nil {
		return nil, err
	}
	b, err := d.DecodePixels(f.Info, f.PayloadReader(), f.Palette)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) != want {
		return nil, fmt.Errorf("gameres: pixel decoder returned %d bytes, want %d", len(b), want)
	}
	return b, nil
}

type rawPixelDecoder struct{}

func (rawPixelDecoder) DecodePixels(info ImageInfo, payload io.Reader, _ []byte) ([]byte, error) {
	n, err := pixelBufSize(info)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(payload, b); err != nil {
		return nil, fmt.Errorf("gameres: raw pixel payload: %w", err)
	}
	return b, nil
}

type flatePixelDecoder struct{}

func (flatePixelDecoder) DecodePixels(info ImageInfo, payload io.Reader, _ []byte) ([]byte, error) {
	n, err := pixelBufSize(info)
	if err != nil {
		return nil, err
	}
	fr := flate.NewReader(payload)
	defer fr.Close()
	b := make([]byte, n)
	if _, err := io.ReadFull(fr, b); err != nil {
		return nil, fmt.Errorf("gameres: flate pixel payload: %w", err)
	}
	return b, nil
}

type lz4PixelDecoder struct{}

func (lz4PixelDecoder) DecodePixels(info ImageInfo, payload io.Reader, _ []byte) ([]byte, error) {
	n, err := pixelBufSize(info)
	if err != nil {
		return nil, err
	}
	zr := lz4.NewReader(payload)
	b := make([]byte, n)
	if _, err := io.ReadFull(zr, b); err != nil {
		return nil, fmt.Errorf("gameres: lz4 pixel payload: %w", err)
	}
	return b, nil
}
