// Copyright 2025 Arne Vik
// SPDX-License-Identifier: MIT

// Package gameres reads proprietary game-resource containers: fixed-index
// PAK archives and Entis-style tagged-section image streams.
//
// Parsing is plugin-style: format candidates register a magic signature and
// a probe function, and Open tries them in registration order. A probe
// rejects inputs that are not its format (see IsInvalidFormat) so the next
// candidate can try; inputs that match a signature but fail structural
// validation surface as a CorruptError naming the candidate.
package gameres

import (
	"bytes"
	"fmt"
)

const defaultLimitSections = 4096

// Options configures a parse.
type Options struct {
	// Warnf is called for recoverable oddities, e.g. entry names that are
	// not valid Shift-JIS. If nil, warnings are dropped.
	Warnf func(string, ...any)

	// LimitSections caps the number of section headers a single scan may
	// visit, guarding against adversarial streams of many small sections.
	// Default value is 4096.
	LimitSections int
}

func (o Options) withDefaults() Options {
	if o.Warnf == nil {
		o.Warnf = func(string, ...any) {}
	}
	if o.LimitSections == 0 {
		o.LimitSections = defaultLimitSections
	}
	return o
}

// ProbeFunc attempts to parse v as one specific format. It is called only
// when the leading bytes of v match the candidate's registered magic.
//
// A return error satisfying IsInvalidFormat means "not my format"; any other
// error means the container is this format but damaged.
type ProbeFunc func(v *View, opts Options) (*Resource, error)

type formatCandidate struct {
	name  string
	magic []byte
	probe ProbeFunc
}

var formats []formatCandidate

// RegisterFormat appends a format candidate. Candidates are probed in
// registration order; the built-in PAK and ERI formats are registered first.
func RegisterFormat(name string, magic []byte, probe ProbeFunc) {
	formats = append(formats, formatCandidate{name: name, magic: magic, probe: probe})
}

func init() {
	RegisterFormat("pak", pakMagic[:], probePak)
	RegisterFormat("eri", eriMagic[:], probeERI)
}

// Resource is a successfully opened container. Exactly one of Archive and
// Image is set.
type Resource struct {
	// Format is the registered name of the candidate that claimed the input.
	Format string

	Archive *Archive
	Image   *Image
}

// Open dispatches v over the registered format candidates and returns the
// first successful parse.
//
// Inputs claimed by no candidate return ErrUnknownFormat. Inputs that match
// a candidate's magic but fail its structural validation return a
// CorruptError; no further candidates are tried in that case.
func Open(v *View, opts Options) (*Resource, error) {
	if v == nil {
		return nil, fmt.Errorf("gameres: no view provided")
	}
	opts = opts.withDefaults()

	for _, c := range formats {
		ok, err := matchMagic(v, c.magic)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		res, err := c.probe(v, opts)
		if err != nil {
			if IsInvalidFormat(err) {
				continue
			}
			return nil, &CorruptError{Format: c.name, err: err}
		}
		res.Format = c.name
		return res, nil
	}

	return nil, ErrUnknownFormat
}

func matchMagic(v *View, magic []byte) (bool, error) {
	if int64(len(magic)) > v.Size() {
		return false, nil
	}
	b, err := v.ReadBytes(0, len(magic))
	if err != nil {
		return false, err
	}
	return bytes.Equal(b, magic), nil
}
