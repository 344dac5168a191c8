// Copyright 2025 Arne Vik
// SPDX-License-Identifier: MIT

package gameres

import (
	"errors"
	"fmt"
)

// ErrUnknownFormat is returned by Open when no registered candidate claims
// the input.
var ErrUnknownFormat = errors.New("gameres: unrecognized format")

// ErrMalformedSection is returned when a section header inside a confirmed
// format region declares a negative length. A negative length can never be a
// valid skip distance, so it signals corruption rather than a mismatch.
var ErrMalformedSection = errors.New("gameres: malformed section length")

// InvalidFormatError is a format-mismatch rejection: the input is not the
// format the probe was looking for. The dispatcher treats it as a signal to
// try the next candidate.
type InvalidFormatError struct {
	err error
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid format: %s", e.err)
}

func (e *InvalidFormatError) Unwrap() error {
	return e.err
}

func newInvalidFormatError(err error) error {
	return &InvalidFormatError{err: err}
}

func newInvalidFormatErrorf(format string, args ...any) error {
	return newInvalidFormatError(fmt.Errorf(format, args...))
}

// IsInvalidFormat reports whether err is a format-mismatch rejection.
func IsInvalidFormat(err error) bool {
	var e *InvalidFormatError
	return errors.As(err, &e)
}

// CorruptError is returned when a container matched a registered format's
// signature but failed structural validation. It is terminal for the parse
// attempt; the dispatcher does not fall back to another candidate.
type CorruptError struct {
	// Format is the name of the candidate that was attempting the parse.
	Format string

	err error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("gameres: corrupt %s container: %s", e.Format, e.err)
}

func (e *CorruptError) Unwrap() error {
	return e.err
}

// IsCorrupt reports whether err marks a matched-but-damaged container.
func IsCorrupt(err error) bool {
	var e *CorruptError
	return errors.As(err, &e)
}
