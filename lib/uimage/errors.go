// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>
package uimage

import (
	"fmt"
)

// FormatError indicates malformed input: bad magic, truncated data or a
// broken sub-image table.
type FormatError struct {
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error at offset %d: %s", e.Offset, e.Msg)
}

// ChecksumError indicates a CRC32 mismatch in a header or payload.
type ChecksumError struct {
	What     string
	Expected uint32
	Actual   uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%s CRC mismatch: stored 0x%08X, calculated 0x%08X",
		e.What, e.Expected, e.Actual)
}

// ValidationError indicates a field value outside its allowed set.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// EmptyPayloadError is returned when exporting an image with nothing in it.
type EmptyPayloadError struct {
	Kind string
}

func (e *EmptyPayloadError) Error() string {
	return fmt.Sprintf("%s image has no content to export", e.Kind)
}

// NotAnImageError is returned when no valid header exists at or after Offset.
type NotAnImageError struct {
	Offset int
}

func (e *NotAnImageError) Error() string {
	return fmt.Sprintf("no U-Boot image header found from offset %d", e.Offset)
}
