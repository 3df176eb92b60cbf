// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>
package uenv

import (
	"fmt"
)

// FormatError indicates environment data which can't be decoded.
type FormatError struct {
	Offset int
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error at offset %d: %s", e.Offset, e.Msg)
}

// ChecksumError indicates that the stored environment CRC doesn't match its
// contents.
type ChecksumError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("environment CRC mismatch: stored 0x%08X, calculated 0x%08X",
		e.Expected, e.Actual)
}

// CapacityError indicates that the variables don't fit in the space
// available for them.
type CapacityError struct {
	Need int
	Have int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("environment needs %d bytes, only %d available", e.Need, e.Have)
}

// ValidationError indicates a variable which can't be stored in an
// environment.
type ValidationError struct {
	Key string
	Msg string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid variable '%s': %s", e.Key, e.Msg)
}

type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("variable '%s' doesn't exist", e.Key)
}

type MarkerNotFoundError struct {
	Marker string
}

func (e *MarkerNotFoundError) Error() string {
	return fmt.Sprintf("marker '%s' not found in image", e.Marker)
}
