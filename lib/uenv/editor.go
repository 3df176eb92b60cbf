// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>
package uenv

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
)

type State int

const (
	Unopened State = iota
	Located
	Dirty
	Saved
)

func (s State) String() string {
	switch s {
	case Unopened:
		return "unopened"
	case Located:
		return "located"
	case Dirty:
		return "dirty"
	case Saved:
		return "saved"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Editor modifies an environment embedded in an otherwise opaque image,
// such as a U-Boot binary with a built-in default environment. The
// environment is found by searching for a marker string, and is rewritten
// in place without touching anything else in the image.
type Editor struct {
	Vars

	marker     string
	capacity   int
	skipMarker bool

	image        []byte
	markerOffset int
	offset       int
	size         int
	state        State
}

type EditorOption func(*Editor)

// WithCapacity gives the size of the environment region explicitly,
// including the NUL terminators. Without it, the region ends at the first
// pair of NUL bytes after the marker.
func WithCapacity(capacity int) EditorOption {
	return func(e *Editor) {
		e.capacity = capacity
	}
}

// WithSkipMarker makes the region start after the marker rather than at it.
// Use it when the marker isn't part of the first variable.
func WithSkipMarker() EditorOption {
	return func(e *Editor) {
		e.skipMarker = true
	}
}

// NewEditor returns an unopened editor for the environment at marker. By
// default the region starts at the marker itself, so the marker is the start
// of the first variable's name. Pass WithSkipMarker when the variables
// follow the marker instead.
func NewEditor(marker string, opts ...EditorOption) *Editor {
	e := &Editor{
		marker:       marker,
		markerOffset: -1,
		offset:       -1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Editor) Marker() string { return e.marker }
func (e *Editor) MarkerOffset() int { return e.markerOffset }
func (e *Editor) State() State { return e.state }

// Offset is where the environment region starts in the image
func (e *Editor) Offset() int { return e.offset }

// MaxSize is the longest the NUL-separated records may be, not counting
// the final terminator
func (e *Editor) MaxSize() int {
	if e.size == 0 {
		return 0
	}
	return e.limit() - 1
}

// limit is the most bytes the NUL-terminated records may take. An inferred
// region stops short of its second NUL, but a declared one has to hold it.
func (e *Editor) limit() int {
	if e.capacity > 0 {
		return e.size - 1
	}
	return e.size
}

func (e *Editor) Image() []byte { return e.image }

// Open locates the environment in image and decodes it. The editor keeps
// image, and Export modifies it in place.
func (e *Editor) Open(image []byte) error {
	markerOffset := bytes.Index(image, []byte(e.marker))
	if e.marker == "" || markerOffset < 0 {
		return &MarkerNotFoundError{Marker: e.marker}
	}

	offset := markerOffset
	if e.skipMarker {
		offset += len(e.marker)
	}

	var size int
	if e.capacity > 0 {
		if offset+e.capacity > len(image) {
			return &FormatError{
				Offset: offset,
				Msg:    fmt.Sprintf("region of %d bytes runs past end of image", e.capacity),
			}
		}
		size = e.capacity
	} else {
		end := bytes.Index(image[offset:], []byte{0, 0})
		if end < 0 {
			return &FormatError{
				Offset: offset,
				Msg:    "no double-NUL terminator after marker",
			}
		}
		size = end + 1
	}

	var vars Vars
	region := image[offset : offset+size]
	pos := 0
	for pos < len(region) {
		end := bytes.IndexByte(region[pos:], 0)
		if end < 0 {
			end = len(region) - pos
		}
		if end == 0 {
			break
		}
		if err := vars.setRecord(string(region[pos:pos+end]), offset+pos); err != nil {
			return err
		}
		pos += end + 1
	}

	e.Vars = vars
	e.image = image
	e.markerOffset = markerOffset
	e.offset = offset
	e.size = size
	e.state = Located

	return nil
}

func (e *Editor) touch() {
	if e.state != Unopened {
		e.state = Dirty
	}
}

func (e *Editor) Set(key, value string) error {
	if err := e.Vars.Set(key, value); err != nil {
		return err
	}
	e.touch()
	return nil
}

func (e *Editor) Delete(key string) error {
	if err := e.Vars.Delete(key); err != nil {
		return err
	}
	e.touch()
	return nil
}

func (e *Editor) Clear() {
	e.Vars.Clear()
	e.touch()
}

func (e *Editor) Load(text string) error {
	if err := e.Vars.Load(text); err != nil {
		return err
	}
	e.touch()
	return nil
}

// Export writes the variables back into the image, and returns it. If they
// don't fit, the image is left unchanged.
func (e *Editor) Export() ([]byte, error) {
	if e.state == Unopened {
		return nil, errors.Errorf("environment editor for '%s' hasn't been opened", e.marker)
	}

	need := e.encodedLen()
	if have := e.limit(); need > have {
		return nil, &CapacityError{Need: need, Have: have}
	}

	region := make([]byte, 0, e.size)
	for _, rec := range e.records() {
		region = append(region, rec...)
		region = append(region, 0)
	}
	region = append(region, make([]byte, e.size-len(region))...)

	copy(e.image[e.offset:], region)
	e.state = Saved

	return e.image, nil
}

// Store returns the variables as "key = value" lines
func (e *Editor) Store() string {
	return e.store(" = ")
}

func (e *Editor) String() string {
	str := ""
	str += fmt.Sprintf("Image Size:   %d bytes\n", len(e.image))
	str += fmt.Sprintf("EnVar Size:   %d bytes\n", e.MaxSize())
	str += fmt.Sprintf("EnVar Offset: %d\n", e.offset)
	str += fmt.Sprintf("EnVar Mark:   %s\n", e.marker)
	str += "EnVar Content:\n"
	str += e.Vars.String()
	return str
}
