// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>
package uimage

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/pkg/errors"
)

// Sub-images are word aligned within a multi-image
const multiAlign = 4

func alignUp(n int) int {
	return (n + multiAlign - 1) &^ (multiAlign - 1)
}

// Multi is a container of other images. Its payload is a table of
// sub-image lengths, terminated by a zero entry, followed by the exported
// sub-images themselves.
type Multi struct {
	hdr    *Header
	images []Image
}

func NewMulti() *Multi {
	hdr := NewHeader()
	hdr.imageType = TypeMulti
	return &Multi{hdr: hdr}
}

func (m *Multi) Header() *Header { return m.hdr }

func (m *Multi) Export() ([]byte, error) { return export(m) }

func (m *Multi) Len() int { return len(m.images) }

func (m *Multi) Images() []Image {
	return append([]Image(nil), m.images...)
}

func (m *Multi) Append(img Image) {
	m.images = append(m.images, img)
}

// Pop removes and returns the sub-image at index
func (m *Multi) Pop(index int) (Image, error) {
	if index < 0 || index >= len(m.images) {
		return nil, errors.Errorf("image index %d out of range [0, %d)", index, len(m.images))
	}
	img := m.images[index]
	m.images = append(m.images[:index], m.images[index+1:]...)
	return img, nil
}

func (m *Multi) Clear() {
	m.images = nil
}

func (m *Multi) payload() ([]byte, error) {
	if len(m.images) == 0 {
		return nil, &EmptyPayloadError{Kind: "multi"}
	}

	table := make([]byte, 0, (len(m.images)+1)*4)
	var body []byte
	for i, img := range m.images {
		data, err := img.payload()
		if err != nil {
			return nil, errors.Wrapf(err, "sub-image %d", i)
		}

		// Build a header copy so that the child isn't modified
		hdr := *img.Header()
		hdr.DataSize = uint32(len(data))
		hdr.DataCRC = crc32.ChecksumIEEE(data)

		sub := append(hdr.Export(), data...)
		padded := alignUp(len(sub))
		sub = append(sub, make([]byte, padded-len(sub))...)

		table = binary.BigEndian.AppendUint32(table, uint32(padded))
		body = append(body, sub...)
	}
	table = binary.BigEndian.AppendUint32(table, 0)

	return append(table, body...), nil
}

func (m *Multi) summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Content:       %d Images\n", len(m.images))
	for i, img := range m.images {
		fmt.Fprintf(&sb, "#IMAGE[%d]\n", i)
		sb.WriteString(Describe(img))
	}
	return sb.String()
}

// ParseMulti parses a multi-image and all of its sub-images.
func ParseMulti(data []byte, offset int) (*Multi, error) {
	hdr, payload, err := parsePayload(data, offset)
	if err != nil {
		return nil, err
	}
	base := offset + HeaderSize

	var lengths []int
	pos := 0
	for {
		if len(payload)-pos < 4 {
			return nil, &FormatError{
				Offset: base + pos,
				Msg:    "sub-image table has no terminator",
			}
		}
		length := binary.BigEndian.Uint32(payload[pos:])
		pos += 4
		if length == 0 {
			break
		}
		lengths = append(lengths, int(length))
	}

	multi := &Multi{hdr: hdr}
	for i, length := range lengths {
		if length > len(payload)-pos {
			return nil, &FormatError{
				Offset: base + pos,
				Msg:    fmt.Sprintf("sub-image %d is %d bytes, only %d remain", i, length, len(payload)-pos),
			}
		}

		img, err := ParseImage(payload[:pos+length], pos)
		if err != nil {
			return nil, errors.Wrapf(err, "sub-image %d", i)
		}
		multi.images = append(multi.images, img)

		pos += alignUp(length)
	}

	return multi, nil
}
