// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>
package uimage

import (
	"fmt"
	"hash/crc32"
)

// Image is one of *Std, *Firmware, *Script or *Multi.
type Image interface {
	Header() *Header
	// Export serialises the image, updating the header's data size and CRC
	Export() ([]byte, error)

	// payload builds the bytes which follow the header
	payload() ([]byte, error)
	summary() string
}

// New returns an empty image of the variant which handles imageType.
// Types without a dedicated variant get a *Std with that type set.
func New(imageType ImageType) Image {
	switch imageType {
	case TypeMulti:
		return NewMulti()
	case TypeFirmware:
		return NewFirmware(nil)
	case TypeScript:
		return NewScript()
	}

	img := NewStd(nil)
	if imageType.Valid() {
		img.hdr.imageType = imageType
	}
	return img
}

func export(img Image) ([]byte, error) {
	data, err := img.payload()
	if err != nil {
		return nil, err
	}

	hdr := img.Header()
	hdr.DataSize = uint32(len(data))
	hdr.DataCRC = crc32.ChecksumIEEE(data)

	return append(hdr.Export(), data...), nil
}

// Describe returns an mkimage style summary of img. The image itself is
// left untouched.
func Describe(img Image) string {
	hdr := *img.Header()
	if data, err := img.payload(); err == nil {
		hdr.DataSize = uint32(len(data))
		hdr.DataCRC = crc32.ChecksumIEEE(data)
	}
	return hdr.String() + img.summary()
}

// parsePayload parses the header at data[offset:] and returns it along
// with its CRC-checked payload.
func parsePayload(data []byte, offset int) (*Header, []byte, error) {
	hdr, err := ParseHeader(data, offset)
	if err != nil {
		return nil, nil, err
	}

	start := offset + HeaderSize
	if uint64(len(data)-start) < uint64(hdr.DataSize) {
		return nil, nil, &FormatError{
			Offset: start,
			Msg:    fmt.Sprintf("payload is %d bytes, only %d available", hdr.DataSize, len(data)-start),
		}
	}

	payload := data[start : start+int(hdr.DataSize)]
	if crc := crc32.ChecksumIEEE(payload); crc != hdr.DataCRC {
		return nil, nil, &ChecksumError{What: "data", Expected: hdr.DataCRC, Actual: crc}
	}

	return hdr, payload, nil
}

// Std is a plain binary blob: kernel, ramdisk, standalone program and so on.
type Std struct {
	hdr  *Header
	Data []byte
}

func NewStd(data []byte) *Std {
	return &Std{
		hdr:  NewHeader(),
		Data: data,
	}
}

func (s *Std) Header() *Header { return s.hdr }

func (s *Std) Export() ([]byte, error) { return export(s) }

func (s *Std) payload() ([]byte, error) {
	if len(s.Data) == 0 {
		return nil, &EmptyPayloadError{Kind: s.hdr.imageType.String()}
	}
	return s.Data, nil
}

func (s *Std) summary() string {
	return fmt.Sprintf("Content:       Binary Blob (%d Bytes)\n", len(s.Data))
}

func ParseStd(data []byte, offset int) (*Std, error) {
	hdr, payload, err := parsePayload(data, offset)
	if err != nil {
		return nil, err
	}

	return &Std{
		hdr:  hdr,
		Data: append([]byte(nil), payload...),
	}, nil
}

// Firmware is a binary blob with the firmware image type.
type Firmware struct {
	Std
}

func NewFirmware(data []byte) *Firmware {
	fw := &Firmware{Std: *NewStd(data)}
	fw.hdr.imageType = TypeFirmware
	return fw
}

func (f *Firmware) Export() ([]byte, error) { return export(f) }

func ParseFirmware(data []byte, offset int) (*Firmware, error) {
	std, err := ParseStd(data, offset)
	if err != nil {
		return nil, err
	}
	return &Firmware{Std: *std}, nil
}
