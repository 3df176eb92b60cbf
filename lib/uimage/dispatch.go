// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>
package uimage

import (
	"encoding/binary"
)

// ScanForHeader searches data for a valid header, starting at offset and
// moving forward one word at a time. It returns the image type recorded in
// the header and the header's offset.
func ScanForHeader(data []byte, offset int) (ImageType, int, error) {
	if offset < 0 {
		offset = 0
	}

	for pos := offset; pos+HeaderSize <= len(data); pos += 4 {
		if binary.BigEndian.Uint32(data[pos+offMagic:]) != Magic {
			continue
		}

		raw := data[pos : pos+HeaderSize]
		if binary.BigEndian.Uint32(raw[offHCRC:]) != headerCRC(raw) {
			continue
		}

		return ImageType(raw[offType]), pos, nil
	}

	return 0, 0, &NotAnImageError{Offset: offset}
}

// ParseImage finds the first image at or after offset and parses it with
// the matching variant.
func ParseImage(data []byte, offset int) (Image, error) {
	imageType, pos, err := ScanForHeader(data, offset)
	if err != nil {
		return nil, err
	}

	var img Image
	switch imageType {
	case TypeMulti:
		img, err = ParseMulti(data, pos)
	case TypeFirmware:
		img, err = ParseFirmware(data, pos)
	case TypeScript:
		img, err = ParseScript(data, pos)
	default:
		img, err = ParseStd(data, pos)
	}
	if err != nil {
		return nil, err
	}

	return img, nil
}
