// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>
package uimage

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Magic      uint32 = 0x27051956
	HeaderSize        = 64
	NameLen           = 32
)

// Byte offsets of the header fields
const (
	offMagic = 0
	offHCRC  = 4
	offTime  = 8
	offSize  = 12
	offLoad  = 16
	offEntry = 20
	offDCRC  = 24
	offOS    = 28
	offArch  = 29
	offType  = 30
	offComp  = 31
	offName  = 32
)

// Header is the legacy 64-byte image header. The header CRC is never
// stored; it's recalculated whenever the header is exported.
type Header struct {
	Timestamp uint32
	DataSize  uint32
	LoadAddr  uint32
	EntryAddr uint32
	DataCRC   uint32

	os          OS
	arch        Arch
	imageType   ImageType
	compression Compression
	name        string
}

// NewHeader returns a header with the same defaults mkimage uses.
func NewHeader() *Header {
	return &Header{
		Timestamp:   uint32(time.Now().Unix()),
		os:          OSLinux,
		arch:        ArchARM,
		imageType:   TypeStandalone,
		compression: CompNone,
	}
}

func (h *Header) OS() OS { return h.os }
func (h *Header) Arch() Arch { return h.arch }
func (h *Header) Type() ImageType { return h.imageType }
func (h *Header) Compression() Compression { return h.compression }
func (h *Header) Name() string { return h.name }
func (h *Header) Created() time.Time { return time.Unix(int64(h.Timestamp), 0) }

func (h *Header) SetOS(v OS) error {
	if !v.Valid() {
		return &ValidationError{Field: "OS type", Msg: fmt.Sprintf("unknown value %d", v)}
	}
	h.os = v
	return nil
}

func (h *Header) SetArch(v Arch) error {
	if !v.Valid() {
		return &ValidationError{Field: "arch type", Msg: fmt.Sprintf("unknown value %d", v)}
	}
	h.arch = v
	return nil
}

func (h *Header) SetType(v ImageType) error {
	if !v.Valid() {
		return &ValidationError{Field: "image type", Msg: fmt.Sprintf("unknown value %d", v)}
	}
	h.imageType = v
	return nil
}

func (h *Header) SetCompression(v Compression) error {
	if !v.Valid() {
		return &ValidationError{Field: "compression type", Msg: fmt.Sprintf("unknown value %d", v)}
	}
	h.compression = v
	return nil
}

func (h *Header) SetName(name string) error {
	if len(name) > NameLen {
		return &ValidationError{
			Field: "name",
			Msg:   fmt.Sprintf("%d bytes long, maximum is %d", len(name), NameLen),
		}
	}
	if !utf8.ValidString(name) {
		return &ValidationError{Field: "name", Msg: "not valid UTF-8"}
	}
	h.name = name
	return nil
}

// headerCRC calculates the CRC of a raw header as if its CRC field were 0
func headerCRC(raw []byte) uint32 {
	var zero [4]byte
	crc := crc32.ChecksumIEEE(raw[:offHCRC])
	crc = crc32.Update(crc, crc32.IEEETable, zero[:])
	return crc32.Update(crc, crc32.IEEETable, raw[offHCRC+4:HeaderSize])
}

// encode serialises the header with a zero CRC field
func (h *Header) encode() []byte {
	raw := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(raw[offMagic:], Magic)
	binary.BigEndian.PutUint32(raw[offTime:], h.Timestamp)
	binary.BigEndian.PutUint32(raw[offSize:], h.DataSize)
	binary.BigEndian.PutUint32(raw[offLoad:], h.LoadAddr)
	binary.BigEndian.PutUint32(raw[offEntry:], h.EntryAddr)
	binary.BigEndian.PutUint32(raw[offDCRC:], h.DataCRC)
	raw[offOS] = byte(h.os)
	raw[offArch] = byte(h.arch)
	raw[offType] = byte(h.imageType)
	raw[offComp] = byte(h.compression)
	copy(raw[offName:], h.name)
	return raw
}

// CRC returns the header CRC for the current field values.
func (h *Header) CRC() uint32 {
	return crc32.ChecksumIEEE(h.encode())
}

// Export serialises the header with a freshly calculated CRC.
func (h *Header) Export() []byte {
	raw := h.encode()
	binary.BigEndian.PutUint32(raw[offHCRC:], crc32.ChecksumIEEE(raw))
	return raw
}

// ParseHeader decodes and validates the header at data[offset:].
//
// Enum fields are kept as-is even if their values aren't known, so that
// images made by newer tools can still be inspected.
func ParseHeader(data []byte, offset int) (*Header, error) {
	if offset < 0 || len(data)-offset < HeaderSize {
		return nil, &FormatError{
			Offset: offset,
			Msg:    fmt.Sprintf("need %d bytes for header, have %d", HeaderSize, len(data)-offset),
		}
	}
	raw := data[offset : offset+HeaderSize]

	magic := binary.BigEndian.Uint32(raw[offMagic:])
	if magic != Magic {
		return nil, &FormatError{
			Offset: offset,
			Msg:    fmt.Sprintf("bad magic 0x%08X", magic),
		}
	}

	stored := binary.BigEndian.Uint32(raw[offHCRC:])
	if calc := headerCRC(raw); calc != stored {
		return nil, &ChecksumError{What: "header", Expected: stored, Actual: calc}
	}

	return &Header{
		Timestamp:   binary.BigEndian.Uint32(raw[offTime:]),
		DataSize:    binary.BigEndian.Uint32(raw[offSize:]),
		LoadAddr:    binary.BigEndian.Uint32(raw[offLoad:]),
		EntryAddr:   binary.BigEndian.Uint32(raw[offEntry:]),
		DataCRC:     binary.BigEndian.Uint32(raw[offDCRC:]),
		os:          OS(raw[offOS]),
		arch:        Arch(raw[offArch]),
		imageType:   ImageType(raw[offType]),
		compression: Compression(raw[offComp]),
		name:        strings.TrimRight(string(raw[offName:]), "\x00"),
	}, nil
}

func (h Header) String() string {
	str := ""
	str += fmt.Sprintf("Image Name:    %s\n", h.name)
	str += fmt.Sprintf("Created:       %s\n", h.Created().Format("Mon Jan _2 15:04:05 2006"))
	str += fmt.Sprintf("Image Type:    %s %s %s (%s)\n", h.arch.Description(), h.os.Description(),
		h.imageType.Description(), h.compression.Description())
	str += fmt.Sprintf("Data Size:     %d Bytes = %.02f kB\n", h.DataSize, float64(h.DataSize)/1024)
	str += fmt.Sprintf("Load Address:  0x%08X\n", h.LoadAddr)
	str += fmt.Sprintf("Entry Address: 0x%08X\n", h.EntryAddr)
	return str
}
