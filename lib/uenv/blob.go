// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>
package uenv

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

const (
	DefaultSize = 8192

	crcSize         = 4
	redundantMarker = 0x01
)

// Blob is an environment as U-Boot stores it on flash: a CRC, an optional
// redundancy flag byte, then NUL-terminated "key=value" records padded out
// to a fixed size.
type Blob struct {
	Vars

	Name      string
	Size      int
	Redundant bool
	BigEndian bool
	Fill      byte
}

type Option func(*Blob)

func WithName(name string) Option {
	return func(b *Blob) {
		b.Name = name
	}
}

// WithSize sets the total size of the exported blob, including the CRC
func WithSize(size int) Option {
	return func(b *Blob) {
		b.Size = size
	}
}

func WithRedundant(redundant bool) Option {
	return func(b *Blob) {
		b.Redundant = redundant
	}
}

func WithBigEndian(bigEndian bool) Option {
	return func(b *Blob) {
		b.BigEndian = bigEndian
	}
}

// WithFill sets the byte used to pad the blob after the last variable
func WithFill(fill byte) Option {
	return func(b *Blob) {
		b.Fill = fill
	}
}

func NewBlob(opts ...Option) *Blob {
	b := &Blob{
		Size: DefaultSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Blob) byteOrder() binary.ByteOrder {
	if b.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (b *Blob) prefixLen() int {
	if b.Redundant {
		return crcSize + 1
	}
	return crcSize
}

// Capacity is the number of bytes available for variables
func (b *Blob) Capacity() int {
	return b.Size - b.prefixLen()
}

// Used is the number of bytes the current variables take up, including the
// terminating NUL
func (b *Blob) Used() int {
	return b.encodedLen() + 1
}

func (b *Blob) Export() ([]byte, error) {
	if b.Used() > b.Capacity() {
		return nil, &CapacityError{Need: b.Used(), Have: b.Capacity()}
	}

	data := make([]byte, b.prefixLen(), b.Size)
	for _, rec := range b.records() {
		data = append(data, rec...)
		data = append(data, 0)
	}
	data = append(data, 0)
	data = append(data, bytes.Repeat([]byte{b.Fill}, b.Size-len(data))...)

	crc := crc32.ChecksumIEEE(data[b.prefixLen():])
	b.byteOrder().PutUint32(data, crc)
	if b.Redundant {
		data[crcSize] = redundantMarker
	}

	return data, nil
}

func isPrintable(c byte) bool {
	return c >= 0x20 && c < 0x7f
}

// ParseBlob decodes the environment which occupies all of data[offset:].
// A flag byte of 0x01 after the CRC marks a redundant environment, and the
// variables start one byte later.
func ParseBlob(data []byte, offset int, bigEndian bool) (*Blob, error) {
	if offset < 0 || len(data)-offset < crcSize+1 {
		return nil, &FormatError{
			Offset: offset,
			Msg:    fmt.Sprintf("%d bytes is too short for an environment", len(data)-offset),
		}
	}

	b := NewBlob(WithSize(len(data)-offset), WithBigEndian(bigEndian))
	raw := data[offset:]
	b.Redundant = raw[crcSize] == redundantMarker

	stored := b.byteOrder().Uint32(raw)
	body := raw[b.prefixLen():]
	if crc := crc32.ChecksumIEEE(body); crc != stored {
		return nil, &ChecksumError{Expected: stored, Actual: crc}
	}

	pos := 0
	for pos < len(body) {
		end := bytes.IndexByte(body[pos:], 0)
		if end < 0 {
			end = len(body) - pos
		}
		rec := body[pos : pos+end]
		if len(rec) == 0 || !isPrintable(rec[0]) {
			break
		}

		if err := b.setRecord(string(rec), offset+b.prefixLen()+pos); err != nil {
			return nil, err
		}
		pos += end + 1
	}

	// Keep the padding byte, so that an unmodified blob exports identically
	if pos+1 < len(body) && body[pos] == 0 {
		b.Fill = body[pos+1]
	}

	return b, nil
}

func (b *Blob) String() string {
	endian := "Little"
	if b.BigEndian {
		endian = "Big"
	}

	str := ""
	str += fmt.Sprintf("Name:       %s\n", b.Name)
	str += fmt.Sprintf("Redundant:  %t\n", b.Redundant)
	str += fmt.Sprintf("Endian:     %s\n", endian)
	str += fmt.Sprintf("Size:       %d Bytes\n", b.Size)
	str += fmt.Sprintf("Used:       %d Bytes\n", b.Used())
	str += fmt.Sprintf("EmptyValue: 0x%02X\n", b.Fill)
	str += "Variables:\n"
	str += b.Vars.String()
	return str
}
