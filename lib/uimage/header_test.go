// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>
package uimage

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHeader(t *testing.T) *Header {
	hdr := NewHeader()
	hdr.Timestamp = 0x5E8A0000
	hdr.DataSize = 0x1234
	hdr.LoadAddr = 0x80008000
	hdr.EntryAddr = 0x80008040
	hdr.DataCRC = 0xCAFEF00D
	require.NoError(t, hdr.SetOS(OSLinux))
	require.NoError(t, hdr.SetArch(ArchARM64))
	require.NoError(t, hdr.SetType(TypeKernel))
	require.NoError(t, hdr.SetCompression(CompGzip))
	require.NoError(t, hdr.SetName("Linux-5.4"))
	return hdr
}

func TestHeaderLayout(t *testing.T) {
	hdr := testHeader(t)
	raw := hdr.Export()

	require.Len(t, raw, HeaderSize)
	assert.Equal(t, Magic, binary.BigEndian.Uint32(raw[0:]))
	assert.Equal(t, uint32(0x5E8A0000), binary.BigEndian.Uint32(raw[8:]))
	assert.Equal(t, uint32(0x1234), binary.BigEndian.Uint32(raw[12:]))
	assert.Equal(t, uint32(0x80008000), binary.BigEndian.Uint32(raw[16:]))
	assert.Equal(t, uint32(0x80008040), binary.BigEndian.Uint32(raw[20:]))
	assert.Equal(t, uint32(0xCAFEF00D), binary.BigEndian.Uint32(raw[24:]))
	assert.Equal(t, []byte{5, 22, 2, 1}, raw[28:32])
	assert.Equal(t, "Linux-5.4", strings.TrimRight(string(raw[32:]), "\x00"))

	zeroed := append([]byte(nil), raw...)
	copy(zeroed[4:8], []byte{0, 0, 0, 0})
	assert.Equal(t, crc32.ChecksumIEEE(zeroed), binary.BigEndian.Uint32(raw[4:]))
	assert.Equal(t, hdr.CRC(), binary.BigEndian.Uint32(raw[4:]))
}

func TestHeaderRoundTrip(t *testing.T) {
	hdr := testHeader(t)

	parsed, err := ParseHeader(hdr.Export(), 0)
	require.NoError(t, err)
	assert.Equal(t, hdr, parsed)
}

func TestHeaderParseOffset(t *testing.T) {
	hdr := testHeader(t)
	data := append(make([]byte, 16), hdr.Export()...)

	parsed, err := ParseHeader(data, 16)
	require.NoError(t, err)
	assert.Equal(t, "Linux-5.4", parsed.Name())
	assert.Equal(t, TypeKernel, parsed.Type())
}

func TestHeaderCRCRecalculated(t *testing.T) {
	hdr := testHeader(t)
	before := hdr.CRC()

	hdr.LoadAddr = 0x1000
	assert.NotEqual(t, before, hdr.CRC())

	_, err := ParseHeader(hdr.Export(), 0)
	assert.NoError(t, err)
}

func TestHeaderParseErrors(t *testing.T) {
	raw := testHeader(t).Export()

	t.Run("short", func(t *testing.T) {
		_, err := ParseHeader(raw[:HeaderSize-1], 0)
		var fe *FormatError
		assert.True(t, errors.As(err, &fe))
	})

	t.Run("short at offset", func(t *testing.T) {
		_, err := ParseHeader(raw, 4)
		var fe *FormatError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, 4, fe.Offset)
	})

	t.Run("magic", func(t *testing.T) {
		bad := append([]byte(nil), raw...)
		bad[0] ^= 0xff
		_, err := ParseHeader(bad, 0)
		var fe *FormatError
		assert.True(t, errors.As(err, &fe))
	})

	t.Run("crc", func(t *testing.T) {
		bad := append([]byte(nil), raw...)
		bad[40] ^= 0x01
		_, err := ParseHeader(bad, 0)
		var ce *ChecksumError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "header", ce.What)
		assert.Equal(t, binary.BigEndian.Uint32(raw[4:]), ce.Expected)
	})
}

func TestHeaderBitFlips(t *testing.T) {
	raw := testHeader(t).Export()

	// Every bit outside the magic must be covered by the CRC
	for i := 4 * 8; i < HeaderSize*8; i++ {
		bad := append([]byte(nil), raw...)
		bad[i/8] ^= 1 << (i % 8)

		_, err := ParseHeader(bad, 0)
		var ce *ChecksumError
		assert.True(t, errors.As(err, &ce), "bit %d", i)
	}
}

func TestHeaderName(t *testing.T) {
	hdr := NewHeader()

	assert.NoError(t, hdr.SetName(strings.Repeat("a", NameLen)))

	err := hdr.SetName(strings.Repeat("b", NameLen+1))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "name", ve.Field)
	assert.Equal(t, strings.Repeat("a", NameLen), hdr.Name())

	parsed, err := ParseHeader(hdr.Export(), 0)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", NameLen), parsed.Name())

	assert.NoError(t, hdr.SetName("größe"))
	err = hdr.SetName("bad\xffname")
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "größe", hdr.Name())
}

func TestHeaderSetters(t *testing.T) {
	hdr := NewHeader()
	var ve *ValidationError

	assert.True(t, errors.As(hdr.SetOS(OS(0)), &ve))
	assert.True(t, errors.As(hdr.SetOS(OS(200)), &ve))
	assert.True(t, errors.As(hdr.SetArch(Arch(0)), &ve))
	assert.True(t, errors.As(hdr.SetType(ImageType(99)), &ve))
	assert.True(t, errors.As(hdr.SetCompression(Compression(6)), &ve))

	assert.Equal(t, OSLinux, hdr.OS())
	assert.Equal(t, ArchARM, hdr.Arch())
	assert.Equal(t, TypeStandalone, hdr.Type())
	assert.Equal(t, CompNone, hdr.Compression())

	assert.NoError(t, hdr.SetCompression(CompLZ4))
	assert.Equal(t, CompLZ4, hdr.Compression())
}

func TestHeaderParseUnknownCodes(t *testing.T) {
	raw := testHeader(t).Export()
	raw[offOS] = 0xEE
	binary.BigEndian.PutUint32(raw[offHCRC:], headerCRC(raw))

	hdr, err := ParseHeader(raw, 0)
	require.NoError(t, err)
	assert.Equal(t, OS(0xEE), hdr.OS())
	assert.False(t, hdr.OS().Valid())
}

func TestHeaderString(t *testing.T) {
	str := testHeader(t).String()

	assert.Contains(t, str, "Image Name:    Linux-5.4\n")
	assert.Contains(t, str, "Image Type:    AArch64 Linux Kernel Image (gzip compressed)\n")
	assert.Contains(t, str, "Load Address:  0x80008000\n")
	assert.Contains(t, str, "Entry Address: 0x80008040\n")
}
