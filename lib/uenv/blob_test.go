// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>
package uenv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBlob(opts ...Option) *Blob {
	b := NewBlob(opts...)
	b.Set("bootdelay", "3")
	b.Set("baudrate", "115200")
	b.Set("bootcmd", "run distro_bootcmd")
	b.Set("empty", "")
	return b
}

func TestBlobRoundTrip(t *testing.T) {
	for _, redundant := range []bool{false, true} {
		for _, bigEndian := range []bool{false, true} {
			name := fmt.Sprintf("redundant=%t,bigendian=%t", redundant, bigEndian)
			t.Run(name, func(t *testing.T) {
				b := testBlob(WithSize(256), WithRedundant(redundant), WithBigEndian(bigEndian))

				data, err := b.Export()
				require.NoError(t, err)
				require.Len(t, data, 256)

				parsed, err := ParseBlob(data, 0, bigEndian)
				require.NoError(t, err)
				assert.Equal(t, b.Keys(), parsed.Keys())
				assert.Equal(t, b.Map(), parsed.Map())
				assert.Equal(t, redundant, parsed.Redundant)
				assert.Equal(t, 256, parsed.Size)

				again, err := parsed.Export()
				require.NoError(t, err)
				assert.Equal(t, data, again)
			})
		}
	}
}

func TestBlobLayout(t *testing.T) {
	b := NewBlob(WithSize(32), WithRedundant(true), WithBigEndian(true), WithFill(0xff))
	b.Set("a", "1")
	b.Set("b", "22")

	data, err := b.Export()
	require.NoError(t, err)

	body := append([]byte("a=1\x00b=22\x00\x00"), []byte(strings.Repeat("\xff", 32-5-10))...)
	assert.Equal(t, byte(0x01), data[4])
	assert.Equal(t, body, data[5:])
	assert.Equal(t, crc32.ChecksumIEEE(body), binary.BigEndian.Uint32(data))

	b.BigEndian = false
	data, err = b.Export()
	require.NoError(t, err)
	assert.Equal(t, crc32.ChecksumIEEE(body), binary.LittleEndian.Uint32(data))
}

func TestBlobFillKept(t *testing.T) {
	data, err := testBlob(WithSize(128), WithFill(0xff)).Export()
	require.NoError(t, err)

	parsed, err := ParseBlob(data, 0, false)
	require.NoError(t, err)
	assert.Equal(t, byte(0xff), parsed.Fill)
}

func TestBlobCapacity(t *testing.T) {
	// One variable whose record, plus the final NUL, is exactly n bytes
	blobWith := func(n int) *Blob {
		b := NewBlob(WithSize(8192))
		b.Set("k", strings.Repeat("v", n-4))
		return b
	}

	b := blobWith(8188)
	assert.Equal(t, 8188, b.Used())
	_, err := b.Export()
	assert.NoError(t, err)

	_, err = blobWith(8189).Export()
	var ce *CapacityError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 8189, ce.Need)
	assert.Equal(t, 8188, ce.Have)

	b = blobWith(8188)
	b.Redundant = true
	_, err = b.Export()
	assert.True(t, errors.As(err, &ce))
}

func TestBlobChecksum(t *testing.T) {
	data, err := testBlob(WithSize(128)).Export()
	require.NoError(t, err)

	data[20] ^= 0x04
	_, err = ParseBlob(data, 0, false)
	var ce *ChecksumError
	assert.True(t, errors.As(err, &ce))

	// The wrong byte order gives the wrong CRC too
	data[20] ^= 0x04
	_, err = ParseBlob(data, 0, true)
	assert.True(t, errors.As(err, &ce))
}

func TestBlobOffset(t *testing.T) {
	env, err := testBlob(WithSize(128)).Export()
	require.NoError(t, err)

	data := append(make([]byte, 16), env...)
	parsed, err := ParseBlob(data, 16, false)
	require.NoError(t, err)

	val, err := parsed.Get("bootcmd")
	require.NoError(t, err)
	assert.Equal(t, "run distro_bootcmd", val)
}

func TestBlobParseErrors(t *testing.T) {
	_, err := ParseBlob([]byte{1, 2, 3}, 0, false)
	var fe *FormatError
	assert.True(t, errors.As(err, &fe))

	body := []byte("novalue\x00\x00")
	data := binary.LittleEndian.AppendUint32(nil, crc32.ChecksumIEEE(body))
	_, err = ParseBlob(append(data, body...), 0, false)
	assert.True(t, errors.As(err, &fe))
}

func TestBlobEmpty(t *testing.T) {
	data, err := NewBlob(WithSize(16)).Export()
	require.NoError(t, err)

	parsed, err := ParseBlob(data, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 0, parsed.Len())
}

func TestVars(t *testing.T) {
	var v Vars
	v.Set("b", "1")
	v.Set("a", "2")
	v.Set("b", "3")

	assert.Equal(t, []string{"b", "a"}, v.Keys())
	val, err := v.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "3", val)

	_, err = v.Get("missing")
	var ke *KeyNotFoundError
	require.True(t, errors.As(err, &ke))
	assert.Equal(t, "missing", ke.Key)

	require.NoError(t, v.Delete("b"))
	assert.Equal(t, []string{"a"}, v.Keys())
	assert.True(t, errors.As(v.Delete("b"), &ke))

	v.Clear()
	assert.Equal(t, 0, v.Len())
}

func TestVarsRejectsUnencodable(t *testing.T) {
	var v Vars
	require.NoError(t, v.Set("a", "x=y"))

	for _, kv := range [][2]string{
		{"", "1"},
		{"a=b", "1"},
		{"a\x00b", "1"},
		{"c", "1\x002"},
	} {
		err := v.Set(kv[0], kv[1])
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve), "%q", kv)
	}
	assert.Equal(t, []string{"a"}, v.Keys())

	var ve *ValidationError
	assert.True(t, errors.As(v.Load("d=1\x002\n"), &ve))

	e := NewEditor("ENVMARK", WithSkipMarker())
	require.NoError(t, e.Open(testImage("ENVMARKa=1\x00\x00")))
	assert.Error(t, e.Set("b", "\x00"))
	assert.Equal(t, Located, e.State())
}

func TestBlobText(t *testing.T) {
	b := NewBlob(WithName("board"), WithSize(4096))
	require.NoError(t, b.Load(`# defaults
bootdelay = 3

bootargs=console=ttyS0,115200 root=/dev/mmcblk0p2
`))

	val, err := b.Get("bootargs")
	require.NoError(t, err)
	assert.Equal(t, "console=ttyS0,115200 root=/dev/mmcblk0p2", val)

	text := b.Store()
	assert.True(t, strings.HasPrefix(text, "# Name:      board\n# Size:      4096\n# Redundant: No\n\n"))
	assert.Contains(t, text, "bootdelay=3\n")

	again := NewBlob()
	require.NoError(t, again.Load(text))
	assert.Equal(t, b.Map(), again.Map())

	err = again.Load("justakey\n")
	var fe *FormatError
	assert.True(t, errors.As(err, &fe))
}
