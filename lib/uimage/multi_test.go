// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>
package uimage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMulti() *Multi {
	multi := NewMulti()

	multi.Append(NewFirmware(bytes.Repeat([]byte{1}, 512)))

	script := NewScript()
	script.Append("echo", "one")
	script.Append("echo", "two")
	script.Append("boot", "")
	multi.Append(script)

	return multi
}

func TestMultiRoundTrip(t *testing.T) {
	multi := testMulti()

	data, err := multi.Export()
	require.NoError(t, err)

	img, err := ParseImage(data, 0)
	require.NoError(t, err)
	parsed, ok := img.(*Multi)
	require.True(t, ok)

	require.Equal(t, 2, parsed.Len())
	children := parsed.Images()

	fw, ok := children[0].(*Firmware)
	require.True(t, ok)
	assert.Equal(t, bytes.Repeat([]byte{1}, 512), fw.Data)

	script, ok := children[1].(*Script)
	require.True(t, ok)
	assert.Equal(t, 3, script.Len())
	assert.Equal(t, multi.Images()[1].(*Script).Commands(), script.Commands())
}

func TestMultiTable(t *testing.T) {
	multi := NewMulti()
	multi.Append(NewStd([]byte{1, 2, 3}))
	multi.Append(NewStd([]byte{4, 5, 6, 7, 8}))

	data, err := multi.Export()
	require.NoError(t, err)
	payload := data[HeaderSize:]

	// Each sub-image is padded up to a word boundary
	assert.Equal(t, uint32(HeaderSize+4), binary.BigEndian.Uint32(payload[0:]))
	assert.Equal(t, uint32(HeaderSize+8), binary.BigEndian.Uint32(payload[4:]))
	assert.Equal(t, uint32(0), binary.BigEndian.Uint32(payload[8:]))
	assert.Len(t, payload, 12+HeaderSize+4+HeaderSize+8)

	parsed, err := ParseMulti(data, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 5, 6, 7, 8}, parsed.Images()[1].(*Std).Data)
}

func TestMultiNested(t *testing.T) {
	outer := NewMulti()
	outer.Append(testMulti())
	outer.Append(NewStd([]byte("tail")))

	data, err := outer.Export()
	require.NoError(t, err)

	parsed, err := ParseMulti(data, 0)
	require.NoError(t, err)
	inner, ok := parsed.Images()[0].(*Multi)
	require.True(t, ok)
	assert.Equal(t, 2, inner.Len())
}

func TestMultiExportLeavesChildren(t *testing.T) {
	multi := testMulti()
	_, err := multi.Export()
	require.NoError(t, err)

	assert.Equal(t, uint32(0), multi.Images()[0].Header().DataSize)
}

func TestMultiEmptyChild(t *testing.T) {
	multi := NewMulti()
	multi.Append(NewStd(nil))

	_, err := multi.Export()
	var ee *EmptyPayloadError
	assert.True(t, errors.As(err, &ee))
}

func rewrap(t *testing.T, payload []byte) []byte {
	img := NewStd(payload)
	img.hdr.imageType = TypeMulti
	data, err := img.Export()
	require.NoError(t, err)
	return data
}

func TestMultiBadTable(t *testing.T) {
	t.Run("no terminator", func(t *testing.T) {
		_, err := ParseMulti(rewrap(t, []byte{0, 0, 0, 8, 0, 0}), 0)
		var fe *FormatError
		assert.True(t, errors.As(err, &fe))
	})

	t.Run("length too long", func(t *testing.T) {
		_, err := ParseMulti(rewrap(t, []byte{0, 0, 1, 0, 0, 0, 0, 0, 1, 2, 3, 4}), 0)
		var fe *FormatError
		assert.True(t, errors.As(err, &fe))
	})

	t.Run("child not an image", func(t *testing.T) {
		_, err := ParseMulti(rewrap(t, []byte{0, 0, 0, 4, 0, 0, 0, 0, 1, 2, 3, 4}), 0)
		var ne *NotAnImageError
		assert.True(t, errors.As(err, &ne))
		assert.Contains(t, err.Error(), "sub-image 0")
	})
}

func TestMultiEdit(t *testing.T) {
	multi := testMulti()

	img, err := multi.Pop(1)
	require.NoError(t, err)
	assert.IsType(t, &Script{}, img)
	assert.Equal(t, 1, multi.Len())

	_, err = multi.Pop(-1)
	assert.Error(t, err)

	multi.Clear()
	assert.Equal(t, 0, multi.Len())
}

func TestMultiDescribe(t *testing.T) {
	desc := Describe(testMulti())
	assert.Contains(t, desc, "Content:       2 Images\n#IMAGE[0]\n")
	assert.Contains(t, desc, "#IMAGE[1]\n")
	assert.Contains(t, desc, "Content:       3 Commands\n")
}
