// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>
package payload

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usedbytes/uboot-tools/lib/uimage"
)

func TestRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("zImage zImage zImage "), 1000)

	for _, c := range []uimage.Compression{
		uimage.CompNone,
		uimage.CompGzip,
		uimage.CompBzip2,
		uimage.CompLZMA,
		uimage.CompLZ4,
	} {
		t.Run(c.String(), func(t *testing.T) {
			require.True(t, Supported(c))

			packed, err := Compress(c, data)
			require.NoError(t, err)
			if c != uimage.CompNone {
				assert.Less(t, len(packed), len(data))
			}

			unpacked, err := Decompress(c, packed)
			require.NoError(t, err)
			assert.Equal(t, data, unpacked)
		})
	}
}

func TestGzipMagic(t *testing.T) {
	packed, err := Compress(uimage.CompGzip, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1f, 0x8b}, packed[:2])
}

func TestUnsupported(t *testing.T) {
	assert.False(t, Supported(uimage.CompLZO))

	_, err := Compress(uimage.CompLZO, []byte{1})
	var ue *UnsupportedError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, uimage.CompLZO, ue.Compression)

	_, err = Decompress(uimage.Compression(42), []byte{1})
	assert.True(t, errors.As(err, &ue))
}

func TestDecompressCorrupt(t *testing.T) {
	_, err := Decompress(uimage.CompGzip, []byte("definitely not gzip"))
	assert.Error(t, err)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "gz", Extension(uimage.CompGzip))
	assert.Equal(t, "lzo", Extension(uimage.CompLZO))
	assert.Equal(t, "bin", Extension(uimage.CompNone))
	assert.Equal(t, "bin", Extension(uimage.Compression(99)))
}
