// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>

// Package payload compresses and decompresses image payloads according to
// the compression type recorded in the image header.
package payload

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/pgzip"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz/lzma"

	"github.com/usedbytes/uboot-tools/lib/uimage"
)

type UnsupportedError struct {
	Compression uimage.Compression
	Op          string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s not supported for %s", e.Op, e.Compression.Description())
}

type ReaderFunc func(r io.Reader) (io.Reader, error)
type WriterFunc func(w io.Writer) (io.WriteCloser, error)

type codec struct {
	ext    string
	reader ReaderFunc
	writer WriterFunc
}

func passReader(r io.Reader) (io.Reader, error) { return r, nil }

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func passWriter(w io.Writer) (io.WriteCloser, error) { return nopCloser{w}, nil }

func gzipReader(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) }

func gzipWriter(w io.Writer) (io.WriteCloser, error) {
	return pgzip.NewWriterLevel(w, pgzip.BestCompression)
}

func bzip2Reader(r io.Reader) (io.Reader, error) { return bzip2.NewReader(r, nil) }

func bzip2Writer(w io.Writer) (io.WriteCloser, error) {
	return bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.BestCompression})
}

func lzmaReader(r io.Reader) (io.Reader, error) { return lzma.NewReader(r) }

func lzmaWriter(w io.Writer) (io.WriteCloser, error) { return lzma.NewWriter(w) }

func lz4Reader(r io.Reader) (io.Reader, error) { return lz4.NewReader(r), nil }

func lz4Writer(w io.Writer) (io.WriteCloser, error) { return lz4.NewWriter(w), nil }

// lzo has no maintained Go implementation, so it only gets an extension
var codecs = map[uimage.Compression]codec{
	uimage.CompNone:  {"bin", passReader, passWriter},
	uimage.CompGzip:  {"gz", gzipReader, gzipWriter},
	uimage.CompBzip2: {"bz2", bzip2Reader, bzip2Writer},
	uimage.CompLZMA:  {"lzma", lzmaReader, lzmaWriter},
	uimage.CompLZO:   {"lzo", nil, nil},
	uimage.CompLZ4:   {"lz4", lz4Reader, lz4Writer},
}

// Extension returns the usual file extension for data compressed with c
func Extension(c uimage.Compression) string {
	if cd, ok := codecs[c]; ok {
		return cd.ext
	}
	return "bin"
}

func Supported(c uimage.Compression) bool {
	cd, ok := codecs[c]
	return ok && cd.reader != nil && cd.writer != nil
}

func Compress(c uimage.Compression, data []byte) ([]byte, error) {
	cd, ok := codecs[c]
	if !ok || cd.writer == nil {
		return nil, &UnsupportedError{Compression: c, Op: "compression"}
	}

	buf := &bytes.Buffer{}
	w, err := cd.writer(buf)
	if err != nil {
		return nil, errors.Wrap(err, c.String())
	}

	if _, err = w.Write(data); err != nil {
		w.Close()
		return nil, errors.Wrap(err, c.String())
	}

	if err = w.Close(); err != nil {
		return nil, errors.Wrap(err, c.String())
	}

	return buf.Bytes(), nil
}

func Decompress(c uimage.Compression, data []byte) ([]byte, error) {
	cd, ok := codecs[c]
	if !ok || cd.reader == nil {
		return nil, &UnsupportedError{Compression: c, Op: "decompression"}
	}

	r, err := cd.reader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, c.String())
	}

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, c.String())
	}

	if closer, ok := r.(io.Closer); ok {
		closer.Close()
	}

	return out, nil
}
