// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>
package config

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/usedbytes/uboot-tools/lib/payload"
	"github.com/usedbytes/uboot-tools/lib/uenv"
	"github.com/usedbytes/uboot-tools/lib/uimage"
)

// Fields left out of a manifest get the same defaults as mkimage, except
// that an image with sub-images is a multi-image.
func (img *Image) applyDefaults() {
	if img.Type == 0 {
		if len(img.Images) != 0 {
			img.Type = uimage.TypeMulti
		} else {
			img.Type = uimage.TypeStandalone
		}
	}
	if img.OS == 0 {
		img.OS = uimage.OSLinux
	}
	if img.Arch == 0 {
		img.Arch = uimage.ArchARM
	}
}

// ApplyHeader copies the header fields of img into hdr
func (img *Image) ApplyHeader(hdr *uimage.Header) error {
	for _, err := range []error{
		hdr.SetName(img.Name),
		hdr.SetOS(img.OS),
		hdr.SetArch(img.Arch),
		hdr.SetType(img.Type),
		hdr.SetCompression(img.Compression),
	} {
		if err != nil {
			return err
		}
	}

	hdr.LoadAddr = img.LoadAddr
	hdr.EntryAddr = img.EntryAddr
	if img.Timestamp != 0 {
		hdr.Timestamp = img.Timestamp
	}

	return nil
}

// Build creates the image described by img. Data must already be loaded.
func (img *Image) Build() (uimage.Image, error) {
	img.applyDefaults()

	built := uimage.New(img.Type)
	if err := img.ApplyHeader(built.Header()); err != nil {
		return nil, errors.Wrapf(err, "image '%s'", img.Name)
	}

	switch v := built.(type) {
	case *uimage.Multi:
		if len(img.Images) == 0 {
			return nil, errors.Errorf("multi-image '%s' has no sub-images", img.Name)
		}
		for i, sub := range img.Images {
			child, err := sub.Build()
			if err != nil {
				return nil, errors.Wrapf(err, "sub-image %d", i)
			}
			v.Append(child)
		}
	case *uimage.Script:
		v.Load(string(img.Data))
	case *uimage.Firmware:
		data, err := img.payloadData()
		if err != nil {
			return nil, err
		}
		v.Data = data
	case *uimage.Std:
		data, err := img.payloadData()
		if err != nil {
			return nil, err
		}
		v.Data = data
	}

	return built, nil
}

func (img *Image) payloadData() ([]byte, error) {
	if !img.Compress || img.Compression == uimage.CompNone {
		return img.Data, nil
	}

	data, err := payload.Compress(img.Compression, img.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "compressing '%s'", img.DataFile)
	}
	return data, nil
}

// FromImage describes an existing image. With decompress set, compressed
// payloads are stored decompressed, and marked to be compressed again on
// Build.
func FromImage(built uimage.Image, decompress bool) (*Image, error) {
	hdr := built.Header()
	img := &Image{
		Name:        hdr.Name(),
		Type:        hdr.Type(),
		OS:          hdr.OS(),
		Arch:        hdr.Arch(),
		Compression: hdr.Compression(),
		LoadAddr:    hdr.LoadAddr,
		EntryAddr:   hdr.EntryAddr,
		Timestamp:   hdr.Timestamp,
	}

	var data []byte
	switch v := built.(type) {
	case *uimage.Multi:
		for i, child := range v.Images() {
			sub, err := FromImage(child, decompress)
			if err != nil {
				return nil, errors.Wrapf(err, "sub-image %d", i)
			}
			img.Images = append(img.Images, sub)
		}
		return img, nil
	case *uimage.Script:
		img.Data = []byte(v.Store())
		return img, nil
	case *uimage.Firmware:
		data = v.Data
	case *uimage.Std:
		data = v.Data
	}

	if decompress && img.Compression != uimage.CompNone && payload.Supported(img.Compression) {
		raw, err := payload.Decompress(img.Compression, data)
		if err != nil {
			return nil, errors.Wrapf(err, "decompressing '%s'", img.Name)
		}
		data = raw
		img.Compress = true
	}
	img.Data = data

	return img, nil
}

func (e *Env) keys() []string {
	extra := lo.Filter(lo.Keys(e.Vars), func(k string, _ int) bool {
		return !lo.Contains(e.order, k)
	})
	sort.Strings(extra)

	known := lo.Filter(e.order, func(k string, _ int) bool {
		_, ok := e.Vars[k]
		return ok
	})

	return append(known, extra...)
}

// Build creates the environment blob described by e. Text must already be
// loaded.
func (e *Env) Build() (*uenv.Blob, error) {
	size := e.Size
	if size == 0 {
		size = uenv.DefaultSize
	}

	blob := uenv.NewBlob(
		uenv.WithName(e.Name),
		uenv.WithSize(size),
		uenv.WithRedundant(e.Redundant),
		uenv.WithBigEndian(e.BigEndian),
		uenv.WithFill(e.Fill),
	)

	if err := blob.Load(e.Text); err != nil {
		return nil, errors.Wrapf(err, "loading '%s'", e.TextFile)
	}

	for _, k := range e.keys() {
		if err := blob.Set(k, e.Vars[k]); err != nil {
			return nil, err
		}
	}

	return blob, nil
}

// FromBlob describes an existing environment blob. The variables are
// kept in Text, to preserve their order.
func FromBlob(blob *uenv.Blob) *Env {
	return &Env{
		Name:      blob.Name,
		Size:      blob.Size,
		Redundant: blob.Redundant,
		BigEndian: blob.BigEndian,
		Fill:      blob.Fill,
		Text:      blob.Store(),
	}
}
