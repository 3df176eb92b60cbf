// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>

// Package config describes images and environments in TOML manifests, so
// that they can be built from, and extracted to, a set of plain files.
package config

import (
	"fmt"
	"strconv"

	"github.com/usedbytes/uboot-tools/lib/uimage"
)

func stringIfNotEmpty(prefix, val string) string {
	if len(val) > 0 {
		return fmt.Sprintf("%s %s\n", prefix, val)
	}
	return ""
}

// Image describes one image. Multi-images list their contents in Images.
type Image struct {
	Name        string             `toml:"name,omitempty"`
	Type        uimage.ImageType   `toml:"type"`
	OS          uimage.OS          `toml:"os"`
	Arch        uimage.Arch        `toml:"arch"`
	Compression uimage.Compression `toml:"compression"`
	// Compress the data file with Compression when building. Otherwise the
	// file is expected to be compressed already.
	Compress  bool     `toml:"compress"`
	LoadAddr  uint32   `toml:"load_address,omitzero"`
	EntryAddr uint32   `toml:"entry_address,omitzero"`
	Timestamp uint32   `toml:"timestamp,omitzero"`
	DataFile  string   `toml:"data_file,omitempty"`
	Images    []*Image `toml:"image,omitempty"`

	Data []byte `toml:"-"`
}

func (img *Image) string(indent string) string {
	var s string
	s += indent + "Image:\n"
	indent += "   "
	s += stringIfNotEmpty(indent+"Name:", img.Name)
	s += fmt.Sprintf("%sType: %s %s %s (%s)\n", indent, img.Arch, img.OS, img.Type, img.Compression)
	if img.LoadAddr != 0 || img.EntryAddr != 0 {
		s += fmt.Sprintf("%sLoad/Entry: 0x%08x/0x%08x\n", indent, img.LoadAddr, img.EntryAddr)
	}
	s += stringIfNotEmpty(indent+"DataFile:", img.DataFile)
	if len(img.Data) != 0 {
		s += fmt.Sprintf("%sSize: %d (0x%x) bytes\n", indent, len(img.Data), len(img.Data))
	}
	for _, sub := range img.Images {
		s += sub.string(indent)
	}
	return s
}

func (img *Image) String() string {
	return img.string("")
}

// Env describes an environment blob. Variables from TextFile are loaded
// first, then Vars in the order they appear in the manifest.
type Env struct {
	Name      string            `toml:"name,omitempty"`
	Size      int               `toml:"size,omitzero"`
	Redundant bool              `toml:"redundant"`
	BigEndian bool              `toml:"big_endian"`
	Fill      uint8             `toml:"fill,omitzero"`
	TextFile  string            `toml:"text_file,omitempty"`
	Vars      map[string]string `toml:"vars,omitempty"`

	Text  string `toml:"-"`
	order []string
}

func (e *Env) String() string {
	var s string
	s += "Env:\n"
	s += stringIfNotEmpty("   Name:", e.Name)
	if e.Size != 0 {
		s += fmt.Sprintf("   Size: %d bytes\n", e.Size)
	}
	s += fmt.Sprintf("   Redundant: %s\n", strconv.FormatBool(e.Redundant))
	s += fmt.Sprintf("   BigEndian: %s\n", strconv.FormatBool(e.BigEndian))
	s += stringIfNotEmpty("   TextFile:", e.TextFile)
	for _, k := range e.keys() {
		s += fmt.Sprintf("   %s=%s\n", k, e.Vars[k])
	}
	return s
}

type Config struct {
	Image *Image `toml:"image,omitempty"`
	Env   *Env   `toml:"env,omitempty"`
}
