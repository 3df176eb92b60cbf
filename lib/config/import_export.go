// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>
package config

import (
	"fmt"
	"hash/crc32"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/usedbytes/uboot-tools/lib/payload"
	"github.com/usedbytes/uboot-tools/lib/uimage"
)

func replaceFilenameChars(in string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' {
			return '_'
		}

		if strings.ContainsRune("\t\n\f\r%<>/'\"\\`:{}()$+*?|@!", r) {
			return -1
		}

		return r
	}, in)
}

func resolve(dir, file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}

func (img *Image) extension() string {
	if img.Type == uimage.TypeScript {
		return "txt"
	}
	if img.Compress {
		return "bin"
	}
	return payload.Extension(img.Compression)
}

// GenerateFilenames names a data file for every image which has data,
// based on base and a hash of the data.
func (img *Image) GenerateFilenames(base string) {
	parts := []string{base}
	if len(img.Name) != 0 {
		parts = append(parts, img.Name)
	}
	name := strings.Join(parts, "_")

	if len(img.Data) != 0 {
		hash := crc32.ChecksumIEEE(img.Data)
		fname := fmt.Sprintf("%s.%08x.%s", name, hash, img.extension())
		img.DataFile = replaceFilenameChars(fname)
	}

	for i, sub := range img.Images {
		sub.GenerateFilenames(fmt.Sprintf("%s.%d", base, i))
	}
}

func (e *Env) GenerateFilenames(base string) {
	if len(e.Text) == 0 {
		return
	}

	hash := crc32.ChecksumIEEE([]byte(e.Text))
	e.TextFile = replaceFilenameChars(fmt.Sprintf("%s.%08x.env.txt", base, hash))
}

func (c *Config) GenerateFilenames(base string) {
	if c.Image != nil {
		c.Image.GenerateFilenames(base)
	}
	if c.Env != nil {
		c.Env.GenerateFilenames(base)
	}
}

// LoadData reads every data file named in img. Relative paths are relative
// to dir.
func (img *Image) LoadData(dir string) error {
	if len(img.DataFile) != 0 {
		data, err := ioutil.ReadFile(resolve(dir, img.DataFile))
		if err != nil {
			return errors.Wrapf(err, "reading image data")
		}
		img.Data = data
	}

	for _, sub := range img.Images {
		if err := sub.LoadData(dir); err != nil {
			return err
		}
	}

	return nil
}

func (e *Env) LoadData(dir string) error {
	if len(e.TextFile) != 0 {
		data, err := ioutil.ReadFile(resolve(dir, e.TextFile))
		if err != nil {
			return errors.Wrapf(err, "reading environment text")
		}
		e.Text = string(data)
	}

	return nil
}

func (c *Config) LoadData(dir string) error {
	if c.Image != nil {
		if err := c.Image.LoadData(dir); err != nil {
			return err
		}
	}
	if c.Env != nil {
		if err := c.Env.LoadData(dir); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(file string, data []byte, written *[]string) error {
	if err := ioutil.WriteFile(file, data, 0644); err != nil {
		return err
	}
	*written = append(*written, file)
	return nil
}

func (img *Image) writeData(dir string, written *[]string) error {
	if len(img.Data) != 0 {
		if len(img.DataFile) == 0 {
			return errors.New("can't write Data - no filename")
		}
		if err := writeFile(resolve(dir, img.DataFile), img.Data, written); err != nil {
			return err
		}
	}

	for _, sub := range img.Images {
		if err := sub.writeData(dir, written); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) writeData(dir string, written *[]string) error {
	if c.Image != nil {
		if err := c.Image.writeData(dir, written); err != nil {
			return err
		}
	}

	if c.Env != nil && len(c.Env.Text) != 0 {
		if len(c.Env.TextFile) == 0 {
			return errors.New("can't write Text - no filename")
		}
		if err := writeFile(resolve(dir, c.Env.TextFile), []byte(c.Env.Text), written); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) WriteTOML(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}

	enc := toml.NewEncoder(f)
	err = enc.Encode(c)
	if err != nil {
		f.Close()
		return err
	}

	err = f.Close()
	return err
}

// Write stores c in filename, with its data files alongside and named
// after it. If anything fails, the files written so far are removed.
func (c *Config) Write(filename string) error {
	dir := filepath.Dir(filename)
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	c.GenerateFilenames(base)

	var written []string
	fail := true
	defer func() {
		if fail {
			for _, f := range written {
				os.Remove(f)
			}
		}
	}()

	if err := c.writeData(dir, &written); err != nil {
		return err
	}

	if err := c.WriteTOML(filename); err != nil {
		return err
	}

	fail = false
	return nil
}

// Load reads a manifest and all of the files it refers to.
func Load(filename string) (*Config, error) {
	var cfg = &Config{}
	md, err := toml.DecodeFile(filename, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Env != nil {
		for _, key := range md.Keys() {
			if len(key) == 3 && key[0] == "env" && key[1] == "vars" {
				cfg.Env.order = append(cfg.Env.order, key[2])
			}
		}
	}

	abs, err := filepath.Abs(filename)
	if err != nil {
		return nil, errors.New("couldn't determine absolute path")
	}

	err = cfg.LoadData(filepath.Dir(abs))
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
