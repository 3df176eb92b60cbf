// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"github.com/usedbytes/log"

	"github.com/usedbytes/uboot-tools/lib/config"
	"github.com/usedbytes/uboot-tools/lib/payload"
	"github.com/usedbytes/uboot-tools/lib/uimage"
)

const scanChunk = 1 << 20

func loadImage(ctx *cli.Context) (uimage.Image, string, error) {
	if ctx.Args().Len() != 1 {
		return nil, "", fmt.Errorf("FILE is required")
	}
	fname := ctx.Args().First()

	data, err := readFile(fname)
	if err != nil {
		return nil, fname, err
	}

	offset, err := uint32Flag(ctx, "offset")
	if err != nil {
		return nil, fname, err
	}

	img, err := uimage.ParseImage(data, int(offset))
	if err != nil {
		return nil, fname, err
	}

	log.Verbosef("Header:\n%s", hex.Dump(img.Header().Export()))

	return img, fname, nil
}

func imgInfoAction(ctx *cli.Context) error {
	img, _, err := loadImage(ctx)
	if err != nil {
		return err
	}

	log.Print(uimage.Describe(img))

	return nil
}

func headerFromFlags(ctx *cli.Context) (*config.Image, error) {
	var err error
	desc := &config.Image{
		Name:     ctx.String("name"),
		Compress: ctx.Bool("compress"),
	}

	if desc.Arch, err = uimage.ParseArch(ctx.String("arch")); err != nil {
		return nil, err
	}
	if desc.OS, err = uimage.ParseOS(ctx.String("os")); err != nil {
		return nil, err
	}
	if desc.Type, err = uimage.ParseImageType(ctx.String("type")); err != nil {
		return nil, err
	}
	if desc.Compression, err = uimage.ParseCompression(ctx.String("compression")); err != nil {
		return nil, err
	}
	if desc.LoadAddr, err = uint32Flag(ctx, "load"); err != nil {
		return nil, err
	}
	if desc.EntryAddr, err = uint32Flag(ctx, "entry"); err != nil {
		return nil, err
	}

	return desc, nil
}

func createFromFlags(ctx *cli.Context, infiles []string) (uimage.Image, error) {
	desc, err := headerFromFlags(ctx)
	if err != nil {
		return nil, err
	}

	if len(infiles) == 0 {
		return nil, fmt.Errorf("At least one INFILE is required")
	}

	if desc.Type != uimage.TypeMulti {
		if len(infiles) > 1 {
			log.Println("Only the first INFILE is used for a", desc.Type, "image")
		}
		desc.DataFile = infiles[0]
		desc.Data, err = readFile(infiles[0])
		if err != nil {
			return nil, err
		}
		return desc.Build()
	}

	// Multi-image contents are existing images, not raw data
	multi := uimage.NewMulti()
	if err := desc.ApplyHeader(multi.Header()); err != nil {
		return nil, err
	}

	for _, fname := range infiles {
		data, err := readFile(fname)
		if err != nil {
			return nil, err
		}

		child, err := uimage.ParseImage(data, 0)
		if err != nil {
			return nil, errors.Wrapf(err, "Parsing '%s'", fname)
		}
		log.Verbosef("Adding %s image '%s' from %s\n", child.Header().Type(), child.Header().Name(), fname)
		multi.Append(child)
	}

	return multi, nil
}

func imgCreateAction(ctx *cli.Context) error {
	if ctx.Args().Len() < 1 {
		return fmt.Errorf("OUTFILE is required")
	}
	outfile := ctx.Args().First()

	var img uimage.Image
	if ctx.IsSet("manifest") {
		cfg, err := config.Load(ctx.String("manifest"))
		if err != nil {
			return err
		}
		if cfg.Image == nil {
			return fmt.Errorf("Manifest has no [image] section")
		}
		log.Verboseln(cfg.Image)

		img, err = cfg.Image.Build()
		if err != nil {
			return err
		}
	} else {
		var err error
		img, err = createFromFlags(ctx, ctx.Args().Tail())
		if err != nil {
			return err
		}
	}

	data, err := img.Export()
	if err != nil {
		return err
	}

	err = writeFile(outfile, data)
	if err != nil {
		return err
	}

	log.Print(uimage.Describe(img))
	log.Println("Created Image:", outfile)

	return nil
}

func extractFiles(img uimage.Image, dir string, decompress bool) error {
	switch v := img.(type) {
	case *uimage.Multi:
		for i, child := range v.Images() {
			data, err := child.Export()
			if err != nil {
				return errors.Wrapf(err, "sub-image %d", i)
			}
			err = writeFile(filepath.Join(dir, fmt.Sprintf("image_%02d.bin", i)), data)
			if err != nil {
				return err
			}
		}
	case *uimage.Script:
		return writeFile(filepath.Join(dir, "script.txt"), []byte(v.Store()))
	default:
		var data []byte
		switch v := img.(type) {
		case *uimage.Firmware:
			data = v.Data
		case *uimage.Std:
			data = v.Data
		}

		comp := img.Header().Compression()
		ext := payload.Extension(comp)
		if decompress && comp != uimage.CompNone {
			raw, err := payload.Decompress(comp, data)
			if err != nil {
				return err
			}
			data = raw
			ext = "bin"
		}

		return writeFile(filepath.Join(dir, "image."+ext), data)
	}

	return nil
}

func imgExtractAction(ctx *cli.Context) error {
	img, fname, err := loadImage(ctx)
	if err != nil {
		return err
	}

	dir := ctx.String("dir")
	if len(dir) == 0 {
		dir = fname + ".ex"
	}

	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return errors.Wrap(err, "Creating output directory")
	}

	info := uimage.Describe(img)

	if ctx.Bool("manifest") {
		desc, err := config.FromImage(img, ctx.Bool("decompress"))
		if err != nil {
			return err
		}

		base := strings.TrimSuffix(filepath.Base(fname), filepath.Ext(fname))
		manifest := filepath.Join(dir, base+".toml")
		err = (&config.Config{Image: desc}).Write(manifest)
		if err != nil {
			return err
		}
		log.Println("Wrote manifest:", manifest)
	} else {
		err = extractFiles(img, dir, ctx.Bool("decompress"))
		if err != nil {
			return err
		}
	}

	err = writeFile(filepath.Join(dir, "info.txt"), []byte(info))
	if err != nil {
		return err
	}

	log.Print(info)
	log.Println("Extracted to:", dir)

	return nil
}

type scanResult struct {
	offset int
	hdr    *uimage.Header
	err    error
}

func scanImages(data []byte, bar *pb.ProgressBar) []scanResult {
	var found []scanResult

	for off := 0; off+uimage.HeaderSize <= len(data); {
		end := off + scanChunk + uimage.HeaderSize
		if end > len(data) {
			end = len(data)
		}

		_, pos, err := uimage.ScanForHeader(data[:end], off)
		if err != nil {
			off += scanChunk + 4
			bar.SetCurrent(int64(off))
			continue
		}

		hdr, _ := uimage.ParseHeader(data, pos)
		_, err = uimage.ParseImage(data, pos)
		found = append(found, scanResult{offset: pos, hdr: hdr, err: err})

		off = pos + 4
		bar.SetCurrent(int64(off))
	}

	return found
}

func imgScanAction(ctx *cli.Context) error {
	if ctx.Args().Len() != 1 {
		return fmt.Errorf("FILE is required")
	}

	data, err := readFile(ctx.Args().First())
	if err != nil {
		return err
	}

	bar := pb.Full.Start64(int64(len(data)))
	found := scanImages(data, bar)
	bar.SetCurrent(int64(len(data)))
	bar.Finish()

	if len(found) == 0 {
		return &uimage.NotAnImageError{Offset: 0}
	}

	for _, res := range found {
		status := "OK"
		if res.err != nil {
			status = res.err.Error()
		}
		log.Printf("0x%08x: %-10s %-24s %8d bytes  %s\n", res.offset,
			res.hdr.Type(), fmt.Sprintf("'%s'", res.hdr.Name()), res.hdr.DataSize, status)
	}

	return nil
}

var offsetFlag = &cli.Uint64Flag{
	Name:     "offset",
	Aliases:  []string{"o"},
	Usage:    "Offset of the image header in FILE",
	Required: false,
	Value:    0,
}

var imgCommand = &cli.Command{
	Name:  "img",
	Usage: "Work with legacy U-Boot images (uImage)",
	Subcommands: []*cli.Command{
		{
			Name:      "info",
			Usage:     "Print a summary of an image",
			ArgsUsage: "FILE",
			Action:    imgInfoAction,
			Flags:     []cli.Flag{offsetFlag},
		},
		{
			Name:      "create",
			Usage:     "Create an image from data files, or from a TOML manifest",
			ArgsUsage: "OUTFILE [INFILES...]",
			Action:    imgCreateAction,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "arch",
					Aliases: []string{"A"},
					Usage:   "Architecture: " + strings.Join(uimage.ArchNames(), ", "),
					Value:   "arm",
				},
				&cli.StringFlag{
					Name:    "os",
					Aliases: []string{"O"},
					Usage:   "Operating system: " + strings.Join(uimage.OSNames(), ", "),
					Value:   "linux",
				},
				&cli.StringFlag{
					Name:    "type",
					Aliases: []string{"T"},
					Usage:   "Image type: " + strings.Join(uimage.ImageTypeNames(), ", "),
					Value:   "firmware",
				},
				&cli.StringFlag{
					Name:    "compression",
					Aliases: []string{"C"},
					Usage:   "Compression: " + strings.Join(uimage.CompressionNames(), ", "),
					Value:   "none",
				},
				&cli.BoolFlag{
					Name:  "compress",
					Usage: "Compress the data file, instead of expecting it to be compressed already",
				},
				&cli.Uint64Flag{
					Name:    "load",
					Aliases: []string{"a"},
					Usage:   "Load address",
				},
				&cli.Uint64Flag{
					Name:    "entry",
					Aliases: []string{"e"},
					Usage:   "Entry point address",
				},
				&cli.StringFlag{
					Name:    "name",
					Aliases: []string{"n"},
					Usage:   "Image name (max 32 bytes)",
				},
				&cli.StringFlag{
					Name:    "manifest",
					Aliases: []string{"m"},
					Usage:   "Build from a TOML manifest, ignoring the other flags",
				},
			},
		},
		{
			Name:      "extract",
			Usage:     "Extract the contents of an image",
			ArgsUsage: "FILE",
			Action:    imgExtractAction,
			Flags: []cli.Flag{
				offsetFlag,
				&cli.StringFlag{
					Name:    "dir",
					Aliases: []string{"d"},
					Usage:   "Output directory (default FILE.ex)",
				},
				&cli.BoolFlag{
					Name:    "decompress",
					Aliases: []string{"x"},
					Usage:   "Decompress compressed payloads",
				},
				&cli.BoolFlag{
					Name:    "manifest",
					Aliases: []string{"m"},
					Usage:   "Write a TOML manifest which 'create' can rebuild the image from",
				},
			},
		},
		{
			Name:      "scan",
			Usage:     "Search a file (e.g. a flash dump) for image headers",
			ArgsUsage: "FILE",
			Action:    imgScanAction,
		},
	},
}
