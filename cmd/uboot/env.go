// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>
package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"github.com/usedbytes/log"

	"github.com/usedbytes/uboot-tools/lib/config"
	"github.com/usedbytes/uboot-tools/lib/uenv"
)

func loadBlob(ctx *cli.Context) (*uenv.Blob, string, error) {
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
	if int(offset) > len(data) {
		return nil, fname, fmt.Errorf("offset 0x%x is past the end of %s", offset, fname)
	}

	// The size is only a limit: a shorter file is taken as it is
	end := len(data)
	if size := ctx.Int("size"); size > 0 && int(offset)+size < end {
		end = int(offset) + size
	}
	log.Verbosef("Environment at 0x%x, %d bytes\n", offset, end-int(offset))

	blob, err := uenv.ParseBlob(data[:end], int(offset), ctx.Bool("big-endian"))
	if err != nil {
		return nil, fname, err
	}
	blob.Name = filepath.Base(fname)

	return blob, fname, nil
}

func envInfoAction(ctx *cli.Context) error {
	blob, _, err := loadBlob(ctx)
	if err != nil {
		return err
	}

	log.Print(blob)

	return nil
}

func envExtractAction(ctx *cli.Context) error {
	blob, fname, err := loadBlob(ctx)
	if err != nil {
		return err
	}

	if ctx.Bool("manifest") {
		manifest := strings.TrimSuffix(fname, filepath.Ext(fname)) + ".toml"
		err = (&config.Config{Env: config.FromBlob(blob)}).Write(manifest)
		if err != nil {
			return err
		}
		log.Println("Wrote manifest:", manifest)
		return nil
	}

	outfile := ctx.String("output")
	if len(outfile) == 0 {
		outfile = fname + ".txt"
	}

	err = writeFile(outfile, []byte(blob.Store()))
	if err != nil {
		return err
	}
	log.Println("Extracted to:", outfile)

	return nil
}

func blobFromFlags(ctx *cli.Context, infile string) (*uenv.Blob, error) {
	fill := ctx.Uint("fill")
	if fill > 0xff {
		return nil, fmt.Errorf("--fill 0x%x doesn't fit in a byte", fill)
	}

	blob := uenv.NewBlob(
		uenv.WithName(ctx.String("name")),
		uenv.WithSize(ctx.Int("size")),
		uenv.WithRedundant(ctx.Bool("redundant")),
		uenv.WithBigEndian(ctx.Bool("big-endian")),
		uenv.WithFill(byte(fill)),
	)

	text, err := readFile(infile)
	if err != nil {
		return nil, err
	}

	err = blob.Load(string(text))
	if err != nil {
		return nil, err
	}

	return blob, nil
}

func envCreateAction(ctx *cli.Context) error {
	var blob *uenv.Blob
	var outfile string

	if ctx.IsSet("manifest") {
		if ctx.Args().Len() != 1 {
			return fmt.Errorf("OUTFILE is required")
		}
		outfile = ctx.Args().First()

		cfg, err := config.Load(ctx.String("manifest"))
		if err != nil {
			return err
		}
		if cfg.Env == nil {
			return fmt.Errorf("Manifest has no [env] section")
		}
		log.Verboseln(cfg.Env)

		blob, err = cfg.Env.Build()
		if err != nil {
			return err
		}
	} else {
		if ctx.Args().Len() != 2 {
			return fmt.Errorf("INFILE and OUTFILE are required")
		}
		outfile = ctx.Args().Get(1)

		var err error
		blob, err = blobFromFlags(ctx, ctx.Args().First())
		if err != nil {
			return err
		}
	}

	data, err := blob.Export()
	if err != nil {
		return err
	}

	err = writeFile(outfile, data)
	if err != nil {
		return err
	}

	log.Print(blob)
	log.Println("Created Environment:", outfile)

	return nil
}

var bigEndianFlag = &cli.BoolFlag{
	Name:    "big-endian",
	Aliases: []string{"b"},
	Usage:   "The CRC is stored big-endian",
}

var sizeFlag = &cli.IntFlag{
	Name:    "size",
	Aliases: []string{"s"},
	Usage:   "Total size of the environment, in bytes",
	Value:   uenv.DefaultSize,
}

var envCommand = &cli.Command{
	Name:  "env",
	Usage: "Work with U-Boot environment blobs",
	Subcommands: []*cli.Command{
		{
			Name:      "info",
			Usage:     "Print the contents of an environment blob",
			ArgsUsage: "FILE",
			Action:    envInfoAction,
			Flags:     []cli.Flag{bigEndianFlag, offsetFlag, sizeFlag},
		},
		{
			Name:      "extract",
			Usage:     "Write the variables of an environment blob to a text file",
			ArgsUsage: "FILE",
			Action:    envExtractAction,
			Flags: []cli.Flag{
				bigEndianFlag, offsetFlag, sizeFlag,
				&cli.StringFlag{
					Name:  "output",
					Usage: "Output text file (default FILE.txt)",
				},
				&cli.BoolFlag{
					Name:    "manifest",
					Aliases: []string{"m"},
					Usage:   "Write a TOML manifest which 'create' can rebuild the blob from",
				},
			},
		},
		{
			Name:      "create",
			Usage:     "Create an environment blob from a text file of key=value lines",
			ArgsUsage: "INFILE OUTFILE",
			Action:    envCreateAction,
			Flags: []cli.Flag{
				bigEndianFlag, sizeFlag,
				&cli.BoolFlag{
					Name:    "redundant",
					Aliases: []string{"r"},
					Usage:   "Create a redundant environment, with a flag byte after the CRC",
				},
				&cli.UintFlag{
					Name:  "fill",
					Usage: "Value of the padding bytes",
				},
				&cli.StringFlag{
					Name:    "name",
					Aliases: []string{"n"},
					Usage:   "Name shown in the summary",
				},
				&cli.StringFlag{
					Name:    "manifest",
					Aliases: []string{"m"},
					Usage:   "Build from a TOML manifest, ignoring INFILE and the other flags",
				},
			},
		},
	},
}
