// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>
package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"github.com/usedbytes/log"

	"github.com/usedbytes/uboot-tools/lib/uenv"
)

func openEditor(ctx *cli.Context, nargs int) (*uenv.Editor, string, error) {
	if ctx.Args().Len() != nargs {
		return nil, "", fmt.Errorf("Expected %d arguments, got %d", nargs, ctx.Args().Len())
	}
	mark := ctx.Args().Get(0)
	fname := ctx.Args().Get(1)

	var opts []uenv.EditorOption
	if ctx.Bool("skip-marker") {
		opts = append(opts, uenv.WithSkipMarker())
	}
	if ctx.IsSet("capacity") {
		opts = append(opts, uenv.WithCapacity(ctx.Int("capacity")))
	}

	data, err := readFile(fname)
	if err != nil {
		return nil, fname, err
	}

	ed := uenv.NewEditor(mark, opts...)
	err = ed.Open(data)
	if err != nil {
		return nil, fname, err
	}
	log.Verbosef("Found '%s' at 0x%x, environment at 0x%x\n", mark, ed.MarkerOffset(), ed.Offset())

	return ed, fname, nil
}

func saveEditor(ed *uenv.Editor, fname string) error {
	data, err := ed.Export()
	if err != nil {
		return err
	}

	err = writeFile(fname, data)
	if err != nil {
		return err
	}

	log.Print(ed)
	log.Println("Updated Image:", fname)

	return nil
}

func envimgInfoAction(ctx *cli.Context) error {
	ed, _, err := openEditor(ctx, 2)
	if err != nil {
		return err
	}

	log.Print(ed)

	return nil
}

func envimgExportAction(ctx *cli.Context) error {
	ed, _, err := openEditor(ctx, 3)
	if err != nil {
		return err
	}

	fenv := ctx.Args().Get(2)
	err = writeFile(fenv, []byte(ed.Store()))
	if err != nil {
		return err
	}
	log.Println("Exported to:", fenv)

	return nil
}

func envimgUpdateAction(ctx *cli.Context) error {
	ed, fname, err := openEditor(ctx, 2)
	if err != nil {
		return err
	}

	if ctx.IsSet("file") {
		text, err := readFile(ctx.String("file"))
		if err != nil {
			return err
		}
		err = ed.Load(string(text))
		if err != nil {
			return err
		}
	}

	for _, kv := range ctx.StringSlice("env") {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || len(key) == 0 {
			return fmt.Errorf("Expected key=value, got '%s'", kv)
		}
		log.Verbosef("Setting %s=%s\n", key, value)
		err = ed.Set(strings.TrimSpace(key), strings.TrimSpace(value))
		if err != nil {
			return err
		}
	}

	if ed.State() != uenv.Dirty {
		log.Println("Nothing to update")
		return nil
	}

	return saveEditor(ed, fname)
}

func envimgReplaceAction(ctx *cli.Context) error {
	ed, fname, err := openEditor(ctx, 3)
	if err != nil {
		return err
	}

	text, err := readFile(ctx.Args().Get(2))
	if err != nil {
		return err
	}

	ed.Clear()
	err = ed.Load(string(text))
	if err != nil {
		return errors.Wrap(err, "Loading environment file")
	}

	return saveEditor(ed, fname)
}

func editorFlags(extra ...cli.Flag) []cli.Flag {
	return append([]cli.Flag{
		&cli.BoolFlag{
			Name:  "skip-marker",
			Usage: "The environment starts after MARK, rather than at it",
		},
		&cli.IntFlag{
			Name:    "capacity",
			Aliases: []string{"c"},
			Usage:   "Size of the environment region, instead of searching for its end",
		},
	}, extra...)
}

var envimgCommand = &cli.Command{
	Name:  "envimg",
	Usage: "Edit an environment embedded in a binary, found by a marker string",
	Subcommands: []*cli.Command{
		{
			Name:      "info",
			Usage:     "Print the embedded environment",
			ArgsUsage: "MARK FILE",
			Action:    envimgInfoAction,
			Flags:     editorFlags(),
		},
		{
			Name:      "export",
			Usage:     "Write the embedded environment to a text file",
			ArgsUsage: "MARK FILE FENV",
			Action:    envimgExportAction,
			Flags:     editorFlags(),
		},
		{
			Name:      "update",
			Usage:     "Add or change variables in the embedded environment",
			ArgsUsage: "MARK FILE",
			Action:    envimgUpdateAction,
			Flags: editorFlags(
				&cli.StringFlag{
					Name:    "file",
					Aliases: []string{"f"},
					Usage:   "Text file of key=value lines to merge in",
				},
				&cli.StringSliceFlag{
					Name:    "env",
					Aliases: []string{"e"},
					Usage:   "A key=value pair to set (may be repeated)",
				},
			),
		},
		{
			Name:      "replace",
			Usage:     "Replace the embedded environment with the contents of a text file",
			ArgsUsage: "MARK FILE FENV",
			Action:    envimgReplaceAction,
			Flags:     editorFlags(),
		},
	},
}
