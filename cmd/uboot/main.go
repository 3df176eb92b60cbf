// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>
package main

import (
	"fmt"
	"io/ioutil"
	"math"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"github.com/usedbytes/log"
)

func readFile(fname string) ([]byte, error) {
	data, err := ioutil.ReadFile(fname)
	if err != nil {
		return nil, errors.Wrap(err, "Reading input file")
	}
	return data, nil
}

func writeFile(fname string, data []byte) error {
	err := ioutil.WriteFile(fname, data, 0644)
	if err != nil {
		return errors.Wrap(err, "Writing output file")
	}
	return nil
}

func uint32Flag(ctx *cli.Context, name string) (uint32, error) {
	val := ctx.Uint64(name)
	if val > math.MaxUint32 {
		return 0, fmt.Errorf("--%s 0x%x doesn't fit in 32 bits", name, val)
	}
	return uint32(val), nil
}

func main() {
	app := &cli.App{
		Name:  "uboot",
		Usage: "A tool for working with U-Boot images and environments",
		// Just ignore errors - we'll handle them ourselves in main()
		ExitErrHandler: func(c *cli.Context, e error) {},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:     "verbose",
				Aliases:  []string{"v"},
				Usage:    "Enable more output",
				Required: false,
				Value:    false,
			},
		},
	}

	app.Commands = []*cli.Command{
		imgCommand,
		envCommand,
		envimgCommand,
	}

	app.Before = func(ctx *cli.Context) error {
		log.SetUseLog(false)

		log.SetVerbose(ctx.Bool("verbose"))
		log.Verboseln("Extra output enabled.")
		return nil
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Println("ERROR:", err)
		if v, ok := err.(cli.ExitCoder); ok {
			os.Exit(v.ExitCode())
		} else {
			os.Exit(1)
		}
	}
}
