// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>
package uenv

import (
	"fmt"
	"strings"
)

// Load adds the "key=value" lines in text to the variables. Whitespace
// around keys and values is trimmed, and blank lines and '#' comments are
// skipped.
func (v *Vars) Load(text string) error {
	offset := 0
	for i, raw := range strings.Split(text, "\n") {
		start := offset
		offset += len(raw) + 1

		line := strings.TrimSpace(strings.TrimRight(raw, "\x00"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return &FormatError{
				Offset: start,
				Msg:    fmt.Sprintf("line %d: expected key=value, got '%s'", i+1, line),
			}
		}
		if err := v.Set(key, strings.TrimSpace(value)); err != nil {
			return err
		}
	}

	return nil
}

func (v *Vars) store(sep string) string {
	var sb strings.Builder
	for _, k := range v.keys {
		sb.WriteString(k)
		sb.WriteString(sep)
		sb.WriteString(v.values[k])
		sb.WriteString("\n")
	}
	return sb.String()
}

// Store returns the blob as text which Load can read back. Its properties
// are listed in a comment header.
func (b *Blob) Store() string {
	redundant := "No"
	if b.Redundant {
		redundant = "Yes"
	}

	str := ""
	str += fmt.Sprintf("# Name:      %s\n", b.Name)
	str += fmt.Sprintf("# Size:      %d\n", b.Size)
	str += fmt.Sprintf("# Redundant: %s\n", redundant)
	str += "\n"
	str += b.store("=")
	return str
}
