// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>

// Package uenv handles U-Boot environment variables, both as standalone
// CRC-protected blobs and embedded in raw firmware images.
package uenv

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Vars is an ordered set of environment variables. Keys keep the position
// of their first Set.
type Vars struct {
	keys   []string
	values map[string]string
}

func (v *Vars) Len() int { return len(v.keys) }

func (v *Vars) Keys() []string {
	return append([]string(nil), v.keys...)
}

func (v *Vars) Get(key string) (string, error) {
	val, ok := v.values[key]
	if !ok {
		return "", &KeyNotFoundError{Key: key}
	}
	return val, nil
}

func checkVar(key, value string) error {
	switch {
	case key == "":
		return &ValidationError{Key: key, Msg: "empty name"}
	case strings.ContainsAny(key, "=\x00"):
		return &ValidationError{Key: key, Msg: "name contains '=' or NUL"}
	case strings.ContainsRune(value, 0):
		return &ValidationError{Key: key, Msg: "value contains NUL"}
	}
	return nil
}

// Set adds a variable, or replaces its value. Names can't contain '=' or
// NUL, and values can't contain NUL.
func (v *Vars) Set(key, value string) error {
	if err := checkVar(key, value); err != nil {
		return err
	}
	if v.values == nil {
		v.values = make(map[string]string)
	}
	if _, ok := v.values[key]; !ok {
		v.keys = append(v.keys, key)
	}
	v.values[key] = value
	return nil
}

func (v *Vars) Delete(key string) error {
	if _, ok := v.values[key]; !ok {
		return &KeyNotFoundError{Key: key}
	}
	delete(v.values, key)
	v.keys = lo.Filter(v.keys, func(k string, _ int) bool {
		return k != key
	})
	return nil
}

func (v *Vars) Clear() {
	v.keys = nil
	v.values = nil
}

// Map returns a copy of the variables, without ordering
func (v *Vars) Map() map[string]string {
	return lo.SliceToMap(v.keys, func(k string) (string, string) {
		return k, v.values[k]
	})
}

// encodedLen is the number of bytes needed to store the variables as
// NUL-terminated records
func (v *Vars) encodedLen() int {
	return lo.Reduce(v.keys, func(n int, k string, _ int) int {
		return n + len(k) + len(v.values[k]) + 2
	}, 0)
}

func (v *Vars) records() []string {
	return lo.Map(v.keys, func(k string, _ int) string {
		return k + "=" + v.values[k]
	})
}

// setRecord stores one "key=value" record
func (v *Vars) setRecord(record string, offset int) error {
	key, value, ok := strings.Cut(record, "=")
	if !ok || key == "" {
		return &FormatError{Offset: offset, Msg: fmt.Sprintf("malformed variable '%s'", record)}
	}
	return v.Set(key, value)
}

func (v *Vars) String() string {
	var sb strings.Builder
	for _, k := range v.keys {
		fmt.Fprintf(&sb, "- %s = %s\n", k, v.values[k])
	}
	return sb.String()
}
