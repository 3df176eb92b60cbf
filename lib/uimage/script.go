// SPDX-License-Identifier: MIT
// Copyright (c) 2020 Brian Starkey <stark3y@gmail.com>
package uimage

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const scriptFrameSize = 8

// Command is one line of a script: the command name, and everything after
// the first space.
type Command struct {
	Name  string
	Value string
}

func (c Command) String() string {
	if c.Value == "" {
		return c.Name
	}
	return c.Name + " " + c.Value
}

func parseCommand(line string) Command {
	name, value, _ := strings.Cut(line, " ")
	return Command{Name: name, Value: value}
}

// Script holds U-Boot shell commands, executed with the "source" command.
type Script struct {
	hdr      *Header
	commands []Command
}

func NewScript() *Script {
	hdr := NewHeader()
	hdr.imageType = TypeScript
	return &Script{hdr: hdr}
}

func (s *Script) Header() *Header { return s.hdr }

func (s *Script) Export() ([]byte, error) { return export(s) }

func (s *Script) Len() int { return len(s.commands) }

func (s *Script) Commands() []Command {
	return append([]Command(nil), s.commands...)
}

func (s *Script) Append(name, value string) {
	s.commands = append(s.commands, Command{Name: name, Value: value})
}

// Pop removes and returns the command at index
func (s *Script) Pop(index int) (Command, error) {
	if index < 0 || index >= len(s.commands) {
		return Command{}, errors.Errorf("command index %d out of range [0, %d)", index, len(s.commands))
	}
	cmd := s.commands[index]
	s.commands = append(s.commands[:index], s.commands[index+1:]...)
	return cmd, nil
}

func (s *Script) Clear() {
	s.commands = nil
}

// Load appends the commands in a human-edited script. Blank lines and
// lines starting with '#' are skipped.
func (s *Script) Load(text string) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\x00\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.commands = append(s.commands, parseCommand(line))
	}
}

// Store returns the commands as text suitable for Load.
func (s *Script) Store() string {
	return "# U-Boot Script\n\n" + s.text()
}

func (s *Script) text() string {
	var sb strings.Builder
	for _, cmd := range s.commands {
		sb.WriteString(cmd.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

func (s *Script) payload() ([]byte, error) {
	if len(s.commands) == 0 {
		return nil, &EmptyPayloadError{Kind: "script"}
	}

	text := s.text()
	data := make([]byte, scriptFrameSize, scriptFrameSize+len(text))
	binary.BigEndian.PutUint32(data[0:], uint32(len(text)))
	binary.BigEndian.PutUint32(data[4:], 0)

	return append(data, text...), nil
}

func (s *Script) summary() string {
	str := fmt.Sprintf("Content:       %d Commands\n", len(s.commands))
	for i, cmd := range s.commands {
		str += fmt.Sprintf("%3d) %s\n", i, cmd)
	}
	return str
}

// ParseScript parses a script image. Every encoded line is kept, including
// comments.
func ParseScript(data []byte, offset int) (*Script, error) {
	hdr, payload, err := parsePayload(data, offset)
	if err != nil {
		return nil, err
	}

	start := offset + HeaderSize
	if len(payload) < scriptFrameSize {
		return nil, &FormatError{
			Offset: start,
			Msg:    fmt.Sprintf("script payload too short (%d bytes)", len(payload)),
		}
	}

	length := binary.BigEndian.Uint32(payload[0:])
	if uint64(length) > uint64(len(payload)-scriptFrameSize) {
		return nil, &FormatError{
			Offset: start,
			Msg:    fmt.Sprintf("script length %d exceeds payload", length),
		}
	}

	script := &Script{hdr: hdr}

	text := string(payload[scriptFrameSize : scriptFrameSize+int(length)])
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return script, nil
	}

	for _, line := range strings.Split(text, "\n") {
		script.commands = append(script.commands, parseCommand(line))
	}

	return script, nil
}
