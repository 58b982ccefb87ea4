// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

package command

import (
	"strings"

	"github.com/samber/oops"
)

// ParsedCommand represents a parsed command input.
type ParsedCommand struct {
	Name string // command keyword (first space-delimited token)
	Args string // unparsed argument string (preserves internal whitespace)
	Raw  string // original input
}

// Parse splits one input line into command keyword and argument string.
// The keyword is the run of non-space bytes starting at position 0.
// Exactly one separator space is skipped; everything after it, including
// further spaces, belongs to the argument. Individual commands own any
// sub-parsing of the argument string.
func Parse(input string) (*ParsedCommand, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, oops.Code(CodeEmptyInput).Errorf("no command provided")
	}

	idx := strings.IndexByte(trimmed, ' ')
	if idx == -1 {
		return &ParsedCommand{
			Name: trimmed,
			Args: "",
			Raw:  input,
		}, nil
	}

	return &ParsedCommand{
		Name: trimmed[:idx],
		Args: trimmed[idx+1:],
		Raw:  input,
	}, nil
}

// SplitArg splits an argument string at the first space, skipping exactly
// one separator. Commands like login and send use it to peel a username or
// target off the front of their argument.
func SplitArg(arg string) (head, rest string) {
	idx := strings.IndexByte(arg, ' ')
	if idx == -1 {
		return arg, ""
	}
	return arg[:idx], arg[idx+1:]
}
