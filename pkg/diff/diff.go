// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package diff renders the change between two snippet revisions as a
// unified diff.
//
// The line-level edit script comes from a standard LCS computation;
// the unified text is then parsed back through sourcegraph/go-diff so
// callers get structured hunks with verified headers rather than a
// hand-assembled approximation.
package diff

import (
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// contextLines is how many unchanged lines surround each hunk.
const contextLines = 3

// Hunk is one contiguous region of change.
type Hunk struct {
	OldStart int      `json:"old_start"`
	OldLines int      `json:"old_lines"`
	NewStart int      `json:"new_start"`
	NewLines int      `json:"new_lines"`
	Body     []string `json:"body"`
}

// Unified renders the diff between old and new content as unified diff
// text with the given from/to labels. Identical inputs yield "".
func Unified(oldContent, newContent, fromLabel, toLabel string) string {
	if oldContent == newContent {
		return ""
	}

	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)
	ops := diffLines(oldLines, newLines)
	hunks := groupHunks(ops)
	if len(hunks) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n", fromLabel)
	fmt.Fprintf(&b, "+++ %s\n", toLabel)
	for _, h := range hunks {
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldLines, h.NewStart, h.NewLines)
		for _, line := range h.Body {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Hunks computes the structured diff between two revisions. The unified
// text is round-tripped through the go-diff parser, which validates the
// hunk headers against the body.
func Hunks(oldContent, newContent string) ([]Hunk, error) {
	text := Unified(oldContent, newContent, "old", "new")
	if text == "" {
		return nil, nil
	}

	fd, err := godiff.ParseFileDiff([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("parse generated diff: %w", err)
	}

	hunks := make([]Hunk, 0, len(fd.Hunks))
	for _, h := range fd.Hunks {
		body := strings.Split(strings.TrimSuffix(string(h.Body), "\n"), "\n")
		hunks = append(hunks, Hunk{
			OldStart: int(h.OrigStartLine),
			OldLines: int(h.OrigLines),
			NewStart: int(h.NewStartLine),
			NewLines: int(h.NewLines),
			Body:     body,
		})
	}
	return hunks, nil
}

// op is one line of the edit script.
type op struct {
	kind    byte // ' ', '-', '+'
	line    string
	oldLine int // 1-based position in the old content, 0 for '+'
	newLine int // 1-based position in the new content, 0 for '-'
}

// diffLines computes the line edit script via LCS.
func diffLines(oldLines, newLines []string) []op {
	n, m := len(oldLines), len(newLines)

	// lcs[i][j] is the LCS length of oldLines[i:] and newLines[j:].
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if oldLines[i] == newLines[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var ops []op
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case oldLines[i] == newLines[j]:
			ops = append(ops, op{kind: ' ', line: oldLines[i], oldLine: i + 1, newLine: j + 1})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			ops = append(ops, op{kind: '-', line: oldLines[i], oldLine: i + 1})
			i++
		default:
			ops = append(ops, op{kind: '+', line: newLines[j], newLine: j + 1})
			j++
		}
	}
	for ; i < n; i++ {
		ops = append(ops, op{kind: '-', line: oldLines[i], oldLine: i + 1})
	}
	for ; j < m; j++ {
		ops = append(ops, op{kind: '+', line: newLines[j], newLine: j + 1})
	}
	return ops
}

// groupHunks folds the edit script into hunks with context lines.
func groupHunks(ops []op) []Hunk {
	var hunks []Hunk

	// Indices of ops that are changes.
	var changes []int
	for idx, o := range ops {
		if o.kind != ' ' {
			changes = append(changes, idx)
		}
	}
	if len(changes) == 0 {
		return nil
	}

	start := changes[0] - contextLines
	if start < 0 {
		start = 0
	}
	end := changes[0]

	flush := func(from, to int) {
		h := Hunk{}
		for k := from; k <= to; k++ {
			o := ops[k]
			if o.kind != '+' {
				if h.OldStart == 0 && o.oldLine > 0 {
					h.OldStart = o.oldLine
				}
				h.OldLines++
			}
			if o.kind != '-' {
				if h.NewStart == 0 && o.newLine > 0 {
					h.NewStart = o.newLine
				}
				h.NewLines++
			}
			h.Body = append(h.Body, string(o.kind)+o.line)
		}
		// Pure insertions at the top of the file have no old lines;
		// unified format pins them to line 0/1 boundaries.
		if h.OldStart == 0 {
			h.OldStart = 1
			if h.OldLines == 0 {
				h.OldStart = 0
			}
		}
		if h.NewStart == 0 {
			h.NewStart = 1
			if h.NewLines == 0 {
				h.NewStart = 0
			}
		}
		hunks = append(hunks, h)
	}

	for _, c := range changes[1:] {
		// Merge when gaps are within twice the context width.
		if c-end <= 2*contextLines {
			end = c
			continue
		}
		stop := end + contextLines
		if stop >= len(ops) {
			stop = len(ops) - 1
		}
		flush(start, stop)
		start = c - contextLines
		if start < 0 {
			start = 0
		}
		end = c
	}
	stop := end + contextLines
	if stop >= len(ops) {
		stop = len(ops) - 1
	}
	flush(start, stop)

	return hunks
}

// splitLines splits content into lines without the trailing newline
// producing a phantom empty line.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
