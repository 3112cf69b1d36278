// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnifiedIdentical(t *testing.T) {
	require.Empty(t, Unified("same\ncontent\n", "same\ncontent\n", "a", "b"))
}

func TestUnifiedSimpleChange(t *testing.T) {
	oldC := "line one\nline two\nline three\n"
	newC := "line one\nline 2\nline three\n"

	text := Unified(oldC, newC, "v1", "v2")
	require.Contains(t, text, "--- v1")
	require.Contains(t, text, "+++ v2")
	require.Contains(t, text, "-line two")
	require.Contains(t, text, "+line 2")
	require.Contains(t, text, " line one")
}

func TestHunksRoundTrip(t *testing.T) {
	oldC := strings.Join([]string{
		"package main",
		"",
		"func main() {",
		"\tprintln(\"hello\")",
		"}",
	}, "\n") + "\n"
	newC := strings.Join([]string{
		"package main",
		"",
		"func main() {",
		"\tprintln(\"hello, world\")",
		"}",
	}, "\n") + "\n"

	hunks, err := Hunks(oldC, newC)
	require.NoError(t, err)
	require.Len(t, hunks, 1)

	h := hunks[0]
	require.Equal(t, 1, h.OldStart)
	require.Equal(t, 5, h.OldLines)
	require.Equal(t, 5, h.NewLines)
	require.Contains(t, h.Body, "-\tprintln(\"hello\")")
	require.Contains(t, h.Body, "+\tprintln(\"hello, world\")")
}

func TestHunksIdentical(t *testing.T) {
	hunks, err := Hunks("a\nb\n", "a\nb\n")
	require.NoError(t, err)
	require.Nil(t, hunks)
}

func TestHunksSeparatedChanges(t *testing.T) {
	var oldLines, newLines []string
	for i := 0; i < 30; i++ {
		line := "line"
		oldLines = append(oldLines, line)
		newLines = append(newLines, line)
	}
	// Distinct lines so the LCS keeps alignment stable.
	for i := range oldLines {
		oldLines[i] = oldLines[i] + " " + string(rune('a'+i))
		newLines[i] = oldLines[i]
	}
	newLines[2] = "changed top"
	newLines[27] = "changed bottom"

	hunks, err := Hunks(strings.Join(oldLines, "\n")+"\n", strings.Join(newLines, "\n")+"\n")
	require.NoError(t, err)
	require.Len(t, hunks, 2, "distant changes produce separate hunks")
}

func TestHunksAppendOnly(t *testing.T) {
	hunks, err := Hunks("a\nb\n", "a\nb\nc\nd\n")
	require.NoError(t, err)
	require.Len(t, hunks, 1)

	var added []string
	for _, line := range hunks[0].Body {
		if strings.HasPrefix(line, "+") {
			added = append(added, line)
		}
	}
	require.Equal(t, []string{"+c", "+d"}, added)
}

func TestHunksFromEmpty(t *testing.T) {
	hunks, err := Hunks("", "brand new\ncontent\n")
	require.NoError(t, err)
	require.Len(t, hunks, 1)
	require.Equal(t, 2, hunks[0].NewLines)
	require.Equal(t, 0, hunks[0].OldLines)
}
