// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package snippetlang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnalyzeGo(t *testing.T) {
	content := `package main

func main() {
	greet()
}

func greet() {
	println("hi")
}
`
	stats := Analyze(context.Background(), "go", content)
	require.True(t, stats.Parsed)
	require.Equal(t, "go", stats.Language)
	require.Equal(t, 9, stats.Lines)
	require.Equal(t, 2, stats.Functions)
}

func TestAnalyzePython(t *testing.T) {
	content := "def one():\n    pass\n\ndef two():\n    return lambda x: x\n"
	stats := Analyze(context.Background(), "Python", content)
	require.True(t, stats.Parsed)
	require.Equal(t, "python", stats.Language)
	require.Equal(t, 3, stats.Functions, "two defs plus one lambda")
}

func TestAnalyzeAliases(t *testing.T) {
	stats := Analyze(context.Background(), "ts", "const f = (x: number) => x * 2\n")
	require.Equal(t, "typescript", stats.Language)
	require.True(t, stats.Parsed)
	require.Equal(t, 1, stats.Functions)
}

func TestAnalyzeUnsupportedLanguage(t *testing.T) {
	stats := Analyze(context.Background(), "cobol", "MOVE A TO B.\nDISPLAY B.\n")
	require.False(t, stats.Parsed)
	require.Equal(t, 2, stats.Lines)
	require.Equal(t, 0, stats.Functions)
}

func TestAnalyzeBrokenSyntax(t *testing.T) {
	stats := Analyze(context.Background(), "go", "func broken( {\n")
	require.False(t, stats.Parsed, "error trees are not reported as parsed")
	require.Equal(t, 1, stats.Lines)
}

func TestAnalyzeEmpty(t *testing.T) {
	stats := Analyze(context.Background(), "go", "")
	require.Equal(t, 0, stats.Lines)
	require.Equal(t, 0, stats.Functions)
}

func TestSupported(t *testing.T) {
	require.True(t, Supported("go"))
	require.True(t, Supported("SH"))
	require.False(t, Supported("brainfuck"))
}
