// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername_Valid(t *testing.T) {
	for _, name := range []string{"ada", "grace-hopper", "b0b", "x23-dev"} {
		assert.NoError(t, ValidateUsername(name), name)
	}
}

func TestValidateUsername_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"too short", "ab"},
		{"leading digit", "1ada"},
		{"leading hyphen", "-ada"},
		{"uppercase", "Ada"},
		{"underscore", "ada_l"},
		{"too long", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
		{"path traversal", "../etc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidateUsername(tt.input))
		})
	}
}

func TestSanitizeUsername(t *testing.T) {
	got, err := SanitizeUsername("  Ada-Lovelace ")
	require.NoError(t, err)
	assert.Equal(t, "ada-lovelace", got)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"simple", "Hello World", "hello-world"},
		{"punctuation", "Go: Generics, Explained!", "go-generics-explained"},
		{"collapsing", "a   --  b", "a-b"},
		{"digits", "100 days of code", "100-days-of-code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Slugify(tt.title)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlugify_NothingUsable(t *testing.T) {
	_, err := Slugify("!!!")
	assert.Error(t, err)
}

func TestValidateLanguage(t *testing.T) {
	for _, lang := range []string{"go", "c++", "f#", "objective-c", "python"} {
		assert.NoError(t, ValidateLanguage(lang), lang)
	}
	for _, lang := range []string{"", "Go", "c sharp", "+plus"} {
		assert.Error(t, ValidateLanguage(lang), lang)
	}
}
