// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation for user-supplied identifiers.
//
// This package contains validators for values that end up in storage keys,
// URLs, or subprocess arguments. Validating here prevents key-prefix
// collisions, path traversal, and injection through crafted identifiers.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// usernamePattern matches valid account names.
// Allows: lowercase letters, digits, hyphens; must start with a letter.
// Length: 3-30 characters.
var usernamePattern = regexp.MustCompile(`^[a-z][a-z0-9\-]{2,29}$`)

// slugPattern matches channel and snippet slugs.
// Same alphabet as usernames but may start with a digit.
var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]{1,63}$`)

// languagePattern matches snippet language identifiers such as "go",
// "c++", "objective-c", or "f#".
var languagePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9+#.\-]{0,31}$`)

// ValidateUsername validates an account name.
//
// Valid usernames:
//   - 3-30 characters
//   - lowercase letters, digits, hyphens
//   - first character is a letter
//
// Returns an error describing the constraint if the name is invalid.
//
// Example:
//
//	if err := validation.ValidateUsername(name); err != nil {
//	    return fmt.Errorf("invalid username: %w", err)
//	}
func ValidateUsername(name string) error {
	if name == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if !usernamePattern.MatchString(name) {
		return fmt.Errorf("invalid username %q (3-30 chars, lowercase letters, digits, hyphens, must start with a letter)", name)
	}
	return nil
}

// SanitizeUsername normalizes and validates an account name.
// Returns the lowercase name if valid.
func SanitizeUsername(name string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if err := ValidateUsername(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// ValidateSlug validates a channel or snippet slug.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug cannot be empty")
	}
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("invalid slug %q (2-64 chars, lowercase letters, digits, hyphens)", slug)
	}
	return nil
}

// Slugify derives a slug from a free-form title.
//
// Non-alphanumeric runs collapse to a single hyphen, the result is
// lowercased and truncated to 64 characters. Returns an error when
// nothing usable remains.
func Slugify(title string) (string, error) {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > 64 {
		slug = strings.Trim(slug[:64], "-")
	}
	if err := ValidateSlug(slug); err != nil {
		return "", fmt.Errorf("cannot derive slug from %q: %w", title, err)
	}
	return slug, nil
}

// ValidateLanguage validates a snippet language identifier.
//
// Languages are lowercase tags like "go", "python", "c++", "f#".
// The tag is used in storage keys and list filters, never interpreted.
func ValidateLanguage(lang string) error {
	if lang == "" {
		return fmt.Errorf("language cannot be empty")
	}
	if !languagePattern.MatchString(lang) {
		return fmt.Errorf("invalid language %q (1-32 chars, lowercase letters, digits, +#.-)", lang)
	}
	return nil
}

// SanitizeLanguage normalizes and validates a language tag.
func SanitizeLanguage(lang string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(lang))
	if err := ValidateLanguage(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
