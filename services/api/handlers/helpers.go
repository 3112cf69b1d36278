// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/snippetia/snippetia/services/api/auth"
	"github.com/snippetia/snippetia/services/monetize"
)

var errInvalidVersion = errors.New("version must be a positive integer")

func nowUTC() time.Time {
	return time.Now().UTC()
}

// canOwnOrModerate reports whether the caller is the resource owner or
// carries moderation rights.
func canOwnOrModerate(info *auth.AuthInfo, ownerID string) bool {
	if info == nil {
		return false
	}
	return info.UserID == ownerID || info.IsModerator()
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

func isDeclined(err error) bool {
	return errors.Is(err, monetize.ErrPaymentDeclined)
}
