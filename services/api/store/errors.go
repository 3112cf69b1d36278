// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import "errors"

// Sentinel errors returned by store operations. Handlers map these to
// HTTP status codes; wrap with %w so errors.Is keeps working.
var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a uniqueness constraint would be
	// violated (duplicate username, channel slug, existing mark).
	ErrConflict = errors.New("record already exists")

	// ErrCapacity is returned when an event has no free seats left.
	ErrCapacity = errors.New("event is at capacity")
)
