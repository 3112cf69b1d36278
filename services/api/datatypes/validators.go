// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// usernameRx limits handles to letters, digits, underscore, and hyphen,
// starting with a letter or digit.
var usernameRx = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// RegisterValidations installs custom binding rules on the validator
// gin uses. Registering twice is harmless.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRx.MatchString(fl.Field().String())
	})
}
