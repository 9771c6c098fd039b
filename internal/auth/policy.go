// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sysboard Contributors

package auth

import (
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the minimum password length in characters.
const MinPasswordLength = 8

// PasswordSpecialChars is the set of characters that satisfy the special
// character rule.
const PasswordSpecialChars = `!@#$%^&*(),.?":{}|<>`

// Password policy violation messages, in rule order.
const (
	ViolationTooShort    = "must be at least 8 characters long"
	ViolationNoLowercase = "must contain at least one lowercase letter (a-z)"
	ViolationNoUppercase = "must contain at least one uppercase letter (A-Z)"
	ViolationNoDigit     = "must contain at least one digit (0-9)"
	ViolationNoSpecial   = "must contain at least one special character (" + PasswordSpecialChars + ")"
)

// ValidatePassword checks a password against the strength policy. Every rule
// is evaluated, and violations are returned in rule order: length, lowercase,
// uppercase, digit, special character.
func ValidatePassword(password string) (bool, []string) {
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(PasswordSpecialChars, r):
			special = true
		}
	}

	var violations []string
	if utf8.RuneCountInString(password) < MinPasswordLength {
		violations = append(violations, ViolationTooShort)
	}
	if !lower {
		violations = append(violations, ViolationNoLowercase)
	}
	if !upper {
		violations = append(violations, ViolationNoUppercase)
	}
	if !digit {
		violations = append(violations, ViolationNoDigit)
	}
	if !special {
		violations = append(violations, ViolationNoSpecial)
	}

	return len(violations) == 0, violations
}

// PasswordRequirements describes the policy for display to users.
func PasswordRequirements() []string {
	return []string{
		"At least 8 characters",
		"At least one lowercase letter (a-z)",
		"At least one uppercase letter (A-Z)",
		"At least one digit (0-9)",
		"At least one special character (" + PasswordSpecialChars + ")",
	}
}
