// Package util holds the input checks shared by the authentication flows.
package util

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password accepted anywhere.
const MinPasswordLength = 8

// PasswordSpecials lists the only non-alphanumeric characters a password may contain.
const PasswordSpecials = "!@#$%^&*"

// emailPattern accepts an RFC 5322 style local part followed by one or more
// dot-separated domain labels of up to 63 characters that neither start nor end with a hyphen.
var emailPattern = regexp.MustCompile(
	"^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+" +
		"@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?" +
		"(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$",
)

// ValidateEmail reports whether email is a well-formed address.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// PasswordLongEnough reports whether password has at least MinPasswordLength characters.
func PasswordLongEnough(password string) bool {
	return utf8.RuneCountInString(password) >= MinPasswordLength
}

// ValidatePasswordPolicy reports whether password contains a digit, a lowercase
// letter, an uppercase letter and one of PasswordSpecials, is made only of those
// character classes, and is at least MinPasswordLength long.
func ValidatePasswordPolicy(password string) bool {
	if len(password) < MinPasswordLength {
		return false
	}
	var digit, lower, upper, special bool
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case strings.ContainsRune(PasswordSpecials, r):
			special = true
		default:
			return false
		}
	}
	return digit && lower && upper && special
}
