package models

import (
	"regexp"
	"strings"
)

var (
	emailPattern      = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	courseCodePattern = regexp.MustCompile(`^[A-Z]{2,5}\d{3}$`)
	regNumberPattern  = regexp.MustCompile(`^\d{4}[A-Z]{3}\d{3}$`)
)

// Limits on numeric entity fields.
const (
	MinYear              = 1
	MaxYear              = 4
	MinCredits           = 1
	MaxCredits           = 6
	DefaultMaxEnrollment = 50
)

// IsValidID reports whether id has non-whitespace content.
func IsValidID(id string) bool {
	return strings.TrimSpace(id) != ""
}

// IsValidEmail checks the local@domain.tld shape with an alphabetic TLD of two or more letters.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// IsValidRegistrationNumber checks the YYYY + 3 uppercase letters + 3 digits format, e.g. 2023CSE001.
func IsValidRegistrationNumber(reg string) bool {
	return regNumberPattern.MatchString(reg)
}

// IsValidCourseCode checks codes such as CS101 or MATH201.
func IsValidCourseCode(code string) bool {
	return courseCodePattern.MatchString(code)
}

// IsValidYear reports whether year is within the four-year programme.
func IsValidYear(year int) bool {
	return year >= MinYear && year <= MaxYear
}

// IsValidCredits reports whether credits is in [1,6].
func IsValidCredits(credits int) bool {
	return credits >= MinCredits && credits <= MaxCredits
}
