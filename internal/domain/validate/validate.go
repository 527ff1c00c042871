// Package validate collects field-level input errors so callers can report
// all of them at once.
package validate

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsEmail reports whether s looks like an e-mail address.
func IsEmail(s string) bool {
	return emailRe.MatchString(s)
}

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"msg"`
}

// Error aggregates field errors. The zero value is ready to use.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add records an invalid field.
func (e *Error) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Require records field as missing when value is blank.
func (e *Error) Require(field, value string) {
	if strings.TrimSpace(value) == "" {
		e.Add(field, field+" is required")
	}
}

// Email records field as invalid when value is present but not an address.
func (e *Error) Email(field, value string) {
	if v := strings.TrimSpace(value); v != "" && !IsEmail(v) {
		e.Add(field, field+" must be a valid email")
	}
}

// Err returns e when at least one field was recorded, nil otherwise.
func (e *Error) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
