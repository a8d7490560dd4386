package services

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	minPasswordLength = 6
	maxTextLength     = 2000
)

type validator struct {
	violations []Violation
}

func (v *validator) add(field, message string) {
	v.violations = append(v.violations, Violation{Field: field, Message: message})
}

func (v *validator) required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		v.add(field, "is required")
		return false
	}
	return true
}

func (v *validator) email(field, value string) {
	if !v.required(field, value) {
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != strings.TrimSpace(value) {
		v.add(field, "must be a valid email address")
	}
}

func (v *validator) password(field, value string) {
	if !v.required(field, value) {
		return
	}
	if len(value) < minPasswordLength {
		v.add(field, "must be at least 6 characters")
	}
}

// maxLength counts characters, matching VARCHAR limits.
func (v *validator) maxLength(field, value string, limit int) {
	if utf8.RuneCountInString(value) > limit {
		v.add(field, fmt.Sprintf("must be at most %d characters", limit))
	}
}

func (v *validator) intRange(field string, value *int, lo, hi int) {
	if value == nil {
		v.add(field, "is required")
		return
	}
	if *value < lo || *value > hi {
		v.add(field, "is out of range")
	}
}

func (v *validator) err() error {
	if len(v.violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: v.violations}
}
