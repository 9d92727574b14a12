package domain

import (
	"strings"
	"unicode"
)

type AttendeeInfo struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone,omitempty"`
	SpecialRequests string `json:"special_requests,omitempty"`
}

// Normalized trims surrounding whitespace from every field.
func (a AttendeeInfo) Normalized() AttendeeInfo {
	return AttendeeInfo{
		Name:            strings.TrimSpace(a.Name),
		Email:           strings.TrimSpace(a.Email),
		Phone:           strings.TrimSpace(a.Phone),
		SpecialRequests: strings.TrimSpace(a.SpecialRequests),
	}
}

// Validate checks required fields. It reports every failing field, name first.
func (a AttendeeInfo) Validate() error {
	var errs FieldErrors

	if strings.TrimSpace(a.Name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	}

	email := strings.TrimSpace(a.Email)
	switch {
	case email == "":
		errs = append(errs, FieldError{Field: "email", Message: "email is required"})
	case !looksLikeMailbox(email):
		errs = append(errs, FieldError{Field: "email", Message: "email must look like name@example.com"})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// looksLikeMailbox is a shape check, not RFC 5322: something@something with
// no whitespace.
func looksLikeMailbox(s string) bool {
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return false
	}

	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}

	return !strings.Contains(s[:at], "@")
}
