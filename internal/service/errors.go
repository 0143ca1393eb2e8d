package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrAuthentication covers both an unknown email and a wrong password.
	ErrAuthentication = errors.New("invalid credentials")
	// ErrUnauthenticated means a bearer token is missing, malformed, expired
	// or revoked.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidToken means no reset record matches the presented token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken means the reset record is older than the reset TTL.
	ErrExpiredToken = errors.New("token expired")
	// ErrEmailNotFound is returned by RequestPasswordReset for an address
	// with no account.
	ErrEmailNotFound = errors.New("email not found")
)

// ValidationError carries one message per offending input field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// validator accumulates field errors in input order; the first message for
// a field wins.
type validator map[string]string

func (v validator) add(field, msg string) {
	if _, ok := v[field]; !ok {
		v[field] = msg
	}
}

func (v validator) required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		v.add(field, "The "+strings.ReplaceAll(field, "_", " ")+" field is required.")
		return false
	}
	return true
}

func (v validator) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Fields: map[string]string(v)}
}
