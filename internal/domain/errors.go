package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrLinkNotFound  = errors.New("link not found")
	ErrCodeConflict  = errors.New("code already exists")
	ErrDuplicateCode = errors.New("unique constraint violation on code")
)

// ValidationError reports client input that was rejected, keyed by request field.
type ValidationError struct {
	Details map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Details: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Details))
	for field := range e.Details {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Details[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// StoreError wraps a failure of the durable store. It is always fatal to the operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// CacheError wraps a failure of the cache. Callers log it and fall back to the store.
type CacheError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}
