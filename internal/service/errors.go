package service

import (
	"errors"
	"fmt"

	"github.com/alexanderramin/tasksync/internal/ordering"
)

// ErrValidation marks errors raised before any state change or store call.
var ErrValidation = errors.New("validation failed")

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidVirtualID  = errors.New("invalid virtual occurrence")
	ErrNotRecurring      = errors.New("task is not a recurring template")
	ErrEmptyDescription  = errors.New("task description is required")
	ErrVirtualDelete     = errors.New("virtual occurrences cannot be deleted; skip them instead")
	ErrSkipNotConfigured = errors.New("skip log not configured")
	ErrCycle             = ordering.ErrCycle
)

// invalid wraps err so it matches both ErrValidation and err.
func invalid(err error, detail string) error {
	if detail == "" {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return fmt.Errorf("%w: %w: %s", ErrValidation, err, detail)
}
