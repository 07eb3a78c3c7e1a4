package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCatalog is returned when no rule in the catalog compiled. It is the only
	// catalog problem that is fatal for a run.
	ErrEmptyCatalog = errors.New("catalog has no usable rules")

	// ErrDuplicateCategory marks a category whose name was already declared.
	ErrDuplicateCategory = errors.New("duplicate category")

	// ErrInvalidWeight marks a base weight outside 0..100.
	ErrInvalidWeight = errors.New("base weight out of range")

	// ErrInvalidPlaceholder marks a vocabulary entry that is not of the form {{NAME}}.
	ErrInvalidPlaceholder = errors.New("invalid placeholder")
)

// RuleError describes one catalog entry that was skipped or adjusted while compiling.
type RuleError struct {
	Category string
	Index    int // rule index within the category, -1 for category-level problems
	Pattern  string
	Err      error
}

func (e *RuleError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("category %q: %v", e.Category, e.Err)
	}
	return fmt.Sprintf("category %q rule %d (%s): %v", e.Category, e.Index, e.Pattern, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}
