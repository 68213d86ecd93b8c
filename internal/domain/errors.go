package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks caller-supplied scenario or template values that
	// cannot be applied: out-of-range percentages, unknown types, missing fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIntegrity marks raw data that breaks an invariant of the model input,
	// such as duplicate site IDs or efficiencies outside [0, 100].
	ErrIntegrity = errors.New("data integrity violation")

	// ErrMissingIDList is returned when an upgrade_by_id rule has no id_list.
	ErrMissingIDList = fmt.Errorf("%w: 'upgrade_by_id' requires a list of site IDs", ErrInvalidInput)
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func integrityf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIntegrity, fmt.Sprintf(format, args...))
}
