package service

import (
	"errors"
	"fmt"

	"github.com/sifan077/PowerQR/internal/app/repository"
)

var (
	// ErrMappingNotFound is returned when the mapping does not exist or belongs to another owner.
	ErrMappingNotFound = errors.New("mapping not found")
	// ErrInvalidInput wraps validation failures; the wrapped message is safe to show to clients.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStoreUnavailable marks transient store failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// storeError maps repository errors onto service sentinels and adds op context.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrMappingNotFound):
		return fmt.Errorf("%s: %w", op, ErrMappingNotFound)
	case errors.Is(err, repository.ErrStoreUnavailable):
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
