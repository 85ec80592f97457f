package services

import (
	"errors"
	"fmt"

	"github.com/linkup/backend/internal/store"
)

// Service error taxonomy. Handlers map these onto HTTP statuses; anything
// that is not one of the first three is wrapped in ErrInternal so store
// error shapes never reach callers.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInternal        = errors.New("internal error")
)

func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return ErrAlreadyExists
	default:
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
}
