package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"pabuk-rewards/internal/model"
)

// Validation failures specific to the reward services.
var (
	ErrUnknownKind       = fmt.Errorf("%w: unknown transaction kind", model.ErrValidation)
	ErrInvalidAmount     = fmt.Errorf("%w: invalid amount", model.ErrValidation)
	ErrMissingReason     = fmt.Errorf("%w: reason is required", model.ErrValidation)
	ErrNotPenalty        = fmt.Errorf("%w: kind is not a penalty", model.ErrValidation)
	ErrIllegalTransition = fmt.Errorf("%w: illegal status transition", model.ErrValidation)
	ErrStaleStatus       = fmt.Errorf("%w: contribution status changed", model.ErrValidation)
	ErrStaleRating       = fmt.Errorf("%w: contribution rating changed", model.ErrValidation)
	ErrAlreadyAwarded    = fmt.Errorf("%w: contribution points already awarded", model.ErrValidation)
	ErrInvalidInput      = fmt.Errorf("%w: invalid input", model.ErrValidation)
)

var categories = []error{model.ErrValidation, model.ErrNotFound, model.ErrTransient, model.ErrDefect}

// classify makes sure err carries one of the model error categories.
// Uncategorized database errors are defects when Postgres rejected the
// statement itself or an integrity rule, and transient otherwise.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, c := range categories {
		if errors.Is(err, c) {
			return err
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "42"), strings.HasPrefix(pgErr.Code, "23"), strings.HasPrefix(pgErr.Code, "22"):
			return fmt.Errorf("%w: %w", model.ErrDefect, err)
		}
	}
	return fmt.Errorf("%w: %w", model.ErrTransient, err)
}
