package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfeidau/casework/internal/store"
)

// classify returns the store sentinel matching a PostgreSQL error code, or nil
// when the code has no portable meaning.
func classify(code string) error {
	switch {
	case code == pgerrcode.UniqueViolation,
		code == pgerrcode.SerializationFailure,
		code == pgerrcode.DeadlockDetected,
		code == pgerrcode.LockNotAvailable:
		return store.ErrConflict
	case code == pgerrcode.InvalidTextRepresentation,
		code == pgerrcode.InvalidParameterValue,
		code == pgerrcode.InvalidJSONText,
		code == pgerrcode.UntranslatableCharacter:
		return store.ErrInvalidData
	case pgerrcode.IsConnectionException(code),
		pgerrcode.IsInsufficientResources(code),
		pgerrcode.IsOperatorIntervention(code):
		return store.ErrUnavailable
	}
	return nil
}

// mapPostgresError wraps PostgreSQL errors with the matching store sentinel so
// callers can use errors.Is without importing pgx. Other errors pass through.
func mapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	if sentinel := classify(pgErr.Code); sentinel != nil {
		return fmt.Errorf("%w: %s [%s]: %w", sentinel, pgErr.Message, pgErr.Code, err)
	}
	return fmt.Errorf("postgres error [%s]: %s (detail: %s): %w", pgErr.Code, pgErr.Message, pgErr.Detail, err)
}
