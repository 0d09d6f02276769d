package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/casework/internal/store"
)

func TestMapPostgresError(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{name: "unique violation", code: pgerrcode.UniqueViolation, want: store.ErrConflict},
		{name: "deadlock", code: pgerrcode.DeadlockDetected, want: store.ErrConflict},
		{name: "invalid json", code: pgerrcode.InvalidJSONText, want: store.ErrInvalidData},
		{name: "connection failure", code: pgerrcode.ConnectionFailure, want: store.ErrUnavailable},
		{name: "too many connections", code: pgerrcode.TooManyConnections, want: store.ErrUnavailable},
		{name: "admin shutdown", code: pgerrcode.AdminShutdown, want: store.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pgErr := &pgconn.PgError{Code: tt.code, Message: "boom"}
			err := mapPostgresError(fmt.Errorf("exec: %w", pgErr))

			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, pgErr)
			require.Contains(t, err.Error(), tt.code)
		})
	}

	t.Run("unclassified code keeps detail", func(t *testing.T) {
		err := mapPostgresError(&pgconn.PgError{Code: pgerrcode.UndefinedTable, Message: "missing", Detail: "documents"})
		require.Contains(t, err.Error(), "documents")
		require.NotErrorIs(t, err, store.ErrConflict)
		require.NotErrorIs(t, err, store.ErrUnavailable)
	})

	t.Run("non postgres error passes through", func(t *testing.T) {
		plain := errors.New("plain")
		require.Equal(t, plain, mapPostgresError(plain))
		require.NoError(t, mapPostgresError(nil))
	})
}
