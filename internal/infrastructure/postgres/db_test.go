package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/facility-hub/facility-hub/internal/domain/errs"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind errs.Kind
	}{
		{"serialization", &pgconn.PgError{Code: "40001"}, errs.KindTransactionConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, errs.KindTransactionConflict},
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, errs.KindTransactionConflict},
		{"connection", &pgconn.PgError{Code: "08006"}, errs.KindStorageUnavailable},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, errs.KindStorageUnavailable},
		{"wrapped", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "40001"}), errs.KindTransactionConflict},
		{"syntax", &pgconn.PgError{Code: "42601"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, errs.KindOf(mapError(tc.err)))
		})
	}
}

func TestMapErrorUniqueViolation(t *testing.T) {
	err := mapError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})
	assert.ErrorIs(t, err, errDuplicate)
	assert.Contains(t, err.Error(), "users_username_key")
}

func TestMapErrorPassesThrough(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(context.Canceled), context.Canceled)

	guard := errs.Guard(errs.CodeInvalidState, "nope")
	assert.Same(t, guard, mapError(guard))

	plain := errors.New("plain")
	assert.Equal(t, plain, mapError(plain))
}

func TestAddWhere(t *testing.T) {
	q := "SELECT * FROM requests"
	q += addWhere(q) + " status=$" + itoa(1)
	q += addWhere(q) + " inactive=$" + itoa(2)
	assert.Equal(t, "SELECT * FROM requests WHERE status=$1 AND inactive=$2", q)
}
