package database_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jrsteele09/go-iam-server/internal/database"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	require.True(t, database.IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	require.False(t, database.IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	require.False(t, database.IsUniqueViolation(errors.New("boom")))
	require.False(t, database.IsUniqueViolation(nil))
}
