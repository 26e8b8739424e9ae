package database_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/pharmacy-pos/internal/pkg/apperrors"
	"github.com/your-org/pharmacy-pos/internal/pkg/database"
	"github.com/your-org/pharmacy-pos/internal/pkg/testutil"
	"gorm.io/gorm"
)

func newNotesDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := testutil.NewDB(t)
	require.NoError(t, db.Exec("CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT NOT NULL)").Error)
	return db
}

func countNotes(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table("notes").Count(&n).Error)
	return n
}

func insertNote(tx *gorm.DB) error {
	return tx.Exec("INSERT INTO notes (body) VALUES (?)", "counted").Error
}

func TestRun_CommitsOnSuccess(t *testing.T) {
	db := newNotesDB(t)
	tr := database.NewTransactor(db, "")

	require.NoError(t, tr.Run(context.Background(), "note", insertNote))
	assert.Equal(t, int64(1), countNotes(t, db))
}

func TestRun_ConcurrencyFailuresAreTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}},
		{"deadlock", &pgconn.PgError{Code: "40P01"}},
		{"unique violation", &pgconn.PgError{Code: "23505"}},
		{"translated duplicate key", gorm.ErrDuplicatedKey},
		{"wrapped serialization failure", fmt.Errorf("failed to create sale: %w", &pgconn.PgError{Code: "40001"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newNotesDB(t)
			tr := database.NewTransactor(db, "")

			err := tr.Run(context.Background(), "sale", func(tx *gorm.DB) error {
				require.NoError(t, insertNote(tx))
				return tt.err
			})

			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.CodeTransient, appErr.Code)
			assert.Equal(t, true, appErr.Details["retryable"])
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, int64(0), countNotes(t, db))
		})
	}
}

func TestRun_OtherErrorsPassThrough(t *testing.T) {
	db := newNotesDB(t)
	tr := database.NewTransactor(db, "")

	stockErr := apperrors.InsufficientStock("Paracetamol", 23, 25)
	err := tr.Run(context.Background(), "sale", func(tx *gorm.DB) error {
		require.NoError(t, insertNote(tx))
		return stockErr
	})
	assert.Same(t, stockErr, err)

	constraint := &pgconn.PgError{Code: "23503"}
	err = tr.Run(context.Background(), "sale", func(tx *gorm.DB) error {
		return constraint
	})
	_, isAppErr := apperrors.As(err)
	assert.False(t, isAppErr)
	assert.True(t, errors.Is(err, constraint))
	assert.False(t, database.IsTransient(err))

	assert.Equal(t, int64(0), countNotes(t, db))
}

func TestRun_PanicRollsBackAsInternal(t *testing.T) {
	db := newNotesDB(t)
	tr := database.NewTransactor(db, "")

	err := tr.Run(context.Background(), "sale", func(tx *gorm.DB) error {
		require.NoError(t, insertNote(tx))
		panic("pricing table missing")
	})

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInternal, appErr.Code)
	assert.Contains(t, appErr.Unwrap().Error(), "pricing table missing")
	assert.Equal(t, int64(0), countNotes(t, db))

	require.NoError(t, tr.Run(context.Background(), "note", insertNote))
	assert.Equal(t, int64(1), countNotes(t, db))
}

func TestRun_UniqueIndexCollisionIsTransient(t *testing.T) {
	db := newNotesDB(t)
	require.NoError(t, db.Exec("CREATE UNIQUE INDEX idx_notes_body ON notes(body)").Error)
	require.NoError(t, insertNote(db))
	tr := database.NewTransactor(db, "")

	err := tr.Run(context.Background(), "note", insertNote)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTransient))
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
	assert.Equal(t, int64(1), countNotes(t, db))
}
