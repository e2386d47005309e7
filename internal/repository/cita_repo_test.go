package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"entrepeques/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

var fechaTurno = time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

func TestSlotLockKey_StablePerSlot(t *testing.T) {
	a := slotLockKey(fechaTurno, "11:00")
	assert.Equal(t, a, slotLockKey(fechaTurno, "11:00"))
	assert.NotEqual(t, a, slotLockKey(fechaTurno, "11:45"))
	assert.NotEqual(t, a, slotLockKey(fechaTurno.AddDate(0, 0, 2), "11:00"))
}

func TestConTurnoBloqueado_LocksBeforeCounting(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCitaRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(slotLockKey(fechaTurno, "11:00")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "citas" WHERE fecha = $1 AND hora_inicio >= $2 AND hora_inicio < $3 AND estado <> $4`)).
		WithArgs("2025-03-04", "11:00", "11:45", model.CitaCancelada).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectCommit()

	var count int64 = -1
	err := repo.ConTurnoBloqueado(context.Background(), fechaTurno, "11:00", func(tx CitaTx) error {
		n, err := tx.ContarActivas(context.Background(), fechaTurno, "11:00", "11:45")
		count = n
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConTurnoBloqueado_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCitaRepository(db)
	full := errors.New("slot full")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "citas"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.ConTurnoBloqueado(context.Background(), fechaTurno, "11:00", func(tx CitaTx) error {
		n, err := tx.ContarActivas(context.Background(), fechaTurno, "11:00", "11:45")
		if err != nil {
			return err
		}
		if n >= 1 {
			return full
		}
		return nil
	})
	assert.ErrorIs(t, err, full)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConTurnoBloqueado_LockFailureSkipsCallback(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCitaRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	called := false
	err := repo.ConTurnoBloqueado(context.Background(), fechaTurno, "11:00", func(CitaTx) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransicionar_OnlyFromScheduled(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCitaRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "citas" SET .* WHERE id = \$\d+ AND estado = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	changed, err := repo.Transicionar(context.Background(), uuid.New(), map[string]interface{}{
		"estado": model.CitaCompletada,
	})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
