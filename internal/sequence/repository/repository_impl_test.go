package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/smallbiznis/tradebook/internal/sequence/domain"
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
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestAdvanceGuardsOnVersion(t *testing.T) {
	db, mock := newMockDB(t)
	at := time.Date(2025, 10, 18, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE sequence_counters`)).
		WithArgs("251018", int64(48), at, domain.DomainSalesLedger, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := Provide().Advance(context.Background(), db, domain.DomainSalesLedger, "251018", 48, 7, at)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceReportsLostRace(t *testing.T) {
	db, mock := newMockDB(t)
	at := time.Date(2025, 10, 18, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`WHERE domain = $4 AND version = $5`)).
		WithArgs("251018", int64(2), at, domain.DomainCollection, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := Provide().Advance(context.Background(), db, domain.DomainCollection, "251018", 2, 3, at)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateIgnoresExistingRow(t *testing.T) {
	db, mock := newMockDB(t)
	at := time.Date(2025, 10, 18, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "sequence_counters"`) + `.*ON CONFLICT DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := Provide().Create(context.Background(), db, domain.Counter{
		Domain:     domain.DomainSalesOrder,
		DateKey:    "251018",
		LastNumber: 1,
		Version:    1,
		UpdatedAt:  at,
	})
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindReturnsNilWhenMissing(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM sequence_counters WHERE domain = $1`)).
		WithArgs(domain.DomainPayout).
		WillReturnRows(sqlmock.NewRows([]string{"domain", "date_key", "last_number", "version", "updated_at"}))

	counter, err := Provide().Find(context.Background(), db, domain.DomainPayout)
	require.NoError(t, err)
	assert.Nil(t, counter)
	require.NoError(t, mock.ExpectationsWereMet())
}
