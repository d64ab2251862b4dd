package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS searches`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Record(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO searches`).
		WithArgs("search-1", "bakeries in Portland", 2, 14, at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.Record(context.Background(), Entry{
		ID:         "search-1",
		Query:      "bakeries in Portland",
		QueryCount: 2,
		LeadCount:  14,
		CreatedAt:  at,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Record_GeneratesID(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO searches`).
		WithArgs(pgxmock.AnyArg(), "dentists in Austin", 1, 0, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.Record(context.Background(), Entry{Query: "dentists in Austin", QueryCount: 1})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	newer := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	older := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"id", "query", "query_count", "lead_count", "created_at"}).
		AddRow("search-2", "plumbers in Miami", 1, 8, newer).
		AddRow("search-1", "bakeries in Portland", 2, 14, older)

	mock.ExpectQuery(`SELECT id, query, query_count, lead_count, created_at FROM searches ORDER BY created_at DESC`).
		WithArgs(25).
		WillReturnRows(rows)

	entries, err := s.List(context.Background(), 25)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "plumbers in Miami", entries[0].Query)
	assert.Equal(t, 14, entries[1].LeadCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, query, query_count, lead_count, created_at FROM searches`).
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows([]string{"id", "query", "query_count", "lead_count", "created_at"}))

	entries, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List_QueryError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, query, query_count, lead_count, created_at FROM searches`).
		WithArgs(10).
		WillReturnError(errors.New("connection reset"))

	_, err := s.List(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list searches")
	assert.NoError(t, mock.ExpectationsWereMet())
}
