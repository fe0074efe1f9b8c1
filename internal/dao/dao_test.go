package dao

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/cyphermed/record-access-api/internal/database"
)

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return database.Wrap(sqlx.NewDb(mockDB, "sqlmock"), logger), mock
}

func beginTx(t *testing.T, db *database.DB, mock sqlmock.Sqlmock) *database.Transaction {
	t.Helper()
	mock.ExpectBegin()
	tx, err := db.BeginTx(context.Background())
	require.NoError(t, err)
	return tx
}
