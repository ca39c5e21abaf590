package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "records", []string{"a", "b"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"records"}, []string{"a", "b"}).WillReturnResult(3)

	rows := [][]any{{1, "x"}, {2, "y"}, {3, "z"}}
	n, err := CopyFrom(context.Background(), mock, "records", []string{"a", "b"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_SchemaQualified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"circulars", "records"}, []string{"a"}).WillReturnResult(1)

	n, err := CopyFrom(context.Background(), mock, "circulars.records", []string{"a"}, [][]any{{1}})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"records"}, []string{"a", "b"}).WillReturnError(fmt.Errorf("copy failed"))

	_, err = CopyFrom(context.Background(), mock, "records", []string{"a", "b"}, [][]any{{1, "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO records")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "records" WHERE "run_id" = \$1`).
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCopyFrom(pgx.Identifier{"records"}, []string{"run_id", "title"}).WillReturnResult(2)
	mock.ExpectCommit()

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	n, err := ReplaceRows(context.Background(), tx, "records", "run_id", "run-1",
		[]string{"run_id", "title"}, [][]any{{"run-1", "a"}, {"run-1", "b"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, tx.Commit(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceRows_Errors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "records"`).WithArgs("run-1").WillReturnError(fmt.Errorf("locked"))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	_, err = ReplaceRows(context.Background(), tx, "records", "run_id", "run-1", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns")

	_, err = ReplaceRows(context.Background(), tx, "records", "run_id", "run-1", []string{"title"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete from records")
	assert.NoError(t, mock.ExpectationsWereMet())
}
