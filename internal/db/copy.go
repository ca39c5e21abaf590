// Package db provides shared Postgres helpers for bulk copy and
// transactional row replacement.
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom bulk-inserts rows into a table using the COPY protocol. The
// table may be schema-qualified ("schema.table").
func CopyFrom(ctx context.Context, c Copier, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := c.CopyFrom(ctx, identifier(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	return n, nil
}

// ReplaceRows deletes every row of table whose keyCol equals key and
// copies rows in their place, inside tx. The caller commits.
func ReplaceRows(ctx context.Context, tx pgx.Tx, table, keyCol string, key any, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, eris.New("db: replace: no columns specified")
	}

	del := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", identifier(table).Sanitize(), pgx.Identifier{keyCol}.Sanitize())
	if _, err := tx.Exec(ctx, del, key); err != nil {
		return 0, eris.Wrapf(err, "db: replace: delete from %s", table)
	}
	return CopyFrom(ctx, tx, table, columns, rows)
}

// identifier splits a possibly schema-qualified table name.
func identifier(table string) pgx.Identifier {
	return pgx.Identifier(strings.SplitN(table, ".", 2))
}
