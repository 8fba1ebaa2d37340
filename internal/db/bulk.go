// Package db holds pgx helpers shared by the Postgres store.
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Upsert describes a COPY-backed bulk upsert: rows are staged into a
// temp table and merged with INSERT ... ON CONFLICT so existing rows
// refresh instead of duplicating.
type Upsert struct {
	// Table is the target, optionally schema-qualified.
	Table string

	// Columns lists every column the rows carry, in row order.
	Columns []string

	// Keys are the columns of the unique constraint.
	Keys []string
}

// Run stages rows and merges them into the target table, returning the
// number of rows written.
func (u Upsert) Run(ctx context.Context, pool Pool, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(u.Columns) == 0 {
		return 0, eris.Errorf("db: upsert %s: no columns", u.Table)
	}
	if len(u.Keys) == 0 {
		return 0, eris.Errorf("db: upsert %s: no conflict keys", u.Table)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: begin", u.Table)
	}
	defer tx.Rollback(ctx)

	stage := u.stageName()
	if _, err := tx.Exec(ctx, u.stageSQL(stage)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: create stage table", u.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{stage}, u.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: copy into stage", u.Table)
	}

	tag, err := tx.Exec(ctx, u.mergeSQL(stage))
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: merge", u.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: commit", u.Table)
	}
	return tag.RowsAffected(), nil
}

func (u Upsert) stageName() string {
	return "_stage_" + strings.ReplaceAll(u.Table, ".", "_")
}

func (u Upsert) stageSQL(stage string) string {
	return fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{stage}.Sanitize(),
		qualify(u.Table),
	)
}

func (u Upsert) mergeSQL(stage string) string {
	keySet := make(map[string]bool, len(u.Keys))
	for _, k := range u.Keys {
		keySet[k] = true
	}
	var sets []string
	for _, c := range u.Columns {
		if keySet[c] {
			continue
		}
		q := pgx.Identifier{c}.Sanitize()
		sets = append(sets, q+" = EXCLUDED."+q)
	}

	cols := quoteList(u.Columns)
	if len(sets) == 0 {
		// Every column is part of the key; nothing to refresh.
		return fmt.Sprintf(
			"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO NOTHING",
			qualify(u.Table), cols, cols,
			pgx.Identifier{stage}.Sanitize(),
			quoteList(u.Keys),
		)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s",
		qualify(u.Table), cols, cols,
		pgx.Identifier{stage}.Sanitize(),
		quoteList(u.Keys),
		strings.Join(sets, ", "),
	)
}

// qualify quotes a possibly schema-qualified table name.
func qualify(table string) string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

func quoteList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
