// Package sqlutil holds the small amount of SQL plumbing shared by the
// warehouse loader and the report queries: placeholder dialects, script
// execution and chunked bulk inserts.
package sqlutil

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

type Dialect struct {
	Name string
	// Placeholder returns the bind marker for the n-th (1-based) parameter.
	Placeholder func(n int) string
	// MaxParams is the most bind parameters one statement may carry.
	MaxParams int
}

var Postgres = Dialect{
	Name:        "postgres",
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	MaxParams:   65535,
}

// QuestionMark covers sqlite, libsql and mysql. sqlite's default variable
// limit (32766 since 3.32) is the lowest of the three.
var QuestionMark = Dialect{
	Name:        "questionmark",
	Placeholder: func(int) string { return "?" },
	MaxParams:   32766,
}

// rowsPerStatement is how many rows of width columns fit in one statement.
func (d Dialect) rowsPerStatement(columns int) int {
	limit := d.MaxParams
	if limit <= 0 {
		limit = 999
	}
	return max(limit/max(columns, 1), 1)
}

// DialectFor maps a database/sql driver name to its placeholder dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "pgx", "postgres":
		return Postgres, nil
	case "sqlite", "libsql", "mysql":
		return QuestionMark, nil
	}
	return Dialect{}, fmt.Errorf("unsupported sql driver %q", driver)
}

// SplitStatements splits a DDL script on semicolons, dropping empty statements.
func SplitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}

// ExecScript executes every statement of script inside one transaction.
func ExecScript(ctx context.Context, db *sql.DB, script string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range SplitStatements(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl %q: %w", firstLine(stmt), err)
		}
	}
	return tx.Commit()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// InsertStatement builds a single multi-row parameterized INSERT.
func (d Dialect) InsertStatement(table string, columns []string, rowCount int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(columns, ", "))
	b.WriteString(") VALUES ")

	n := 1
	for r := 0; r < rowCount; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range columns {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.Placeholder(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// BulkInsert writes all rows in one transaction, split into as few multi-row
// statements as the dialect's parameter limit allows. A single bad value
// rejects the whole batch.
func BulkInsert(ctx context.Context, db *sql.DB, d Dialect, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("%s row %d: got %d values for %d columns", table, i, len(row), len(columns))
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var affected int64
	chunk := d.rowsPerStatement(len(columns))
	for start := 0; start < len(rows); start += chunk {
		batch := rows[start:min(start+chunk, len(rows))]
		args := make([]any, 0, len(batch)*len(columns))
		for _, row := range batch {
			args = append(args, row...)
		}

		res, err := tx.ExecContext(ctx, d.InsertStatement(table, columns, len(batch)), args...)
		if err != nil {
			return 0, fmt.Errorf("insert into %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			n = int64(len(batch))
		}
		affected += n
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("commit %s: %w", table, err)
	}
	return affected, nil
}
