package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Inspector provides read-only schema introspection on top of the pool.
// Each operation borrows one connection for its duration.
type Inspector struct {
	pool    *Pool
	timeout time.Duration
}

func NewInspector(pool *Pool, cfg *Config) *Inspector {
	return &Inspector{pool: pool, timeout: cfg.QueryTimeout}
}

// ListDatabases returns the names of all databases visible to the configured
// user, in catalog-reported order.
func (i *Inspector) ListDatabases(ctx context.Context) ([]string, error) {
	conn, err := i.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	rows, err := conn.QueryContext(ctx, "SHOW DATABASES")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNames(rows)
}

// ListTables lists the tables in database, or in the configured default
// database when the argument is empty.
func (i *Inspector) ListTables(ctx context.Context, database string) ([]string, error) {
	conn, err := i.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	if err := useDatabase(ctx, conn, database); err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNames(rows)
}

// DescribeTable returns one descriptor per column of table, in the table's
// natural column order.
func (i *Inspector) DescribeTable(ctx context.Context, table, database string) ([]Column, error) {
	quoted, err := quoteIdentifier(table)
	if err != nil {
		return nil, err
	}

	conn, err := i.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	if err := useDatabase(ctx, conn, database); err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, "DESCRIBE "+quoted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var col Column
		var def sql.NullString
		if err := rows.Scan(&col.Field, &col.Type, &col.Null, &col.Key, &def, &col.Extra); err != nil {
			return nil, err
		}
		if def.Valid {
			col.Default = &def.String
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return columns, nil
}

const schemaQuery = `
	SELECT TABLE_NAME, COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_KEY, EXTRA
	FROM INFORMATION_SCHEMA.COLUMNS
	WHERE TABLE_SCHEMA = ?
	ORDER BY TABLE_NAME, ORDINAL_POSITION`

// SchemaText renders one line per column of every table in database, ordered
// by table name then ordinal position, joined with newlines.
func (i *Inspector) SchemaText(ctx context.Context, database string) (string, error) {
	conn, err := i.pool.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Release()

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	rows, err := conn.QueryContext(ctx, schemaQuery, database)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var table, column, columnType, isNullable, columnKey, extra string
		if err := rows.Scan(&table, &column, &columnType, &isNullable, &columnKey, &extra); err != nil {
			return "", err
		}
		lines = append(lines, formatSchemaLine(table, column, columnType, isNullable, columnKey, extra))
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

// formatSchemaLine renders a single catalog row. Flag order is fixed:
// NOT NULL, PRIMARY KEY, AUTO_INCREMENT, each with a trailing space; absent
// flags contribute no text.
func formatSchemaLine(table, column, columnType, isNullable, columnKey, extra string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table %s: %s (%s) ", table, column, columnType)
	if isNullable == "NO" {
		b.WriteString("NOT NULL ")
	}
	if columnKey == "PRI" {
		b.WriteString("PRIMARY KEY ")
	}
	if strings.Contains(strings.ToLower(extra), "auto_increment") {
		b.WriteString("AUTO_INCREMENT ")
	}
	return b.String()
}

// useDatabase switches the session's default database when one is requested.
// The borrowed connection is a dedicated session, so the switch cannot leak
// into other operations.
func useDatabase(ctx context.Context, conn *PooledConn, database string) error {
	if database == "" {
		return nil
	}
	quoted, err := quoteIdentifier(database)
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, "USE "+quoted)
	return err
}

func scanNames(rows *sql.Rows) ([]string, error) {
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
