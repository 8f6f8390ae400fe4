package main

import (
	"context"
	"time"
)

// Executor validates and runs ad-hoc read-only queries.
type Executor struct {
	pool     *Pool
	rowLimit int
	timeout  time.Duration
}

func NewExecutor(pool *Pool, cfg *Config) *Executor {
	return &Executor{pool: pool, rowLimit: cfg.RowLimit, timeout: cfg.QueryTimeout}
}

// ExecuteQuery runs query after the read-only prefix check, optionally
// switching to database first. Validation failures return before any
// connection is borrowed. Rows are capped at the configured row limit, with
// no truncation marker beyond the shorter slice; rowCount always equals
// len(rows).
func (e *Executor) ExecuteQuery(ctx context.Context, query, database string) (*QueryResult, error) {
	if err := validateReadOnlyQuery(query); err != nil {
		return nil, err
	}
	useStmt := ""
	if database != "" {
		quoted, err := quoteIdentifier(database)
		if err != nil {
			return nil, err
		}
		useStmt = "USE " + quoted
	}

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if useStmt != "" {
		if _, err := conn.ExecContext(ctx, useStmt); err != nil {
			return nil, err
		}
	}

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields, err := rows.Columns()
	if err != nil || fields == nil {
		fields = []string{}
	}

	result := &QueryResult{Fields: fields, Rows: []map[string]any{}}
	for rows.Next() {
		if len(result.Rows) >= e.rowLimit {
			break
		}

		values := make([]any, len(fields))
		valuePtrs := make([]any, len(fields))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(fields))
		for i, col := range fields {
			// Convert []byte to string for JSON serialization
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.RowCount = len(result.Rows)
	return result, nil
}
