package main

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/semaphore"
)

// The executor under test carries a nil pool: if validation ever let a bad
// query through to the acquire step, these tests would panic instead of pass.
func TestExecuteQuery_RejectedBeforeDatabaseCall(t *testing.T) {
	executor := &Executor{pool: nil, rowLimit: 10, timeout: time.Second}

	rejected := []string{
		"DELETE FROM users",
		"INSERT INTO users VALUES (1)",
		"DROP TABLE users",
		"UPDATE users SET name = 'x'",
		"",
	}

	for _, query := range rejected {
		t.Run(query, func(t *testing.T) {
			result, err := executor.ExecuteQuery(context.Background(), query, "")
			if result != nil {
				t.Errorf("Expected no result for rejected query, got %+v", result)
			}
			if !errors.Is(err, ErrQueryNotAllowed) {
				t.Errorf("Expected ErrQueryNotAllowed, got: %v", err)
			}
		})
	}
}

func TestExecuteQuery_RejectedErrorText(t *testing.T) {
	executor := &Executor{pool: nil, rowLimit: 10, timeout: time.Second}

	_, err := executor.ExecuteQuery(context.Background(), "DELETE FROM users", "")
	if err == nil {
		t.Fatal("Expected an error")
	}
	want := "Only SELECT, SHOW, DESCRIBE, and EXPLAIN queries are allowed"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}

// A malformed database identifier must be rejected before a connection is
// borrowed, even when the query itself passes the prefix check.
func TestExecuteQuery_InvalidDatabaseIdentifierRejected(t *testing.T) {
	executor := &Executor{pool: nil, rowLimit: 10, timeout: time.Second}

	invalid := []string{"bad;db", "my db", "db`name"}
	for _, database := range invalid {
		t.Run(database, func(t *testing.T) {
			result, err := executor.ExecuteQuery(context.Background(), "SELECT 1", database)
			if result != nil {
				t.Errorf("Expected no result, got %+v", result)
			}
			if err == nil {
				t.Fatal("Expected an identifier error")
			}
		})
	}
}

// stubDriver serves a fixed five-row result set for any query, and a driver
// error for queries mentioning "missing". It backs the executor tests that
// need real rows without a server.

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return &stubConn{}, nil }

type stubConn struct{}

func (c *stubConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *stubConn) Close() error { return nil }

func (c *stubConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions not supported")
}

func (c *stubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if strings.Contains(query, "missing") {
		return nil, errors.New("Table 'appdb.missing' doesn't exist")
	}
	return &stubRows{
		columns: []string{"id", "name"},
		rows: [][]driver.Value{
			{int64(1), []byte("alice")},
			{int64(2), []byte("bob")},
			{int64(3), []byte("carol")},
			{int64(4), []byte("dave")},
			{int64(5), []byte("erin")},
		},
	}, nil
}

type stubRows struct {
	columns []string
	rows    [][]driver.Value
	pos     int
}

func (r *stubRows) Columns() []string { return r.columns }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.pos])
	r.pos++
	return nil
}

var registerStubDriver sync.Once

// stubPool builds a size-1 pool over the stub driver so sequential calls also
// prove that each operation returns its connection.
func stubPool(t *testing.T) *Pool {
	t.Helper()
	registerStubDriver.Do(func() {
		sql.Register("stubmysql", stubDriver{})
	})

	db, err := sql.Open("stubmysql", "")
	if err != nil {
		t.Fatalf("Failed to open stub database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Pool{db: db, sem: semaphore.NewWeighted(1)}
}

func TestExecuteQuery_TruncatesAtRowLimit(t *testing.T) {
	executor := &Executor{pool: stubPool(t), rowLimit: 3, timeout: time.Second}

	result, err := executor.ExecuteQuery(context.Background(), "SELECT id, name FROM users", "")
	if err != nil {
		t.Fatalf("Expected query to succeed, got: %v", err)
	}

	if result.RowCount != 3 {
		t.Errorf("Expected rowCount 3, got %d", result.RowCount)
	}
	if len(result.Rows) != result.RowCount {
		t.Errorf("Expected rowCount to equal len(rows), got %d vs %d", result.RowCount, len(result.Rows))
	}
	if len(result.Fields) != 2 || result.Fields[0] != "id" || result.Fields[1] != "name" {
		t.Errorf("Expected ordered fields [id name], got %v", result.Fields)
	}

	// The first rowLimit rows, in original order.
	wantNames := []string{"alice", "bob", "carol"}
	for i, want := range wantNames {
		if got := result.Rows[i]["id"]; got != int64(i+1) {
			t.Errorf("Row %d: expected id %d, got %v", i, i+1, got)
		}
		got, ok := result.Rows[i]["name"].(string)
		if !ok {
			t.Fatalf("Row %d: expected []byte name to arrive as string, got %T", i, result.Rows[i]["name"])
		}
		if got != want {
			t.Errorf("Row %d: expected name %q, got %q", i, want, got)
		}
	}
}

func TestExecuteQuery_UnderLimitReturnsAllRows(t *testing.T) {
	executor := &Executor{pool: stubPool(t), rowLimit: 1000, timeout: time.Second}

	result, err := executor.ExecuteQuery(context.Background(), "SELECT id, name FROM users", "")
	if err != nil {
		t.Fatalf("Expected query to succeed, got: %v", err)
	}
	if result.RowCount != 5 {
		t.Errorf("Expected all 5 rows, got %d", result.RowCount)
	}
}

// Repeated failing queries on a size-1 pool must never exhaust it: the
// borrowed connection has to come back on the error path.
func TestExecuteQuery_ReleasesConnectionOnDriverError(t *testing.T) {
	executor := &Executor{pool: stubPool(t), rowLimit: 10, timeout: time.Second}

	for i := 0; i < 5; i++ {
		result, err := executor.ExecuteQuery(context.Background(), "SELECT * FROM missing", "")
		if result != nil {
			t.Fatalf("Call %d: expected no result, got %+v", i, result)
		}
		if err == nil {
			t.Fatalf("Call %d: expected a driver error", i)
		}
		if errors.Is(err, ErrPoolExhausted) {
			t.Fatalf("Call %d: pool exhausted, connection leaked on a previous error", i)
		}
		if !strings.Contains(err.Error(), "doesn't exist") {
			t.Errorf("Call %d: expected the driver's error text, got: %v", i, err)
		}
	}
}

// Successful calls must release too; on a size-1 pool a leak would surface on
// the second call.
func TestExecuteQuery_ReleasesConnectionOnSuccess(t *testing.T) {
	executor := &Executor{pool: stubPool(t), rowLimit: 10, timeout: time.Second}

	for i := 0; i < 3; i++ {
		result, err := executor.ExecuteQuery(context.Background(), "SELECT id, name FROM users", "")
		if err != nil {
			t.Fatalf("Call %d: expected success, got: %v", i, err)
		}
		if result.RowCount != 5 {
			t.Errorf("Call %d: expected 5 rows, got %d", i, result.RowCount)
		}
	}
}
