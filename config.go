package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the server configuration sourced from environment variables.
// It is read once at startup and never mutated afterwards.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	// Database is the default database for operations that take no explicit
	// database argument.
	Database string
	// RowLimit caps the number of rows returned by execute_query.
	RowLimit int
	// QueryTimeout bounds each SQL statement issued on a borrowed connection.
	QueryTimeout time.Duration
	// PoolSize is the maximum number of concurrently borrowed connections.
	PoolSize int
}

// LoadConfig reads configuration from the environment. MYSQL_USER,
// MYSQL_PASSWORD and MYSQL_DATABASE have no defaults and must be set;
// everything else falls back to a default. QUERY_TIMEOUT is in milliseconds.
func LoadConfig() (*Config, error) {
	user := os.Getenv("MYSQL_USER")
	password := os.Getenv("MYSQL_PASSWORD")
	database := os.Getenv("MYSQL_DATABASE")

	var missing []string
	if user == "" {
		missing = append(missing, "MYSQL_USER")
	}
	if password == "" {
		missing = append(missing, "MYSQL_PASSWORD")
	}
	if database == "" {
		missing = append(missing, "MYSQL_DATABASE")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}

	port, err := getEnvInt("MYSQL_PORT", 3306)
	if err != nil {
		return nil, err
	}
	rowLimit, err := getEnvInt("ROW_LIMIT", 1000)
	if err != nil {
		return nil, err
	}
	queryTimeoutMs, err := getEnvInt("QUERY_TIMEOUT", 10000)
	if err != nil {
		return nil, err
	}
	poolSize, err := getEnvInt("POOL_SIZE", 10)
	if err != nil {
		return nil, err
	}

	return &Config{
		Host:         getEnv("MYSQL_HOST", "localhost"),
		Port:         port,
		User:         user,
		Password:     password,
		Database:     database,
		RowLimit:     rowLimit,
		QueryTimeout: time.Duration(queryTimeoutMs) * time.Millisecond,
		PoolSize:     poolSize,
	}, nil
}

// DSN renders the go-sql-driver connection string. Multi-statement execution
// stays disabled so the read-only prefix check cannot be bypassed by
// appending a second statement to an allowed one.
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getEnvInt falls back only when the variable is absent or empty; a value
// that is set but unparseable aborts startup rather than being silently
// replaced.
func getEnvInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q", key, value)
	}
	return i, nil
}
