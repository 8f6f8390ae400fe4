package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	_ = godotenv.Load()

	// stdout carries the MCP protocol, so logs go to stderr.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	pool, err := NewPool(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := pool.Close(); err != nil {
			slog.Error("failed to close connection pool", "error", err)
			return
		}
		slog.Info("database connection pool closed")
	}()

	slog.Info("connected to MySQL",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Database,
		"pool_size", cfg.PoolSize,
	)

	s := NewServer(NewInspector(pool, cfg), NewExecutor(pool, cfg))

	// ServeStdio installs its own SIGINT/SIGTERM handling and returns on
	// shutdown or stdin EOF.
	return server.ServeStdio(s)
}
