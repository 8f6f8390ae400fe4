package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "mysql-database-explorer"
	serverVersion = "1.0.0"
)

// connectDatabasePrompt is the static text returned by the connect_database
// prompt. It has no side effects.
const connectDatabasePrompt = `Please help me connect to a MySQL database. I need to:
1. Specify the host, port, username, password, and database name
2. Test the connection
3. Start exploring the database schema and data`

// NewServer wires the MCP operation surface to the inspector and executor.
// The dispatcher holds no state of its own beyond the shared pool sitting
// behind those two components.
func NewServer(inspector *Inspector, executor *Executor) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(false),
		server.WithLogging(),
	)

	registerTools(s, inspector, executor)
	registerSchemaResource(s, inspector)
	registerConnectPrompt(s)
	return s
}

func registerTools(s *server.MCPServer, inspector *Inspector, executor *Executor) {
	listDatabases := mcp.NewTool("list_databases",
		mcp.WithDescription("List all accessible databases"),
	)
	s.AddTool(listDatabases, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		requestID := uuid.NewString()
		slog.Info("tool invoked", "tool", "list_databases", "request_id", requestID)

		databases, err := inspector.ListDatabases(ctx)
		if err != nil {
			return failureResult("list_databases", requestID, err)
		}
		return jsonResult(ListDatabasesResponse{Success: true, Databases: emptyIfNil(databases)})
	})

	listTables := mcp.NewTool("list_tables",
		mcp.WithDescription("List all tables in a database"),
		mcp.WithString("database",
			mcp.Description("Database name (optional, defaults to the configured database)"),
		),
	)
	s.AddTool(listTables, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		requestID := uuid.NewString()
		database, _ := request.Params.Arguments["database"].(string)
		slog.Info("tool invoked", "tool", "list_tables", "request_id", requestID, "database", database)

		tables, err := inspector.ListTables(ctx, database)
		if err != nil {
			return failureResult("list_tables", requestID, err)
		}
		return jsonResult(ListTablesResponse{Success: true, Tables: emptyIfNil(tables)})
	})

	describeTable := mcp.NewTool("describe_table",
		mcp.WithDescription("Describe a table schema"),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("Table name"),
		),
		mcp.WithString("database",
			mcp.Description("Database name (optional, defaults to the configured database)"),
		),
	)
	s.AddTool(describeTable, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, ok := request.Params.Arguments["table"].(string)
		if !ok || table == "" {
			return errorResult("Missing or invalid 'table' parameter"), nil
		}
		requestID := uuid.NewString()
		database, _ := request.Params.Arguments["database"].(string)
		slog.Info("tool invoked", "tool", "describe_table", "request_id", requestID, "table", table, "database", database)

		columns, err := inspector.DescribeTable(ctx, table, database)
		if err != nil {
			return failureResult("describe_table", requestID, err)
		}
		return jsonResult(DescribeTableResponse{Success: true, Columns: emptyIfNil(columns)})
	})

	executeQuery := mcp.NewTool("execute_query",
		mcp.WithDescription("Execute a read-only SQL query (SELECT, SHOW, DESCRIBE, EXPLAIN only)"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The SQL query to execute"),
		),
		mcp.WithString("database",
			mcp.Description("Database name (optional, defaults to the configured database)"),
		),
	)
	s.AddTool(executeQuery, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, ok := request.Params.Arguments["query"].(string)
		if !ok || query == "" {
			return errorResult("Missing or invalid 'query' parameter"), nil
		}
		requestID := uuid.NewString()
		database, _ := request.Params.Arguments["database"].(string)
		slog.Info("tool invoked", "tool", "execute_query", "request_id", requestID, "database", database)

		result, err := executor.ExecuteQuery(ctx, query, database)
		if err != nil {
			return failureResult("execute_query", requestID, err)
		}
		return jsonResult(QueryResponse{
			Success:  true,
			Rows:     result.Rows,
			RowCount: result.RowCount,
			Fields:   result.Fields,
		})
	})
}

func registerSchemaResource(s *server.MCPServer, inspector *Inspector) {
	template := mcp.NewResourceTemplate(
		"schema://{database}",
		"Database schema",
		mcp.WithTemplateDescription("Human-readable column listing for every table in the database"),
		mcp.WithTemplateMIMEType("text/plain"),
	)
	// Driver errors propagate to the transport here: the resource payload is
	// plain text and carries no success flag, unlike the tool envelopes.
	s.AddResourceTemplate(template, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		database, err := schemaURIDatabase(request.Params.URI)
		if err != nil {
			return nil, err
		}
		slog.Info("resource read", "uri", request.Params.URI)

		text, err := inspector.SchemaText(ctx, database)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "text/plain",
				Text:     text,
			},
		}, nil
	})
}

func registerConnectPrompt(s *server.MCPServer) {
	prompt := mcp.NewPrompt("connect_database",
		mcp.WithPromptDescription("Create a prompt for connecting to a database"),
	)
	s.AddPrompt(prompt, func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return mcp.NewGetPromptResult(
			"Connect to a MySQL database",
			[]mcp.PromptMessage{
				mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(connectDatabasePrompt)),
			},
		), nil
	})
}

// schemaURIDatabase extracts the database name from a schema://{database} URI.
func schemaURIDatabase(uri string) (string, error) {
	database := strings.TrimPrefix(uri, "schema://")
	if database == uri || database == "" || strings.Contains(database, "/") {
		return "", fmt.Errorf("invalid schema resource URI: %s", uri)
	}
	return database, nil
}

// failureResult recovers an operation error into the structured failure
// envelope. Tool callers never see a raised fault.
func failureResult(tool, requestID string, err error) (*mcp.CallToolResult, error) {
	slog.Error("tool failed", "tool", tool, "request_id", requestID, "error", err)
	return jsonResult(FailureResponse{Success: false, Error: err.Error()})
}

// errorResult builds a protocol-level error result for malformed tool
// arguments that never reach a component.
func errorResult(message string) *mcp.CallToolResult {
	result := mcp.NewToolResultText(message)
	result.IsError = true
	return result
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
