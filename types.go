package main

// Tool response envelopes. Every tool reply carries an explicit success flag;
// failures carry only the error text.

type ListDatabasesResponse struct {
	Success   bool     `json:"success"`
	Databases []string `json:"databases"`
}

type ListTablesResponse struct {
	Success bool     `json:"success"`
	Tables  []string `json:"tables"`
}

type DescribeTableResponse struct {
	Success bool     `json:"success"`
	Columns []Column `json:"columns"`
}

type QueryResponse struct {
	Success  bool             `json:"success"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"rowCount"`
	Fields   []string         `json:"fields"`
}

type FailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Column describes one table column as reported by DESCRIBE, in the
// database's natural column order. Default is nil for columns without a
// default value.
type Column struct {
	Field   string  `json:"Field"`
	Type    string  `json:"Type"`
	Null    string  `json:"Null"`
	Key     string  `json:"Key"`
	Default *string `json:"Default"`
	Extra   string  `json:"Extra"`
}

// QueryResult is the shaped outcome of a successful execute_query, before
// the dispatcher wraps it in a QueryResponse.
type QueryResult struct {
	Rows     []map[string]any
	RowCount int
	Fields   []string
}
