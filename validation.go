package main

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrQueryNotAllowed is returned for statements that do not begin with an
// allowed read-only keyword. The message text is part of the tool contract.
var ErrQueryNotAllowed = errors.New("Only SELECT, SHOW, DESCRIBE, and EXPLAIN queries are allowed")

// readOnlyPrefixes lists the statement keywords execute_query accepts. The
// check runs against the trimmed, upper-cased text; the original query is
// what gets executed. Statement batching cannot defeat the check because the
// driver DSN never enables multiStatements.
var readOnlyPrefixes = []string{"SELECT", "SHOW", "DESCRIBE", "EXPLAIN"}

func validateReadOnlyQuery(query string) error {
	normalized := strings.ToUpper(strings.TrimSpace(query))
	for _, prefix := range readOnlyPrefixes {
		if strings.HasPrefix(normalized, prefix) {
			return nil
		}
	}
	return ErrQueryNotAllowed
}

var identifierPattern = regexp.MustCompile(`^[0-9A-Za-z$_]+$`)

// quoteIdentifier validates a database or table name against a conservative
// allow-list and wraps it in backticks. Identifiers arrive from the MCP
// client and must never reach statement text unquoted.
func quoteIdentifier(name string) (string, error) {
	if !identifierPattern.MatchString(name) {
		return "", fmt.Errorf("invalid identifier: %q", name)
	}
	return "`" + name + "`", nil
}
