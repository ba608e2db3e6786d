package dataset

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// quoteIdent quotes a possibly schema-qualified identifier ("main.t").
func quoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

// resolveTable returns the stored name of a table or view in the main schema
// matching name the way SQLite resolves identifiers: case-insensitively, with
// an optional "main." qualifier. ok is false when no such table exists or
// name points at another schema.
func resolveTable(ctx context.Context, db *sql.DB, name string) (stored string, ok bool, err error) {
	n := strings.TrimSpace(name)
	if schema, rest, found := strings.Cut(n, "."); found {
		if !strings.EqualFold(schema, "main") {
			return "", false, nil
		}
		n = rest
	}
	err = db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name = ? COLLATE NOCASE`, n).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return stored, true, nil
}
