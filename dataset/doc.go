// Package dataset connects the matcher to SQLite tables: it loads reference
// codes, pages through patient records and writes the matched output table.
// Table and column names are interpolated into SQL as quoted identifiers;
// callers should still take them from trusted configuration only.
package dataset
