package engine

import (
	"path/filepath"
	"testing"
)

// TestOpenInMemory verifies that we can open an in-memory SQLite database
// using the modernc.org/sqlite driver and execute a trivial statement.
func TestOpenInMemory(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("CREATE TABLE t(x INTEGER)"); err != nil {
		t.Fatalf("CREATE TABLE failed: %v", err)
	}
	if _, err := db.Exec("INSERT INTO t(x) VALUES (1),(2),(3)"); err != nil {
		t.Fatalf("INSERT failed: %v", err)
	}
}

// TestOrderByVecCosineOverTextColumn ranks reference rows stored in the
// bracket text form directly in SQL.
func TestOrderByVecCosineOverTextColumn(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "codes.sqlite"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE codes(code TEXT, embedded TEXT)`); err != nil {
		t.Fatalf("CREATE TABLE failed: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO codes(code, embedded) VALUES
		('A00', '[1, 0]'),
		('B00', '[0, 1]'),
		('C00', '[0.9, 0.1]')`); err != nil {
		t.Fatalf("INSERT failed: %v", err)
	}

	rows, err := db.Query(`SELECT code FROM codes ORDER BY vec_cosine(embedded, ?) DESC`, "[1, 0]")
	if err != nil {
		t.Fatalf("ORDER BY vec_cosine query failed: %v", err)
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows.Err: %v", err)
	}
	want := []string{"A00", "C00", "B00"}
	if len(codes) != len(want) {
		t.Fatalf("codes = %v, want %v", codes, want)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes = %v, want %v", codes, want)
		}
	}
}
