package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/viant/icdmatch/match"
	"github.com/viant/icdmatch/vector"
)

// ErrMissingEmbedding marks a patient record whose embedding column is NULL.
var ErrMissingEmbedding = errors.New("dataset: missing embedding")

// Record is one patient row with all of its original columns.
type Record struct {
	RowID  int64
	Values []any
	// Query is the embedding column as a matcher query.
	Query match.Query
	// Symptoms is the symptoms column split on commas.
	Symptoms []string
	// Err is set when the embedding column cannot be turned into a query.
	Err error
}

// PatientSource pages through a patient table.
type PatientSource struct {
	DB              *sql.DB
	Table           string
	EmbeddingColumn string
	// SymptomsColumn is optional; when empty no splitting happens.
	SymptomsColumn string
}

// Columns returns the patient table column names in declaration order.
func (s *PatientSource) Columns(ctx context.Context) ([]string, error) {
	if s.DB == nil {
		return nil, fmt.Errorf("dataset: patient db is nil")
	}
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", quoteIdent(s.Table)))
	if err != nil {
		return nil, fmt.Errorf("dataset: query patient table %s: %w", s.Table, err)
	}
	defer rows.Close()
	return rows.Columns()
}

// Scan reads the table in rowid order, batchSize rows at a time, and calls fn
// for every page. Each page is fully read and its cursor closed before fn
// runs, so fn may write to the same database.
func (s *PatientSource) Scan(ctx context.Context, batchSize int, fn func(columns []string, records []Record) error) error {
	if batchSize <= 0 {
		batchSize = 512
	}
	columns, err := s.Columns(ctx)
	if err != nil {
		return err
	}
	embIdx, symIdx := -1, -1
	for i, c := range columns {
		switch c {
		case s.EmbeddingColumn:
			embIdx = i
		case s.SymptomsColumn:
			symIdx = i
		}
	}
	if embIdx < 0 {
		return fmt.Errorf("dataset: patient table %s has no column %q", s.Table, s.EmbeddingColumn)
	}
	if s.SymptomsColumn != "" && symIdx < 0 {
		return fmt.Errorf("dataset: patient table %s has no column %q", s.Table, s.SymptomsColumn)
	}

	q := fmt.Sprintf("SELECT rowid, * FROM %s WHERE rowid > ? ORDER BY rowid LIMIT ?", quoteIdent(s.Table))
	last := int64(-1 << 63)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		records, err := s.page(ctx, q, last, batchSize, len(columns), embIdx, symIdx)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		if err := fn(columns, records); err != nil {
			return err
		}
		last = records[len(records)-1].RowID
		if len(records) < batchSize {
			return nil
		}
	}
}

func (s *PatientSource) page(ctx context.Context, q string, after int64, limit, width, embIdx, symIdx int) ([]Record, error) {
	rows, err := s.DB.QueryContext(ctx, q, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec := Record{Values: make([]any, width)}
		dest := make([]any, width+1)
		dest[0] = &rec.RowID
		for i := range rec.Values {
			dest[i+1] = &rec.Values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		rec.Query, rec.Err = toQuery(rec.Values[embIdx])
		rec.Symptoms = []string{}
		if symIdx >= 0 {
			if text, ok := asText(rec.Values[symIdx]); ok {
				rec.Symptoms = match.SplitField(text)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func toQuery(v any) (match.Query, error) {
	switch val := v.(type) {
	case nil:
		return match.Query{}, ErrMissingEmbedding
	case string:
		return match.Query{Text: val}, nil
	case []byte:
		vec, err := vector.DecodeEmbedding(val)
		if err != nil {
			return match.Query{}, err
		}
		return match.Query{Vector: vec}, nil
	default:
		return match.Query{}, fmt.Errorf("dataset: unsupported embedding type %T", v)
	}
}

func asText(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case []byte:
		return string(val), true
	default:
		return "", false
	}
}
