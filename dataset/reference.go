package dataset

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/viant/icdmatch/match"
	"github.com/viant/icdmatch/vector"
)

// ReferenceSource reads (code, label, embedding) rows from a reference table.
type ReferenceSource struct {
	DB              *sql.DB
	Table           string
	CodeColumn      string
	LabelColumn     string
	EmbeddingColumn string
}

// Load returns reference rows in rowid order. When limit > 0 at most limit
// rows are read. Embeddings stored as float32 BLOBs are converted to the
// bracket text form.
func (s *ReferenceSource) Load(ctx context.Context, limit int) ([]match.ReferenceRow, error) {
	if s.DB == nil {
		return nil, fmt.Errorf("dataset: reference db is nil")
	}
	q := fmt.Sprintf("SELECT %s, %s, %s FROM %s ORDER BY rowid",
		quoteIdent(s.CodeColumn), quoteIdent(s.LabelColumn), quoteIdent(s.EmbeddingColumn), quoteIdent(s.Table))
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("dataset: query reference table %s: %w", s.Table, err)
	}
	defer rows.Close()

	var out []match.ReferenceRow
	for rows.Next() {
		var code, label sql.NullString
		var emb any
		if err := rows.Scan(&code, &label, &emb); err != nil {
			return nil, err
		}
		text, err := embeddingText(emb)
		if err != nil {
			return nil, fmt.Errorf("dataset: reference row %d (%s): %w", len(out), code.String, err)
		}
		out = append(out, match.ReferenceRow{Code: code.String, Label: label.String, EmbeddingText: text})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Rank scores the first limit reference rows (all when limit <= 0) against
// query with the vec_cosine SQL function and returns up to k results (all
// when k <= 0), most similar first, ties in rowid order. Rows with a NULL or
// zero-magnitude embedding are skipped.
func (s *ReferenceSource) Rank(ctx context.Context, query []float32, k, limit int) ([]match.Result, error) {
	if s.DB == nil {
		return nil, fmt.Errorf("dataset: reference db is nil")
	}
	if k <= 0 {
		k = -1
	}
	if limit <= 0 {
		limit = -1
	}
	q := fmt.Sprintf(`SELECT ref_code, ref_label, ref_embedding, score FROM (
    SELECT rowid AS ref_rowid, %s AS ref_code, %s AS ref_label, %s AS ref_embedding, vec_cosine(%s, ?) AS score
    FROM %s ORDER BY rowid LIMIT ?
) WHERE score IS NOT NULL ORDER BY score DESC, ref_rowid LIMIT ?`,
		quoteIdent(s.CodeColumn), quoteIdent(s.LabelColumn), quoteIdent(s.EmbeddingColumn),
		quoteIdent(s.EmbeddingColumn), quoteIdent(s.Table))
	rows, err := s.DB.QueryContext(ctx, q, vector.EncodeEmbedding(query), limit, k)
	if err != nil {
		return nil, fmt.Errorf("dataset: rank reference table %s: %w", s.Table, err)
	}
	defer rows.Close()

	var out []match.Result
	for rows.Next() {
		var code, label sql.NullString
		var emb any
		var score float64
		if err := rows.Scan(&code, &label, &emb, &score); err != nil {
			return nil, err
		}
		text, err := embeddingText(emb)
		if err != nil {
			return nil, err
		}
		vec, err := vector.ParseText(text)
		if err != nil {
			return nil, fmt.Errorf("dataset: reference %s: %w", code.String, err)
		}
		out = append(out, match.Result{
			Code:       code.String,
			Vector:     vec,
			VectorText: vector.FormatText(vec),
			Label:      label.String,
			Score:      float32(score),
		})
	}
	return out, rows.Err()
}

func embeddingText(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", ErrMissingEmbedding
	case string:
		return val, nil
	case []byte:
		vec, err := vector.DecodeEmbedding(val)
		if err != nil {
			return "", err
		}
		return vector.FormatText(vec), nil
	default:
		return "", fmt.Errorf("unsupported embedding type %T", v)
	}
}
