package dataset

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viant/icdmatch/match"
)

// Output columns appended to every patient row.
const (
	CodeColumn       = "code"
	VectorTextColumn = "vector_text"
	LabelColumn      = "label"
	ScoreColumn      = "score"
	ErrorColumn      = "error"
)

var appendedColumns = []string{CodeColumn, VectorTextColumn, LabelColumn, ScoreColumn, ErrorColumn}

// ResultSink writes patient rows plus their match into an output table.
type ResultSink struct {
	DB    *sql.DB
	Table string
	// SymptomsColumn, when set, is rewritten as a JSON array of the split
	// symptoms.
	SymptomsColumn string
	// InputTables lists the tables the run reads from; Prepare refuses to
	// replace any of them.
	InputTables []string

	columns []string
	insert  string
}

// Prepare (re)creates the output table with the original columns followed by
// code, vector_text, label, score and error. It fails when the output table
// resolves to one of the InputTables.
func (s *ResultSink) Prepare(ctx context.Context, columns []string) error {
	if s.DB == nil {
		return fmt.Errorf("dataset: result db is nil")
	}
	if err := s.checkInputs(ctx); err != nil {
		return err
	}
	defs := make([]string, 0, len(columns)+len(appendedColumns))
	for _, c := range columns {
		for _, a := range appendedColumns {
			if strings.EqualFold(c, a) {
				return fmt.Errorf("dataset: input column %q collides with output column", c)
			}
		}
		defs = append(defs, quoteIdent(c))
	}
	defs = append(defs,
		quoteIdent(CodeColumn)+" TEXT",
		quoteIdent(VectorTextColumn)+" TEXT",
		quoteIdent(LabelColumn)+" TEXT",
		quoteIdent(ScoreColumn)+" REAL",
		quoteIdent(ErrorColumn)+" TEXT",
	)

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(s.Table)); err != nil {
		return err
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (\n    %s\n)", quoteIdent(s.Table), strings.Join(defs, ",\n    "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	all := append(append([]string(nil), columns...), appendedColumns...)
	quoted := make([]string, len(all))
	for i, c := range all {
		quoted[i] = quoteIdent(c)
	}
	s.columns = columns
	s.insert = fmt.Sprintf("INSERT INTO %s(%s) VALUES(%s)", quoteIdent(s.Table),
		strings.Join(quoted, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(all)), ", "))
	return nil
}

func (s *ResultSink) checkInputs(ctx context.Context) error {
	out, ok, err := resolveTable(ctx, s.DB, s.Table)
	if err != nil {
		return fmt.Errorf("dataset: resolve output table %s: %w", s.Table, err)
	}
	if !ok {
		return nil
	}
	for _, in := range s.InputTables {
		stored, found, err := resolveTable(ctx, s.DB, in)
		if err != nil {
			return fmt.Errorf("dataset: resolve input table %s: %w", in, err)
		}
		if found && stored == out {
			return fmt.Errorf("dataset: output table %s is input table %s", s.Table, in)
		}
	}
	return nil
}

// Write inserts records with their outcomes in one transaction. records and
// outcomes are parallel slices.
func (s *ResultSink) Write(ctx context.Context, records []Record, outcomes []match.Outcome) error {
	if s.insert == "" {
		return fmt.Errorf("dataset: result sink %s not prepared", s.Table)
	}
	if len(records) != len(outcomes) {
		return fmt.Errorf("dataset: records and outcomes length mismatch: %d != %d", len(records), len(outcomes))
	}
	if len(records) == 0 {
		return nil
	}
	symIdx := -1
	for i, c := range s.columns {
		if s.SymptomsColumn != "" && c == s.SymptomsColumn {
			symIdx = i
		}
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.insert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, rec := range records {
		if len(rec.Values) != len(s.columns) {
			return fmt.Errorf("dataset: record %d has %d values, want %d", i, len(rec.Values), len(s.columns))
		}
		args := make([]any, 0, len(s.columns)+len(appendedColumns))
		args = append(args, rec.Values...)
		if symIdx >= 0 {
			data, err := json.Marshal(rec.Symptoms)
			if err != nil {
				return err
			}
			args[symIdx] = string(data)
		}
		args = append(args, outcomeArgs(outcomes[i])...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// outcomeArgs returns code, vector_text, label, score, error. A failed row
// carries NULL match fields; the no-match sentinel carries NULL code and
// label, an empty vector_text and score -1.
func outcomeArgs(o match.Outcome) []any {
	if o.Err != nil {
		return []any{nil, nil, nil, nil, o.Err.Error()}
	}
	r := o.Result
	if !r.Found() {
		return []any{nil, r.VectorText, nil, float64(r.Score), nil}
	}
	return []any{r.Code, r.VectorText, r.Label, float64(r.Score), nil}
}
