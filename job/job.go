// Package job runs one nearest-code batch: it loads the reference set once,
// builds a Matcher, and streams patient records through it into the output
// table.
package job

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/viant/icdmatch/config"
	"github.com/viant/icdmatch/dataset"
	"github.com/viant/icdmatch/match"
)

// Summary describes a finished run.
type Summary struct {
	RunID       string
	Reference   int
	Dim         int
	Fingerprint string
	Records     int
	Matched     int
	Unmatched   int
	Failed      int
	Elapsed     time.Duration
}

// Job wires the configured tables to a Matcher.
type Job struct {
	cfg    *config.Config
	db     *sql.DB
	logger zerolog.Logger
}

// New creates a Job over an open database.
func New(cfg *config.Config, db *sql.DB, logger zerolog.Logger) *Job {
	return &Job{cfg: cfg, db: db, logger: logger}
}

// Reference returns the configured reference table source.
func (j *Job) Reference() *dataset.ReferenceSource {
	return &dataset.ReferenceSource{
		DB:              j.db,
		Table:           j.cfg.Reference.Table,
		CodeColumn:      j.cfg.Reference.CodeColumn,
		LabelColumn:     j.cfg.Reference.LabelColumn,
		EmbeddingColumn: j.cfg.Reference.EmbeddingColumn,
	}
}

// BuildMatcher loads the reference table and builds the Matcher.
func (j *Job) BuildMatcher(ctx context.Context) (*match.Matcher, error) {
	src := j.Reference()
	rows, err := src.Load(ctx, j.cfg.Match.MaxReferenceRows)
	if err != nil {
		return nil, err
	}
	m, err := match.Build(rows,
		match.WithMaxRows(j.cfg.Match.MaxReferenceRows),
		match.WithWorkers(j.cfg.Match.Workers))
	if err != nil {
		return nil, fmt.Errorf("building reference set from %s: %w", src.Table, err)
	}
	return m, nil
}

// Run executes the batch and returns its summary. Per-record failures are
// written to the output table and counted, they do not fail the run.
func (j *Job) Run(ctx context.Context) (*Summary, error) {
	started := time.Now()
	summary := &Summary{RunID: uuid.NewString()}
	logger := j.logger.With().Str("run_id", summary.RunID).Logger()

	m, err := j.BuildMatcher(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("reference set rejected")
		return nil, err
	}
	summary.Reference = m.Len()
	summary.Dim = m.Dim()
	summary.Fingerprint = strconv.FormatUint(m.Fingerprint(), 16)
	logger.Info().
		Int("reference_rows", summary.Reference).
		Int("dim", summary.Dim).
		Str("fingerprint", summary.Fingerprint).
		Int("max_reference_rows", j.cfg.Match.MaxReferenceRows).
		Msg("reference set built")
	if path := j.cfg.Match.Snapshot; path != "" {
		if err := m.Save(path); err != nil {
			logger.Error().Err(err).Msg("snapshot not written")
			return nil, err
		}
		logger.Info().Str("path", path).Msg("reference snapshot written")
	}
	if m.Len() == 0 {
		logger.Warn().Str("table", j.cfg.Reference.Table).Msg("reference set is empty, every record gets the no-match result")
	}

	src := &dataset.PatientSource{
		DB:              j.db,
		Table:           j.cfg.Patients.Table,
		EmbeddingColumn: j.cfg.Patients.EmbeddingColumn,
		SymptomsColumn:  j.cfg.Patients.SymptomsColumn,
	}
	columns, err := src.Columns(ctx)
	if err != nil {
		return nil, err
	}
	sink := &dataset.ResultSink{
		DB:             j.db,
		Table:          j.cfg.Output.Table,
		SymptomsColumn: j.cfg.Patients.SymptomsColumn,
		InputTables:    []string{j.cfg.Patients.Table, j.cfg.Reference.Table},
	}
	if err := sink.Prepare(ctx, columns); err != nil {
		return nil, err
	}

	err = src.Scan(ctx, j.cfg.Match.BatchSize, func(_ []string, records []dataset.Record) error {
		outcomes := Match(ctx, m, records)
		for i, o := range outcomes {
			switch {
			case o.Err != nil:
				summary.Failed++
				logger.Debug().Int64("rowid", records[i].RowID).Err(o.Err).Msg("record not matched")
			case o.Result.Found():
				summary.Matched++
			default:
				summary.Unmatched++
			}
		}
		summary.Records += len(records)
		if err := sink.Write(ctx, records, outcomes); err != nil {
			return fmt.Errorf("writing %s: %w", sink.Table, err)
		}
		logger.Debug().Int("records", summary.Records).Msg("batch written")
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Int("records", summary.Records).Msg("run aborted")
		return nil, err
	}

	summary.Elapsed = time.Since(started)
	logger.Info().
		Int("records", summary.Records).
		Int("matched", summary.Matched).
		Int("unmatched", summary.Unmatched).
		Int("failed", summary.Failed).
		Dur("elapsed", summary.Elapsed).
		Str("output", j.cfg.Output.Table).
		Msg("run finished")
	return summary, nil
}

// Match runs the batch match over records, keeping any record-level ingestion
// error instead of matching that record.
func Match(ctx context.Context, m *match.Matcher, records []dataset.Record) []match.Outcome {
	queries := make([]match.Query, 0, len(records))
	pos := make([]int, 0, len(records))
	outcomes := make([]match.Outcome, len(records))
	for i := range records {
		if records[i].Err != nil {
			outcomes[i] = match.Outcome{Result: match.Sentinel(), Err: records[i].Err}
			continue
		}
		queries = append(queries, records[i].Query)
		pos = append(pos, i)
	}
	for n, o := range m.BestMatchBatch(ctx, queries) {
		outcomes[pos[n]] = o
	}
	return outcomes
}
