package job

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/icdmatch/config"
	"github.com/viant/icdmatch/dataset"
	"github.com/viant/icdmatch/engine"
	"github.com/viant/icdmatch/match"
	"github.com/viant/icdmatch/vector"
)

func setup(t *testing.T) (*config.Config, *sql.DB) {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Database.DSN = filepath.Join(t.TempDir(), "job.sqlite")
	cfg.Match.BatchSize = 2

	db, err := engine.Open(cfg.Database.DSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE icd_10_codes (icd_10_code TEXT, embedded_description TEXT, description TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO icd_10_codes VALUES
		('A00', '[1, 0]', 'desc-a'),
		('B00', '[0, 1]', 'desc-b'),
		('C00', '[1, 1]', 'desc-c')`)
	require.NoError(t, err)

	_, err = db.Exec(`CREATE TABLE pmc_patient_with_embedded_diagnosis (patient_uid TEXT, symptoms TEXT, embedded_diagnosis)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO pmc_patient_with_embedded_diagnosis VALUES
		('p1', 'fever, cough', '[1, 0]'),
		('p2', 'rash', ?),
		('p3', '', '[0, 0]'),
		('p4', 'nausea', '[1, 0, 0]'),
		('p5', 'pain', NULL)`, vector.EncodeEmbedding([]float32{0.1, 0.9}))
	require.NoError(t, err)
	return cfg, db
}

func TestRun(t *testing.T) {
	cfg, db := setup(t)
	cfg.Match.Snapshot = filepath.Join(t.TempDir(), "reference.snapshot")
	var logs bytes.Buffer
	logger := zerolog.New(&logs)

	summary, err := New(cfg, db, logger).Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 3, summary.Reference)
	assert.Equal(t, 2, summary.Dim)
	assert.Equal(t, 5, summary.Records)
	assert.Equal(t, 2, summary.Matched)
	assert.Equal(t, 1, summary.Unmatched)
	assert.Equal(t, 2, summary.Failed)
	assert.Contains(t, logs.String(), "run finished")
	assert.Contains(t, logs.String(), summary.RunID)

	rows, err := db.Query(`SELECT patient_uid, code, score, error FROM pmc_patient_diagnosis_icd ORDER BY rowid`)
	require.NoError(t, err)
	defer rows.Close()
	got := map[string][3]any{}
	for rows.Next() {
		var id string
		var code, errText sql.NullString
		var score sql.NullFloat64
		require.NoError(t, rows.Scan(&id, &code, &score, &errText))
		got[id] = [3]any{code.String, score, errText.String}
	}
	require.NoError(t, rows.Err())
	require.Len(t, got, 5)
	assert.Equal(t, "A00", got["p1"][0])
	assert.Equal(t, "B00", got["p2"][0])
	assert.Equal(t, "", got["p3"][0])
	assert.Equal(t, sql.NullFloat64{Float64: -1, Valid: true}, got["p3"][1])
	assert.Contains(t, got["p4"][2], "dimension mismatch")
	assert.Contains(t, got["p5"][2], "missing embedding")

	restored, err := match.Load(cfg.Match.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, summary.Fingerprint, strconv.FormatUint(restored.Fingerprint(), 16))
	assert.Equal(t, 3, restored.Len())
}

func TestRun_RefusesToOverwriteInput(t *testing.T) {
	for _, output := range []string{
		"PMC_Patient_With_Embedded_Diagnosis",
		"main.pmc_patient_with_embedded_diagnosis",
		"Main.ICD_10_Codes",
	} {
		t.Run(output, func(t *testing.T) {
			cfg, db := setup(t)
			cfg.Output.Table = output
			assert.ErrorContains(t, cfg.Validate(), "must differ")

			_, err := New(cfg, db, zerolog.Nop()).Run(context.Background())
			require.Error(t, err)

			var n int
			require.NoError(t, db.QueryRow(`SELECT count(*) FROM pmc_patient_with_embedded_diagnosis`).Scan(&n))
			assert.Equal(t, 5, n)
			require.NoError(t, db.QueryRow(`SELECT count(*) FROM icd_10_codes`).Scan(&n))
			assert.Equal(t, 3, n)
		})
	}
}

func TestRun_RejectsBadReference(t *testing.T) {
	cfg, db := setup(t)
	_, err := db.Exec(`INSERT INTO icd_10_codes VALUES ('D00', '[1, 2, 3]', 'desc-d')`)
	require.NoError(t, err)

	_, err = New(cfg, db, zerolog.Nop()).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, vector.ErrDimensionMismatch)

	// Capping the reference set below the bad row lets the build succeed.
	cfg.Match.MaxReferenceRows = 3
	m, err := New(cfg, db, zerolog.Nop()).BuildMatcher(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())
}

func TestMatch_KeepsIngestionErrors(t *testing.T) {
	m, err := match.Build([]match.ReferenceRow{{Code: "A00", EmbeddingText: "[1, 0]"}})
	require.NoError(t, err)
	records := []dataset.Record{
		{Query: match.Query{Vector: []float32{1, 0}}},
		{Err: dataset.ErrMissingEmbedding},
		{Query: match.Query{Text: "[2, 0]"}},
	}
	out := Match(context.Background(), m, records)
	require.Len(t, out, 3)
	assert.Equal(t, "A00", out[0].Result.Code)
	assert.ErrorIs(t, out[1].Err, dataset.ErrMissingEmbedding)
	assert.Equal(t, match.Sentinel(), out[1].Result)
	assert.Equal(t, "A00", out[2].Result.Code)
}
