package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/viant/icdmatch/config"
	"github.com/viant/icdmatch/dataset"
	"github.com/viant/icdmatch/engine"
	"github.com/viant/icdmatch/job"
	"github.com/viant/icdmatch/logging"
	"github.com/viant/icdmatch/match"
	"github.com/viant/icdmatch/vector"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "icdmatch",
		Short:        "Match embedded patient diagnoses to the closest ICD-10 code",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (YAML)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the batch match from the patient table into the output table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd.Context(), cmd.ErrOrStderr(), configPath)
		},
	}

	var mf matchFlags
	matchCmd := &cobra.Command{
		Use:   "match",
		Short: "Match a single bracket-text vector against the reference table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return matchOne(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), configPath, mf)
		},
	}
	matchCmd.Flags().StringVar(&mf.vector, "vector", "", `Query vector, e.g. "[0.1, 0.2]"`)
	matchCmd.Flags().IntVar(&mf.top, "top", 1, "Number of candidates to print")
	matchCmd.Flags().Float32Var(&mf.minScore, "min-score", -1, "Only print candidates scoring above this value (used when --top > 1)")
	matchCmd.Flags().StringVar(&mf.snapshot, "snapshot", "", "Match against a reference snapshot written by run instead of the reference table")
	matchCmd.Flags().BoolVar(&mf.sql, "sql", false, "Rank the reference table inside SQLite with vec_cosine")
	matchCmd.MarkFlagsMutuallyExclusive("snapshot", "sql")
	_ = matchCmd.MarkFlagRequired("vector")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	rootCmd.AddCommand(runCmd, matchCmd, versionCmd)
	return rootCmd
}

func runJob(ctx context.Context, logOut io.Writer, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := engine.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("opening %s: %w", cfg.Database.DSN, err)
	}
	defer db.Close()

	_, err = job.New(cfg, db, logger).Run(ctx)
	return err
}

type matchFlags struct {
	vector   string
	top      int
	minScore float32
	snapshot string
	sql      bool
}

func matchOne(ctx context.Context, out, logOut io.Writer, configPath string, mf matchFlags) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return err
	}
	query, err := vector.ParseText(mf.vector)
	if err != nil {
		return err
	}

	var results []match.Result
	if mf.snapshot != "" {
		m, err := match.Load(mf.snapshot, match.WithWorkers(cfg.Match.Workers))
		if err != nil {
			return err
		}
		results, err = matchWith(m, query, mf)
		if err != nil {
			return err
		}
	} else {
		db, err := engine.Open(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("opening %s: %w", cfg.Database.DSN, err)
		}
		defer db.Close()

		j := job.New(cfg, db, logger)
		if mf.sql {
			results, err = rankSQL(ctx, j.Reference(), query, mf, cfg.Match.MaxReferenceRows)
		} else {
			var m *match.Matcher
			if m, err = j.BuildMatcher(ctx); err == nil {
				results, err = matchWith(m, query, mf)
			}
		}
		if err != nil {
			return err
		}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(toOutput(results))
}

func matchWith(m *match.Matcher, query []float32, mf matchFlags) ([]match.Result, error) {
	if mf.top > 1 {
		return m.Candidates(query, mf.top, mf.minScore)
	}
	best, err := m.BestMatch(query)
	if err != nil {
		return nil, err
	}
	return []match.Result{best}, nil
}

func rankSQL(ctx context.Context, src *dataset.ReferenceSource, query []float32, mf matchFlags, limit int) ([]match.Result, error) {
	k := max(mf.top, 1)
	ranked, err := src.Rank(ctx, query, k, limit)
	if err != nil {
		return nil, err
	}
	if mf.top <= 1 {
		if len(ranked) == 0 {
			return []match.Result{match.Sentinel()}, nil
		}
		return ranked[:1], nil
	}
	var results []match.Result
	for _, r := range ranked {
		if r.Score > mf.minScore {
			results = append(results, r)
		}
	}
	return results, nil
}

type output struct {
	Code       string  `json:"code"`
	VectorText string  `json:"vector_text"`
	Label      string  `json:"label"`
	Score      float32 `json:"score"`
}

func toOutput(results []match.Result) []output {
	out := make([]output, len(results))
	for i, r := range results {
		out[i] = output{Code: r.Code, VectorText: r.VectorText, Label: r.Label, Score: r.Score}
	}
	return out
}
