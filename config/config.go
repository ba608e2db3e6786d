package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the batch job configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Reference ReferenceConfig `mapstructure:"reference"`
	Patients  PatientsConfig  `mapstructure:"patients"`
	Output    OutputConfig    `mapstructure:"output"`
	Match     MatchConfig     `mapstructure:"match"`
	Log       LogConfig       `mapstructure:"log"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type ReferenceConfig struct {
	Table           string `mapstructure:"table"`
	CodeColumn      string `mapstructure:"code_column"`
	LabelColumn     string `mapstructure:"label_column"`
	EmbeddingColumn string `mapstructure:"embedding_column"`
}

type PatientsConfig struct {
	Table           string `mapstructure:"table"`
	EmbeddingColumn string `mapstructure:"embedding_column"`
	SymptomsColumn  string `mapstructure:"symptoms_column"`
}

type OutputConfig struct {
	Table string `mapstructure:"table"`
}

// MatchConfig tunes the matcher. MaxReferenceRows <= 0 disables the cap and
// Workers <= 0 uses GOMAXPROCS. When Snapshot is set, run writes the built
// reference set there for later ad-hoc matching.
type MatchConfig struct {
	MaxReferenceRows int    `mapstructure:"max_reference_rows"`
	Workers          int    `mapstructure:"workers"`
	BatchSize        int    `mapstructure:"batch_size"`
	Snapshot         string `mapstructure:"snapshot"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.dsn", "icdmatch.sqlite")
	v.SetDefault("reference.table", "icd_10_codes")
	v.SetDefault("reference.code_column", "icd_10_code")
	v.SetDefault("reference.label_column", "description")
	v.SetDefault("reference.embedding_column", "embedded_description")
	v.SetDefault("patients.table", "pmc_patient_with_embedded_diagnosis")
	v.SetDefault("patients.embedding_column", "embedded_diagnosis")
	v.SetDefault("patients.symptoms_column", "symptoms")
	v.SetDefault("output.table", "pmc_patient_diagnosis_icd")
	v.SetDefault("match.max_reference_rows", 1000)
	v.SetDefault("match.workers", 0)
	v.SetDefault("match.batch_size", 512)
	v.SetDefault("match.snapshot", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	required := []struct {
		key, value string
	}{
		{"database.dsn", c.Database.DSN},
		{"reference.table", c.Reference.Table},
		{"reference.code_column", c.Reference.CodeColumn},
		{"reference.label_column", c.Reference.LabelColumn},
		{"reference.embedding_column", c.Reference.EmbeddingColumn},
		{"patients.table", c.Patients.Table},
		{"patients.embedding_column", c.Patients.EmbeddingColumn},
		{"output.table", c.Output.Table},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.key))
		}
	}
	if c.Output.Table != "" && (sameTable(c.Output.Table, c.Patients.Table) || sameTable(c.Output.Table, c.Reference.Table)) {
		errs = append(errs, fmt.Errorf("output.table %q must differ from the input tables", c.Output.Table))
	}
	if c.Match.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("match.batch_size %d must be positive", c.Match.BatchSize))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or console", c.Log.Format))
	}
	return errors.Join(errs...)
}

// sameTable compares table names the way SQLite resolves them: ASCII
// case-insensitively, with "main." being the default schema.
func sameTable(a, b string) bool {
	return strings.EqualFold(unqualified(a), unqualified(b))
}

func unqualified(name string) string {
	name = strings.TrimSpace(name)
	if schema, rest, ok := strings.Cut(name, "."); ok && strings.EqualFold(schema, "main") {
		return rest
	}
	return name
}

// Load reads configuration from an optional file, a .env file in the working
// directory and ICDMATCH_* environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("ICDMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
