// Package config loads the service configuration from the environment
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Runner backends
const (
	BackendLocal = "local"
	BackendSlurm = "slurm"
)

// Defaults
const (
	DefaultListenAddr        = ":8080"
	DefaultJobRoot           = "/var/lib/searchjobs/jobs"
	DefaultBlastBinary       = "blastp"
	DefaultFoldseekBinary    = "foldseek"
	DefaultBlastMaxTargets   = 500
	DefaultRetentionHorizon  = 7 * 24 * time.Hour
	DefaultFetchTimeout      = 30 * time.Second
	DefaultStatusStaleAfter  = 24 * time.Hour
	DefaultPDBURLTemplate    = "https://files.rcsb.org/download/{id}.cif"
	DefaultAlphaFoldTemplate = "https://alphafold.ebi.ac.uk/files/AF-{acc}-F1-model_v4.pdb"
)

// Config holds the whole service configuration
type Config struct {
	ListenAddr       string
	JobRoot          string
	StatusStaleAfter time.Duration
	LogLevel         string

	Runner    RunnerConfig
	Retention RetentionConfig
	Fetch     FetchConfig
	Database  DatabaseConfig
}

// RunnerConfig selects and configures the tool runner backend
type RunnerConfig struct {
	Backend         string
	BlastBinary     string
	BlastDB         string
	BlastMaxTargets int
	FoldseekBinary  string
	FoldseekDB      string
	Slurm           SlurmConfig
}

// SlurmConfig configures the batch scheduler backend
type SlurmConfig struct {
	Sbatch        string
	Squeue        string
	Partition     string
	TimeLimit     string
	JobNamePrefix string
}

// RetentionConfig configures the job directory reaper
type RetentionConfig struct {
	Horizon    time.Duration
	Schedule   string // cron expression, empty disables scheduled sweeps
	AdminToken string // bearer token of the cleanup endpoint, empty disables it
}

// FetchConfig configures upstream structure downloads
type FetchConfig struct {
	PDBURLTemplate       string
	AlphaFoldURLTemplate string
	Timeout              time.Duration
}

// DatabaseConfig holds the domain store connection settings
type DatabaseConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	SSLEnabled bool
}

// Load reads an optional .env file and then the environment.
// A missing env file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		ListenAddr:       GetEnv("LISTEN_ADDR", DefaultListenAddr),
		JobRoot:          GetEnv("JOB_ROOT", DefaultJobRoot),
		StatusStaleAfter: GetEnvDuration("STATUS_STALE_AFTER", DefaultStatusStaleAfter),
		LogLevel:         GetEnv("LOG_LEVEL", "info"),
		Runner: RunnerConfig{
			Backend:         GetEnv("RUNNER_BACKEND", BackendLocal),
			BlastBinary:     GetEnv("BLAST_BINARY", DefaultBlastBinary),
			BlastDB:         GetEnv("BLAST_DB", ""),
			BlastMaxTargets: GetEnvInt("BLAST_MAX_TARGETS", DefaultBlastMaxTargets),
			FoldseekBinary:  GetEnv("FOLDSEEK_BINARY", DefaultFoldseekBinary),
			FoldseekDB:      GetEnv("FOLDSEEK_DB", ""),
			Slurm: SlurmConfig{
				Sbatch:        GetEnv("SLURM_SBATCH", "sbatch"),
				Squeue:        GetEnv("SLURM_SQUEUE", "squeue"),
				Partition:     GetEnv("SLURM_PARTITION", ""),
				TimeLimit:     GetEnv("SLURM_TIME_LIMIT", "02:00:00"),
				JobNamePrefix: GetEnv("SLURM_JOB_NAME_PREFIX", "searchjobs"),
			},
		},
		Retention: RetentionConfig{
			Horizon:    GetEnvDuration("RETENTION_HORIZON", DefaultRetentionHorizon),
			Schedule:   GetEnv("CLEANUP_SCHEDULE", ""),
			AdminToken: GetEnv("ADMIN_TOKEN", ""),
		},
		Fetch: FetchConfig{
			PDBURLTemplate:       GetEnv("PDB_URL_TEMPLATE", DefaultPDBURLTemplate),
			AlphaFoldURLTemplate: GetEnv("ALPHAFOLD_URL_TEMPLATE", DefaultAlphaFoldTemplate),
			Timeout:              GetEnvDuration("FETCH_TIMEOUT", DefaultFetchTimeout),
		},
		Database: DatabaseConfig{
			Host:       GetEnv("DB_HOST", "localhost"),
			Port:       GetEnvInt("DB_PORT", 5432),
			User:       GetEnv("DB_USER", "postgres"),
			Password:   GetEnv("DB_PASSWORD", "postgres"),
			DBName:     GetEnv("DB_NAME", "domains"),
			SSLEnabled: GetEnvBool("DB_SSL_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	if c.JobRoot == "" {
		return fmt.Errorf("JOB_ROOT is required")
	}
	switch c.Runner.Backend {
	case BackendLocal, BackendSlurm:
	default:
		return fmt.Errorf("unsupported RUNNER_BACKEND %q", c.Runner.Backend)
	}
	if c.Runner.BlastMaxTargets <= 0 {
		return fmt.Errorf("BLAST_MAX_TARGETS must be positive")
	}
	if c.Retention.Horizon <= 0 {
		return fmt.Errorf("RETENTION_HORIZON must be positive")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if c.Retention.Schedule != "" {
		if _, err := ParseSchedule(c.Retention.Schedule); err != nil {
			return fmt.Errorf("invalid CLEANUP_SCHEDULE: %w", err)
		}
	}
	return nil
}

// ParseSchedule parses a five field cron expression or a descriptor
// such as "@daily" or "@every 6h"
func ParseSchedule(expr string) (cron.Schedule, error) {
	e := strings.TrimSpace(expr)
	if e == "" {
		return nil, errors.New("empty cron expression")
	}
	if strings.HasPrefix(e, "@") {
		return cron.ParseStandard(e)
	}
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(e)
}

// GetEnv retrieves the value of an environment variable with a fallback value if not set
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// GetEnvInt retrieves an integer environment variable, falling back when unset or malformed
func GetEnvInt(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

// GetEnvBool retrieves a boolean environment variable, falling back when unset or malformed
func GetEnvBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

// GetEnvDuration retrieves a duration such as "168h" or "30s",
// falling back when unset or malformed
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}
