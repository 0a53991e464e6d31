// Package config loads the YAML configuration of the grading commands.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"evograder/internal/common/cache"
	"evograder/internal/common/db"
	"evograder/internal/common/mq"
	"evograder/internal/common/storage"
	"evograder/pkg/utils/logger"
)

// AppConfig is the top-level configuration shared by grading-worker and
// grade-attempt. Redis and Kafka are optional; a worker runs without
// grader caching and event publishing when they are absent.
type AppConfig struct {
	Logger   logger.Config  `yaml:"logger"`
	Database db.MySQLConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    *cache.RedisConfig `yaml:"redis"`
	Events   *EventsConfig  `yaml:"events"`
	Worker   WorkerConfig   `yaml:"worker"`
	Ops      OpsConfig      `yaml:"ops"`
}

// StorageConfig selects the blob store backend.
type StorageConfig struct {
	// Type is "minio" or "filesystem".
	Type       string              `yaml:"type"`
	MinIO      storage.MinIOConfig `yaml:"minio"`
	Filesystem FilesystemConfig    `yaml:"filesystem"`
}

type FilesystemConfig struct {
	Root string `yaml:"root"`
}

// EventsConfig configures the attempt event stream.
type EventsConfig struct {
	Kafka mq.KafkaConfig `yaml:"kafka"`
	Topic string         `yaml:"topic"`
}

// WorkerConfig carries the grading pipeline knobs.
type WorkerConfig struct {
	// ID identifies this worker in logs. Defaults to the hostname.
	ID string `yaml:"id"`

	// PollInterval is the idle sleep between claim attempts.
	PollInterval time.Duration `yaml:"pollInterval"`

	// AttemptPollInterval is how often a running attempt re-reads its
	// abort flag.
	AttemptPollInterval time.Duration `yaml:"attemptPollInterval"`

	// ScoringTmp is the shared root for scoring directories.
	ScoringTmp string `yaml:"scoringTmp"`

	// RunnerPath locates the scoring-runner binary.
	RunnerPath string `yaml:"runnerPath"`

	// GradeAttemptPath locates the grade-attempt binary the supervisor
	// spawns per claimed attempt.
	GradeAttemptPath string `yaml:"gradeAttemptPath"`

	// ScorerCommand is the interpreter the scoring script runs under.
	ScorerCommand string `yaml:"scorerCommand"`

	// SeccompProfile is the path of a syscall filter profile applied to
	// scoring scripts. Empty disables filtering.
	SeccompProfile string `yaml:"seccompProfile"`

	// GraderCacheTTL bounds staleness of cached grader records.
	GraderCacheTTL time.Duration `yaml:"graderCacheTTL"`
}

// OpsConfig configures the operator HTTP server.
type OpsConfig struct {
	// Addr to listen on; empty disables the ops server.
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

func defaultConfig() AppConfig {
	hostname, _ := os.Hostname()
	return AppConfig{
		Logger: logger.Config{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
		Database: *db.DefaultMySQLConfig(),
		Storage: StorageConfig{
			Type:       "filesystem",
			Filesystem: FilesystemConfig{Root: "/var/lib/evograder/blobs"},
		},
		Worker: WorkerConfig{
			ID:                  hostname,
			PollInterval:        time.Second,
			AttemptPollInterval: time.Second,
			ScoringTmp:          os.TempDir() + "/evograder-scoring",
			RunnerPath:          "scoring-runner",
			GradeAttemptPath:    "grade-attempt",
			ScorerCommand:       "python3",
			GraderCacheTTL:      5 * time.Minute,
		},
		Ops: OpsConfig{
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Load reads the config file at path over the defaults.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate rejects configurations the commands cannot start with.
func (c *AppConfig) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	switch c.Storage.Type {
	case "minio":
		if c.Storage.MinIO.Endpoint == "" || c.Storage.MinIO.Bucket == "" {
			return fmt.Errorf("storage.minio.endpoint and bucket are required")
		}
	case "filesystem":
		if c.Storage.Filesystem.Root == "" {
			return fmt.Errorf("storage.filesystem.root is required")
		}
	default:
		return fmt.Errorf("storage.type must be minio or filesystem, got %q", c.Storage.Type)
	}
	if c.Events != nil {
		if len(c.Events.Kafka.Brokers) == 0 || c.Events.Topic == "" {
			return fmt.Errorf("events.kafka.brokers and events.topic are required")
		}
	}
	if c.Worker.PollInterval <= 0 || c.Worker.AttemptPollInterval <= 0 {
		return fmt.Errorf("worker poll intervals must be positive")
	}
	if c.Worker.ScoringTmp == "" || c.Worker.ScorerCommand == "" {
		return fmt.Errorf("worker.scoringTmp and worker.scorerCommand are required")
	}
	return nil
}

// BuildBlobStore constructs the configured blob store.
func (c *AppConfig) BuildBlobStore() (storage.BlobStore, error) {
	switch c.Storage.Type {
	case "minio":
		return storage.NewMinIOStore(c.Storage.MinIO)
	case "filesystem":
		return storage.NewFileStore(c.Storage.Filesystem.Root)
	default:
		return nil, fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
}
