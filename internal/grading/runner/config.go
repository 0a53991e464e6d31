// Package runner executes one prepared scoring directory under OS resource
// limits. It is the in-process half of the scoring-runner command: an outer
// supervising process that owns the wall-clock timeout, and an init mode
// that installs the address-space limit immediately before exec'ing the
// untrusted scoring script.
package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ConfigFileName is the machine-readable config written into every scoring
// directory by the builder and read back by the runner.
const ConfigFileName = "config.json"

// ScoringConfig describes one scoring directory. All paths are absolute.
type ScoringConfig struct {
	WorkingDirectory string `json:"working_directory"`
	ScoringScript    string `json:"scoring_script"`
	UserOutput       string `json:"user_output"`
	Answer           string `json:"answer"`
	ScoringLog       string `json:"scoring_log"`
	TimeLimitMS      int64  `json:"time_limit_ms"`
	MemoryLimitBytes int64  `json:"memory_limit_bytes"`

	// ScorerCommand is the interpreter command line the script runs
	// under, e.g. "python3" or "/bin/sh". Parsed with shell-like
	// splitting; the script, user output and answer paths are appended.
	ScorerCommand string `json:"scorer_command"`

	// SeccompProfile is the path of a syscall filter applied before the
	// script is exec'd. Empty disables filtering.
	SeccompProfile string `json:"seccomp_profile,omitempty"`
}

// LoadConfig reads the scoring config from a scoring directory.
func LoadConfig(dir string) (ScoringConfig, error) {
	data, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	if err != nil {
		return ScoringConfig{}, fmt.Errorf("read scoring config: %w", err)
	}
	var cfg ScoringConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ScoringConfig{}, fmt.Errorf("parse scoring config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return ScoringConfig{}, err
	}
	return cfg, nil
}

// WriteTo writes the config file into dir.
func (c ScoringConfig) WriteTo(dir string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal scoring config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), data, 0644); err != nil {
		return fmt.Errorf("write scoring config: %w", err)
	}
	return nil
}

// Validate checks the config for required fields.
func (c ScoringConfig) Validate() error {
	if c.WorkingDirectory == "" {
		return fmt.Errorf("working_directory is required")
	}
	if c.ScoringScript == "" {
		return fmt.Errorf("scoring_script is required")
	}
	if c.UserOutput == "" {
		return fmt.Errorf("user_output is required")
	}
	if c.Answer == "" {
		return fmt.Errorf("answer is required")
	}
	if c.ScoringLog == "" {
		return fmt.Errorf("scoring_log is required")
	}
	if c.TimeLimitMS <= 0 {
		return fmt.Errorf("time_limit_ms must be positive")
	}
	if c.MemoryLimitBytes <= 0 {
		return fmt.Errorf("memory_limit_bytes must be positive")
	}
	if c.ScorerCommand == "" {
		return fmt.Errorf("scorer_command is required")
	}
	return nil
}
