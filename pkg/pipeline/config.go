// Package pipeline assembles the media-translation pipeline: its
// configuration and the state graph the engine interprets.
package pipeline

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/voxflow/voxflow/pkg/engine"
	"github.com/voxflow/voxflow/pkg/events"
)

// Duration is a time.Duration that reads and writes Go duration strings
// ("30s", "1h") in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}

	*d = Duration(parsed)

	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config holds the tunables of the media-translation pipeline.
type Config struct {
	// TargetLanguage is the language everything is translated into.
	TargetLanguage string `yaml:"target_language" validate:"required"`

	// Voice used for speech synthesis.
	Voice string `yaml:"voice" validate:"required"`

	// OutputBucket receives transcripts and synthesized audio. Required for
	// cloud-backed runs, unused by dry runs.
	OutputBucket string `yaml:"output_bucket"`

	// OutputPrefix prefixes transcript and audio object keys.
	OutputPrefix string `yaml:"output_prefix"`

	// PollInterval is the wait between transcription status checks.
	PollInterval Duration `yaml:"poll_interval" validate:"gt=0"`

	// Engine budgets and retry policy.
	MaxTransitions       int      `yaml:"max_transitions" validate:"gt=0"`
	MaxRunDuration       Duration `yaml:"max_run_duration" validate:"gt=0"`
	RetryMaxAttempts     int      `yaml:"retry_max_attempts" validate:"gt=0"`
	RetryInitialInterval Duration `yaml:"retry_initial_interval" validate:"gt=0"`

	// AllowedSuffixes limits which object keys activate a run.
	AllowedSuffixes []string `yaml:"allowed_suffixes" validate:"min=1"`
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		TargetLanguage:       "en",
		Voice:                "Joanna",
		OutputPrefix:         "audio/",
		PollInterval:         Duration(30 * time.Second),
		MaxTransitions:       1000,
		MaxRunDuration:       Duration(time.Hour),
		RetryMaxAttempts:     3,
		RetryInitialInterval: Duration(time.Second),
		AllowedSuffixes:      events.DefaultSuffixes,
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the configuration's constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid pipeline config: %w", err)
	}

	return nil
}

// EngineOptions maps the config onto the engine's budgets and retry policy.
func (c Config) EngineOptions() engine.Options {
	return engine.Options{
		MaxTransitions:       c.MaxTransitions,
		MaxRunDuration:       time.Duration(c.MaxRunDuration),
		RetryMaxAttempts:     c.RetryMaxAttempts,
		RetryInitialInterval: time.Duration(c.RetryInitialInterval),
	}
}
