// Package config provides configuration loading and validation for the CLI
// and the HTTP server.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults for interview timing and sampling.
const (
	DefaultPrepSeconds            = 10
	DefaultAnswerSeconds          = 10
	DefaultWarnSeconds            = 5
	DefaultQuestionCount          = 5
	DefaultSampleIntervalSeconds  = 5
	DefaultClassifyTimeoutSeconds = 10
	DefaultFinalWaitMillis        = 2000
	DefaultCheckpointPath         = ".interview-coach/checkpoints.db"
	DefaultListenAddr             = ":8080"
)

// Config represents the configuration that can be loaded from a JSON or YAML
// file. Missing values use defaults, environment variables or CLI flags.
type Config struct {
	// Interview
	JobPosition     string `json:"job_position,omitempty" yaml:"job_position,omitempty"`
	JobDescription  string `json:"job_description,omitempty" yaml:"job_description,omitempty"`
	YearsExperience int    `json:"years_experience,omitempty" yaml:"years_experience,omitempty" validate:"gte=0,lte=60"`
	QuestionCount   int    `json:"question_count,omitempty" yaml:"question_count,omitempty" validate:"gte=0,lte=20"`
	UserEmail       string `json:"user_email,omitempty" yaml:"user_email,omitempty" validate:"omitempty,email"`

	// Timing
	PrepSeconds            int `json:"prep_seconds,omitempty" yaml:"prep_seconds,omitempty" validate:"gte=0"`
	AnswerSeconds          int `json:"answer_seconds,omitempty" yaml:"answer_seconds,omitempty" validate:"gte=0"`
	WarnSeconds            int `json:"warn_seconds,omitempty" yaml:"warn_seconds,omitempty"`
	SampleIntervalSeconds  int `json:"sample_interval_seconds,omitempty" yaml:"sample_interval_seconds,omitempty" validate:"gte=0"`
	ClassifyTimeoutSeconds int `json:"classify_timeout_seconds,omitempty" yaml:"classify_timeout_seconds,omitempty" validate:"gte=0"`
	FinalWaitMillis        int `json:"final_wait_ms,omitempty" yaml:"final_wait_ms,omitempty" validate:"gte=0"`

	// Services
	APIKey         string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	DatabaseURL    string `json:"database_url,omitempty" yaml:"database_url,omitempty"`
	EmotionAPIURL  string `json:"emotion_api_url,omitempty" yaml:"emotion_api_url,omitempty" validate:"omitempty,url"`
	FramesDir      string `json:"frames_dir,omitempty" yaml:"frames_dir,omitempty"`
	CheckpointPath string `json:"checkpoint_path,omitempty" yaml:"checkpoint_path,omitempty"`
	ListenAddr     string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`

	// Behavior
	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"` // Print detailed debug information
}

// Environment variables read by FromEnv.
const (
	EnvAPIKey         = "GEMINI_API_KEY"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvEmotionAPIURL  = "EMOTION_API_URL"
	EnvPrepTime       = "INTERVIEW_PREP_TIME"
	EnvAnswerTime     = "INTERVIEW_ANSWER_TIME"
	EnvQuestionCount  = "INTERVIEW_QUESTION_COUNT"
	EnvCheckpointPath = "CHECKPOINT_PATH"
)

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		QuestionCount:          DefaultQuestionCount,
		PrepSeconds:            DefaultPrepSeconds,
		AnswerSeconds:          DefaultAnswerSeconds,
		WarnSeconds:            DefaultWarnSeconds,
		SampleIntervalSeconds:  DefaultSampleIntervalSeconds,
		ClassifyTimeoutSeconds: DefaultClassifyTimeoutSeconds,
		FinalWaitMillis:        DefaultFinalWaitMillis,
		CheckpointPath:         DefaultCheckpointPath,
		ListenAddr:             DefaultListenAddr,
	}
}

// LoadConfig loads configuration from a JSON file, or a YAML file when the
// extension is .yaml or .yml.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// FromEnv returns a Config holding only the values set in the environment.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	var cfg Config
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config error: %s must be an integer: %w", key, err)
		}
		*dst = n
		return nil
	}

	str(EnvAPIKey, &cfg.APIKey)
	str(EnvDatabaseURL, &cfg.DatabaseURL)
	str(EnvEmotionAPIURL, &cfg.EmotionAPIURL)
	str(EnvCheckpointPath, &cfg.CheckpointPath)
	if err := num(EnvPrepTime, &cfg.PrepSeconds); err != nil {
		return Config{}, err
	}
	if err := num(EnvAnswerTime, &cfg.AnswerSeconds); err != nil {
		return Config{}, err
	}
	if err := num(EnvQuestionCount, &cfg.QuestionCount); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config error: '%s' failed %q validation", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.FramesDir != "" {
		if info, err := os.Stat(c.FramesDir); err != nil || !info.IsDir() {
			return fmt.Errorf("config error: frames directory not found: %s", c.FramesDir)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. It is applied in layers: flags over environment over file over
// built-in defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	mergeString(&result.JobPosition, defaults.JobPosition)
	mergeString(&result.JobDescription, defaults.JobDescription)
	mergeString(&result.UserEmail, defaults.UserEmail)
	mergeString(&result.APIKey, defaults.APIKey)
	mergeString(&result.DatabaseURL, defaults.DatabaseURL)
	mergeString(&result.EmotionAPIURL, defaults.EmotionAPIURL)
	mergeString(&result.FramesDir, defaults.FramesDir)
	mergeString(&result.CheckpointPath, defaults.CheckpointPath)
	mergeString(&result.ListenAddr, defaults.ListenAddr)

	// Int fields: use default if zero
	mergeInt(&result.YearsExperience, defaults.YearsExperience)
	mergeInt(&result.QuestionCount, defaults.QuestionCount)
	mergeInt(&result.PrepSeconds, defaults.PrepSeconds)
	mergeInt(&result.AnswerSeconds, defaults.AnswerSeconds)
	mergeInt(&result.WarnSeconds, defaults.WarnSeconds)
	mergeInt(&result.SampleIntervalSeconds, defaults.SampleIntervalSeconds)
	mergeInt(&result.ClassifyTimeoutSeconds, defaults.ClassifyTimeoutSeconds)
	mergeInt(&result.FinalWaitMillis, defaults.FinalWaitMillis)

	// Bool fields: cannot distinguish unset from false, so only true wins
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

// SampleInterval is the emotion sampling period.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalSeconds) * time.Second
}

// ClassifyTimeout bounds one classifier call.
func (c *Config) ClassifyTimeout() time.Duration {
	return time.Duration(c.ClassifyTimeoutSeconds) * time.Second
}

// FinalWait bounds how long a stopping recognizer may flush.
func (c *Config) FinalWait() time.Duration {
	return time.Duration(c.FinalWaitMillis) * time.Millisecond
}

func mergeString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func mergeInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

// newValidator reports fields by their config key.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Resolve layers the environment over the optional config file over the
// built-in defaults. CLI flags are merged on top by the caller.
func Resolve(path string) (Config, error) {
	env, err := FromEnv()
	if err != nil {
		return Config{}, err
	}

	file := Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
		file = *loaded
	}

	merged := env.MergeWithDefaults(file)
	return merged.MergeWithDefaults(Defaults()), nil
}
