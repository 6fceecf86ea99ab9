// Package config loads the agent's JSON configuration, validates it and
// converts it into the immutable option structs the components take.
// Secrets never come from the file: they are read from the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/apply-agent/internal/answers"
	"github.com/jonathan/apply-agent/internal/schemas"
	schemafiles "github.com/jonathan/apply-agent/schemas"
)

// Environment variables read by ApplyEnv
const (
	EnvIdentity          = "APPLY_IDENTITY"
	EnvPassword          = "APPLY_PASSWORD"
	EnvSessionPassphrase = "SESSION_PASSPHRASE"
	EnvGeminiAPIKey      = "GEMINI_API_KEY"
	EnvDatabaseURL       = "DATABASE_URL"
)

// Config is the agent configuration. Missing file values keep the defaults.
type Config struct {
	Identity  string `json:"identity,omitempty"`
	BaseURL   string `json:"base_url" validate:"required,url"`
	SearchURL string `json:"search_url" validate:"required,url"`
	MaxItems  int    `json:"max_items" validate:"gte=1"`
	MaxSteps  int    `json:"max_steps" validate:"gte=1,lte=50"`

	Headless          bool   `json:"headless"`
	MonitoringEnabled bool   `json:"monitoring_enabled"`
	UserDataDir       string `json:"user_data_dir,omitempty"`
	SessionFile       string `json:"session_file" validate:"required"`
	SelectorsFile     string `json:"selectors_file,omitempty"`

	AnswersFile      string  `json:"answers_file,omitempty"`
	LearnAnswers     bool    `json:"learn_answers"`
	TailoringEnabled bool    `json:"tailoring_enabled"`
	MinConfidence    float64 `json:"min_confidence" validate:"gte=0,lte=1"`

	ResumePath     string `json:"resume_path,omitempty"`
	ResumeTemplate string `json:"resume_template,omitempty"`
	ResumeCompiler string `json:"resume_compiler,omitempty"`
	OutputDir      string `json:"output_dir,omitempty"`

	SQLitePath string `json:"sqlite_path,omitempty"`
	Verbose    bool   `json:"verbose"`

	Retry     RetryConfig     `json:"retry"`
	Scroll    ScrollConfig    `json:"scroll"`
	Behavior  BehaviorConfig  `json:"behavior"`
	Delays    DelayConfig     `json:"delays"`
	Monitor   MonitorConfig   `json:"monitor"`
	Timeouts  TimeoutConfig   `json:"timeouts"`
	Questions QuestionsConfig `json:"questions"`

	// Populated from the environment only
	Password          string `json:"-"`
	SessionPassphrase string `json:"-"`
	GeminiAPIKey      string `json:"-"`
	DatabaseURL       string `json:"-"`
}

// PolicyConfig overrides parts of a retry policy. Zero fields keep the default.
type PolicyConfig struct {
	MaxAttempts int     `json:"max_attempts,omitempty" validate:"gte=0,lte=20"`
	BaseDelayMs int     `json:"base_delay_ms,omitempty" validate:"gte=0"`
	Multiplier  float64 `json:"multiplier,omitempty" validate:"omitempty,gte=1"`
	MaxDelayMs  int     `json:"max_delay_ms,omitempty" validate:"gte=0"`
	Jitter      float64 `json:"jitter,omitempty" validate:"gte=0,lte=1"`
	TimeoutMs   int     `json:"timeout_ms,omitempty" validate:"gte=0"`
}

// RetryConfig holds one policy per operation type
type RetryConfig struct {
	Click      PolicyConfig `json:"click"`
	Fill       PolicyConfig `json:"fill"`
	Navigation PolicyConfig `json:"navigation"`
}

// ScrollConfig tunes the listing scroll session
type ScrollConfig struct {
	MinSpeed      int `json:"min_speed" validate:"gte=1"`
	MaxSpeed      int `json:"max_speed" validate:"gte=1"`
	Jitter        int `json:"jitter" validate:"gte=0"`
	BackwardEvery int `json:"backward_every" validate:"gte=0"`
	BackwardMin   int `json:"backward_min" validate:"gte=0"`
	BackwardMax   int `json:"backward_max" validate:"gte=0"`
	StallPasses   int `json:"stall_passes" validate:"gte=1"`
	MaxPasses     int `json:"max_passes" validate:"gte=1"`
	SettleMs      int `json:"settle_ms" validate:"gte=0"`
}

// BehaviorConfig switches the pacer's fatigue and time-of-day scaling
type BehaviorConfig struct {
	Fatigue    bool    `json:"fatigue"`
	MaxFatigue float64 `json:"max_fatigue" validate:"gte=1"`
	TimeOfDay  bool    `json:"time_of_day"`
}

// DelayConfig bounds the pause between listings
type DelayConfig struct {
	BetweenListingsMinSec float64 `json:"between_listings_min_sec" validate:"gte=0"`
	BetweenListingsMaxSec float64 `json:"between_listings_max_sec" validate:"gte=0"`
}

// MonitorConfig tunes the liveness monitor and shutdown grace window
type MonitorConfig struct {
	IntervalSec float64 `json:"interval_sec" validate:"gt=0"`
	Threshold   int     `json:"threshold" validate:"gte=1"`
	WarmupSec   float64 `json:"warmup_sec" validate:"gte=0"`
	GraceSec    float64 `json:"grace_sec" validate:"gte=0"`
}

// TimeoutConfig holds the long waits
type TimeoutConfig struct {
	LoginSec      float64 `json:"login_sec" validate:"gte=1"`
	NavigationSec float64 `json:"navigation_sec" validate:"gte=1"`
	ModalSec      float64 `json:"modal_sec" validate:"gte=1"`
}

// QuestionsConfig holds the skip list and the keyword default answers
type QuestionsConfig struct {
	Skip     []string       `json:"skip,omitempty"`
	Defaults []answers.Rule `json:"defaults,omitempty" validate:"dive"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		BaseURL:           "https://www.linkedin.com",
		SearchURL:         "https://www.linkedin.com/jobs/search/?f_AL=true",
		MaxItems:          25,
		MaxSteps:          12,
		MonitoringEnabled: true,
		SessionFile:       filepath.Join("data", "session.json"),
		AnswersFile:       filepath.Join("data", "answers.yaml"),
		LearnAnswers:      true,
		MinConfidence:     0.6,
		OutputDir:         filepath.Join("data", "resumes"),
		SQLitePath:        filepath.Join("data", "history.db"),
		Scroll: ScrollConfig{
			MinSpeed:      200,
			MaxSpeed:      500,
			Jitter:        20,
			BackwardEvery: 4,
			BackwardMin:   50,
			BackwardMax:   150,
			StallPasses:   3,
			MaxPasses:     60,
			SettleMs:      800,
		},
		Behavior: BehaviorConfig{Fatigue: true, MaxFatigue: 1.5, TimeOfDay: true},
		Delays:   DelayConfig{BetweenListingsMinSec: 5, BetweenListingsMaxSec: 15},
		Monitor:  MonitorConfig{IntervalSec: 5, Threshold: 5, WarmupSec: 15, GraceSec: 10},
		Timeouts: TimeoutConfig{LoginSec: 120, NavigationSec: 30, ModalSec: 10},
		Questions: QuestionsConfig{
			Skip:     answers.DefaultSkipList(),
			Defaults: answers.DefaultRules(),
		},
	}
}

// LoadConfig reads a JSON file, checks it against the config schema and
// decodes it over Default().
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
	return Parse(data)
}

// Parse validates raw JSON against the schema and decodes it over Default().
func Parse(data []byte) (*Config, error) {
	if !json.Valid(data) {
		return nil, &ConfigError{Message: "failed to parse config JSON"}
	}
	if err := schemas.Validate(schemafiles.Config, data); err != nil {
		return nil, &ConfigError{Message: "config does not match schema", Cause: err}
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{Message: "failed to parse config JSON", Cause: err}
	}
	return &cfg, nil
}

// ApplyEnv fills the secrets, and the identity when the file leaves it empty,
// from getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvIdentity); v != "" && c.Identity == "" {
		c.Identity = v
	}
	c.Password = getenv(EnvPassword)
	c.SessionPassphrase = getenv(EnvSessionPassphrase)
	c.GeminiAPIKey = getenv(EnvGeminiAPIKey)
	c.DatabaseURL = getenv(EnvDatabaseURL)
}

// Validate checks struct constraints, then the cross-field rules.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return &ConfigError{Message: "invalid configuration", Cause: err}
	}

	if c.Scroll.MinSpeed > c.Scroll.MaxSpeed {
		return &ConfigError{Field: "scroll.min_speed", Message: "must not exceed scroll.max_speed"}
	}
	if c.Scroll.BackwardMin > c.Scroll.BackwardMax {
		return &ConfigError{Field: "scroll.backward_min", Message: "must not exceed scroll.backward_max"}
	}
	if c.Delays.BetweenListingsMinSec > c.Delays.BetweenListingsMaxSec {
		return &ConfigError{Field: "delays.between_listings_min_sec", Message: "must not exceed delays.between_listings_max_sec"}
	}
	if c.LearnAnswers && c.AnswersFile == "" {
		return &ConfigError{Field: "learn_answers", Message: "requires answers_file"}
	}

	// Validate file paths exist (if specified)
	for field, path := range map[string]string{
		"resume_path":     c.ResumePath,
		"resume_template": c.ResumeTemplate,
		"selectors_file":  c.SelectorsFile,
	} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return &ConfigError{Field: field, Message: fmt.Sprintf("file not found: %s", path)}
		}
	}
	return nil
}
