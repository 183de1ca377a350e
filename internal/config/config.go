// Package config provides configuration loading for go-gazekey commands.
//
// Values come from three layers, later layers winning:
// Default(), an optional YAML file, then GAZEKEY_* environment variables.
// Commands apply CLI flags on top of the result.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultPort           = "5000"
	DefaultSensitivity    = 0.7
	DefaultCooldownSelect = 400 * time.Millisecond
	DefaultCooldownNav    = 300 * time.Millisecond
	DefaultCameraDevice   = 0
)

// Gaze threshold policies.
const (
	GazePolicyAdaptive = "adaptive"
	GazePolicyFixed    = "fixed"
)

// Predictor kinds.
const (
	PredictorCorpus = "corpus"
	PredictorStatic = "static"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid")

// Config is the full process configuration.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	Gaze     GazeConfig     `yaml:"gaze"`
	Keyboard KeyboardConfig `yaml:"keyboard"`
	Words    WordsConfig    `yaml:"words"`
	Speech   SpeechConfig   `yaml:"speech"`
	Camera   CameraConfig   `yaml:"camera"`
}

// GazeConfig tunes the classifier and decoder.
type GazeConfig struct {
	Sensitivity    float64       `yaml:"sensitivity"`
	Policy         string        `yaml:"policy"` // adaptive | fixed
	CooldownSelect time.Duration `yaml:"cooldown_select"`
	CooldownNav    time.Duration `yaml:"cooldown_nav"`
	TrackOnStart   bool          `yaml:"track_on_start"`
}

// KeyboardConfig tunes controller feedback.
type KeyboardConfig struct {
	AnnounceSuggestions bool `yaml:"announce_suggestions"`
	Click               bool `yaml:"click"`
}

// WordsConfig selects and feeds the word predictor.
type WordsConfig struct {
	Predictor  string `yaml:"predictor"`   // corpus | static
	CustomPath string `yaml:"custom_path"` // extra word list (json, yaml, txt)
	LearnedDB  string `yaml:"learned_db"`  // sqlite file for learned words, empty disables
}

// SpeechConfig configures the speak side effect.
type SpeechConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	Voice   string `yaml:"voice"`
	Model   string `yaml:"model"`
}

// CameraConfig configures local capture and the landmark sidecar.
type CameraConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Device       int    `yaml:"device"`
	LandmarkURL  string `yaml:"landmark_url"`
	FramesPerSec int    `yaml:"fps"`
}

// Default returns the configuration used when nothing else is supplied.
func Default() Config {
	return Config{
		Port:     DefaultPort,
		LogLevel: "info",
		Gaze: GazeConfig{
			Sensitivity:    DefaultSensitivity,
			Policy:         GazePolicyAdaptive,
			CooldownSelect: DefaultCooldownSelect,
			CooldownNav:    DefaultCooldownNav,
		},
		Keyboard: KeyboardConfig{
			Click: true,
		},
		Words: WordsConfig{
			Predictor: PredictorCorpus,
		},
		Speech: SpeechConfig{
			Enabled: true,
			Voice:   "alloy",
			Model:   "tts-1",
		},
		Camera: CameraConfig{
			Device:       DefaultCameraDevice,
			LandmarkURL:  "http://127.0.0.1:8765/landmarks",
			FramesPerSec: 15,
		},
	}
}

// Load reads a YAML file over the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("GAZEKEY_PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("GAZEKEY_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("GAZEKEY_SENSITIVITY"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: GAZEKEY_SENSITIVITY=%q", ErrInvalidConfig, v)
		}
		c.Gaze.Sensitivity = f
	}
	if v := os.Getenv("GAZEKEY_CUSTOM_DICT"); v != "" {
		c.Words.CustomPath = v
	}
	if v := os.Getenv("GAZEKEY_LEARNED_DB"); v != "" {
		c.Words.LearnedDB = v
	}
	if v := os.Getenv("GAZEKEY_LANDMARK_URL"); v != "" {
		c.Camera.LandmarkURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.Speech.APIKey == "" {
		c.Speech.APIKey = v
	}
	return nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	s := c.Gaze.Sensitivity
	if math.IsNaN(s) || s < 0 || s > 1 {
		return fmt.Errorf("%w: sensitivity %v outside [0,1]", ErrInvalidConfig, s)
	}
	if c.Gaze.CooldownSelect <= 0 || c.Gaze.CooldownNav <= 0 {
		return fmt.Errorf("%w: cooldowns must be positive", ErrInvalidConfig)
	}
	switch c.Gaze.Policy {
	case GazePolicyAdaptive, GazePolicyFixed:
	default:
		return fmt.Errorf("%w: unknown gaze policy %q", ErrInvalidConfig, c.Gaze.Policy)
	}
	switch c.Words.Predictor {
	case PredictorCorpus, PredictorStatic:
	default:
		return fmt.Errorf("%w: unknown predictor %q", ErrInvalidConfig, c.Words.Predictor)
	}
	if c.Camera.Enabled && c.Camera.FramesPerSec <= 0 {
		return fmt.Errorf("%w: camera fps must be positive", ErrInvalidConfig)
	}
	return nil
}
