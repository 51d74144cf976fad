// Package config loads filesentry settings from defaults, an optional YAML or
// TOML file, FILESENTRY_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"filesentry/internal/event"
	"filesentry/internal/logging"
	"filesentry/internal/notify"
	"filesentry/internal/scoring"
	"filesentry/internal/watcher"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Watch   WatchConfig   `yaml:"watch" toml:"watch"`
	Scoring ScoringConfig `yaml:"scoring" toml:"scoring"`
	Notify  NotifyConfig  `yaml:"notify" toml:"notify"`
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Log     LogConfig     `yaml:"log" toml:"log"`
}

type WatchConfig struct {
	Recursive         bool    `yaml:"recursive" toml:"recursive"`
	IgnoreDirectories bool    `yaml:"ignore_directories" toml:"ignore_directories"`
	DebounceSeconds   float64 `yaml:"debounce_seconds" toml:"debounce_seconds"`
	DebounceCapacity  int     `yaml:"debounce_capacity" toml:"debounce_capacity"`
	// QueueCapacity 0 means unbounded.
	QueueCapacity int `yaml:"queue_capacity" toml:"queue_capacity"`
}

type ScoringConfig struct {
	BaseScores            map[string]int `yaml:"base_scores" toml:"base_scores"`
	UnknownActionScore    int            `yaml:"unknown_action_score" toml:"unknown_action_score"`
	SensitiveExtensions   []string       `yaml:"sensitive_extensions" toml:"sensitive_extensions"`
	ExtensionBonus        int            `yaml:"extension_bonus" toml:"extension_bonus"`
	SensitivePathPatterns []string       `yaml:"sensitive_path_patterns" toml:"sensitive_path_patterns"`
	PathPatternBonus      int            `yaml:"path_pattern_bonus" toml:"path_pattern_bonus"`
	WarningThreshold      int            `yaml:"warning_threshold" toml:"warning_threshold"`
	CriticalThreshold     int            `yaml:"critical_threshold" toml:"critical_threshold"`
}

type NotifyConfig struct {
	MinimumLevel string        `yaml:"minimum_level" toml:"minimum_level"`
	Console      ConsoleConfig `yaml:"console" toml:"console"`
	Matrix       MatrixConfig  `yaml:"matrix" toml:"matrix"`
}

type ConsoleConfig struct {
	Enabled      bool   `yaml:"enabled" toml:"enabled"`
	MinimumLevel string `yaml:"minimum_level" toml:"minimum_level"`
	IncludeJSON  bool   `yaml:"include_json" toml:"include_json"`
	Color        bool   `yaml:"color" toml:"color"`
}

type MatrixConfig struct {
	Enabled        bool    `yaml:"enabled" toml:"enabled"`
	HomeserverURL  string  `yaml:"homeserver_url" toml:"homeserver_url"`
	AccessToken    string  `yaml:"access_token" toml:"access_token"`
	RoomID         string  `yaml:"room_id" toml:"room_id"`
	TimeoutSeconds float64 `yaml:"timeout_seconds" toml:"timeout_seconds"`
	VerifyTLS      bool    `yaml:"verify_tls" toml:"verify_tls"`
	MessageType    string  `yaml:"message_type" toml:"message_type"`
	MinimumLevel   string  `yaml:"minimum_level" toml:"minimum_level"`
}

type ServerConfig struct {
	// Addr enables the HTTP listener when set.
	Addr           string   `yaml:"addr" toml:"addr"`
	Token          string   `yaml:"token" toml:"token"`
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
	// Format is "text" (default) or "json".
	Format string `yaml:"format" toml:"format"`
}

func Default() Config {
	scoringDefaults := scoring.DefaultConfig()
	baseScores := make(map[string]int, len(scoringDefaults.BaseScores))
	for action, score := range scoringDefaults.BaseScores {
		baseScores[string(action)] = score
	}
	return Config{
		Watch: WatchConfig{
			Recursive:         true,
			IgnoreDirectories: true,
			DebounceSeconds:   watcher.DefaultDebounce.Seconds(),
			DebounceCapacity:  watcher.DefaultDebounceCapacity,
		},
		Scoring: ScoringConfig{
			BaseScores:            baseScores,
			UnknownActionScore:    scoringDefaults.UnknownActionScore,
			SensitiveExtensions:   scoringDefaults.SensitiveExtensions,
			ExtensionBonus:        scoringDefaults.ExtensionBonus,
			SensitivePathPatterns: scoringDefaults.SensitivePathPatterns,
			PathPatternBonus:      scoringDefaults.PathPatternBonus,
			WarningThreshold:      scoringDefaults.WarningThreshold,
			CriticalThreshold:     scoringDefaults.CriticalThreshold,
		},
		Notify: NotifyConfig{
			MinimumLevel: event.LevelInfo.String(),
			Console: ConsoleConfig{
				Enabled: true,
				Color:   true,
			},
			Matrix: MatrixConfig{
				TimeoutSeconds: notify.DefaultMatrixTimeout.Seconds(),
				VerifyTLS:      true,
				MessageType:    notify.DefaultMatrixMessageType,
			},
		},
		Log: LogConfig{Level: string(logging.LevelInfo), Format: string(logging.FormatText)},
	}
}

// Validate reports every problem at once, each wrapped in ErrInvalid.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Watch.DebounceCapacity < 0 {
		add("watch.debounce_capacity must not be negative")
	}
	if c.Watch.QueueCapacity < 0 {
		add("watch.queue_capacity must not be negative")
	}
	for action := range c.Scoring.BaseScores {
		if _, ok := event.ParseAction(action); !ok {
			add("scoring.base_scores: unknown action %q", action)
		}
	}
	if err := c.ScoringConfig().Validate(); err != nil {
		add("scoring: %v", err)
	}
	for key, value := range map[string]string{
		"notify.minimum_level":         c.Notify.MinimumLevel,
		"notify.console.minimum_level": c.Notify.Console.MinimumLevel,
		"notify.matrix.minimum_level":  c.Notify.Matrix.MinimumLevel,
	} {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if _, err := event.ParseLevel(value); err != nil {
			add("%s: %v", key, err)
		}
	}
	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		add("log.level: unknown level %q", c.Log.Level)
	}
	if _, ok := logging.ParseFormat(c.Log.Format); !ok {
		add("log.format: unknown format %q", c.Log.Format)
	}
	if c.Notify.Matrix.Enabled {
		if err := c.MatrixSinkConfig().Validate(); err != nil {
			add("notify.matrix: %v", err)
		}
	}
	if c.Notify.Matrix.TimeoutSeconds < 0 {
		add("notify.matrix.timeout_seconds must not be negative")
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

// Debounce converts the configured seconds; values <= 0 disable debouncing.
func (c Config) Debounce() time.Duration {
	return secondsToDuration(c.Watch.DebounceSeconds)
}

func (c Config) ScoringConfig() scoring.Config {
	baseScores := make(map[event.Action]int, len(c.Scoring.BaseScores))
	for action, score := range c.Scoring.BaseScores {
		parsed, _ := event.ParseAction(action)
		baseScores[parsed] = score
	}
	return scoring.Config{
		BaseScores:            baseScores,
		UnknownActionScore:    c.Scoring.UnknownActionScore,
		SensitiveExtensions:   append([]string(nil), c.Scoring.SensitiveExtensions...),
		ExtensionBonus:        c.Scoring.ExtensionBonus,
		SensitivePathPatterns: append([]string(nil), c.Scoring.SensitivePathPatterns...),
		PathPatternBonus:      c.Scoring.PathPatternBonus,
		WarningThreshold:      c.Scoring.WarningThreshold,
		CriticalThreshold:     c.Scoring.CriticalThreshold,
	}
}

func (c Config) MatrixSinkConfig() notify.MatrixConfig {
	return notify.MatrixConfig{
		HomeserverURL: c.Notify.Matrix.HomeserverURL,
		AccessToken:   c.Notify.Matrix.AccessToken,
		RoomID:        c.Notify.Matrix.RoomID,
		Timeout:       secondsToDuration(c.Notify.Matrix.TimeoutSeconds),
		VerifyTLS:     c.Notify.Matrix.VerifyTLS,
		MessageType:   c.Notify.Matrix.MessageType,
	}
}

// DefaultLevel is the manager-wide minimum. Call after Validate.
func (c Config) DefaultLevel() event.Level {
	return levelOrZero(c.Notify.MinimumLevel)
}

// ConsoleLevel returns zero when the console inherits the default.
func (c Config) ConsoleLevel() event.Level {
	return levelOrZero(c.Notify.Console.MinimumLevel)
}

func (c Config) MatrixLevel() event.Level {
	return levelOrZero(c.Notify.Matrix.MinimumLevel)
}

func (c Config) LogLevel() logging.Level {
	level, ok := logging.ParseLevel(c.Log.Level)
	if !ok {
		return logging.LevelInfo
	}
	return level
}

func (c Config) LogFormat() logging.Format {
	format, ok := logging.ParseFormat(c.Log.Format)
	if !ok {
		return logging.FormatText
	}
	return format
}

func levelOrZero(value string) event.Level {
	if strings.TrimSpace(value) == "" {
		return 0
	}
	level, err := event.ParseLevel(value)
	if err != nil {
		return 0
	}
	return level
}

func secondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
