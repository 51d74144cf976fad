package scoring

import (
	"errors"
	"fmt"
	"strings"

	"filesentry/internal/event"
)

var (
	ErrInvalidThresholds = errors.New("warning threshold must be below critical threshold")
	ErrNegativeScore     = errors.New("scores must not be negative")
)

const (
	DefaultUnknownActionScore = 5
	DefaultExtensionBonus     = 50
	DefaultPathPatternBonus   = 40
	DefaultWarningThreshold   = 40
	DefaultCriticalThreshold  = 70
)

// Config holds the heuristic weights. Values are copied by NewEngine so a
// Config can be reused after the engine is built.
type Config struct {
	BaseScores            map[event.Action]int `yaml:"base_scores" toml:"base_scores"`
	UnknownActionScore    int                  `yaml:"unknown_action_score" toml:"unknown_action_score"`
	SensitiveExtensions   []string             `yaml:"sensitive_extensions" toml:"sensitive_extensions"`
	ExtensionBonus        int                  `yaml:"extension_bonus" toml:"extension_bonus"`
	SensitivePathPatterns []string             `yaml:"sensitive_path_patterns" toml:"sensitive_path_patterns"`
	PathPatternBonus      int                  `yaml:"path_pattern_bonus" toml:"path_pattern_bonus"`
	WarningThreshold      int                  `yaml:"warning_threshold" toml:"warning_threshold"`
	CriticalThreshold     int                  `yaml:"critical_threshold" toml:"critical_threshold"`
}

func DefaultConfig() Config {
	return Config{
		BaseScores: map[event.Action]int{
			event.ActionCreated:  10,
			event.ActionModified: 20,
			event.ActionDeleted:  35,
		},
		UnknownActionScore:    DefaultUnknownActionScore,
		SensitiveExtensions:   []string{".env", ".key", ".json", ".db"},
		ExtensionBonus:        DefaultExtensionBonus,
		SensitivePathPatterns: []string{"venv/bin/", "/.ssh/"},
		PathPatternBonus:      DefaultPathPatternBonus,
		WarningThreshold:      DefaultWarningThreshold,
		CriticalThreshold:     DefaultCriticalThreshold,
	}
}

// Validate checks thresholds ordering and rejects negative weights.
func (c Config) Validate() error {
	if c.WarningThreshold >= c.CriticalThreshold {
		return fmt.Errorf("%w (warning=%d critical=%d)", ErrInvalidThresholds, c.WarningThreshold, c.CriticalThreshold)
	}
	for action, score := range c.BaseScores {
		if score < 0 {
			return fmt.Errorf("%w: base score for %q is %d", ErrNegativeScore, action, score)
		}
	}
	if c.UnknownActionScore < 0 {
		return fmt.Errorf("%w: unknown action score is %d", ErrNegativeScore, c.UnknownActionScore)
	}
	if c.ExtensionBonus < 0 {
		return fmt.Errorf("%w: extension bonus is %d", ErrNegativeScore, c.ExtensionBonus)
	}
	if c.PathPatternBonus < 0 {
		return fmt.Errorf("%w: path pattern bonus is %d", ErrNegativeScore, c.PathPatternBonus)
	}
	return nil
}

// Level maps a score to a tier. A score equal to a threshold stays in the
// lower tier.
func (c Config) Level(score int) event.Level {
	switch {
	case score > c.CriticalThreshold:
		return event.LevelCritical
	case score > c.WarningThreshold:
		return event.LevelWarning
	default:
		return event.LevelInfo
	}
}

func (c Config) clone() Config {
	out := c
	out.BaseScores = make(map[event.Action]int, len(c.BaseScores))
	for action, score := range c.BaseScores {
		if parsed, ok := event.ParseAction(string(action)); ok {
			action = parsed
		}
		out.BaseScores[action] = score
	}
	out.SensitiveExtensions = normalizeList(c.SensitiveExtensions, true)
	out.SensitivePathPatterns = normalizeList(c.SensitivePathPatterns, false)
	return out
}

func normalizeList(values []string, lower bool) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if lower {
			value = strings.ToLower(value)
		}
		out = append(out, value)
	}
	return out
}
