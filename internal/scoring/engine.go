// Package scoring assigns a heuristic risk score and severity level to
// normalized filesystem events.
package scoring

import (
	"strings"

	"filesentry/internal/event"
)

// Engine scores events against an immutable copy of a Config. It is safe for
// concurrent use.
type Engine struct {
	config Config
}

func NewEngine(config Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{config: config.clone()}, nil
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config {
	return e.config.clone()
}

func (e *Engine) Score(ev event.Normalized) event.Scored {
	score := e.config.points(ev)
	return event.Scored{
		Normalized: ev,
		Score:      score,
		Level:      e.config.Level(score),
	}
}

// Score evaluates ev against cfg without validating it.
func Score(ev event.Normalized, cfg Config) event.Scored {
	cfg = cfg.clone()
	score := cfg.points(ev)
	return event.Scored{Normalized: ev, Score: score, Level: cfg.Level(score)}
}

func (c Config) points(ev event.Normalized) int {
	score := c.UnknownActionScore
	if action, ok := event.ParseAction(string(ev.Action)); ok {
		if base, found := c.BaseScores[action]; found {
			score = base
		}
	}

	lowered := strings.ToLower(ev.Path)
	for _, suffix := range c.SensitiveExtensions {
		if strings.HasSuffix(lowered, suffix) {
			score += c.ExtensionBonus
			break
		}
	}

	slashed := strings.ReplaceAll(ev.Path, `\`, "/")
	for _, pattern := range c.SensitivePathPatterns {
		if strings.Contains(slashed, pattern) {
			score += c.PathPatternBonus
			break
		}
	}
	return score
}
