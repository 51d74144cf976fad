package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Action classifies a filesystem change.
type Action string

const (
	ActionCreated  Action = "created"
	ActionModified Action = "modified"
	ActionDeleted  Action = "deleted"
)

// ParseAction normalizes case and surrounding whitespace. Unknown values are
// returned as-is with ok=false so callers can still carry them.
func ParseAction(value string) (Action, bool) {
	action := Action(strings.ToLower(strings.TrimSpace(value)))
	switch action {
	case ActionCreated, ActionModified, ActionDeleted:
		return action, true
	default:
		return action, false
	}
}

// Known reports whether the action is one of the three backend actions.
func (a Action) Known() bool {
	_, ok := ParseAction(string(a))
	return ok
}

// Level is the severity of a scored event. The numeric values are ordinals
// used for minimum-level comparisons.
type Level int

const (
	LevelInfo     Level = 10
	LevelWarning  Level = 20
	LevelCritical Level = 30
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "Info"
	case LevelWarning:
		return "Warning"
	case LevelCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// AtLeast reports whether l meets the minimum. An unset minimum accepts all.
func (l Level) AtLeast(minimum Level) bool {
	return l >= minimum
}

// ParseLevel accepts the level names case-insensitively.
func ParseLevel(value string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "info":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "critical", "crit":
		return LevelCritical, nil
	default:
		return 0, fmt.Errorf("unknown level %q", value)
	}
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	parsed, err := ParseLevel(text)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Normalized is a filesystem change after path canonicalization and debounce.
type Normalized struct {
	Time   time.Time `json:"time"`
	Path   string    `json:"path"`
	Action Action    `json:"action"`
}

// NewNormalized stamps the event with the current UTC time.
func NewNormalized(path string, action Action) Normalized {
	return Normalized{
		Time:   time.Now().UTC(),
		Path:   path,
		Action: action,
	}
}

func (e Normalized) Type() string {
	return "file_" + string(e.Action)
}

func (e Normalized) Timestamp() time.Time {
	return e.Time
}

// Scored is a normalized event with its heuristic score and severity.
type Scored struct {
	Normalized
	Score int   `json:"score"`
	Level Level `json:"level"`
}

// FormatTime renders the event time the way every sink prints it.
func (e Normalized) FormatTime() string {
	if e.Time.IsZero() {
		return "?"
	}
	return e.Time.UTC().Format(time.RFC3339Nano)
}

// Line is the single-line human form shared by the console and Matrix sinks.
func (e Scored) Line() string {
	return fmt.Sprintf("[%s] %s (score=%d) %s: %s", e.FormatTime(), e.Level, e.Score, e.Action, e.Path)
}
