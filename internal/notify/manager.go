package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"filesentry/internal/event"
	"filesentry/internal/logging"
	"filesentry/internal/metrics"
)

var ErrInvalidRegistration = errors.New("invalid sink registration")

type Result string

const (
	ResultDelivered Result = "delivered"
	ResultSkipped   Result = "skipped"
	ResultFailed    Result = "failed"
)

// Registration pairs a sink with the lowest level it receives.
type Registration struct {
	Name         string
	Sink         Sink
	MinimumLevel event.Level
}

// Outcome is the result of offering one event to one sink.
type Outcome struct {
	Name     string
	Result   Result
	Err      error
	Duration time.Duration
}

// Report lists outcomes in registration order.
type Report struct {
	Outcomes []Outcome
}

func (r Report) Delivered() int {
	count := 0
	for _, outcome := range r.Outcomes {
		if outcome.Result == ResultDelivered {
			count++
		}
	}
	return count
}

func (r Report) Failed() []Outcome {
	var failed []Outcome
	for _, outcome := range r.Outcomes {
		if outcome.Result == ResultFailed {
			failed = append(failed, outcome)
		}
	}
	return failed
}

// Err joins every sink failure, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, outcome := range r.Failed() {
		errs = append(errs, fmt.Errorf("sink %s: %w", outcome.Name, outcome.Err))
	}
	return errors.Join(errs...)
}

type ManagerOptions struct {
	// DefaultLevel applies to sinks registered without a minimum. Zero means
	// Info.
	DefaultLevel event.Level
	Logger       *logging.Logger
	Metrics      *metrics.Registry
}

// Manager owns the ordered sink registry. Register during setup; Notify may
// be called from any goroutine.
type Manager struct {
	mu            sync.RWMutex
	registrations []Registration
	defaultLevel  event.Level
	logger        *logging.Logger
	metrics       *metrics.Registry
}

func NewManager(options ManagerOptions) *Manager {
	level := options.DefaultLevel
	if level == 0 {
		level = event.LevelInfo
	}
	return &Manager{
		defaultLevel: level,
		logger:       options.Logger.With(map[string]string{logging.CategoryKey: "notify"}),
		metrics:      options.Metrics,
	}
}

func (m *Manager) DefaultLevel() event.Level {
	return m.defaultLevel
}

// Register appends a sink. A zero minimum uses the manager default.
func (m *Manager) Register(name string, sink Sink, minimum event.Level) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRegistration)
	}
	if sink == nil {
		return fmt.Errorf("%w: sink %s is nil", ErrInvalidRegistration, name)
	}
	if minimum == 0 {
		minimum = m.defaultLevel
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.registrations = append(m.registrations, Registration{Name: name, Sink: sink, MinimumLevel: minimum})
	m.logger.Info("sink registered", map[string]string{
		"sink":          name,
		"minimum_level": minimum.String(),
	})
	return nil
}

func (m *Manager) Registrations() []Registration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Registration, len(m.registrations))
	copy(out, m.registrations)
	return out
}

// Notify offers scored to every sink in registration order. A sink that errors
// or panics is recorded as failed and iteration continues.
func (m *Manager) Notify(ctx context.Context, scored event.Scored) Report {
	registrations := m.Registrations()
	report := Report{Outcomes: make([]Outcome, 0, len(registrations))}
	for _, registration := range registrations {
		outcome := Outcome{Name: registration.Name}
		if !scored.Level.AtLeast(registration.MinimumLevel) {
			outcome.Result = ResultSkipped
			m.metrics.RecordDelivery(registration.Name, string(ResultSkipped), 0)
			report.Outcomes = append(report.Outcomes, outcome)
			continue
		}

		start := time.Now()
		err := deliver(ctx, registration.Sink, scored)
		outcome.Duration = time.Since(start)
		if err != nil {
			outcome.Result = ResultFailed
			outcome.Err = err
			m.logger.Warn("sink delivery failed", map[string]string{
				"sink":  registration.Name,
				"path":  scored.Path,
				"level": scored.Level.String(),
				"error": err.Error(),
			})
		} else {
			outcome.Result = ResultDelivered
		}
		m.metrics.RecordDelivery(registration.Name, string(outcome.Result), outcome.Duration)
		report.Outcomes = append(report.Outcomes, outcome)
	}
	return report
}

func deliver(ctx context.Context, sink Sink, scored event.Scored) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("sink panic: %v", recovered)
		}
	}()
	return sink.Deliver(ctx, scored)
}
