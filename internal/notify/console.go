package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"filesentry/internal/event"

	"github.com/charmbracelet/lipgloss/v2"
)

type ConsoleOptions struct {
	Output      io.Writer
	IncludeJSON bool
	Color       bool
}

// ConsoleSink prints one line per event and optionally the event as JSON.
type ConsoleSink struct {
	mu          sync.Mutex
	output      io.Writer
	includeJSON bool
	color       bool
	styles      map[event.Level]lipgloss.Style
}

func NewConsoleSink(options ConsoleOptions) *ConsoleSink {
	output := options.Output
	if output == nil {
		output = os.Stdout
	}
	return &ConsoleSink{
		output:      output,
		includeJSON: options.IncludeJSON,
		color:       options.Color,
		styles: map[event.Level]lipgloss.Style{
			event.LevelInfo:     lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
			event.LevelWarning:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
			event.LevelCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		},
	}
}

func (sink *ConsoleSink) Deliver(_ context.Context, scored event.Scored) error {
	line := scored.Line()
	if sink.color {
		if style, ok := sink.styles[scored.Level]; ok {
			line = style.Render(line)
		}
	}

	var payload []byte
	if sink.includeJSON {
		encoded, err := json.Marshal(scored)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		payload = encoded
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if _, err := fmt.Fprintln(sink.output, line); err != nil {
		return err
	}
	if payload != nil {
		if _, err := fmt.Fprintln(sink.output, string(payload)); err != nil {
			return err
		}
	}
	return nil
}
