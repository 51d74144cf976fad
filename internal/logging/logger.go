package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

const DefaultBufferSize = 1000

type Options struct {
	// Output defaults to stderr; stdout carries console alerts.
	Output io.Writer
	Level  Level
	Format Format
	// Buffer defaults to a ring of DefaultBufferSize entries.
	Buffer *LogBuffer
}

// Logger is safe for concurrent use. A nil *Logger discards everything so
// components can take an optional logger without checks.
type Logger struct {
	buffer      *LogBuffer
	output      *log.Logger
	format      Format
	minLevel    Level
	baseContext map[string]string
}

func New(options Options) *Logger {
	buffer := options.Buffer
	if buffer == nil {
		buffer = NewLogBuffer(DefaultBufferSize)
	}
	output := options.Output
	if output == nil {
		output = os.Stderr
	}
	format := options.Format
	flags := log.LstdFlags
	if format != FormatJSON {
		format = FormatText
	} else {
		// JSON lines carry their own timestamp.
		flags = 0
	}
	return &Logger{
		buffer:   buffer,
		output:   log.New(output, "", flags),
		format:   format,
		minLevel: normalizeLevel(options.Level),
	}
}

// NewLoggerWithOutput builds a text logger; a nil output discards lines but
// still fills the buffer.
func NewLoggerWithOutput(buffer *LogBuffer, minLevel Level, output io.Writer) *Logger {
	if output == nil {
		output = io.Discard
	}
	return New(Options{Output: output, Level: minLevel, Buffer: buffer})
}

func (l *Logger) Buffer() *LogBuffer {
	if l == nil {
		return nil
	}
	return l.buffer
}

// With returns a child logger whose entries always carry fields.
func (l *Logger) With(fields map[string]string) *Logger {
	if l == nil {
		return nil
	}
	child := *l
	child.baseContext = mergeFields(l.baseContext, fields)
	return &child
}

func (l *Logger) Debug(message string, fields map[string]string) {
	l.log(LevelDebug, message, fields)
}

func (l *Logger) Info(message string, fields map[string]string) {
	l.log(LevelInfo, message, fields)
}

func (l *Logger) Warn(message string, fields map[string]string) {
	l.log(LevelWarning, message, fields)
}

func (l *Logger) Error(message string, fields map[string]string) {
	l.log(LevelError, message, fields)
}

func (l *Logger) Enabled(level Level) bool {
	if l == nil {
		return false
	}
	return levelRank(level) >= levelRank(l.minLevel)
}

func (l *Logger) log(level Level, message string, fields map[string]string) {
	if !l.Enabled(level) {
		return
	}
	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
		Context:   mergeFields(l.baseContext, fields),
	}
	l.buffer.Add(entry)

	line := formatEntry(entry)
	if l.format == FormatJSON {
		line = formatJSONEntry(entry)
	}
	l.output.Print(line)
}

var levelRanks = map[Level]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

func normalizeLevel(level Level) Level {
	if _, ok := levelRanks[level]; ok {
		return level
	}
	return LevelInfo
}

func levelRank(level Level) int {
	if rank, ok := levelRanks[level]; ok {
		return rank
	}
	return levelRanks[LevelInfo]
}

// ParseLevel accepts the level names case-insensitively, plus "warn".
func ParseLevel(value string) (Level, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "warn" {
		return LevelWarning, true
	}
	level := Level(value)
	if _, ok := levelRanks[level]; !ok {
		return "", false
	}
	return level, true
}

func ParseFormat(value string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatText:
		return FormatText, true
	case FormatJSON:
		return FormatJSON, true
	default:
		return "", false
	}
}

func mergeFields(base, extra map[string]string) map[string]string {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	merged := make(map[string]string, len(base)+len(extra))
	maps.Copy(merged, base)
	maps.Copy(merged, extra)
	return merged
}

// formatEntry renders `level=info msg="..." key="value"` with sorted keys.
func formatEntry(entry LogEntry) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "level=%s msg=%s", entry.Level, strconv.Quote(entry.Message))
	for _, key := range slices.Sorted(maps.Keys(entry.Context)) {
		fmt.Fprintf(&builder, " %s=%s", key, strconv.Quote(entry.Context[key]))
	}
	return builder.String()
}

func formatJSONEntry(entry LogEntry) string {
	payload, err := json.Marshal(entry)
	if err != nil {
		return formatEntry(entry)
	}
	return string(payload)
}
