package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
)

// TestLogBuffer is a thread-safe buffer for capturing log output in tests.
type TestLogBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

// Write implements io.Writer for TestLogBuffer.
func (b *TestLogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns the buffer contents as a string.
func (b *TestLogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Entries parses the buffer contents as JSON log lines.
func (b *TestLogBuffer) Entries() ([]map[string]any, error) {
	lines := strings.Split(b.String(), "\n")
	entries := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Messages returns the msg field of every entry logged at level, in order.
func (b *TestLogBuffer) Messages(level slog.Level) []string {
	entries, err := b.Entries()
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e[slog.LevelKey] == level.String() {
			if msg, ok := e[slog.MessageKey].(string); ok {
				out = append(out, msg)
			}
		}
	}
	return out
}

// NewCapture returns a debug-level JSON logger writing into a fresh buffer.
func NewCapture() (*TestLogBuffer, *slog.Logger) {
	buf := &TestLogBuffer{}
	return buf, New(buf, slog.LevelDebug)
}
