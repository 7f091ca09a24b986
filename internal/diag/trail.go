package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Trail collects timestamped stage events for one request. A nil *Trail
// is valid and discards everything.
type Trail struct {
	mu      sync.Mutex
	enabled bool
	lines   []string
	logger  *slog.Logger
	now     func() time.Time
}

// New returns a trail that records lines only when enabled. Events are
// always mirrored to logger at debug level.
func New(enabled bool, logger *slog.Logger) *Trail {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trail{
		enabled: enabled,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock replaces the timestamp source.
func (t *Trail) WithClock(now func() time.Time) *Trail {
	if t != nil && now != nil {
		t.now = now
	}
	return t
}

// Add records msg with optional key/value pairs, e.g.
// Add("goto", "url", u, "attempt", 1).
func (t *Trail) Add(msg string, kv ...any) {
	if t == nil {
		return
	}

	t.logger.Log(context.Background(), slog.LevelDebug, msg, kv...)

	if !t.enabled {
		return
	}

	line := fmt.Sprintf("[%s] %s", t.now().UTC().Format(time.RFC3339Nano), msg)
	if fields := pairs(kv); len(fields) > 0 {
		if data, err := json.Marshal(fields); err == nil {
			line += " " + string(data)
		}
	}

	t.mu.Lock()
	t.lines = append(t.lines, line)
	t.mu.Unlock()
}

func (t *Trail) Enabled() bool {
	return t != nil && t.enabled
}

// Lines returns a copy of the recorded lines, or nil when disabled.
func (t *Trail) Lines() []string {
	if !t.Enabled() {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}

func pairs(kv []any) map[string]any {
	if len(kv) == 0 {
		return nil
	}
	out := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 >= len(kv) {
			out[key] = nil
			break
		}
		switch v := kv[i+1].(type) {
		case error:
			out[key] = v.Error()
		case time.Duration:
			out[key] = v.Milliseconds()
		default:
			out[key] = v
		}
	}
	return out
}
