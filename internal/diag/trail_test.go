package diag

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
}

func TestTrailRecordsWhenEnabled(t *testing.T) {
	tr := New(true, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))).WithClock(fixedNow)

	tr.Add("goto", "url", "https://www.flipkart.com/search?q=tv", "attempt", 1)
	tr.Add("nav_error", "error", errors.New("timeout"), "wait", 400*time.Millisecond)
	tr.Add("done")

	lines := tr.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, `[2026-05-01T08:00:00Z] goto {"attempt":1,"url":"https://www.flipkart.com/search?q=tv"}`, lines[0])
	assert.Equal(t, `[2026-05-01T08:00:00Z] nav_error {"error":"timeout","wait":400}`, lines[1])
	assert.Equal(t, `[2026-05-01T08:00:00Z] done`, lines[2])
}

func TestTrailDisabledStillLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tr := New(false, logger)

	tr.Add("title", "value", "Robot Check")

	assert.Nil(t, tr.Lines())
	assert.False(t, tr.Enabled())
	assert.Contains(t, buf.String(), "Robot Check")
}

func TestNilTrail(t *testing.T) {
	var tr *Trail
	assert.NotPanics(t, func() { tr.Add("ignored") })
	assert.Nil(t, tr.Lines())
}

func TestTrailsAreIndependent(t *testing.T) {
	a := New(true, nil)
	b := New(true, nil)

	a.Add("only-a")

	assert.Len(t, a.Lines(), 1)
	assert.Empty(t, b.Lines())
}
