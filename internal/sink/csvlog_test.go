package sink

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVLogCreatesFileWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.csv")

	_, err := NewCSVLog(path)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Name, Timestamp\n", string(content))
}

func TestCSVLogKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.csv")
	existing := "Name, Timestamp\nAlice, 2026-08-29 10:00:00\n"
	require.NoError(t, os.WriteFile(path, []byte(existing), 0600))

	_, err := NewCSVLog(path)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, existing, string(content))
}

func TestCSVLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.csv")
	s, err := NewCSVLog(path)
	require.NoError(t, err)

	ev := testEvent()
	require.NoError(t, s.Deliver(context.Background(), ev))

	second := ev
	second.Name = "Priya Singh"
	second.OccurredAt = ev.OccurredAt.Add(time.Minute)
	require.NoError(t, s.Deliver(context.Background(), second))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Name, Timestamp", lines[0])
	assert.Equal(t, "Chetan Yadav, 2026-08-30 09:00:00", lines[1])
	assert.Equal(t, "Priya Singh, 2026-08-30 09:01:00", lines[2])
}

func TestCSVLogLegacyDedup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.csv")
	s, err := NewCSVLog(path, WithLegacyDedup(time.Hour))
	require.NoError(t, err)

	ev := testEvent()
	require.NoError(t, s.Deliver(context.Background(), ev))

	// Same name half an hour later: the in-file scan suppresses it.
	repeat := ev
	repeat.OccurredAt = ev.OccurredAt.Add(30 * time.Minute)
	require.NoError(t, s.Deliver(context.Background(), repeat))

	// Past the window the name is logged again.
	later := ev
	later.OccurredAt = ev.OccurredAt.Add(2 * time.Hour)
	require.NoError(t, s.Deliver(context.Background(), later))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	require.Len(t, lines, 3, "expected header plus two records, got:\n%s", content)
}

func TestCSVLogDedupDisabledByDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.csv")
	s, err := NewCSVLog(path)
	require.NoError(t, err)

	ev := testEvent()
	require.NoError(t, s.Deliver(context.Background(), ev))
	require.NoError(t, s.Deliver(context.Background(), ev))

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	assert.Len(t, lines, 3, "default sink must append every event it is handed")
}
