package sink

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	csvHeader     = "Name, Timestamp"
	csvTimeLayout = "2006-01-02 15:04:05"
)

// CSVLog appends accepted events to a plain-text attendance log:
// one header line, then `name, YYYY-MM-DD HH:MM:SS` per record.
type CSVLog struct {
	path string
	mu   sync.Mutex

	// legacyDedup re-scans the log for a recent entry before append,
	// the way the old log-only deployment did. It must stay off when
	// the sink runs under the decision engine, whose ledger already
	// owns dedup; enabling both double-suppresses.
	legacyDedup  bool
	legacyWindow time.Duration
}

// CSVOption configures a CSVLog sink.
type CSVOption func(*CSVLog)

// WithLegacyDedup enables the in-file duplicate scan with the given
// window. Only for running the sink without the decision engine.
func WithLegacyDedup(window time.Duration) CSVOption {
	return func(s *CSVLog) {
		s.legacyDedup = true
		s.legacyWindow = window
	}
}

// NewCSVLog creates the log sink, writing the header line if the file
// does not exist yet.
func NewCSVLog(path string, opts ...CSVOption) (*CSVLog, error) {
	s := &CSVLog{path: path}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(csvHeader+"\n"), 0600); err != nil {
			return nil, fmt.Errorf("creating attendance log %s: %w", path, err)
		}
		zap.L().Info("created attendance log", zap.String("path", path))
	}

	return s, nil
}

// Deliver appends one event to the log.
func (s *CSVLog) Deliver(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.legacyDedup {
		recent, err := s.recentlyLogged(ev.Name, ev.OccurredAt)
		if err != nil {
			return fmt.Errorf("%w: scanning log: %v", ErrRejected, err)
		}
		if recent {
			zap.L().Debug("attendance already logged recently",
				zap.String("name", ev.Name))
			return nil
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0600) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("%w: opening log: %v", ErrUnreachable, err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s, %s\n", ev.Name, ev.OccurredAt.Format(csvTimeLayout))
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("%w: appending: %v", ErrUnreachable, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: syncing: %v", ErrUnreachable, err)
	}

	return nil
}

// recentlyLogged reports whether name already has a log entry within
// the legacy window before now. This is the O(file-size) scan the
// in-memory ledger replaced; it survives only for legacy parity.
func (s *CSVLog) recentlyLogged(name string, now time.Time) (bool, error) {
	f, err := os.Open(s.path) //nolint:gosec // path is from trusted config
	if err != nil {
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		entry := strings.SplitN(scanner.Text(), ",", 2)
		if len(entry) != 2 {
			continue
		}
		logged, err := time.Parse(csvTimeLayout, strings.TrimSpace(entry[1]))
		if err != nil {
			continue // header or malformed line
		}
		if strings.TrimSpace(entry[0]) == name && now.Sub(logged) < s.legacyWindow {
			return true, nil
		}
	}
	return false, scanner.Err()
}
