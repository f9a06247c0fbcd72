package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethpandaops/flakeoor/pkg/store"
	"github.com/sirupsen/logrus"
)

// RunLogger persists structured log entries for one run: each entry is
// appended as a newline-delimited JSON record to <dir>/<runID>.ndjson and
// mirrored into the store's log table.
type RunLogger struct {
	log   logrus.FieldLogger
	st    store.Store
	runID string
	file  *os.File
	enc   *json.Encoder
}

// NewRunLogger opens the NDJSON log file for a run, creating the logs
// directory on first use.
func NewRunLogger(
	log logrus.FieldLogger,
	st store.Store,
	dir, runID string,
) (*RunLogger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating logs directory: %w", err)
	}

	path := filepath.Join(dir, runID+".ndjson")

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening run log file: %w", err)
	}

	return &RunLogger{
		log:   log.WithField("component", "runlog"),
		st:    st,
		runID: runID,
		file:  file,
		enc:   json.NewEncoder(file),
	}, nil
}

// Log appends one structured entry. File and store writes are best-effort:
// a failing analytics sink must never interfere with the run itself.
func (l *RunLogger) Log(
	ctx context.Context,
	level, testID, message string,
	meta map[string]any,
) {
	entry := &store.LogEntry{
		RunID:     l.runID,
		TestID:    testID,
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	}

	if len(meta) > 0 {
		data, err := json.Marshal(meta)
		if err == nil {
			entry.MetaJSON = string(data)
		}
	}

	if err := l.enc.Encode(entry); err != nil {
		l.log.WithError(err).Debug("Failed to append run log record")
	}

	if err := l.st.InsertLog(ctx, entry); err != nil {
		l.log.WithError(err).Debug("Failed to persist run log entry")
	}
}

// Close flushes and closes the NDJSON file.
func (l *RunLogger) Close() error {
	return l.file.Close()
}
