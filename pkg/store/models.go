package store

import "time"

// Test result statuses as reported by the test framework.
const (
	StatusPassed      = "passed"
	StatusFailed      = "failed"
	StatusSkipped     = "skipped"
	StatusTimedOut    = "timedOut"
	StatusInterrupted = "interrupted"
)

// Log severity levels for structured run logs.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// TestRun represents a single execution of the test suite.
type TestRun struct {
	ID    uint   `gorm:"primaryKey" json:"-"`
	RunID string `gorm:"not null;uniqueIndex" json:"run_id"`

	StartedAt  time.Time  `gorm:"not null;index" json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	TotalTests int     `json:"total_tests"`
	Passed     int     `json:"passed"`
	Failed     int     `json:"failed"`
	Skipped    int     `json:"skipped"`
	Flaky      int     `json:"flaky"`
	PassRate   float64 `json:"pass_rate"`
	DurationMs int64   `json:"duration_ms"`

	// Environment metadata captured at run start.
	Branch      string `json:"branch,omitempty"`
	Commit      string `json:"commit,omitempty"`
	Environment string `json:"environment,omitempty"`
	Trigger     string `json:"trigger,omitempty"`
	Tags        string `json:"tags,omitempty"`
	Browsers    string `json:"browsers,omitempty"`
}

// TestResult represents the outcome of one test case within a run.
// Rows are append-only and never mutated.
type TestResult struct {
	ID    uint   `gorm:"primaryKey" json:"-"`
	RunID string `gorm:"not null;index" json:"run_id"`

	TestID   string `gorm:"not null;index" json:"test_id"`
	Name     string `gorm:"not null" json:"name"`
	File     string `json:"file,omitempty"`
	Tags     string `json:"tags,omitempty"`
	Suite    string `json:"suite,omitempty"`
	Browser  string `json:"browser,omitempty"`
	Status   string `gorm:"not null;index" json:"status"`
	Retries  int    `json:"retries"`
	Duration int64  `json:"duration_ms"`

	ErrorMessage string `gorm:"type:text" json:"error_message,omitempty"`
	ErrorStack   string `gorm:"type:text" json:"error_stack,omitempty"`

	ScreenshotPath string `json:"screenshot_path,omitempty"`
	VideoPath      string `json:"video_path,omitempty"`
	TracePath      string `json:"trace_path,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TestHistory is the all-time rolling aggregate for one test identifier.
type TestHistory struct {
	ID     uint   `gorm:"primaryKey" json:"-"`
	TestID string `gorm:"not null;uniqueIndex" json:"test_id"`
	Name   string `gorm:"not null" json:"name"`
	File   string `json:"file,omitempty"`

	TotalRuns  int `gorm:"not null" json:"total_runs"`
	PassCount  int `json:"pass_count"`
	FailCount  int `json:"fail_count"`
	SkipCount  int `json:"skip_count"`
	FlakyCount int `json:"flaky_count"`

	AvgDurationMs float64 `json:"avg_duration_ms"`
	MinDurationMs int64   `json:"min_duration_ms"`
	MaxDurationMs int64   `json:"max_duration_ms"`

	// Percentage of all-time runs that ended in failure.
	FlakinessScore float64 `gorm:"index" json:"flakiness_score"`

	LastStatus    string     `json:"last_status"`
	FirstRunAt    time.Time  `json:"first_run_at"`
	LastRunAt     time.Time  `json:"last_run_at"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
}

// LogEntry is a single structured log line emitted during a run.
type LogEntry struct {
	ID     uint   `gorm:"primaryKey" json:"-"`
	RunID  string `gorm:"not null;index" json:"run_id"`
	TestID string `json:"test_id,omitempty"`

	Level     string    `gorm:"not null" json:"level"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Timestamp time.Time `gorm:"not null" json:"timestamp"`

	// Optional structured metadata serialized as JSON.
	MetaJSON string `gorm:"type:text" json:"meta,omitempty"`
}

// RunStats is the single aggregate row across all recorded runs.
type RunStats struct {
	TotalRuns     int64   `json:"total_runs"`
	TotalTests    int64   `json:"total_tests"`
	AvgPassRate   float64 `json:"avg_pass_rate"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// RunSnapshot carries the final mutable fields written back to a TestRun
// when the run ends. Callers supply the full snapshot; omitted fields are
// written as their zero values.
type RunSnapshot struct {
	FinishedAt *time.Time
	TotalTests int
	Passed     int
	Failed     int
	Skipped    int
	Flaky      int
	PassRate   float64
	DurationMs int64
}
