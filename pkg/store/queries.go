package store

import "context"

// ListFlakyTests returns the top-N tests by flakiness score. Only tests
// that have both passed and failed at least once over two or more runs
// qualify: a test that fails every time is broken, not flaky.
func (s *store) ListFlakyTests(
	ctx context.Context, limit int,
) ([]TestHistory, error) {
	var tests []TestHistory

	if err := s.db.WithContext(ctx).
		Where("total_runs >= 2 AND pass_count > 0 AND fail_count > 0").
		Order("flakiness_score DESC").
		Limit(limit).
		Find(&tests).Error; err != nil {
		return nil, storageErr("listing flaky tests", err)
	}

	return tests, nil
}

// ListSlowestTests returns the top-N tests by average duration.
func (s *store) ListSlowestTests(
	ctx context.Context, limit int,
) ([]TestHistory, error) {
	var tests []TestHistory

	if err := s.db.WithContext(ctx).
		Order("avg_duration_ms DESC").
		Limit(limit).
		Find(&tests).Error; err != nil {
		return nil, storageErr("listing slowest tests", err)
	}

	return tests, nil
}

// ListMostFailingTests returns the top-N tests by failure count,
// restricted to tests seen in at least two runs.
func (s *store) ListMostFailingTests(
	ctx context.Context, limit int,
) ([]TestHistory, error) {
	var tests []TestHistory

	if err := s.db.WithContext(ctx).
		Where("total_runs >= 2 AND fail_count > 0").
		Order("fail_count DESC").
		Limit(limit).
		Find(&tests).Error; err != nil {
		return nil, storageErr("listing most failing tests", err)
	}

	return tests, nil
}

// OverallStats returns the single aggregate row across all recorded runs.
// All fields are zero when no runs exist.
func (s *store) OverallStats(ctx context.Context) (*RunStats, error) {
	var stats RunStats

	if err := s.db.WithContext(ctx).
		Model(&TestRun{}).
		Select(
			"COUNT(*) AS total_runs, " +
				"COALESCE(SUM(total_tests), 0) AS total_tests, " +
				"COALESCE(AVG(pass_rate), 0) AS avg_pass_rate, " +
				"COALESCE(AVG(duration_ms), 0) AS avg_duration_ms",
		).
		Scan(&stats).Error; err != nil {
		return nil, storageErr("reading overall stats", err)
	}

	return &stats, nil
}
