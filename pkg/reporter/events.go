package reporter

import "time"

// Suite is one node of the test framework's suite tree handed to the
// reporter at run begin. Suites nest arbitrarily; tests hang off any level.
type Suite struct {
	Title  string
	Suites []*Suite
	Tests  []*TestCase
}

// CountTests returns the total number of test cases in the tree.
func (s *Suite) CountTests() int {
	if s == nil {
		return 0
	}

	total := len(s.Tests)
	for _, child := range s.Suites {
		total += child.CountTests()
	}

	return total
}

// TestCase identifies one test case within the suite tree.
type TestCase struct {
	ID      string
	Title   string
	File    string
	Suite   string
	Browser string
	Tags    []string
}

// Outcome is the result of one finished test case.
type Outcome struct {
	Status   string
	Duration time.Duration
	Retries  int

	ErrorMessage string
	ErrorStack   string

	ScreenshotPath string
	VideoPath      string
	TracePath      string
}
