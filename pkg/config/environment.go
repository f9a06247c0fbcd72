package config

import (
	"os/exec"
	"strings"

	"github.com/spf13/viper"
)

// Environment describes where and why a test run was executed. All fields
// come from the process environment, with a best-effort local git lookup
// when the branch or commit variables are unset.
type Environment struct {
	Branch      string
	Commit      string
	Environment string
	Trigger     string
}

// CaptureEnvironment reads run metadata from environment variables.
// Recognized variables, first match wins:
//
//	branch:      FLAKEOOR_BRANCH, GIT_BRANCH, BRANCH_NAME
//	commit:      FLAKEOOR_COMMIT, GIT_COMMIT, COMMIT_SHA
//	environment: FLAKEOOR_ENV, TEST_ENV (default "local")
//	trigger:     FLAKEOOR_TRIGGER, CI_TRIGGER (default "manual")
func CaptureEnvironment() *Environment {
	v := viper.New()

	bindings := map[string][]string{
		"branch":      {"FLAKEOOR_BRANCH", "GIT_BRANCH", "BRANCH_NAME"},
		"commit":      {"FLAKEOOR_COMMIT", "GIT_COMMIT", "COMMIT_SHA"},
		"environment": {"FLAKEOOR_ENV", "TEST_ENV"},
		"trigger":     {"FLAKEOOR_TRIGGER", "CI_TRIGGER"},
	}

	for key, vars := range bindings {
		// BindEnv only errors on an empty key.
		_ = v.BindEnv(append([]string{key}, vars...)...)
	}

	v.SetDefault("environment", "local")
	v.SetDefault("trigger", "manual")

	env := &Environment{
		Branch:      v.GetString("branch"),
		Commit:      v.GetString("commit"),
		Environment: v.GetString("environment"),
		Trigger:     v.GetString("trigger"),
	}

	if env.Branch == "" {
		env.Branch = gitOutput("rev-parse", "--abbrev-ref", "HEAD")
	}

	if env.Commit == "" {
		env.Commit = gitOutput("rev-parse", "--short", "HEAD")
	}

	return env
}

// gitOutput runs a git command and returns its trimmed stdout, or an empty
// string when git is unavailable or the working directory is not a repo.
func gitOutput(args ...string) string {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(out))
}
