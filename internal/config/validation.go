package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/go-version"
	"go.uber.org/zap/zapcore"

	"devkit/internal/catalog"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

const (
	LevelError   = "error"
	LevelWarning = "warning"
)

// Validate checks the settings and returns structured findings.
func (c Config) Validate() []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateNumbers()...)
	results = append(results, c.validatePackageManagers()...)
	results = append(results, c.validateCatalogs()...)
	results = append(results, c.validateMinimums()...)
	results = append(results, c.validateLogLevel()...)
	return results
}

// HasErrors reports whether any finding is an error.
func HasErrors(results []ValidationResult) bool {
	for _, r := range results {
		if r.Level == LevelError {
			return true
		}
	}
	return false
}

func (c Config) validateNumbers() []ValidationResult {
	var results []ValidationResult
	if c.PassThreshold <= 0 || c.PassThreshold > 1 {
		results = append(results, ValidationResult{
			Level:   LevelError,
			Message: fmt.Sprintf("pass_threshold must be in (0, 1], got %v", c.PassThreshold),
		})
	}
	if c.CommandTimeout < 0 {
		results = append(results, ValidationResult{Level: LevelError, Message: "command_timeout must not be negative"})
	}
	if c.VersionTimeout < 0 {
		results = append(results, ValidationResult{Level: LevelError, Message: "version_timeout must not be negative"})
	}
	if c.Concurrency < 1 {
		results = append(results, ValidationResult{
			Level:   LevelError,
			Message: fmt.Sprintf("concurrency must be at least 1, got %d", c.Concurrency),
		})
	}
	return results
}

func (c Config) validatePackageManagers() []ValidationResult {
	known := map[string]bool{}
	for _, pm := range catalog.DefaultPackageManagers {
		known[pm] = true
	}
	var results []ValidationResult
	for _, pm := range c.PackageManagers {
		if !known[strings.ToLower(pm)] {
			results = append(results, ValidationResult{
				Level:   LevelError,
				Message: fmt.Sprintf("package_managers: unknown package manager %q", pm),
			})
		}
	}
	return results
}

func (c Config) validateCatalogs() []ValidationResult {
	var results []ValidationResult
	for _, path := range c.Catalogs {
		resolved := c.resolve(path)
		if _, err := os.Stat(resolved); err != nil {
			results = append(results, ValidationResult{
				Level:   LevelError,
				Message: fmt.Sprintf("catalog file %q not found", path),
			})
		}
	}
	return results
}

func (c Config) validateMinimums() []ValidationResult {
	names := make([]string, 0, len(c.Minimums))
	for name := range c.Minimums {
		names = append(names, name)
	}
	sort.Strings(names)

	var results []ValidationResult
	for _, name := range names {
		if _, err := version.NewVersion(c.Minimums[name]); err != nil {
			results = append(results, ValidationResult{
				Level:   LevelWarning,
				Message: fmt.Sprintf("minimums.%s: %q is not a version; comparison falls back to numeric parts", name, c.Minimums[name]),
			})
		}
	}
	return results
}

func (c Config) validateLogLevel() []ValidationResult {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return []ValidationResult{{
			Level:   LevelWarning,
			Message: fmt.Sprintf("log_level %q not recognised; using info", c.LogLevel),
		}}
	}
	return nil
}
