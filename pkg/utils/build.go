// This file contains build information and initialization logic.
// Version, Commit, BuildTime and TestMode are set with `-ldflags "-X github.com/nobletooth/dlist/pkg/utils.Version=..."`.
// CAUTION: This file shouldn't be removed or else the build flags wouldn't be set properly.

package utils

import (
	"log/slog"
	"strconv"
	"time"
)

// defaultVersion is reported by builds that don't set Version through ldflags.
const defaultVersion = "v0.0.0-dev"

var (
	TestMode   string // Should be "true" when running tests.
	IsTestMode bool
	Version    string
	Commit     string
	BuildTime  string
	StartTime  time.Time
)

func init() {
	StartTime = time.Now()

	// If build info is not set, make that clear.
	if Version == "" {
		Version = defaultVersion
	}
	if Commit == "" {
		Commit = "unknown"
	}
	if BuildTime == "" {
		BuildTime = "unknown"
	}
	if len(TestMode) > 0 {
		if isTestMode, err := strconv.ParseBool(TestMode); err == nil {
			IsTestMode = isTestMode
		} else {
			slog.Warn("Failed to parse TestMode build flag, defaulting to false", "error", err)
		}
	}
}

// Uptime returns how long the process has been running.
func Uptime() time.Duration {
	return time.Since(StartTime)
}
