package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckCacheCompatibility checks if a cache file written by writerVersion can
// be loaded by a reader running readerVersion. Returns nil if compatible,
// error with details if not.
//
// Compatibility Rules:
//   - If either version is "main" (development build), compatibility check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 can read caches written by 1.2.5)
//
// Examples:
//   - Reader 1.2.0, Writer 1.2.0 -> OK (exact match)
//   - Reader 1.2.1, Writer 1.2.0 -> OK (patch differs)
//   - Reader 1.3.0, Writer 1.2.0 -> ERROR (minor differs)
//   - Reader 2.0.0, Writer 1.2.0 -> ERROR (major differs)
//   - Reader main, Writer 1.2.0 -> OK (dev build, skip check)
func CheckCacheCompatibility(readerVersion, writerVersion string) error {
	// Strip 'v' prefix if present for consistency
	readerVersion = strings.TrimPrefix(readerVersion, "v")
	writerVersion = strings.TrimPrefix(writerVersion, "v")

	// Skip version check for "main" (development builds)
	if readerVersion == "main" || writerVersion == "main" {
		return nil
	}

	readerSemver, err := semver.NewVersion(readerVersion)
	if err != nil {
		return fmt.Errorf("invalid reader version '%s': %w", readerVersion, err)
	}

	writerSemver, err := semver.NewVersion(writerVersion)
	if err != nil {
		return fmt.Errorf("invalid cache version '%s': %w", writerVersion, err)
	}

	// Check major version match
	if readerSemver.Major() != writerSemver.Major() {
		return fmt.Errorf("major version mismatch: reader is %d.x.x but cache was written by %d.x.x",
			readerSemver.Major(), writerSemver.Major())
	}

	// Check minor version match
	if readerSemver.Minor() != writerSemver.Minor() {
		return fmt.Errorf("minor version mismatch: reader is %d.%d.x but cache was written by %d.%d.x",
			readerSemver.Major(), readerSemver.Minor(),
			writerSemver.Major(), writerSemver.Minor())
	}

	// Patch versions can differ, so we're compatible
	return nil
}
