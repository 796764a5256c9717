package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// SettingsVersion is the settings format this binary writes.
const SettingsVersion = "1.0.0"

// ErrSettingsTooNew is returned for files written by a newer major format.
var ErrSettingsTooNew = errors.New("settings were written by a newer version")

// CheckVersion accepts settings files of the current major format or older.
func CheckVersion(fileVersion string) error {
	fv, err := ParseVersion(fileVersion)
	if err != nil {
		return fmt.Errorf("parsing settingsVersion %q: %w", fileVersion, err)
	}
	current := semver.MustParse(SettingsVersion)
	if fv.Major() > current.Major() {
		return fmt.Errorf("%w: settingsVersion %s, supported %d.x", ErrSettingsTooNew, fv, current.Major())
	}
	return nil
}

// ParseVersion strips a leading "v" and parses a semantic version.
func ParseVersion(version string) (*semver.Version, error) {
	return semver.NewVersion(strings.TrimPrefix(strings.TrimSpace(version), "v"))
}
