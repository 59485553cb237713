package oracle

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"

	"energysplit/internal/logging"
	"energysplit/internal/services"
)

// Version identifies an installed segmentation-fold build.
type Version struct {
	Major, Minor, Patch int
	// Build is "debug", "release" or empty when the binary does not say.
	Build string
}

// MinimumVersion is the oldest release the tool is known to work with.
var MinimumVersion = Version{Major: 1}

var versionPattern = regexp.MustCompile(`segmentation-fold\s+(\d+)\.(\d+)\.(\d+)[^\n(]*(?:\((debug|release)\))?`)

// ParseVersion extracts the version from `segmentation-fold --version` output.
func ParseVersion(output string) (Version, error) {
	m := versionPattern.FindStringSubmatch(output)
	if m == nil {
		return Version{}, fmt.Errorf("unrecognized version output %q", output)
	}
	var v Version
	v.Major, _ = strconv.Atoi(m[1])
	v.Minor, _ = strconv.Atoi(m[2])
	v.Patch, _ = strconv.Atoi(m[3])
	v.Build = m[4]
	return v, nil
}

// ParseVersionFloor parses a bare MAJOR.MINOR.PATCH string.
func ParseVersionFloor(value string) (Version, error) {
	return ParseVersion("segmentation-fold " + value)
}

func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Build != "" {
		s += " (" + v.Build + ")"
	}
	return s
}

// Less reports whether v is an older release than other.
func (v Version) Less(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor < other.Minor
	}
	return v.Patch < other.Patch
}

// Version runs `<binary> --version` and checks it against the configured minimum.
// Any failure is reported as services.ErrOracleUnavailable.
func (c *Client) Version(ctx context.Context) (Version, error) {
	stdout, stderr, err := c.exec.Run(ctx, c.binary, []string{"--version"})
	if err != nil {
		msg := "run --version"
		if errors.Is(err, exec.ErrNotFound) {
			msg = fmt.Sprintf("binary %q not found", c.binary)
		}
		return Version{}, services.Wrap(services.ErrOracleUnavailable, "oracle", "version", msg, err)
	}
	v, err := ParseVersion(string(stdout) + string(stderr))
	if err != nil {
		return Version{}, services.Wrap(services.ErrOracleUnavailable, "oracle", "version", "", err)
	}
	if v.Less(c.minVersion) {
		return v, services.Wrap(services.ErrOracleUnavailable, "oracle", "version",
			fmt.Sprintf("segmentation-fold %s is older than required %s", v, c.minVersion), nil)
	}
	if v.Build == "debug" {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "segmentation-fold is a debug build", "oracle_debug_build",
			logging.String("version", v.String()),
			logging.String(logging.FieldErrorHint, "install a release build; debug builds are much slower"),
		)
	}
	return v, nil
}
