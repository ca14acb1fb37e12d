package utilities

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Version is git commit or release tag from which this binary was built.
var Version string

// InitVersionMetrics records the running build's semantic version as gauges.
func InitVersionMetrics(ctx context.Context) error {
	vi, err := parseSemver(Version)
	if err != nil {
		return fmt.Errorf("unable to parse version %q: %w", Version, err)
	}
	return errors.Join(
		recordVersionGauge(ctx, "major", vi.Major),
		recordVersionGauge(ctx, "minor", vi.Minor),
		recordVersionGauge(ctx, "patch", vi.Patch),
	)
}

func recordVersionGauge(ctx context.Context, part string, val uint64) error {
	name := fmt.Sprintf("integrations_version_%v", part)
	desc := fmt.Sprintf("Set to this integrations server's %v version number.", part)

	g, err := otel.Meter("integrations").Int64Gauge(name, metric.WithDescription(desc))
	if err != nil {
		return err
	}
	if val > math.MaxInt64 {
		return fmt.Errorf("version part %q (%v) is > math.MaxInt64", part, val)
	}

	g.Record(ctx, int64(val))
	return nil
}

type versionInfo struct {
	Major uint64
	Minor uint64
	Patch uint64
	RC    uint64
}

func parseSemver(ver string) (*versionInfo, error) {
	ver = strings.TrimSpace(ver)
	if !strings.HasPrefix(ver, "v") {
		ver = "v" + ver
	}

	sv, err := semver.NewVersion(ver)
	if err != nil {
		return nil, err
	}

	vi := &versionInfo{
		Major: sv.Major(),
		Minor: sv.Minor(),
		Patch: sv.Patch(),
	}

	if pre := sv.Prerelease(); strings.HasPrefix(pre, "rc") {
		pre = strings.TrimLeft(strings.TrimPrefix(pre, "rc"), ".-")
		if i := strings.IndexAny(pre, ".-"); i >= 0 {
			pre = pre[:i]
		}
		if rc, err := strconv.ParseUint(pre, 10, 64); err == nil {
			vi.RC = rc
		}
	}

	return vi, nil
}
