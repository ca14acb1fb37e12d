package utilities

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSemver(t *testing.T) {
	cases := []struct {
		str           string
		maj, min, pat uint64
		rc            uint64
		err           bool
	}{
		{str: "1.4.2", maj: 1, min: 4, pat: 2},
		{str: "v1.4.2", maj: 1, min: 4, pat: 2},
		{str: "2.0", maj: 2},
		{str: "1.4.2-rc.3", maj: 1, min: 4, pat: 2, rc: 3},
		{str: "1.4.2-rc-3-g33b87ae0", maj: 1, min: 4, pat: 2, rc: 3},
		{str: "1.4.2-rc7", maj: 1, min: 4, pat: 2, rc: 7},
		{str: "", err: true},
		{str: "unknown version", err: true},
	}

	for _, tc := range cases {
		vi, err := parseSemver(tc.str)
		if tc.err {
			require.Error(t, err, tc.str)
			continue
		}
		require.NoError(t, err, tc.str)
		require.Equal(t, tc.maj, vi.Major, tc.str)
		require.Equal(t, tc.min, vi.Minor, tc.str)
		require.Equal(t, tc.pat, vi.Patch, tc.str)
		require.Equal(t, tc.rc, vi.RC, tc.str)
	}
}

func TestInitVersionMetrics(t *testing.T) {
	prev := Version
	defer func() { Version = prev }()

	Version = "1.2.3"
	require.NoError(t, InitVersionMetrics(context.Background()))

	Version = "not-a-version"
	require.Error(t, InitVersionMetrics(context.Background()))
}
