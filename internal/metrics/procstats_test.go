package metrics_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arlobridge/crawlcore/internal/metrics"
)

func TestReadProcessStats(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("/proc/self is Linux-only")
	}

	rssBytes, openFDs, err := metrics.ReadProcessStats()
	require.NoError(t, err)
	require.Positive(t, rssBytes)
	require.Positive(t, openFDs)
}
