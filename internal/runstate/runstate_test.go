package runstate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arlobridge/crawlcore/internal/runstate"
)

func TestState_RecordPageAndError(t *testing.T) {
	s := runstate.New(0, 0)

	require.Equal(t, int64(0), s.PagesCrawled())
	require.Equal(t, int64(0), s.FetchErrors())

	s.RecordPage()
	s.RecordPage()
	s.RecordError()

	require.Equal(t, int64(2), s.PagesCrawled())
	require.Equal(t, int64(1), s.FetchErrors())
}

func TestState_ShouldStopOnMaxPages(t *testing.T) {
	s := runstate.New(2, 0)

	s.RecordPage()
	require.False(t, s.ShouldStop())

	s.RecordPage()
	require.True(t, s.ShouldStop())
}

func TestState_ShouldStopOnMaxDuration(t *testing.T) {
	s := runstate.New(0, time.Millisecond)
	time.Sleep(2 * time.Millisecond)
	require.True(t, s.ShouldStop())
}

func TestState_ShouldStopOnExplicitRequest(t *testing.T) {
	s := runstate.New(0, 0)
	require.False(t, s.ShouldStop())

	s.RequestStop()
	require.True(t, s.Stopping())
	require.True(t, s.ShouldStop())
}
