package render

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResult(t *testing.T) {
	boom := errors.New("boom")
	for _, tc := range []struct {
		res    Result
		usable bool
		stale  bool
		str    string
	}{
		{OK(), true, false, "ok"},
		{Suboptimal(), true, true, "suboptimal"},
		{OutOfDate(), false, true, "out of date"},
		{Failed(boom), false, false, "failed: boom"},
	} {
		t.Run(tc.str, func(t *testing.T) {
			require.Equal(t, tc.usable, tc.res.Usable())
			require.Equal(t, tc.stale, tc.res.Stale())
			require.Equal(t, tc.str, tc.res.String())
		})
	}
}

func TestFailedWithoutError(t *testing.T) {
	res := Failed(nil)
	require.Equal(t, StatusFailed, res.Status)
	require.ErrorIs(t, res.Err, ErrUnknown)
}

func TestStatusString(t *testing.T) {
	require.Equal(t, "status(9)", Status(9).String())
	require.Equal(t, "phase(-1)", Phase(-1).String())
	require.Equal(t, "fence wait", PhaseFenceWait.String())
	require.Equal(t, "skipped", Skipped.String())
	require.Equal(t, "outcome(7)", RecreateOutcome(7).String())
}
