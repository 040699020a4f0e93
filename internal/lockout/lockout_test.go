package lockout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestZeroState_NotLocked(t *testing.T) {
	var s State
	_, locked := s.Locked(time.Now())
	require.False(t, locked)
}

func TestFailure_LocksAtThreshold(t *testing.T) {
	now := time.Now()
	var s State

	for i := 0; i < Threshold-1; i++ {
		s = s.Failure(now)
		_, locked := s.Locked(now)
		require.False(t, locked, "attempt %d must not lock", i+1)
	}

	s = s.Failure(now)
	remaining, locked := s.Locked(now)
	require.True(t, locked)
	require.Equal(t, Duration, remaining)
	require.Equal(t, Threshold, s.Attempts)
}

func TestLocked_RemainingShrinks(t *testing.T) {
	now := time.Now()
	s := State{Attempts: Threshold, Until: now.Add(Duration)}

	remaining, locked := s.Locked(now.Add(30 * time.Minute))
	require.True(t, locked)
	require.Equal(t, 30*time.Minute, remaining)
}

func TestFailure_AfterExpiryStartsFreshWindow(t *testing.T) {
	now := time.Now()
	s := State{Attempts: Threshold, Until: now.Add(-time.Minute)}

	_, locked := s.Locked(now)
	require.False(t, locked)

	s = s.Failure(now)
	require.Equal(t, 1, s.Attempts)
	_, locked = s.Locked(now)
	require.False(t, locked)
}

func TestSuccess_ClearsEverything(t *testing.T) {
	now := time.Now()
	s := State{Attempts: Threshold, Until: now.Add(Duration)}

	s = s.Success()
	require.Zero(t, s.Attempts)
	require.True(t, s.Until.IsZero())
}

func TestMinutesLeft(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want int
	}{
		{"zero", 0, 0},
		{"negative", -time.Minute, 0},
		{"exact minute", time.Minute, 1},
		{"rounds up", 61 * time.Second, 2},
		{"sub-minute rounds to one", 10 * time.Second, 1},
		{"full hour", time.Hour, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, MinutesLeft(tt.d))
		})
	}
}
