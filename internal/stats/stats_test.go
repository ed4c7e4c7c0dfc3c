package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	s := Calculate([]time.Duration{
		2 * time.Millisecond,
		4 * time.Millisecond,
		4 * time.Millisecond,
		4 * time.Millisecond,
		5 * time.Millisecond,
		5 * time.Millisecond,
		7 * time.Millisecond,
		9 * time.Millisecond,
	})
	require.Equal(t, 8, s.Count)
	require.Equal(t, 5*time.Millisecond, s.Average)
	require.Equal(t, 2*time.Millisecond, s.Min)
	require.Equal(t, 9*time.Millisecond, s.Max)
	require.Equal(t, 2*time.Millisecond, s.StdDev)
}

func TestCalculateEmpty(t *testing.T) {
	require.Equal(t, Summary{}, Calculate(nil))
}

func TestCalculateSingle(t *testing.T) {
	s := Calculate([]time.Duration{time.Second})
	require.Equal(t, Summary{Count: 1, Average: time.Second, Min: time.Second, Max: time.Second}, s)
}

func TestMilliseconds(t *testing.T) {
	require.InDelta(t, 1.5, Milliseconds(1500*time.Microsecond), 1e-9)
}

func TestCalculateSpread(t *testing.T) {
	s := Calculate([]time.Duration{time.Second, 3 * time.Second})
	require.Equal(t, 2*time.Second, s.Average)
	require.Equal(t, time.Second, s.StdDev)
}
