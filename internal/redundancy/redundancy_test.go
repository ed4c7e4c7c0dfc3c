package redundancy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		err  bool
	}{
		{"0", None, false},
		{"4", Paranoid, false},
		{"Strong", Strong, false},
		{" insane ", Insane, false},
		{"5", 0, true},
		{"300", 0, true},
		{"extreme", 0, true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.err {
			require.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}
}

func TestHeaderValue(t *testing.T) {
	require.Equal(t, "0", None.HeaderValue())
	require.Equal(t, "3", Insane.HeaderValue())
}

func TestText(t *testing.T) {
	text, err := Medium.MarshalText()
	require.NoError(t, err)
	var l Level
	require.NoError(t, l.UnmarshalText(text))
	require.Equal(t, Medium, l)

	_, err = Level(9).MarshalText()
	require.Error(t, err)
}

func TestRange(t *testing.T) {
	require.Equal(t, []Level{None, Medium, Strong, Insane, Paranoid}, Range(None, Paranoid))
	require.Equal(t, []Level{Medium}, Range(Medium, Medium))
	require.Empty(t, Range(Strong, Medium))
}
