// Package redundancy defines the erasure coding levels understood by the
// storage network. The level is forwarded to the backend untouched.
package redundancy

import (
	"fmt"
	"strconv"
	"strings"
)

// HeaderName is the request header carrying the level.
const HeaderName = "swarm-redundancy-level"

// Redundancy levels.
const (
	None Level = iota
	Medium
	Strong
	Insane
	Paranoid
)

// A Level selects how much parity the backend adds to stored data.
type Level uint8

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	return l <= Paranoid
}

// String implements fmt.Stringer.
func (l Level) String() string {
	switch l {
	case None:
		return "none"
	case Medium:
		return "medium"
	case Strong:
		return "strong"
	case Insane:
		return "insane"
	case Paranoid:
		return "paranoid"
	default:
		return fmt.Sprintf("Level(%d)", uint8(l))
	}
}

// HeaderValue returns the level as sent to the backend.
func (l Level) HeaderValue() string {
	return strconv.Itoa(int(l))
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid redundancy level %d", uint8(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Both names and
// numbers are accepted.
func (l *Level) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Parse parses a level from its name or number.
func Parse(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.ParseUint(s, 10, 8); err == nil {
		if l := Level(n); l.Valid() {
			return l, nil
		}
		return 0, fmt.Errorf("invalid redundancy level %d", n)
	}
	for l := None; l <= Paranoid; l++ {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown redundancy level %q", s)
}

// Range returns the levels from min to max inclusive.
func Range(min, max Level) []Level {
	var levels []Level
	for l := min; l <= max && l.Valid(); l++ {
		levels = append(levels, l)
	}
	return levels
}
