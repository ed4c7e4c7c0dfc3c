// Package identifier generates sequential SOC identifiers.
package identifier

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"go.sia.tech/socbench/internal/soc"
)

// counterBytes is the number of low-order identifier bytes that hold the
// counter. The remaining bytes are always zero.
const counterBytes = 8

// ErrExhausted is returned once the counter no longer fits in the
// identifier's counter bytes.
var ErrExhausted = errors.New("identifier space exhausted")

var maxCounter = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 8*counterBytes), big.NewInt(1))

type (
	// A Generator returns identifiers encoding an incrementing counter,
	// little-endian in the first eight bytes. The first identifier is all
	// zeros. The zero value starts at counter 0. It is not safe for
	// concurrent use.
	Generator struct {
		counter *big.Int
	}

	// Locked wraps a Generator for use by concurrent callers.
	Locked struct {
		mu  sync.Mutex
		gen *Generator
	}
)

// Counter returns the value the next identifier will encode.
func (g *Generator) Counter() *big.Int {
	if g.counter == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(g.counter)
}

// Next returns the identifier for the current counter value and advances
// the counter. It fails with ErrExhausted instead of truncating a counter
// that no longer fits.
func (g *Generator) Next() (id soc.ID, err error) {
	if g.counter == nil {
		g.counter = new(big.Int)
	}
	if g.counter.Cmp(maxCounter) > 0 {
		return soc.ID{}, fmt.Errorf("%w: counter %v", ErrExhausted, g.counter)
	}
	// big.Int.Bytes is big-endian; reverse into the low-order bytes
	b := g.counter.Bytes()
	for i := range b {
		id[i] = b[len(b)-1-i]
	}
	g.counter.Add(g.counter, big.NewInt(1))
	return id, nil
}

// Next returns the next identifier of the wrapped generator.
func (l *Locked) Next() (soc.ID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen.Next()
}

// Counter returns the wrapped generator's counter.
func (l *Locked) Counter() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen.Counter()
}

// NewFrom returns a generator resuming at counter. Negative counters are
// rejected.
func NewFrom(counter *big.Int) (*Generator, error) {
	if counter.Sign() < 0 {
		return nil, fmt.Errorf("negative counter %v", counter)
	}
	return &Generator{counter: new(big.Int).Set(counter)}, nil
}

// New returns a generator starting at zero.
func New() *Generator {
	return &Generator{counter: new(big.Int)}
}

// NewLocked returns a concurrency-safe wrapper around g.
func NewLocked(g *Generator) *Locked {
	return &Locked{gen: g}
}
