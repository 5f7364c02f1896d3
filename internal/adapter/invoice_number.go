package adapter

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"
)

var suffixSpace = big.NewInt(1_000_000)

// RandomNumberGenerator issues invoice numbers of the form
// PREFIX-YYYYMM-NNNNNN with a random six-digit suffix. Numbers are not
// guaranteed unique.
type RandomNumberGenerator struct {
	prefix string
	logger *zap.Logger
}

// NewRandomNumberGenerator creates a generator for prefix.
func NewRandomNumberGenerator(prefix string, logger *zap.Logger) *RandomNumberGenerator {
	if prefix == "" {
		prefix = "INV"
	}
	return &RandomNumberGenerator{prefix: prefix, logger: logger}
}

// Next returns a number dated by now.
func (g *RandomNumberGenerator) Next(now time.Time) string {
	n, err := rand.Int(rand.Reader, suffixSpace)
	if err != nil {
		// crypto/rand does not fail on supported platforms; fall back to the clock.
		g.logger.Warn("random invoice suffix unavailable, using clock", zap.Error(err))
		n = big.NewInt(now.UnixNano() % suffixSpace.Int64())
	}
	return format(g.prefix, now, n.Int64())
}

// SequenceGenerator issues consecutive numbers. Used where deterministic
// numbers are needed.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int64
}

// NewSequenceGenerator creates a generator starting at 1.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix, next: 1}
}

// Next returns the next number dated by now.
func (g *SequenceGenerator) Next(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.next % suffixSpace.Int64()
	g.next++
	return format(g.prefix, now, n)
}

func format(prefix string, now time.Time, n int64) string {
	return fmt.Sprintf("%s-%s-%06d", prefix, now.UTC().Format("200601"), n)
}
