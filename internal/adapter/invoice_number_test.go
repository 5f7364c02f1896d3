package adapter

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRandomNumberGenerator_Format(t *testing.T) {
	g := NewRandomNumberGenerator("INV", zap.NewNop())
	now := time.Date(2026, time.March, 9, 23, 0, 0, 0, time.UTC)

	pattern := regexp.MustCompile(`^INV-202603-\d{6}$`)
	for i := 0; i < 50; i++ {
		assert.Regexp(t, pattern, g.Next(now))
	}
}

func TestRandomNumberGenerator_DefaultPrefix(t *testing.T) {
	g := NewRandomNumberGenerator("", zap.NewNop())
	assert.Regexp(t, `^INV-\d{6}-\d{6}$`, g.Next(time.Now()))
}

func TestRandomNumberGenerator_UsesUTCMonth(t *testing.T) {
	g := NewRandomNumberGenerator("HTL", zap.NewNop())
	// 2026-04-01 01:00 at UTC+7 is still March in UTC.
	local := time.Date(2026, time.April, 1, 1, 0, 0, 0, time.FixedZone("UTC+7", 7*60*60))
	assert.Regexp(t, `^HTL-202603-\d{6}$`, g.Next(local))
}

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator("INV")
	now := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "INV-202601-000001", g.Next(now))
	assert.Equal(t, "INV-202601-000002", g.Next(now))
}
