package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClock(t *testing.T) {
	start := time.Unix(1700000000, 0).UTC()
	c := NewFakeClock(start)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, int64(1700000000), c.Unix())

	c.Advance(30 * 24 * time.Hour)
	assert.Equal(t, start.Add(30*24*time.Hour), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}
