package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMock(t *testing.T) {
	start := time.Date(2019, 3, 4, 10, 0, 0, 0, time.UTC)
	c := &Mock{MockNow: start}
	assert.Equal(t, start, c.Now())
	c.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), c.Now())
}

func TestReal(t *testing.T) {
	var c C = Real{}
	assert.Equal(t, time.UTC, c.Now().Location())
	assert.WithinDuration(t, time.Now(), c.Now(), time.Second)
}
