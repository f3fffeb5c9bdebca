package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

func TestFakeFiresInDeadlineOrder(t *testing.T) {
	c := NewFake(epoch)
	var order []string
	c.AfterFunc(3*time.Second, func() { order = append(order, "c") })
	c.AfterFunc(1*time.Second, func() { order = append(order, "a") })
	c.AfterFunc(2*time.Second, func() { order = append(order, "b") })

	c.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, epoch.Add(2*time.Second), c.Now())

	c.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, c.Pending())
}

func TestFakeStop(t *testing.T) {
	c := NewFake(epoch)
	fired := false
	tm := c.AfterFunc(time.Second, func() { fired = true })
	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	c.Advance(time.Minute)
	assert.False(t, fired)
}

func TestFakeChainedTimersFireWithinAdvance(t *testing.T) {
	c := NewFake(epoch)
	var at []time.Time
	var step func()
	step = func() {
		at = append(at, c.Now())
		if len(at) < 3 {
			c.AfterFunc(time.Second, step)
		}
	}
	c.AfterFunc(time.Second, step)
	c.Advance(10 * time.Second)
	assert.Equal(t, []time.Time{
		epoch.Add(1 * time.Second),
		epoch.Add(2 * time.Second),
		epoch.Add(3 * time.Second),
	}, at)
	assert.Equal(t, epoch.Add(10*time.Second), c.Now())
}

func TestFakeSetDoesNotFire(t *testing.T) {
	c := NewFake(epoch)
	fired := false
	c.AfterFunc(time.Second, func() { fired = true })
	c.Set(epoch.Add(-time.Hour))
	assert.False(t, fired)
	assert.Equal(t, epoch.Add(-time.Hour), c.Now())
}
