package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/loam/internal/testutil"
)

func TestClock_FollowsSource(t *testing.T) {
	src := testutil.NewDeterministicClock()
	c := NewClockFrom(src.Now)

	assert.Equal(t, testutil.Epoch, c.Now())
	assert.Equal(t, testutil.Epoch.Add(time.Second), c.Now())
	assert.Equal(t, testutil.Epoch.Add(time.Second), c.Last())
}

func TestClock_NeverGoesBackwards(t *testing.T) {
	stamps := []time.Time{
		testutil.Epoch.Add(5 * time.Second),
		testutil.Epoch,
		testutil.Epoch.Add(6 * time.Second),
	}
	i := 0
	c := NewClockFrom(func() time.Time {
		t := stamps[i]
		i++
		return t
	})

	assert.Equal(t, stamps[0], c.Now())
	assert.Equal(t, stamps[0], c.Now(), "earlier reading repeats the last stamp")
	assert.Equal(t, stamps[2], c.Now())
}

func TestClock_UTC(t *testing.T) {
	loc := time.FixedZone("X", 3600)
	c := NewClockFrom(func() time.Time { return time.Date(2024, 1, 1, 1, 0, 0, 0, loc) })
	assert.Equal(t, time.UTC, c.Now().Location())
}

func TestClock_ThreadSafe(t *testing.T) {
	c := NewClock()
	const goroutines = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Now()
			}
		}()
	}
	wg.Wait()
	assert.False(t, c.Last().IsZero())
}
