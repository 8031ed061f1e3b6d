package timeutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealProvider_Now(t *testing.T) {
	now := Default().Now()

	assert.Equal(t, time.UTC, now.Location())
	assert.WithinDuration(t, time.Now(), now, 10*time.Second)
}

func TestMock_SetNowAndAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMock(start)
	assert.Equal(t, start, m.Now())

	m.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), m.Now())

	later := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	m.SetNow(later)
	assert.Equal(t, later, m.Now())
}

func TestMock_ConcurrentUse(t *testing.T) {
	m := NewMock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.Advance(time.Second)
		}()
		go func() {
			defer wg.Done()
			_ = m.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 10, 0, time.UTC), m.Now())
}
