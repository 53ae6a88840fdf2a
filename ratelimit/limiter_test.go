package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiter_Allows_Up_To_Limit_Within_Window(t *testing.T) {
	req := require.New(t)
	now := time.Now()
	limiter := NewLimiterWithClock(func() time.Time { return now })

	// Given a limit of 3 in 10 seconds
	// When 3 events arrive inside the window
	for i := 0; i < 3; i++ {
		req.True(limiter.Allow("k", 3, 10*time.Second))
	}

	// Then the 4th is rejected and not recorded
	req.False(limiter.Allow("k", 3, 10*time.Second))
	req.False(limiter.Allow("k", 3, 10*time.Second))
}

func TestLimiter_Window_Slides(t *testing.T) {
	req := require.New(t)
	now := time.Now()
	limiter := NewLimiterWithClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		req.True(limiter.Allow("k", 3, 10*time.Second))
	}
	req.False(limiter.Allow("k", 3, 10*time.Second))

	// When time advances past the window of the first event
	now = now.Add(11 * time.Second)

	// Then a new event is admitted
	req.True(limiter.Allow("k", 3, 10*time.Second))
}

func TestLimiter_Rejected_Events_Do_Not_Extend_Window(t *testing.T) {
	req := require.New(t)
	now := time.Now()
	limiter := NewLimiterWithClock(func() time.Time { return now })

	req.True(limiter.Allow("k", 1, 10*time.Second))

	// Hammering while blocked must not push the window forward
	for i := 0; i < 5; i++ {
		now = now.Add(time.Second)
		req.False(limiter.Allow("k", 1, 10*time.Second))
	}

	now = now.Add(6 * time.Second)
	req.True(limiter.Allow("k", 1, 10*time.Second))
}

func TestLimiter_Keys_Are_Independent(t *testing.T) {
	req := require.New(t)
	limiter := NewLimiter()

	req.True(limiter.Allow("a", 1, time.Minute))
	req.False(limiter.Allow("a", 1, time.Minute))

	// A different key has its own budget
	req.True(limiter.Allow("b", 1, time.Minute))
}

func TestLimiter_Empty_Keys_Are_Garbage_Collected(t *testing.T) {
	req := require.New(t)
	now := time.Now()
	limiter := NewLimiterWithClock(func() time.Time { return now })

	req.True(limiter.Allow("k", 5, time.Second))
	now = now.Add(2 * time.Second)

	// The expired entry is pruned on the next access and re-admitted
	req.True(limiter.Allow("k", 5, time.Second))

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	req.Len(limiter.events, 1)
}

func TestLimiter_Concurrent_Callers(t *testing.T) {
	req := require.New(t)
	limiter := NewLimiter()

	var wg sync.WaitGroup
	allowed := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- limiter.Allow("shared", 50, time.Minute)
		}()
	}
	wg.Wait()
	close(allowed)

	// Exactly the limit goes through under contention
	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	req.Equal(50, count)
}

func TestLimiter_Key_Families_Do_Not_Collide(t *testing.T) {
	req := require.New(t)

	req.NotEqual(LoginKey("u1"), EventKey("u1"))
	req.NotEqual(EventKey("u1"), SendKey("c", "u1"))
	req.Equal("msg:conv1:u1", SendKey("conv1", "u1"))
}
