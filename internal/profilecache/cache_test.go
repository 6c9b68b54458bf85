// ABOUTME: Tests for the profile cache
// ABOUTME: Validates TTL expiry, size-bounded eviction, sweeping and concurrent use

package profilecache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_GetMissing(t *testing.T) {
	c := New(5*time.Minute, 10)
	defer c.Close()

	_, ok := c.Get("42")
	assert.False(t, ok)
}

func TestCache_PutGet(t *testing.T) {
	c := New(5*time.Minute, 10)
	defer c.Close()

	c.Put("42", Profile{FirstName: "Ann", LastName: "Lee"})

	p, ok := c.Get("42")
	assert.True(t, ok)
	assert.Equal(t, Profile{FirstName: "Ann", LastName: "Lee"}, p)
}

func TestCache_Expiry(t *testing.T) {
	c := New(10*time.Millisecond, 10)
	defer c.Close()

	c.Put("42", Profile{FirstName: "Ann"})
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("42")
	assert.False(t, ok)
}

func TestCache_PutRefreshes(t *testing.T) {
	c := New(5*time.Minute, 10)
	defer c.Close()

	c.Put("42", Profile{FirstName: "Ann"})
	c.Put("42", Profile{FirstName: "Anne"})

	p, _ := c.Get("42")
	assert.Equal(t, "Anne", p.FirstName)
	assert.Equal(t, 1, c.Len())
}

func TestCache_EvictsOldest(t *testing.T) {
	c := New(5*time.Minute, 2)
	defer c.Close()

	c.Put("1", Profile{FirstName: "a"})
	c.Put("2", Profile{FirstName: "b"})
	c.Put("1", Profile{FirstName: "a2"}) // 2 is now oldest
	c.Put("3", Profile{FirstName: "c"})

	_, ok := c.Get("2")
	assert.False(t, ok)
	_, ok = c.Get("1")
	assert.True(t, ok)
	_, ok = c.Get("3")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestCache_SweepRemovesExpired(t *testing.T) {
	c := New(10*time.Millisecond, 10)
	defer c.Close()

	c.Put("42", Profile{FirstName: "Ann"})

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestCache_CloseIdempotent(t *testing.T) {
	c := New(time.Minute, 10)
	c.Close()
	c.Close()
}

func TestCache_Concurrent(t *testing.T) {
	c := New(time.Minute, 50)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := fmt.Sprintf("%d-%d", n, j%10)
				c.Put(id, Profile{FirstName: id})
				c.Get(id)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
