package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int]("test", 2, time.Minute)
	put(c, "a", 1)
	put(c, "b", 2)
	c.Get("a")
	put(c, "c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRU_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRU[string]("test", 10, time.Second)
	c.now = func() time.Time { return now }
	put(c, "k", "v")

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry should have expired")
	}
	put(c, "x", "y")
	now = now.Add(2 * time.Second)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("cleaned %d, want 1", n)
	}
}

func TestLRU_GetOrLoadCollapsesConcurrentLoads(t *testing.T) {
	c := NewLRU[int]("test", 10, time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) {
				calls.Add(1)
				<-release
				return 42, nil
			})
			if err != nil || v != 42 {
				t.Errorf("got %d, %v", v, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("loader ran %d times", n)
	}
	if v, ok := c.Get("k"); !ok || v != 42 {
		t.Fatal("loaded value was not cached")
	}
}

func TestLRU_GetOrLoadErrorIsNotCached(t *testing.T) {
	c := NewLRU[int]("test", 10, time.Minute)
	boom := errors.New("boom")
	if _, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("failed load was cached")
	}
}

func TestLRU_InvalidationDuringLoadSkipsStore(t *testing.T) {
	c := NewLRU[int]("test", 10, time.Minute)
	v, err := c.GetOrLoad(context.Background(), "household:1:balances", func(context.Context) (int, error) {
		c.DeletePrefix("household:1:")
		return 7, nil
	})
	if err != nil || v != 7 {
		t.Fatalf("got %d, %v", v, err)
	}
	if _, ok := c.Get("household:1:balances"); ok {
		t.Fatal("value loaded across an invalidation must not be cached")
	}
}

func TestLRU_DeletePrefix(t *testing.T) {
	c := NewLRU[int]("test", 10, time.Minute)
	put(c, "h:1:a", 1)
	put(c, "h:1:b", 2)
	put(c, "h:2:a", 3)
	if n := c.DeletePrefix("h:1:"); n != 2 {
		t.Fatalf("deleted %d", n)
	}
	if _, ok := c.Get("h:2:a"); !ok {
		t.Fatal("other household was dropped")
	}
}

func put[T any](c *LRU[T], key string, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, v)
}
