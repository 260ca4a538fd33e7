package cache_test

import (
	"testing"
	"time"

	"github.com/boddenberg/carteira-recebiveis-go/internal/domain"
	"github.com/boddenberg/carteira-recebiveis-go/internal/infra/cache"
	"github.com/boddenberg/carteira-recebiveis-go/internal/port"
)

var _ port.Cache[domain.Snapshot] = (*cache.InMemory[domain.Snapshot])(nil)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("v1:ana", "snapshot")
	val, ok := c.Get("v1:ana")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "snapshot" {
		t.Errorf("expected 'snapshot', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	if _, ok := c.Get("v2:ana"); ok {
		t.Fatal("expected cache miss for a key never stored")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("v1:ana", "snapshot")
	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("v1:ana"); ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_SweeperPurgesExpired(t *testing.T) {
	c := cache.New[int](20 * time.Millisecond)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}

	deadline := time.Now().Add(time.Second)
	for c.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if c.Len() != 0 {
		t.Errorf("expected sweeper to purge expired entries, %d left", c.Len())
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("v1:ana", "snapshot")
	c.Delete("v1:ana")

	if _, ok := c.Get("v1:ana"); ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_NonPositiveTTLAndDoubleClose(t *testing.T) {
	c := cache.New[string](0)
	c.Set("k", "v")
	if _, ok := c.Get("k"); !ok {
		t.Fatal("zero TTL should fall back to the default, not expire immediately")
	}
	c.Close()
	c.Close()
}
