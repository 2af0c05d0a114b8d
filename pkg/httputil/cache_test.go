package httputil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCache_GetSet(t *testing.T) {
	c, _ := NewCache(t.TempDir(), time.Hour)

	tests := []struct {
		name string
		key  string
		data string
	}{
		{"geojson", "https://example.com/a.geojson", `{"type":"FeatureCollection","features":[]}`},
		{"empty", "https://example.com/empty", ""},
		{"binary", "k", "\x00\x01\x02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Set(tt.key, []byte(tt.data)); err != nil {
				t.Fatalf("Set() failed: %v", err)
			}
			got, ok, err := c.Get(tt.key)
			if err != nil {
				t.Fatalf("Get() failed: %v", err)
			}
			if !ok {
				t.Fatal("Get() returned false for existing key")
			}
			if string(got) != tt.data {
				t.Errorf("Get() = %q, want %q", got, tt.data)
			}
		})
	}
}

func TestCache_Miss(t *testing.T) {
	c, _ := NewCache(t.TempDir(), time.Hour)
	data, ok, err := c.Get("missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || data != nil {
		t.Error("Get() returned data for missing key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c, _ := NewCache(t.TempDir(), 10*time.Millisecond)

	if err := c.Set("key", []byte("value")); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if _, ok, err := c.Get("key"); err != nil || !ok {
		t.Fatalf("Get() = %v, %v; want true, nil", ok, err)
	}

	time.Sleep(20 * time.Millisecond)

	data, ok, err := c.Get("key")
	if !errors.Is(err, ErrExpired) {
		t.Errorf("got error %v, want ErrExpired", err)
	}
	if ok {
		t.Error("Get() returned true for expired key")
	}
	if string(data) != "value" {
		t.Errorf("stale data = %q, want %q", data, "value")
	}
}

func TestCache_NoExpiry(t *testing.T) {
	c, _ := NewCache(t.TempDir(), 0)
	_ = c.Set("key", []byte("v"))
	old := time.Now().Add(-365 * 24 * time.Hour)
	if err := os.Chtimes(c.keyPath("key"), old, old); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get("key"); !ok || err != nil {
		t.Errorf("Get() = %v, %v; want true, nil", ok, err)
	}
}

func TestCache_KeyStability(t *testing.T) {
	c, _ := NewCache(t.TempDir(), time.Hour)
	p1 := c.keyPath("test")
	p2 := c.keyPath("test")
	if p1 != p2 {
		t.Error("path should be deterministic")
	}
	if p1 == c.keyPath("other") {
		t.Error("different keys should produce different paths")
	}
}

func TestNewCache_DefaultDir(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)

	c, err := NewCache("", time.Hour)
	if err != nil {
		t.Fatalf("NewCache() failed: %v", err)
	}

	want := filepath.Join(xdg, "labelpal", "sources")
	if c.Dir() != want {
		t.Errorf("got Dir = %s, want %s", c.Dir(), want)
	}
	if c.TTL() != time.Hour {
		t.Errorf("got TTL = %v, want 1h", c.TTL())
	}
	if _, err := os.Stat(c.Dir()); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}

func TestCache_Namespace(t *testing.T) {
	c, _ := NewCache(t.TempDir(), time.Hour)

	roads := c.Namespace("roads:")
	cities := c.Namespace("cities:")
	_ = roads.Set("v1", []byte("roads"))
	_ = cities.Set("v1", []byte("cities"))

	got, ok, _ := roads.Get("v1")
	if !ok || string(got) != "roads" {
		t.Errorf("roads.Get() = %q, %v", got, ok)
	}
	got, ok, _ = cities.Get("v1")
	if !ok || string(got) != "cities" {
		t.Errorf("cities.Get() = %q, %v", got, ok)
	}

	if _, ok, _ := c.Get("v1"); ok {
		t.Error("value accessible without namespace")
	}

	chained := c.Namespace("a:").Namespace("b:")
	_ = chained.Set("k", []byte("x"))
	if _, ok, _ := c.Get("a:b:k"); !ok {
		t.Error("chained namespaces should concatenate prefixes")
	}

	if roads.Dir() != c.Dir() || roads.TTL() != c.TTL() {
		t.Error("namespace should share Dir and TTL")
	}
}

func TestCache_Clear(t *testing.T) {
	c, _ := NewCache(t.TempDir(), time.Hour)
	_ = c.Set("a", []byte("1"))
	_ = c.Namespace("x:").Set("b", []byte("2"))

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	entries, err := os.ReadDir(c.Dir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("%d entries left after Clear", len(entries))
	}
}
