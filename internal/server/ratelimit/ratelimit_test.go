package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestLimiter(config *Config) (*Limiter, *time.Time) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(config)
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestLimiter_Allow(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/companies", "GET")
		if !allowed {
			t.Fatalf("Expected request %d to be allowed", i+1)
		}
		if info.Limit != 10 {
			t.Errorf("Expected limit 10, got %d", info.Limit)
		}
	}

	allowed, info := limiter.Allow("127.0.0.1", "/companies", "GET")
	if allowed {
		t.Error("Expected 11th request to be denied")
	}
	if info.RetryAfter <= 0 {
		t.Errorf("Expected positive retry-after, got %v", info.RetryAfter)
	}
	if info.Remaining != 0 {
		t.Errorf("Expected 0 remaining, got %d", info.Remaining)
	}
}

func TestLimiter_Refill(t *testing.T) {
	limiter, clock := newTestLimiter(&Config{Enabled: true, DefaultLimit: 60, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 60; i++ {
		limiter.Allow("c", "/companies", "GET")
	}
	if allowed, _ := limiter.Allow("c", "/companies", "GET"); allowed {
		t.Fatal("Expected bucket to be empty")
	}

	*clock = clock.Add(1100 * time.Millisecond)
	if allowed, _ := limiter.Allow("c", "/companies", "GET"); !allowed {
		t.Error("Expected request to be allowed after refill")
	}
	if allowed, _ := limiter.Allow("c", "/companies", "GET"); allowed {
		t.Error("Expected request to be denied after consuming refilled token")
	}
}

func TestLimiter_WhitelistAndBlacklist(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"10.0.0.1": true},
		Blacklist:     map[string]bool{"10.0.0.2": true},
	})
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		if allowed, _ := limiter.Allow("10.0.0.1", "/companies", "GET"); !allowed {
			t.Fatal("Expected whitelisted client to be allowed")
		}
	}
	if allowed, _ := limiter.Allow("10.0.0.2", "/companies", "GET"); allowed {
		t.Error("Expected blacklisted client to be denied")
	}
}

func TestLimiter_Disabled(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{Enabled: false})
	defer limiter.Stop()

	for i := 0; i < 100; i++ {
		if allowed, _ := limiter.Allow("c", "/press-releases/bulk", "POST"); !allowed {
			t.Fatal("Expected all requests to be allowed when disabled")
		}
	}
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:         true,
		DefaultLimit:    100,
		DefaultWindow:   time.Minute,
		EndpointConfigs: DefaultEndpointConfigs(),
	})
	defer limiter.Stop()

	for i := 0; i < 2; i++ {
		if allowed, _ := limiter.Allow("c", "/press-releases/bulk", "POST"); !allowed {
			t.Fatalf("Expected bulk upload %d within burst", i+1)
		}
	}
	if allowed, info := limiter.Allow("c", "/press-releases/bulk", "POST"); allowed || info.Limit != 10 {
		t.Errorf("Expected bulk upload to be limited at 10/h, got allowed=%v limit=%d", allowed, info.Limit)
	}

	if allowed, _ := limiter.Allow("c", "/press-releases", "GET"); !allowed {
		t.Error("Expected reads to use their own bucket")
	}
	if allowed, _ := limiter.Allow("c", "/health", "GET"); !allowed {
		t.Error("Expected health check to be unlimited")
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 50, DefaultWindow: time.Hour})
	defer limiter.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if allowed, _ := limiter.Allow("c", "/companies", "GET"); allowed {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowedCount != 50 {
		t.Errorf("Expected exactly 50 allowed requests, got %d", allowedCount)
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	limiter, clock := newTestLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute, IdleTTL: time.Hour})
	defer limiter.Stop()

	for i := 0; i < 3; i++ {
		limiter.Allow(fmt.Sprintf("client-%d", i), "/companies", "GET")
	}
	if limiter.Len() != 3 {
		t.Fatalf("Expected 3 buckets, got %d", limiter.Len())
	}

	*clock = clock.Add(2 * time.Hour)
	limiter.Allow("fresh", "/companies", "GET")
	limiter.cleanupBuckets()

	if limiter.Len() != 1 {
		t.Errorf("Expected only the fresh bucket to remain, got %d", limiter.Len())
	}
}

func TestNewLimiter_NilConfig(t *testing.T) {
	limiter := NewLimiter(nil)
	defer limiter.Stop()
	limiter.Stop()

	if allowed, _ := limiter.Allow("c", "/companies", "GET"); !allowed {
		t.Error("Expected default configuration to allow requests")
	}
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	tests := []struct {
		path, method string
		wantPath     string
	}{
		{"/press-releases/bulk", "POST", "/press-releases/bulk"},
		{"/press-releases", "POST", "/press-releases"},
		{"/press-releases/0b7c/run", "POST", "/press-releases/"},
		{"/companies", "POST", "/companies"},
		{"/companies", "GET", ""},
		{"/health", "GET", "/health"},
	}
	for _, tt := range tests {
		got := MatchEndpoint(tt.path, tt.method, configs)
		if tt.wantPath == "" {
			if got != nil {
				t.Errorf("%s %s: expected no match, got %s", tt.method, tt.path, got.Path)
			}
			continue
		}
		if got == nil || got.Path != tt.wantPath {
			t.Errorf("%s %s: expected %s, got %+v", tt.method, tt.path, tt.wantPath, got)
		}
	}
}
