package internal

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingFetcher struct {
	calls int
	users []AdminUser
	err   error
}

func (f *countingFetcher) fetch(ctx context.Context) ([]AdminUser, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.users, nil
}

func TestAdminCache_TTL(t *testing.T) {
	clock := newFakeClock()
	f := &countingFetcher{users: []AdminUser{{Username: "root", IsSuperAdmin: true}}}
	c := NewAdminCache(f.fetch, 30*time.Second, clock)
	ctx := context.Background()

	tests := []struct {
		name      string
		advance   time.Duration
		force     bool
		wantCalls int
	}{
		{name: "first call fetches", wantCalls: 1},
		{name: "fresh entry is reused", advance: 29 * time.Second, wantCalls: 1},
		{name: "expired entry refetches", advance: time.Second, wantCalls: 2},
		{name: "force bypasses a fresh entry", advance: time.Second, force: true, wantCalls: 3},
		{name: "forced fetch restarts ttl", advance: 29 * time.Second, wantCalls: 3},
	}

	for _, tt := range tests {
		clock.Advance(tt.advance)
		users, err := c.Users(ctx, tt.force)
		if err != nil {
			t.Fatalf("%s: Users() error = %v", tt.name, err)
		}
		if len(users) != 1 || users[0].Username != "root" {
			t.Errorf("%s: Users() = %v", tt.name, users)
		}
		if f.calls != tt.wantCalls {
			t.Errorf("%s: fetch calls = %d, want %d", tt.name, f.calls, tt.wantCalls)
		}
	}
}

func TestAdminCache_Invalidate(t *testing.T) {
	f := &countingFetcher{users: []AdminUser{{Username: "a"}}}
	c := NewAdminCache(f.fetch, time.Hour, newFakeClock())
	ctx := context.Background()

	if _, err := c.Users(ctx, false); err != nil {
		t.Fatal(err)
	}
	c.Invalidate()
	if _, err := c.Users(ctx, false); err != nil {
		t.Fatal(err)
	}
	if f.calls != 2 {
		t.Errorf("fetch calls = %d, want 2", f.calls)
	}
}

func TestAdminCache_ErrorKeepsPreviousState(t *testing.T) {
	clock := newFakeClock()
	f := &countingFetcher{users: []AdminUser{{Username: "a"}}}
	c := NewAdminCache(f.fetch, 10*time.Second, clock)
	ctx := context.Background()

	if _, err := c.Users(ctx, false); err != nil {
		t.Fatal(err)
	}

	f.err = errors.New("backend down")
	if _, err := c.Users(ctx, true); err == nil {
		t.Fatal("Users(force) error = nil, want error")
	}

	users, err := c.Users(ctx, false)
	if err != nil {
		t.Fatalf("Users() after failed refresh error = %v", err)
	}
	if len(users) != 1 || users[0].Username != "a" {
		t.Errorf("Users() = %v, want previous list", users)
	}
	if f.calls != 2 {
		t.Errorf("fetch calls = %d, want 2", f.calls)
	}
}

func TestAdminCache_NilListBecomesEmpty(t *testing.T) {
	f := &countingFetcher{}
	c := NewAdminCache(f.fetch, 0, nil)

	users, err := c.Users(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if users == nil {
		t.Error("Users() = nil, want empty slice")
	}
}
