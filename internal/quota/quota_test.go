package quota

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"voicecoach-go/internal/store"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "quota_test.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestResolutionOrder(t *testing.T) {
	ctx := context.Background()
	r := New(testDB(t), 20)

	// No configuration at all: built-in default.
	d, err := r.Check(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if d.Limit != 20 || !d.Allowed {
		t.Fatalf("expected default limit 20 allowed, got %+v", d)
	}

	// Global override applies to everyone.
	if err := r.SetLimit(ctx, "global", "", 5); err != nil {
		t.Fatalf("set global: %v", err)
	}
	if d, _ = r.Check(ctx, "u1", "t1"); d.Limit != 5 {
		t.Fatalf("expected global limit 5, got %d", d.Limit)
	}

	// Team override beats global.
	if err := r.SetLimit(ctx, "team", "t1", 10); err != nil {
		t.Fatalf("set team: %v", err)
	}
	if d, _ = r.Check(ctx, "u1", "t1"); d.Limit != 10 {
		t.Fatalf("expected team limit 10, got %d", d.Limit)
	}

	// User override beats team.
	if err := r.SetLimit(ctx, "user", "u1", 3); err != nil {
		t.Fatalf("set user: %v", err)
	}
	if d, _ = r.Check(ctx, "u1", "t1"); d.Limit != 3 {
		t.Fatalf("expected user limit 3, got %d", d.Limit)
	}

	// Changing a lower-priority scope never affects an overridden user.
	if err := r.SetLimit(ctx, "team", "t1", 50); err != nil {
		t.Fatalf("set team: %v", err)
	}
	if d, _ = r.Check(ctx, "u1", "t1"); d.Limit != 3 {
		t.Fatalf("team change leaked into user override: %+v", d)
	}

	// A user without a team skips the team probe.
	if d, _ = r.Check(ctx, "u2", ""); d.Limit != 5 {
		t.Fatalf("expected global limit for teamless user, got %d", d.Limit)
	}
}

func TestReserveCeiling(t *testing.T) {
	ctx := context.Background()
	r := New(testDB(t), 20)
	if err := r.SetLimit(ctx, "user", "u1", 2); err != nil {
		t.Fatalf("set limit: %v", err)
	}

	for i := 0; i < 2; i++ {
		ok, err := r.Reserve(ctx, "u1", "")
		if err != nil || !ok {
			t.Fatalf("reserve %d: ok=%v err=%v", i, ok, err)
		}
	}

	ok, err := r.Reserve(ctx, "u1", "")
	if err != nil {
		t.Fatalf("reserve over limit: %v", err)
	}
	if ok {
		t.Fatal("reserve succeeded past the ceiling")
	}

	d, err := r.Check(ctx, "u1", "")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if d.Allowed || d.Used != 2 {
		t.Fatalf("expected used=2 denied, got %+v", d)
	}
}

func TestCheckAtLimitDenies(t *testing.T) {
	ctx := context.Background()
	r := New(testDB(t), 20)
	if err := r.SetLimit(ctx, "user", "u1", 10); err != nil {
		t.Fatalf("set limit: %v", err)
	}
	for i := 0; i < 10; i++ {
		if ok, err := r.Reserve(ctx, "u1", ""); err != nil || !ok {
			t.Fatalf("reserve %d: ok=%v err=%v", i, ok, err)
		}
	}

	d, err := r.Check(ctx, "u1", "")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if d.Allowed {
		t.Fatalf("currentUsage=10 limit=10 must deny, got %+v", d)
	}
}

func TestReserveConcurrent(t *testing.T) {
	ctx := context.Background()
	r := New(testDB(t), 20)
	if err := r.SetLimit(ctx, "user", "u1", 5); err != nil {
		t.Fatalf("set limit: %v", err)
	}

	var wg sync.WaitGroup
	granted := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := r.Reserve(ctx, "u1", "")
			if err == nil && ok {
				granted <- true
			}
		}()
	}
	wg.Wait()
	close(granted)

	count := 0
	for range granted {
		count++
	}
	if count != 5 {
		t.Fatalf("expected exactly 5 grants under concurrency, got %d", count)
	}
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	r := New(testDB(t), 20)
	if err := r.SetLimit(ctx, "user", "u1", 1); err != nil {
		t.Fatalf("set limit: %v", err)
	}

	if ok, _ := r.Reserve(ctx, "u1", ""); !ok {
		t.Fatal("first reserve should succeed")
	}
	if ok, _ := r.Reserve(ctx, "u1", ""); ok {
		t.Fatal("second reserve should be denied")
	}
	if err := r.Release(ctx, "u1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := r.Reserve(ctx, "u1", ""); !ok {
		t.Fatal("reserve after release should succeed")
	}
}
