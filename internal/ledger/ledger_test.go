package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kaushiksai711/Karma-AI/internal/domain"
)

func TestSQLiteLedger(t *testing.T) {
	// Create temp database file
	tmpFile, err := os.CreateTemp("", "karma-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	cfg := domain.LedgerConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	}

	led, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}
	defer led.Close()

	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := led.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("TryCreateAndFind", func(t *testing.T) {
		award := &domain.Award{
			Date:      "2025-01-15",
			UserID:    "alice",
			BoxType:   "streak_engager",
			BoxName:   "Streak Engager Box",
			Rarity:    "rare",
			Karma:     25,
			CreatedAt: time.Now().UTC(),
		}

		created, err := led.TryCreate(ctx, award)
		if err != nil {
			t.Fatalf("TryCreate failed: %v", err)
		}
		if !created {
			t.Fatal("expected first TryCreate to win")
		}

		found, err := led.Find(ctx, "2025-01-15", "alice")
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if found.BoxType != "streak_engager" {
			t.Errorf("expected box type streak_engager, got %s", found.BoxType)
		}
		if found.Rarity != "rare" || found.Karma != 25 {
			t.Errorf("unexpected award fields: %+v", found)
		}
	})

	t.Run("SecondCreateLoses", func(t *testing.T) {
		dup := &domain.Award{
			Date:    "2025-01-15",
			UserID:  "alice",
			BoxType: "quiz_enthusiast",
			Rarity:  "common",
			Karma:   12,
		}

		created, err := led.TryCreate(ctx, dup)
		if err != nil {
			t.Fatalf("TryCreate failed: %v", err)
		}
		if created {
			t.Fatal("second TryCreate for the same day and user must not win")
		}

		// The original award must be untouched.
		found, err := led.Find(ctx, "2025-01-15", "alice")
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if found.BoxType != "streak_engager" {
			t.Errorf("losing write must not overwrite, got box type %s", found.BoxType)
		}
	})

	t.Run("SameUserDifferentDay", func(t *testing.T) {
		award := &domain.Award{
			Date:    "2025-01-16",
			UserID:  "alice",
			BoxType: "mystery",
			Rarity:  "common",
			Karma:   15,
		}

		created, err := led.TryCreate(ctx, award)
		if err != nil {
			t.Fatalf("TryCreate failed: %v", err)
		}
		if !created {
			t.Error("a new day is a new award")
		}
	})

	t.Run("ConcurrentTryCreateExactlyOnce", func(t *testing.T) {
		const writers = 16

		var wins int64
		var wg sync.WaitGroup

		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()

				award := &domain.Award{
					Date:    "2025-02-01",
					UserID:  "bob",
					BoxType: fmt.Sprintf("box-%d", n),
					Rarity:  "common",
					Karma:   10,
				}
				created, err := led.TryCreate(ctx, award)
				if err != nil {
					t.Errorf("TryCreate failed: %v", err)
					return
				}
				if created {
					atomic.AddInt64(&wins, 1)
				}
			}(i)
		}
		wg.Wait()

		if wins != 1 {
			t.Errorf("expected exactly 1 winning writer, got %d", wins)
		}
	})

	t.Run("ListByDate", func(t *testing.T) {
		for _, a := range []*domain.Award{
			{Date: "2025-03-01", UserID: "carol", BoxType: "mystery", Rarity: "common", Karma: 15},
			{Date: "2025-03-01", UserID: "dave", BoxType: "quiz_enthusiast", Rarity: "rare", Karma: 25},
			{Date: "2025-03-01", UserID: "bea", BoxType: "mystery", Rarity: "common", Karma: 15},
			{Date: "2025-03-02", UserID: "carol", BoxType: "mystery", Rarity: "elite", Karma: 30},
		} {
			if _, err := led.TryCreate(ctx, a); err != nil {
				t.Fatalf("TryCreate failed: %v", err)
			}
		}

		all, err := led.ListByDate(ctx, "2025-03-01", "")
		if err != nil {
			t.Fatalf("ListByDate failed: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 awards, got %d", len(all))
		}
		if all[0].UserID != "bea" || all[1].UserID != "carol" || all[2].UserID != "dave" {
			t.Errorf("expected user ID ordering, got %s, %s, %s",
				all[0].UserID, all[1].UserID, all[2].UserID)
		}

		mystery, err := led.ListByDate(ctx, "2025-03-01", "mystery")
		if err != nil {
			t.Fatalf("ListByDate filtered failed: %v", err)
		}
		if len(mystery) != 2 {
			t.Errorf("expected 2 mystery awards, got %d", len(mystery))
		}
	})

	t.Run("DeleteOlderThan", func(t *testing.T) {
		for _, a := range []*domain.Award{
			{Date: "2024-11-01", UserID: "old-1", BoxType: "mystery", Rarity: "common", Karma: 10},
			{Date: "2024-11-02", UserID: "old-2", BoxType: "mystery", Rarity: "common", Karma: 10},
			{Date: "2024-12-24", UserID: "recent", BoxType: "mystery", Rarity: "common", Karma: 10},
		} {
			if _, err := led.TryCreate(ctx, a); err != nil {
				t.Fatalf("TryCreate failed: %v", err)
			}
		}

		deleted, err := led.DeleteOlderThan(ctx, "2024-12-01")
		if err != nil {
			t.Fatalf("DeleteOlderThan failed: %v", err)
		}
		if deleted != 2 {
			t.Errorf("expected 2 deleted, got %d", deleted)
		}

		if _, err := led.Find(ctx, "2024-11-01", "old-1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected old award gone, got %v", err)
		}
		if _, err := led.Find(ctx, "2024-12-24", "recent"); err != nil {
			t.Errorf("recent award should survive: %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := led.Find(ctx, "2025-01-15", "nonexistent")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("RequiresKey", func(t *testing.T) {
		if _, err := led.Find(ctx, "", "alice"); err == nil {
			t.Error("expected error for empty date")
		}
		if _, err := led.Find(ctx, "2025-01-15", ""); err == nil {
			t.Error("expected error for empty user")
		}
		if _, err := led.TryCreate(ctx, &domain.Award{UserID: "alice"}); err == nil {
			t.Error("expected error for award without date")
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.LedgerConfig{
		Driver: "mysql",
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	led := &SQLLedger{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := led.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestAwardKey(t *testing.T) {
	if got := awardKey("2025-01-15", "alice"); got != "karma:award:2025-01-15:alice" {
		t.Errorf("unexpected key %q", got)
	}
}
