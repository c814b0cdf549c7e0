package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kaushiksai711/Karma-AI/internal/bus"
	"github.com/kaushiksai711/Karma-AI/internal/cache"
	"github.com/kaushiksai711/Karma-AI/internal/domain"
	"github.com/kaushiksai711/Karma-AI/internal/ledger"
	"github.com/kaushiksai711/Karma-AI/internal/oracle"
)

// memLedger is an in-memory Ledger for engine tests. TryCreate is
// atomic under the mutex, mirroring the SQL and Redis drivers.
type memLedger struct {
	mu         sync.Mutex
	rows       map[string]*domain.Award
	failFind   bool
	failCreate bool
}

func newMemLedger() *memLedger {
	return &memLedger{rows: make(map[string]*domain.Award)}
}

func (m *memLedger) key(date, userID string) string {
	return date + "/" + userID
}

func (m *memLedger) Find(ctx context.Context, date, userID string) (*domain.Award, error) {
	if m.failFind {
		return nil, fmt.Errorf("ledger unavailable")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.rows[m.key(date, userID)]; ok {
		found := *a
		return &found, nil
	}
	return nil, ledger.ErrNotFound
}

func (m *memLedger) TryCreate(ctx context.Context, award *domain.Award) (bool, error) {
	if m.failCreate {
		return false, fmt.Errorf("ledger unavailable")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.key(award.Date, award.UserID)
	if _, ok := m.rows[k]; ok {
		return false, nil
	}
	row := *award
	m.rows[k] = &row
	return true, nil
}

func (m *memLedger) ListByDate(ctx context.Context, date, boxType string) ([]*domain.Award, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Award
	for _, a := range m.rows {
		if a.Date == date && (boxType == "" || a.BoxType == boxType) {
			row := *a
			out = append(out, &row)
		}
	}
	return out, nil
}

func (m *memLedger) DeleteOlderThan(ctx context.Context, cutoff string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for k, a := range m.rows {
		if a.Date < cutoff {
			delete(m.rows, k)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memLedger) Ping(ctx context.Context) error { return nil }
func (m *memLedger) Close() error                   { return nil }

func (m *memLedger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func testConfig(p float64) *domain.Config {
	cfg := domain.DefaultConfig()
	cfg.Oracle = domain.OracleConfig{Type: "static", Probability: p}
	return cfg
}

func newTestEngine(t *testing.T, cfg *domain.Config, led domain.Ledger) *Engine {
	t.Helper()

	eng, err := New(cfg, led, cache.NewLRUCache(100), bus.NewChannelBus(100))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return eng
}

func TestEvaluateDelivered(t *testing.T) {
	led := newMemLedger()
	eng := newTestEngine(t, testConfig(0.9), led)

	decision := eng.Evaluate(context.Background(), &domain.RewardRequest{
		UserID:  "alice",
		Date:    "2025-01-15",
		Metrics: domain.MetricSet{"quizzes_completed": 1},
	})

	if decision.Status != domain.StatusDelivered {
		t.Fatalf("expected delivered, got %s (%s)", decision.Status, decision.Reason)
	}
	if !decision.Unlocked {
		t.Error("delivered decision must be unlocked")
	}
	if decision.BoxType != "quiz_completion" {
		t.Errorf("expected quiz_completion, got %s", decision.BoxType)
	}
	if decision.BoxName != "Quiz Completion Box" {
		t.Errorf("expected Quiz Completion Box, got %s", decision.BoxName)
	}
	if decision.Reason != "Quiz completion + learning effort" {
		t.Errorf("expected the rule description as reason, got %q", decision.Reason)
	}
	if decision.RewardKarma < 10 || decision.RewardKarma > 50 {
		t.Errorf("karma %d outside configured bounds", decision.RewardKarma)
	}

	switch decision.Rarity {
	case domain.RarityCommon, domain.RarityRare, domain.RarityElite, domain.RarityLegendary:
	default:
		t.Errorf("unexpected rarity %q", decision.Rarity)
	}

	if led.count() != 1 {
		t.Errorf("expected 1 ledger row, got %d", led.count())
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	// Rich metrics put six rules in a specificity tie, so the seeded
	// draw decides. Fresh engines and ledgers per run: the outcome
	// must depend only on (user, date, metrics).
	req := &domain.RewardRequest{
		UserID: "tie_user",
		Date:   "2024-03-10",
		Metrics: domain.MetricSet{
			"login_streak": 8, "posts_created": 8, "comments_written": 8,
			"upvotes_received": 8, "quizzes_completed": 8, "buddies_messaged": 8,
			"karma_spent": 8, "karma_earned_today": 8,
		},
	}

	var first *domain.Decision
	for i := 0; i < 3; i++ {
		eng := newTestEngine(t, testConfig(0.9), newMemLedger())
		d := eng.Evaluate(context.Background(), req)

		if d.Status != domain.StatusDelivered {
			t.Fatalf("run %d: expected delivered, got %s", i, d.Status)
		}
		if first == nil {
			first = d
			continue
		}
		if d.BoxType != first.BoxType || d.Rarity != first.Rarity || d.RewardKarma != first.RewardKarma {
			t.Errorf("run %d diverged: %s/%s/%d vs %s/%s/%d",
				i, d.BoxType, d.Rarity, d.RewardKarma,
				first.BoxType, first.Rarity, first.RewardKarma)
		}
	}
}

func TestEvaluateMissedBelowThreshold(t *testing.T) {
	led := newMemLedger()
	eng := newTestEngine(t, testConfig(0.3), led)

	decision := eng.Evaluate(context.Background(), &domain.RewardRequest{
		UserID:  "bob",
		Date:    "2025-01-15",
		Metrics: domain.MetricSet{"quizzes_completed": 1},
	})

	if decision.Status != domain.StatusMissed {
		t.Fatalf("expected missed, got %s", decision.Status)
	}
	if decision.Unlocked {
		t.Error("missed decision must not be unlocked")
	}
	if decision.Reason != "Activity level below reward threshold" {
		t.Errorf("unexpected reason %q", decision.Reason)
	}
	if decision.BoxType != "" || decision.RewardKarma != 0 {
		t.Error("missed decision must not carry reward fields")
	}

	// A missed check leaves no trace in the ledger.
	if led.count() != 0 {
		t.Errorf("expected empty ledger, got %d rows", led.count())
	}
}

func TestEvaluateThresholdBoundary(t *testing.T) {
	// Probability exactly at the threshold qualifies.
	cfg := testConfig(0.5)
	cfg.Engine.Threshold = 0.5
	eng := newTestEngine(t, cfg, newMemLedger())

	decision := eng.Evaluate(context.Background(), &domain.RewardRequest{
		UserID:  "edge",
		Date:    "2025-01-15",
		Metrics: domain.MetricSet{"quizzes_completed": 1},
	})

	if decision.Status != domain.StatusDelivered {
		t.Errorf("p == threshold must deliver, got %s", decision.Status)
	}
}

func TestEvaluateFallsBackToMystery(t *testing.T) {
	eng := newTestEngine(t, testConfig(0.9), newMemLedger())

	decision := eng.Evaluate(context.Background(), &domain.RewardRequest{
		UserID:  "quiet",
		Date:    "2025-01-15",
		Metrics: domain.MetricSet{},
	})

	if decision.Status != domain.StatusDelivered {
		t.Fatalf("expected delivered, got %s", decision.Status)
	}
	if decision.BoxType != domain.CategoryMystery {
		t.Errorf("expected mystery fallback, got %s", decision.BoxType)
	}
	if decision.BoxName != "Mystery Box" {
		t.Errorf("expected Mystery Box, got %s", decision.BoxName)
	}
	if decision.Reason != "For your activity and engagement!" {
		t.Errorf("expected default reason, got %q", decision.Reason)
	}
}

func TestEvaluateAlreadyReceived(t *testing.T) {
	eng := newTestEngine(t, testConfig(0.9), newMemLedger())
	ctx := context.Background()

	req := &domain.RewardRequest{
		UserID:  "alice",
		Date:    "2025-01-15",
		Metrics: domain.MetricSet{"quizzes_completed": 1},
	}

	first := eng.Evaluate(ctx, req)
	if first.Status != domain.StatusDelivered {
		t.Fatalf("expected delivered, got %s", first.Status)
	}

	second := eng.Evaluate(ctx, req)
	if second.Status != domain.StatusAlreadyReceived {
		t.Fatalf("expected already_received, got %s", second.Status)
	}
	if second.Unlocked {
		t.Error("duplicate must not unlock")
	}

	want := "User already received a quiz_completion reward today"
	if second.Reason != want {
		t.Errorf("expected %q, got %q", want, second.Reason)
	}

	// Third check exercises the cached path and must agree.
	third := eng.Evaluate(ctx, req)
	if third.Status != domain.StatusAlreadyReceived || third.Reason != want {
		t.Errorf("cached duplicate diverged: %s %q", third.Status, third.Reason)
	}
}

func TestEvaluateConcurrentExactlyOnce(t *testing.T) {
	led := newMemLedger()
	eng := newTestEngine(t, testConfig(0.9), led)

	req := &domain.RewardRequest{
		UserID:  "racer",
		Date:    "2025-02-01",
		Metrics: domain.MetricSet{"quizzes_completed": 1},
	}

	const checkers = 16
	var delivered int64
	var wg sync.WaitGroup

	for i := 0; i < checkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			d := eng.Evaluate(context.Background(), req)
			switch d.Status {
			case domain.StatusDelivered:
				atomic.AddInt64(&delivered, 1)
			case domain.StatusAlreadyReceived:
			default:
				t.Errorf("unexpected status %s (%s)", d.Status, d.Reason)
			}
		}()
	}
	wg.Wait()

	if delivered != 1 {
		t.Errorf("expected exactly 1 delivery, got %d", delivered)
	}
	if led.count() != 1 {
		t.Errorf("expected 1 ledger row, got %d", led.count())
	}
}

func TestEvaluateLedgerWriteFailure(t *testing.T) {
	led := newMemLedger()
	led.failCreate = true
	led.failFind = true
	eng := newTestEngine(t, testConfig(0.9), led)

	decision := eng.Evaluate(context.Background(), &domain.RewardRequest{
		UserID:  "unlucky",
		Date:    "2025-01-15",
		Metrics: domain.MetricSet{"quizzes_completed": 1},
	})

	if decision.Status != domain.StatusError {
		t.Fatalf("expected error status, got %s", decision.Status)
	}
	if decision.Reason != "Error processing request" {
		t.Errorf("error reason must not leak internals, got %q", decision.Reason)
	}
}

func TestEvaluateSurvivesPreCheckFailure(t *testing.T) {
	// A failing pre-check read must not abort: TryCreate decides.
	led := newMemLedger()
	led.failFind = true
	eng := newTestEngine(t, testConfig(0.9), led)

	decision := eng.Evaluate(context.Background(), &domain.RewardRequest{
		UserID:  "alice",
		Date:    "2025-01-15",
		Metrics: domain.MetricSet{"quizzes_completed": 1},
	})

	if decision.Status != domain.StatusDelivered {
		t.Errorf("expected delivered despite pre-check failure, got %s", decision.Status)
	}
}

func TestEvaluateInvalidDate(t *testing.T) {
	eng := newTestEngine(t, testConfig(0.9), newMemLedger())

	decision := eng.Evaluate(context.Background(), &domain.RewardRequest{
		UserID:  "alice",
		Date:    "2025-13-45",
		Metrics: domain.MetricSet{},
	})

	if decision.Status != domain.StatusError {
		t.Errorf("expected error status for bad date, got %s", decision.Status)
	}
}

func TestEvaluatePublishesEvents(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	eng, err := New(testConfig(0.9), newMemLedger(), cache.NewLRUCache(100), eventBus)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	var delivered, duplicate atomic.Int32

	eventBus.Subscribe(ctx, domain.TopicRewardDelivered, func(ctx context.Context, msg *domain.Message) error {
		delivered.Add(1)
		return nil
	})
	eventBus.Subscribe(ctx, domain.TopicRewardDuplicate, func(ctx context.Context, msg *domain.Message) error {
		duplicate.Add(1)
		return nil
	})
	time.Sleep(10 * time.Millisecond)

	req := &domain.RewardRequest{
		UserID:  "alice",
		Date:    "2025-01-15",
		Metrics: domain.MetricSet{"quizzes_completed": 1},
	}

	eng.Evaluate(ctx, req)
	eng.Evaluate(ctx, req)
	time.Sleep(50 * time.Millisecond)

	if delivered.Load() != 1 {
		t.Errorf("expected 1 delivered event, got %d", delivered.Load())
	}
	if duplicate.Load() != 1 {
		t.Errorf("expected 1 duplicate event, got %d", duplicate.Load())
	}
}

func TestReloadSwapsCatalog(t *testing.T) {
	eng := newTestEngine(t, testConfig(0.9), newMemLedger())

	if eng.RulesCount() != 13 {
		t.Fatalf("expected 13 builtin rules, got %d", eng.RulesCount())
	}

	cfg := testConfig(0.9)
	cfg.Rules = map[string]domain.RuleConfig{
		"night_owl": {
			Conditions:  []string{"comments_written >= 5"},
			Description: "Late night commentary",
		},
	}

	if err := eng.Reload(cfg); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if eng.RulesCount() != 1 {
		t.Errorf("expected 1 rule after reload, got %d", eng.RulesCount())
	}

	decision := eng.Evaluate(context.Background(), &domain.RewardRequest{
		UserID:  "owl",
		Date:    "2025-01-16",
		Metrics: domain.MetricSet{"comments_written": 6},
	})
	if decision.BoxType != "night_owl" {
		t.Errorf("expected night_owl from reloaded catalog, got %s", decision.BoxType)
	}
	if decision.Reason != "Late night commentary" {
		t.Errorf("unexpected reason %q", decision.Reason)
	}
}

func TestReloadRejectsBadOracle(t *testing.T) {
	eng := newTestEngine(t, testConfig(0.9), newMemLedger())

	bad := testConfig(0.9)
	bad.Oracle = domain.OracleConfig{Type: "logistic", ModelPath: "/nonexistent/model.json"}

	if err := eng.Reload(bad); err == nil {
		t.Fatal("expected reload to fail")
	}

	// The old snapshot must survive a failed reload.
	if eng.RulesCount() != 13 {
		t.Errorf("expected old catalog intact, got %d rules", eng.RulesCount())
	}
}

func TestNewRejectsOracleMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	model := `{"version": "1.0", "bias": 0.0, "weights": [0.5, 0.5]}`
	if err := os.WriteFile(path, []byte(model), 0o644); err != nil {
		t.Fatalf("failed to write model: %v", err)
	}

	cfg := testConfig(0.9)
	cfg.Oracle = domain.OracleConfig{Type: "logistic", ModelPath: path}

	_, err := New(cfg, newMemLedger(), cache.NewLRUCache(10), bus.NewChannelBus(10))
	if !errors.Is(err, oracle.ErrFeatureMismatch) {
		t.Errorf("expected ErrFeatureMismatch, got %v", err)
	}
}
