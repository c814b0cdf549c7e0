// Package engine orchestrates the reward decision pipeline: rule
// resolution, oracle scoring, valuation, and the exactly-once ledger
// commit.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/kaushiksai711/Karma-AI/internal/domain"
	"github.com/kaushiksai711/Karma-AI/internal/feature"
	"github.com/kaushiksai711/Karma-AI/internal/ledger"
	"github.com/kaushiksai711/Karma-AI/internal/metrics"
	"github.com/kaushiksai711/Karma-AI/internal/oracle"
	"github.com/kaushiksai711/Karma-AI/internal/reward"
	"github.com/kaushiksai711/Karma-AI/internal/rules"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("karma-engine")

const (
	reasonDeliveredDefault = "For your activity and engagement!"
	reasonBelowThreshold   = "Activity level below reward threshold"
)

// snapshot bundles everything derived from one configuration load.
// Evaluate reads a single snapshot for its whole run, so a reload
// mid-request can never mix an old catalog with a new oracle.
type snapshot struct {
	catalog   *rules.Catalog
	oracle    domain.Oracle
	valuator  *reward.Valuator
	threshold float64
	temporal  domain.TemporalConfig
	awardTTL  time.Duration
}

// Engine evaluates surprise-box checks against the active snapshot.
type Engine struct {
	mu      sync.RWMutex
	current *snapshot

	ledger domain.Ledger
	cache  domain.Cache
	bus    domain.EventBus
}

// New builds an engine from configuration. An oracle whose feature
// width disagrees with the rule catalog fails here, before the server
// takes traffic.
func New(cfg *domain.Config, led domain.Ledger, cache domain.Cache, bus domain.EventBus) (*Engine, error) {
	snap, err := buildSnapshot(cfg)
	if err != nil {
		return nil, err
	}

	metrics.RulesLoaded.Set(float64(snap.catalog.Len()))

	return &Engine{
		current: snap,
		ledger:  led,
		cache:   cache,
		bus:     bus,
	}, nil
}

func buildSnapshot(cfg *domain.Config) (*snapshot, error) {
	ruleConfigs := cfg.Rules
	if len(ruleConfigs) == 0 {
		ruleConfigs = rules.DefaultRuleConfigs()
	}
	catalog := rules.NewCatalog(ruleConfigs, domain.MetricKeys)

	boxTypes := cfg.BoxTypes
	if len(boxTypes) == 0 {
		boxTypes = rules.DefaultBoxTypes()
	}

	orc, err := oracle.New(cfg.Oracle, feature.Width(catalog.Len()))
	if err != nil {
		return nil, fmt.Errorf("load oracle: %w", err)
	}

	return &snapshot{
		catalog:   catalog,
		oracle:    orc,
		valuator:  reward.NewValuator(boxTypes, cfg.Engine.KarmaMin, cfg.Engine.KarmaMax),
		threshold: cfg.Engine.Threshold,
		temporal:  cfg.Temporal,
		awardTTL:  time.Duration(cfg.Cache.AwardTTL) * time.Second,
	}, nil
}

// Reload rebuilds the catalog, oracle, and valuator from cfg and swaps
// them in atomically. In-flight evaluations finish on the old snapshot.
func (e *Engine) Reload(cfg *domain.Config) error {
	snap, err := buildSnapshot(cfg)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.current = snap
	e.mu.Unlock()

	metrics.RulesLoaded.Set(float64(snap.catalog.Len()))
	slog.Info("engine reloaded",
		"rules", snap.catalog.Len(),
		"oracle", snap.oracle.Info().Type,
		"threshold", snap.threshold,
	)
	return nil
}

func (e *Engine) snapshot() *snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// Rules returns the active catalog's rules in catalog order.
func (e *Engine) Rules() []*rules.Rule {
	return e.snapshot().catalog.Rules()
}

// RulesCount returns the active catalog size.
func (e *Engine) RulesCount() int {
	return e.snapshot().catalog.Len()
}

// RulesDropped returns how many configured rules failed to compile
// on the last load.
func (e *Engine) RulesDropped() int {
	return e.snapshot().catalog.Dropped()
}

// OracleInfo describes the active oracle.
func (e *Engine) OracleInfo() domain.OracleInfo {
	return e.snapshot().oracle.Info()
}

// Threshold returns the active probability gate.
func (e *Engine) Threshold() float64 {
	return e.snapshot().threshold
}

// Evaluate runs one surprise-box check end to end. It always returns
// a terminal decision; internal failures come back with StatusError
// rather than an error return.
func (e *Engine) Evaluate(ctx context.Context, req *domain.RewardRequest) *domain.Decision {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "engine.Evaluate",
		trace.WithAttributes(
			attribute.String("user.id", req.UserID),
			attribute.String("reward.date", req.Date),
		),
	)
	defer span.End()

	decision := e.evaluate(ctx, req)

	span.SetAttributes(attribute.String("decision.status", decision.Status))
	metrics.DecisionsTotal.WithLabelValues(decision.Status).Inc()
	metrics.DecisionDuration.Observe(time.Since(start).Seconds())

	return decision
}

func (e *Engine) evaluate(ctx context.Context, req *domain.RewardRequest) *domain.Decision {
	if req.UserID == "" || req.Date == "" {
		return e.errorDecision(req, fmt.Errorf("user_id and date are required"))
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return e.errorDecision(req, fmt.Errorf("date must be YYYY-MM-DD: %v", err))
	}

	snap := e.snapshot()

	// Repeat check: the award cache answers most duplicates without
	// touching the ledger.
	cached, err := e.cache.GetAward(ctx, req.Date, req.UserID)
	if err != nil {
		slog.Debug("award cache read failed",
			"user_id", req.UserID,
			"date", req.Date,
			"error", err,
		)
	}
	if cached != nil {
		metrics.CacheHits.Inc()
		return e.duplicateDecision(ctx, req, cached)
	}

	// Best-effort ledger pre-check. TryCreate below is the authority;
	// a failing read here must not abort the request.
	prior, err := e.ledger.Find(ctx, req.Date, req.UserID)
	if err == nil {
		e.cacheAward(ctx, snap, prior)
		return e.duplicateDecision(ctx, req, prior)
	}
	if !errors.Is(err, ledger.ErrNotFound) {
		slog.Warn("ledger pre-check failed",
			"user_id", req.UserID,
			"date", req.Date,
			"error", err,
		)
	}

	// Resolve the category. Tie-breaks draw from a seed derived from
	// (user, date) so repeats of the same request agree.
	seed := reward.Seed(req.UserID, req.Date)
	matches := snap.catalog.Evaluate(req.Metrics)
	category := rules.Resolve(matches, rand.New(rand.NewSource(int64(seed))))

	temporal := feature.TemporalMultiplier(date, snap.temporal)
	vec := feature.Vector(req.Metrics, matches, temporal)

	p, err := snap.oracle.Predict(ctx, vec)
	if err != nil {
		return e.errorDecision(req, err)
	}

	if p < snap.threshold {
		return &domain.Decision{
			UserID: req.UserID,
			Date:   req.Date,
			Reason: reasonBelowThreshold,
			Status: domain.StatusMissed,
		}
	}

	// Value the reward. The rarity draw gets its own generator from
	// the same seed so tie-break consumption cannot shift it.
	rarityRNG := rand.New(rand.NewSource(int64(seed)))
	rarity := snap.valuator.Rarity(category, p, rarityRNG)
	karma := snap.valuator.Karma(category, rarity, req.Metrics)

	award := &domain.Award{
		Date:      req.Date,
		UserID:    req.UserID,
		BoxType:   category,
		BoxName:   snap.valuator.BoxName(category),
		Rarity:    rarity,
		Karma:     karma,
		CreatedAt: time.Now().UTC(),
	}

	created, err := e.ledger.TryCreate(ctx, award)
	if err != nil {
		return e.errorDecision(req, err)
	}
	if !created {
		// Lost the insert race. The committed award, not ours, is the
		// one the user sees everywhere else.
		metrics.LedgerConflicts.Inc()
		prior, err := e.ledger.Find(ctx, req.Date, req.UserID)
		if err != nil {
			prior = award
		}
		e.cacheAward(ctx, snap, prior)
		return e.duplicateDecision(ctx, req, prior)
	}

	e.cacheAward(ctx, snap, award)
	e.publish(ctx, domain.TopicRewardDelivered, award)

	metrics.RewardsTotal.WithLabelValues(category, rarity).Inc()
	metrics.KarmaGranted.Add(float64(karma))

	return &domain.Decision{
		UserID:      req.UserID,
		Date:        req.Date,
		Unlocked:    true,
		BoxType:     category,
		BoxName:     award.BoxName,
		Rarity:      rarity,
		RewardKarma: karma,
		Reason:      deliveredReason(snap.catalog, category),
		Status:      domain.StatusDelivered,
	}
}

// deliveredReason prefers the winning rule's description.
func deliveredReason(catalog *rules.Catalog, category string) string {
	if rule, ok := catalog.Rule(category); ok && rule.Description != "" {
		return rule.Description
	}
	return reasonDeliveredDefault
}

func (e *Engine) duplicateDecision(ctx context.Context, req *domain.RewardRequest, prior *domain.Award) *domain.Decision {
	e.publish(ctx, domain.TopicRewardDuplicate, prior)

	return &domain.Decision{
		UserID: req.UserID,
		Date:   req.Date,
		Reason: fmt.Sprintf("User already received a %s reward today", prior.BoxType),
		Status: domain.StatusAlreadyReceived,
	}
}

func (e *Engine) errorDecision(req *domain.RewardRequest, err error) *domain.Decision {
	slog.Error("reward evaluation failed",
		"user_id", req.UserID,
		"date", req.Date,
		"error", err,
	)

	// The error itself stays in the logs; clients get a fixed reason so
	// no internal detail leaks through the API surface.
	return &domain.Decision{
		UserID: req.UserID,
		Date:   req.Date,
		Reason: "Error processing request",
		Status: domain.StatusError,
	}
}

func (e *Engine) cacheAward(ctx context.Context, snap *snapshot, award *domain.Award) {
	if err := e.cache.SetAward(ctx, award, snap.awardTTL); err != nil {
		slog.Warn("award cache write failed",
			"user_id", award.UserID,
			"date", award.Date,
			"error", err,
		)
	}
}

func (e *Engine) publish(ctx context.Context, topic string, award *domain.Award) {
	payload, err := json.Marshal(award)
	if err != nil {
		return
	}
	if err := e.bus.Publish(ctx, topic, payload); err != nil {
		slog.Warn("event publish failed", "topic", topic, "error", err)
	}
}
