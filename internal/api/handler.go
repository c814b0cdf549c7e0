package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kaushiksai711/Karma-AI/internal/domain"
	"github.com/kaushiksai711/Karma-AI/internal/engine"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	engine     *engine.Engine
	ledger     domain.Ledger
	cache      domain.Cache
	bus        domain.EventBus
	version    string
	configPath string
}

// NewHandler creates a new API handler.
func NewHandler(eng *engine.Engine, led domain.Ledger, cache domain.Cache, bus domain.EventBus, version, configPath string) *Handler {
	return &Handler{
		engine:     eng,
		ledger:     led,
		cache:      cache,
		bus:        bus,
		version:    version,
		configPath: configPath,
	}
}

// CheckSurpriseBox handles POST /check-surprise-box requests.
//
// Malformed input is rejected with 400 before the engine runs. A
// well-formed request always gets 200 with a terminal decision, even
// when that decision is missed, already_received, or error.
func (h *Handler) CheckSurpriseBox(w http.ResponseWriter, r *http.Request) {
	var req domain.RewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "user_id is required",
		})
		return
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid date format. Expected YYYY-MM-DD",
		})
		return
	}

	decision := h.engine.Evaluate(r.Context(), &req)
	writeJSON(w, http.StatusOK, decision)
}

// Health returns server health status. Any failing backend ping
// degrades the status but never fails the endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"

	if h.ledger != nil {
		if err := h.ledger.Ping(r.Context()); err != nil {
			slog.Warn("health check: ledger unreachable", "error", err)
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			slog.Warn("health check: cache unreachable", "error", err)
			status = "degraded"
		}
	}
	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			slog.Warn("health check: event bus unreachable", "error", err)
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "Karma Reward Engine",
		"version":   h.version,
	})
}

// Version returns the service and model versions.
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	info := h.engine.OracleInfo()

	writeJSON(w, http.StatusOK, map[string]string{
		"version":       h.version,
		"model_type":    info.Type,
		"model_version": info.Version,
		"last_updated":  info.TrainedAt,
	})
}

// RuleView is one catalog entry as exposed by GET /rules.
type RuleView struct {
	Category    string `json:"category"`
	Condition   string `json:"condition"`
	Specificity int    `json:"specificity"`
	Description string `json:"description,omitempty"`
}

// ListRules returns the active rule catalog in catalog order, plus
// how many configured rules were dropped at compile time. Serves
// operators verifying a config push.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loaded := h.engine.Rules()

	views := make([]RuleView, len(loaded))
	for i, rule := range loaded {
		views[i] = RuleView{
			Category:    rule.Category,
			Condition:   rule.Expr.String(),
			Specificity: rule.Specificity,
			Description: rule.Description,
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules":   views,
		"count":   len(views),
		"dropped": h.engine.RulesDropped(),
	})
}

// ListRewards returns the ledger entries for one day, optionally
// filtered by the `category` query parameter.
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid date format. Expected YYYY-MM-DD",
		})
		return
	}

	category := r.URL.Query().Get("category")

	awards, err := h.ledger.ListByDate(r.Context(), date, category)
	if err != nil {
		slog.Error("failed to list rewards", "date", date, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list rewards",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":    date,
		"count":   len(awards),
		"rewards": awards,
	})
}

// Reload re-reads the configuration file and swaps the engine
// snapshot atomically. On failure the old snapshot stays active.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	cfg, err := domain.LoadConfig(h.configPath)
	if err != nil {
		slog.Error("reload: config load failed", "path", h.configPath, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load configuration: " + err.Error(),
		})
		return
	}

	if err := h.engine.Reload(cfg); err != nil {
		slog.Error("reload: snapshot swap failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload engine: " + err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "engine reloaded",
		"rules":   h.engine.RulesCount(),
		"dropped": h.engine.RulesDropped(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
