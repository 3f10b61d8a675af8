package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/promptlabs/internal/config"
	"github.com/ashureev/promptlabs/internal/identity"
	"github.com/ashureev/promptlabs/internal/orchestrator"
	"github.com/ashureev/promptlabs/internal/shared"
)

// maxRequestBodySize bounds interaction request bodies (1MB).
const maxRequestBodySize = 1 << 20

// ChallengeHandler handles challenge interaction endpoints.
type ChallengeHandler struct {
	*Handler
	rateLimiter *RateLimiter
}

// NewChallengeHandler creates a challenge handler with a per-user rate
// limiter configured from cfg.
func NewChallengeHandler(base *Handler, cfg *config.Config) *ChallengeHandler {
	return &ChallengeHandler{
		Handler:     base,
		rateLimiter: NewRateLimiter(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration),
	}
}

// RegisterRoutes registers challenge routes.
func (h *ChallengeHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Get("/challenges", h.ListChallenges)
		r.Get("/challenges/{slug}/levels/{level}", h.Interact)
		r.Post("/challenges/{slug}/levels/{level}", h.Interact)
	})
}

// interactRequest is the inbound body for a level interaction. A present
// but empty flag is still a submission and grades incorrect.
type interactRequest struct {
	Message string  `json:"message"`
	Flag    *string `json:"flag"`
}

// Interact drives one challenge interaction: metadata, chat, or flag
// submission, decided by the request body.
func (h *ChallengeHandler) Interact(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if !h.rateLimiter.Allow(userID) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	levelIndex, err := strconv.Atoi(chi.URLParam(r, "level"))
	if err != nil {
		Error(w, http.StatusBadRequest, "level must be an integer")
		return
	}

	req := orchestrator.Request{
		UserID:        userID,
		ChallengeSlug: chi.URLParam(r, "slug"),
		LevelIndex:    levelIndex,
	}

	if r.Method == http.MethodPost {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var body interactRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			// An empty body is a metadata-only request.
			if !errors.Is(err, io.EOF) {
				Error(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}
		req.Message = body.Message
		req.SubmittedFlag = body.Flag
	}

	resp, err := h.orch.Handle(r.Context(), req)
	if err != nil {
		h.writeOrchestratorError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, resp)
}

// writeOrchestratorError maps the core error taxonomy onto HTTP statuses.
func (h *ChallengeHandler) writeOrchestratorError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case orchestrator.IsValidation(err):
		Error(w, http.StatusBadRequest, err.Error())
	case orchestrator.IsNotFound(err):
		Error(w, http.StatusNotFound, err.Error())
	case orchestrator.IsGateway(err):
		slog.Error("Model gateway failed", "error", err, "path", r.URL.Path)
		Error(w, http.StatusBadGateway, "model unavailable")
	case orchestrator.IsPersistence(err) && shared.IsSQLiteConflictError(err):
		slog.Error("Progress store busy", "error", err, "path", r.URL.Path)
		Error(w, http.StatusServiceUnavailable, "progress store busy")
	default:
		slog.Error("Interaction failed", "error", err, "path", r.URL.Path)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

// ListChallenges returns public catalogue metadata: flags and instruction
// templates never serialize.
func (h *ChallengeHandler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{"challenges": h.cat.Challenges()})
}

// GetMe returns the current user's profile, XP total, and per-level
// progress.
func (h *ChallengeHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil || user == nil {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	progress, err := h.repo.ListProgress(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to list progress", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load progress")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"user_id":  user.UserID,
		"username": user.Username,
		"xp_total": user.XPTotal,
		"progress": progress,
	})
}
