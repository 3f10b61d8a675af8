package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/promptlabs/internal/catalogue"
	"github.com/ashureev/promptlabs/internal/config"
	"github.com/ashureev/promptlabs/internal/domain"
	"github.com/ashureev/promptlabs/internal/identity"
	"github.com/ashureev/promptlabs/internal/orchestrator"
	"github.com/ashureev/promptlabs/internal/session"
)

var errDatabaseDown = errors.New("database offline")

// downRepo fails every operation, simulating a database outage.
type downRepo struct{}

func (downRepo) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return nil, errDatabaseDown
}

func (downRepo) UpsertUser(ctx context.Context, user *domain.User) error {
	return errDatabaseDown
}

func (downRepo) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	return errDatabaseDown
}

func (downRepo) GetProgress(ctx context.Context, userID, levelID string) (*domain.ProgressRecord, error) {
	return nil, errDatabaseDown
}

func (downRepo) ListProgress(ctx context.Context, userID string) ([]*domain.ProgressRecord, error) {
	return nil, errDatabaseDown
}

func (downRepo) MarkLevelComplete(ctx context.Context, userID, levelID string, points int) (*domain.ProgressRecord, error) {
	return nil, errDatabaseDown
}

func (downRepo) Ping(ctx context.Context) error { return errDatabaseDown }

func (downRepo) Close() error { return nil }

func TestHealthReportsDegradedWhenDatabaseDown(t *testing.T) {
	t.Parallel()

	repo := downRepo{}
	cat, err := catalogue.Load([]byte(apiTestCatalogue))
	if err != nil {
		t.Fatalf("load catalogue: %v", err)
	}
	cfg := &config.Config{
		RateLimit: config.RateLimitConfig{RequestsPerWindow: 100, WindowDuration: time.Minute},
	}
	orch := orchestrator.New(cat, session.NewStore(), staticModel{reply: "no"}, repo)
	challengeHandler := NewChallengeHandler(NewHandler(repo, cat, orch), cfg)
	healthHandler := NewHealthHandler(repo)

	// Same layout as the production router: health is mounted outside the
	// identity middleware, so the outage reaches the health handler instead
	// of failing identity provisioning first.
	r := chi.NewRouter()
	healthHandler.RegisterHealth(r)
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, true))
		challengeHandler.RegisterRoutes(r)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decodeBody(t, resp, &body)
	if body.Status != "degraded" || body.Checks["database"] != "unreachable" {
		t.Errorf("unexpected health report: %+v", body)
	}
}

func TestHealthDoesNotProvisionIdentity(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Set-Cookie"); got != "" {
		t.Errorf("health probe set an identity cookie: %q", got)
	}
}
