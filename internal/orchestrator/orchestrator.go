// Package orchestrator coordinates challenge sessions, prompt assembly,
// grading, and completion credit. One generic routine serves every
// challenge; the slug is the only varying input.
package orchestrator

import (
	"context"
	"log/slog"

	"github.com/ashureev/promptlabs/internal/catalogue"
	"github.com/ashureev/promptlabs/internal/domain"
	"github.com/ashureev/promptlabs/internal/gateway"
	"github.com/ashureev/promptlabs/internal/grading"
	"github.com/ashureev/promptlabs/internal/prompt"
	"github.com/ashureev/promptlabs/internal/session"
	"github.com/ashureev/promptlabs/internal/store"
)

// Request is one inbound interaction with a challenge level. SubmittedFlag
// takes precedence over Message when both are set; when neither is set the
// response carries level metadata only.
type Request struct {
	UserID        string
	ChallengeSlug string
	LevelIndex    int
	Message       string
	SubmittedFlag *string
}

// Outcome discriminates the three response kinds.
type Outcome string

const (
	OutcomeReady   Outcome = "ready"
	OutcomeReply   Outcome = "reply"
	OutcomeVerdict Outcome = "verdict"
)

// Response is the result of handling a request. Exactly one of Ready,
// Reply, or Verdict is set, matching Outcome.
type Response struct {
	Outcome Outcome      `json:"outcome"`
	Ready   *ReadyInfo   `json:"ready,omitempty"`
	Reply   *ChatReply   `json:"reply,omitempty"`
	Verdict *FlagVerdict `json:"verdict,omitempty"`
}

// ReadyInfo is the metadata-only response for a level.
type ReadyInfo struct {
	ChallengeSlug  string            `json:"challenge_slug"`
	ChallengeTitle string            `json:"challenge_title"`
	LevelIndex     int               `json:"level_index"`
	LevelTitle     string            `json:"level_title"`
	Difficulty     domain.Difficulty `json:"difficulty"`
	Description    string            `json:"description"`
}

// ChatReply carries the model's reply for a chat interaction.
type ChatReply struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

// FlagVerdict is the result of grading a submitted flag.
type FlagVerdict struct {
	Status    grading.Verdict `json:"status"`
	XPAwarded int             `json:"xp_awarded,omitempty"`
}

// Orchestrator owns the challenge interaction flow.
type Orchestrator struct {
	cat      *catalogue.Catalogue
	sessions *session.Store
	model    gateway.Model
	repo     store.Repository
}

// New creates an orchestrator over the given collaborators.
func New(cat *catalogue.Catalogue, sessions *session.Store, model gateway.Model, repo store.Repository) *Orchestrator {
	return &Orchestrator{
		cat:      cat,
		sessions: sessions,
		model:    model,
		repo:     repo,
	}
}

// Handle processes one interaction: resolve the level, then dispatch to
// exactly one of flag grading, chat, or metadata.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (*Response, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	ch, lvl, err := o.cat.Resolve(req.ChallengeSlug, req.LevelIndex)
	if err != nil {
		return nil, err
	}

	switch {
	case req.SubmittedFlag != nil:
		return o.gradeFlag(ctx, req, lvl)
	case req.Message != "":
		return o.chat(ctx, req, lvl)
	default:
		return ready(ch, lvl), nil
	}
}

func validate(req Request) error {
	if req.UserID == "" {
		return &ValidationError{Field: "user_id", Reason: "must not be empty"}
	}
	if req.ChallengeSlug == "" {
		return &ValidationError{Field: "challenge", Reason: "must not be empty"}
	}
	if req.LevelIndex < 1 {
		return &ValidationError{Field: "level", Reason: "must be >= 1"}
	}
	return nil
}

func ready(ch *domain.Challenge, lvl *domain.Level) *Response {
	return &Response{
		Outcome: OutcomeReady,
		Ready: &ReadyInfo{
			ChallengeSlug:  ch.Slug,
			ChallengeTitle: ch.Title,
			LevelIndex:     lvl.Index,
			LevelTitle:     lvl.Title,
			Difficulty:     lvl.Difficulty,
			Description:    lvl.Description,
		},
	}
}

// chat runs one model exchange. The history snapshot is taken under the
// session lock, the gateway call happens unlocked, and the resulting pair is
// appended afterwards. Two concurrent chats on the same session may append
// in completion order; each turn is self-contained so this is acceptable.
func (o *Orchestrator) chat(ctx context.Context, req Request, lvl *domain.Level) (*Response, error) {
	key := domain.SessionKey{
		UserID:        req.UserID,
		ChallengeSlug: req.ChallengeSlug,
		LevelIndex:    req.LevelIndex,
	}
	sess := o.sessions.GetOrCreate(key)

	history := sess.Snapshot()
	assembled := prompt.Assemble(lvl.Instruction, lvl.Flag, history, req.Message)

	reply, err := o.model.Generate(ctx, assembled.System, assembled.Turns)

	// Refresh activity even on failure so the session is not swept out from
	// under a user whose model call errored.
	o.sessions.Touch(sess)

	if err != nil {
		slog.Error("Model generation failed",
			"session", key.String(),
			"error", err,
		)
		return nil, err
	}

	o.sessions.Append(sess,
		domain.Turn{Role: domain.RoleUser, Content: req.Message},
		domain.Turn{Role: domain.RoleModel, Content: reply},
	)

	slog.Info("Chat exchange completed",
		"session", key.String(),
		"session_id", sess.ID(),
		"history_len", len(history)+2,
	)

	return &Response{
		Outcome: OutcomeReply,
		Reply:   &ChatReply{SessionID: sess.ID(), Reply: reply},
	}, nil
}

func (o *Orchestrator) gradeFlag(ctx context.Context, req Request, lvl *domain.Level) (*Response, error) {
	verdict := grading.Grade(*req.SubmittedFlag, lvl.Flag)
	if verdict != grading.VerdictPassed {
		slog.Info("Flag submission incorrect",
			"user_id", req.UserID,
			"level_id", lvl.ID,
		)
		return &Response{
			Outcome: OutcomeVerdict,
			Verdict: &FlagVerdict{Status: grading.VerdictIncorrect},
		}, nil
	}

	record, err := o.repo.MarkLevelComplete(ctx, req.UserID, lvl.ID, lvl.RewardPoints)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}

	slog.Info("Level completed",
		"user_id", req.UserID,
		"level_id", lvl.ID,
		"xp_awarded", record.XPAwarded,
	)

	return &Response{
		Outcome: OutcomeVerdict,
		Verdict: &FlagVerdict{Status: grading.VerdictPassed, XPAwarded: record.XPAwarded},
	}, nil
}
