// Package domain contains core domain types for the PromptLabs application.
package domain

import (
	"fmt"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser marks a turn authored by the trainee.
	RoleUser Role = "user"
	// RoleModel marks a turn authored by the model.
	RoleModel Role = "model"
)

// Turn is a single message in a challenge conversation.
// Turns are immutable once appended to a session.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SessionKey identifies one conversational session: a user working on
// one level of one challenge.
type SessionKey struct {
	UserID        string
	ChallengeSlug string
	LevelIndex    int
}

// String renders the key in user:slug:level form, used in logs.
func (k SessionKey) String() string {
	return fmt.Sprintf("%s:%s:%d", k.UserID, k.ChallengeSlug, k.LevelIndex)
}
