package domain

import "time"

// ProgressRecord tracks completion of one level by one user. At most one
// record exists per (user, level); once completed it is never reverted and
// XPAwarded is set exactly once.
type ProgressRecord struct {
	UserID      string     `json:"user_id"`
	LevelID     string     `json:"level_id"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	XPAwarded   int        `json:"xp_awarded"`
}
