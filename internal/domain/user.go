package domain

import "time"

// User represents a trainee and their cumulative experience.
type User struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	XPTotal    int       `json:"xp_total"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
