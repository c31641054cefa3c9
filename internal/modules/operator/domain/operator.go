package domain

import "time"

// Operator is a Telegram user allowed to drive the monitoring session
type Operator struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	ChatID   int64     `json:"chat_id"`
	AddedAt  time.Time `json:"added_at"`
	IsAdmin  bool      `json:"is_admin"`
}
