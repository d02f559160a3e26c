package models

import (
	"strings"
	"time"
)

// Session represents one conversation thread
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}

// SessionSummary is the durable history entry for a session
type SessionSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary returns the history entry for the session
func (s *Session) Summary() SessionSummary {
	return SessionSummary{
		ID:        s.ID,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
	}
}

// DeriveTitle builds a session title from the first user message,
// truncated to maxLen runes. Set once at creation and never mutated after.
func DeriveTitle(firstMessage string, maxLen int) string {
	title := strings.TrimSpace(firstMessage)
	if title == "" {
		return "New chat"
	}
	runes := []rune(title)
	if maxLen > 0 && len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return title
}
