package models

import (
	"time"
)

// MessageKind identifies who produced a conversation turn and how it ended
type MessageKind string

const (
	// KindUser is a turn typed or captured by the user
	KindUser MessageKind = "user"
	// KindAssistant is a successful backend answer
	KindAssistant MessageKind = "assistant"
	// KindAssistantError is a failed turn rendered as an error bubble
	KindAssistantError MessageKind = "assistant_error"
)

// Message represents one turn in a conversation.
// A user message always has non-empty RawText; an assistant_error message
// never carries a Structured record.
type Message struct {
	ID         string        `json:"id"`
	Kind       MessageKind   `json:"kind"`
	RawText    string        `json:"raw_text"`
	Structured *MedicineInfo `json:"structured,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

// IsError reports whether the message renders as an error turn
func (m Message) IsError() bool {
	return m.Kind == KindAssistantError
}
