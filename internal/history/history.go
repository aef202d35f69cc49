// Package history persists the append-only per-user chat message log.
//
// The log is the conversational memory collaborator of the RAG
// pipeline: the HTTP layer appends messages, and the pipeline reads a
// bounded window of the most recent turns, ordered by timestamp
// ascending. The pipeline itself never writes here.
package history

import "time"

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Valid reports whether s is a known sender tag.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAssistant
}

// Message is one chat message in a user's log.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Sender    Sender    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
