package session

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is a single transcript entry. It is never modified after it is appended.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Sources   []string  `json:"sources,omitempty"`
}

// NewUserMessage stamps content with a fresh id and the current time.
func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Content:   content,
		Sender:    SenderUser,
		Timestamp: time.Now(),
	}
}

// NewAssistantMessage builds a reply. A zero ts means the server did not provide one.
// Empty sources are dropped so that only real citations are kept.
func NewAssistantMessage(content string, ts time.Time, sources []string) Message {
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := Message{
		ID:        uuid.NewString(),
		Content:   content,
		Sender:    SenderAssistant,
		Timestamp: ts,
	}
	if len(sources) > 0 {
		msg.Sources = append([]string(nil), sources...)
	}
	return msg
}

func (m Message) clone() Message {
	if m.Sources != nil {
		m.Sources = append([]string(nil), m.Sources...)
	}
	return m
}
