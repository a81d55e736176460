package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

const snapshotVersion = 1

// persisted is the subset of State that survives a restart.
type persisted struct {
	SessionID     string    `json:"sessionId"`
	Messages      []Message `json:"messages"`
	Theme         Theme     `json:"theme"`
	SelectedModel string    `json:"selectedModel"`
	UseRAG        *bool     `json:"useRag,omitempty"`
	UseMemory     *bool     `json:"useMemory,omitempty"`
}

type envelope struct {
	State   persisted `json:"state"`
	Version int       `json:"version"`
}

// EncodeSnapshot serializes the persisted fields of st. Typing and Connected are left out.
func EncodeSnapshot(st State) ([]byte, error) {
	msgs := st.Transcript
	if msgs == nil {
		msgs = []Message{}
	}
	return json.Marshal(envelope{
		State: persisted{
			SessionID:     st.SessionID,
			Messages:      msgs,
			Theme:         st.Theme,
			SelectedModel: st.SelectedModel,
			UseRAG:        &st.UseRAG,
			UseMemory:     &st.UseMemory,
		},
		Version: snapshotVersion,
	})
}

// DecodeSnapshot rebuilds a State from data. The returned state always has
// Typing and Connected false. Timestamps come back as time.Time values.
func DecodeSnapshot(data []byte) (State, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return State{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if env.Version > snapshotVersion {
		return State{}, fmt.Errorf("decode snapshot: unsupported version %d", env.Version)
	}
	p := env.State
	if p.SessionID == "" {
		return State{}, errors.New("decode snapshot: missing session id")
	}
	for i, m := range p.Messages {
		if m.ID == "" || (m.Sender != SenderUser && m.Sender != SenderAssistant) {
			return State{}, fmt.Errorf("decode snapshot: invalid message at %d", i)
		}
	}
	theme := p.Theme
	if theme != ThemeLight {
		theme = ThemeDark
	}
	msgs := p.Messages
	if msgs == nil {
		msgs = []Message{}
	}
	return State{
		Transcript:    msgs,
		SessionID:     p.SessionID,
		Theme:         theme,
		SelectedModel: p.SelectedModel,
		UseRAG:        boolOr(p.UseRAG, true),
		UseMemory:     boolOr(p.UseMemory, true),
	}, nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
