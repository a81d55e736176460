package session

// Theme is the UI color scheme preference.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// State is a point-in-time copy of the session aggregate.
type State struct {
	Transcript    []Message
	SessionID     string
	Typing        bool
	Connected     bool
	Theme         Theme
	SelectedModel string
	UseRAG        bool
	UseMemory     bool
}

func (s State) clone() State {
	out := s
	out.Transcript = make([]Message, len(s.Transcript))
	for i, m := range s.Transcript {
		out.Transcript[i] = m.clone()
	}
	return out
}
