package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeSnapshot_LegacyWithoutToggles(t *testing.T) {
	raw := `{"state":{"sessionId":"s-1","messages":[
		{"id":"m1","content":"hello","sender":"user","timestamp":"2024-05-01T10:00:00Z"},
		{"id":"m2","content":"hi","sender":"assistant","timestamp":"2024-05-01T10:00:02.5+02:00","sources":["a.md"]}
	],"theme":"light"},"version":0}`

	st, err := DecodeSnapshot([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, "s-1", st.SessionID)
	require.Equal(t, ThemeLight, st.Theme)
	require.True(t, st.UseRAG)
	require.True(t, st.UseMemory)
	require.Len(t, st.Transcript, 2)
	require.True(t, st.Transcript[0].Timestamp.After(st.Transcript[1].Timestamp))
	require.True(t, st.Transcript[1].Timestamp.Equal(time.Date(2024, 5, 1, 8, 0, 2, 500000000, time.UTC)))
	require.Equal(t, []string{"a.md"}, st.Transcript[1].Sources)
}

func TestDecodeSnapshot_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":       `nope`,
		"no session":     `{"state":{"messages":[]},"version":1}`,
		"future version": `{"state":{"sessionId":"s"},"version":99}`,
		"bad sender":     `{"state":{"sessionId":"s","messages":[{"id":"m","sender":"robot","timestamp":"2024-05-01T10:00:00Z"}]}}`,
		"bad timestamp":  `{"state":{"sessionId":"s","messages":[{"id":"m","sender":"user","timestamp":"yesterday"}]}}`,
		"missing msg id": `{"state":{"sessionId":"s","messages":[{"sender":"user","timestamp":"2024-05-01T10:00:00Z"}]}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(raw))
			require.Error(t, err)
		})
	}
}

func TestEncodeSnapshot_OmitsTransientFlags(t *testing.T) {
	data, err := EncodeSnapshot(State{SessionID: "s", Typing: true, Connected: true, Theme: ThemeDark})
	require.NoError(t, err)
	require.NotContains(t, string(data), "typing")
	require.NotContains(t, string(data), "onnected")
	require.Contains(t, string(data), `"messages":[]`)
}
