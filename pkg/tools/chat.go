package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/comigor/chat-go/internal/api"
	"github.com/comigor/chat-go/internal/app"
	"github.com/comigor/chat-go/internal/logger"
	"github.com/comigor/chat-go/internal/session"
	"github.com/comigor/chat-go/internal/turn"
)

// Chat is what the chat tools drive. *app.App implements it.
type Chat interface {
	Send(ctx context.Context, text string) turn.Result
	Snapshot() session.State
	ClearTranscript() error
	Overview(ctx context.Context) app.Overview
	Upload(ctx context.Context, path string) (*api.UploadResult, error)
}

var _ Chat = (*app.App)(nil)

// RegisterChatTools registers every chat tool on m.
func RegisterChatTools(m *ToolManager, chat Chat) {
	m.RegisterTool(NewSendTool(chat))
	m.RegisterTool(NewTranscriptTool(chat))
	m.RegisterTool(NewClearTool(chat))
	m.RegisterTool(NewStatusTool(chat))
	m.RegisterTool(NewUploadTool(chat))
}

var emptySchema = json.RawMessage(`{"type":"object","properties":{}}`)

// SendTool sends one message and returns the assistant's reply.
type SendTool struct {
	chat Chat
}

// NewSendTool creates a new SendTool
func NewSendTool(chat Chat) *SendTool {
	return &SendTool{chat: chat}
}

// Name returns the name of the tool
func (t *SendTool) Name() string {
	return "chat_send"
}

// Description returns the description of the tool
func (t *SendTool) Description() string {
	return "Sends a message to the assistant in the current session and returns its reply."
}

// Schema returns the argument schema
func (t *SendTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"message":{"type":"string","description":"Text to send"}},"required":["message"]}`)
}

// Run runs the tool
func (t *SendTool) Run(ctx context.Context, args string) (string, error) {
	logger.L.Info("chat_send tool invoked")

	var toolArgs struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(args), &toolArgs); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	res := t.chat.Send(ctx, toolArgs.Message)
	switch res.Status {
	case turn.StatusSkipped:
		return "", fmt.Errorf("message is empty")
	case turn.StatusBusy:
		return "", fmt.Errorf("another message is still waiting for a reply")
	}
	return res.Reply.Content, nil
}

// TranscriptTool returns the session transcript as text.
type TranscriptTool struct {
	chat Chat
}

// NewTranscriptTool creates a new TranscriptTool
func NewTranscriptTool(chat Chat) *TranscriptTool {
	return &TranscriptTool{chat: chat}
}

func (t *TranscriptTool) Name() string {
	return "chat_transcript"
}

func (t *TranscriptTool) Description() string {
	return "Returns the messages of the current session, oldest first. 'limit' keeps only the most recent ones."
}

func (t *TranscriptTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"limit":{"type":"integer","minimum":0}}}`)
}

func (t *TranscriptTool) Run(_ context.Context, args string) (string, error) {
	var toolArgs struct {
		Limit int `json:"limit"`
	}
	if strings.TrimSpace(args) != "" {
		if err := json.Unmarshal([]byte(args), &toolArgs); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
	}

	msgs := t.chat.Snapshot().Transcript
	if toolArgs.Limit > 0 && len(msgs) > toolArgs.Limit {
		msgs = msgs[len(msgs)-toolArgs.Limit:]
	}
	if len(msgs) == 0 {
		return "The transcript is empty.", nil
	}
	return FormatTranscript(msgs), nil
}

// FormatTranscript renders msgs one per block as "[time] sender: content".
func FormatTranscript(msgs []session.Message) string {
	var sb strings.Builder
	for i, m := range msgs {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[%s] %s: %s", m.Timestamp.Local().Format(time.Kitchen), m.Sender, m.Content)
		if len(m.Sources) > 0 {
			fmt.Fprintf(&sb, "\n  sources: %s", strings.Join(m.Sources, ", "))
		}
	}
	return sb.String()
}

// ClearTool empties the transcript.
type ClearTool struct {
	chat Chat
}

// NewClearTool creates a new ClearTool
func NewClearTool(chat Chat) *ClearTool {
	return &ClearTool{chat: chat}
}

func (t *ClearTool) Name() string {
	return "chat_clear"
}

func (t *ClearTool) Description() string {
	return "Clears the transcript of the current session. The session id and preferences are kept."
}

func (t *ClearTool) Schema() json.RawMessage {
	return emptySchema
}

func (t *ClearTool) Run(context.Context, string) (string, error) {
	if err := t.chat.ClearTranscript(); err != nil {
		return "", err
	}
	return "Transcript cleared.", nil
}

// StatusTool reports connectivity, health and stats.
type StatusTool struct {
	chat Chat
}

// NewStatusTool creates a new StatusTool
func NewStatusTool(chat Chat) *StatusTool {
	return &StatusTool{chat: chat}
}

func (t *StatusTool) Name() string {
	return "chat_status"
}

func (t *StatusTool) Description() string {
	return "Reports whether the assistant service is reachable, its subsystem health and its stored message and document counts."
}

func (t *StatusTool) Schema() json.RawMessage {
	return emptySchema
}

func (t *StatusTool) Run(ctx context.Context, _ string) (string, error) {
	return FormatOverview(t.chat.Snapshot(), t.chat.Overview(ctx)), nil
}

// FormatOverview renders the session summary and a status report as plain text.
func FormatOverview(st session.State, ov app.Overview) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "session: %s\n", st.SessionID)
	fmt.Fprintf(&sb, "model: %s  rag: %t  memory: %t\n", st.SelectedModel, st.UseRAG, st.UseMemory)
	fmt.Fprintf(&sb, "messages: %d\n", len(st.Transcript))

	if ov.HealthErr != nil || ov.Health == nil {
		fmt.Fprintf(&sb, "service: disconnected (%v)\n", ov.HealthErr)
	} else {
		fmt.Fprintf(&sb, "service: connected (%s)\n", ov.Health.Status)
		for _, name := range slices.Sorted(maps.Keys(ov.Health.Subsystems)) {
			fmt.Fprintf(&sb, "  %s: %s\n", name, ov.Health.Subsystems[name])
		}
	}

	if ov.StatsErr != nil || ov.Stats == nil {
		fmt.Fprintf(&sb, "stats: unavailable (%v)", ov.StatsErr)
	} else {
		fmt.Fprintf(&sb, "stats: %d stored messages, %d indexed documents", ov.Stats.MessageCount, ov.Stats.IndexedDocuments)
	}
	return sb.String()
}

// UploadTool sends a local document for indexing.
type UploadTool struct {
	chat Chat
}

// NewUploadTool creates a new UploadTool
func NewUploadTool(chat Chat) *UploadTool {
	return &UploadTool{chat: chat}
}

func (t *UploadTool) Name() string {
	return "chat_upload"
}

func (t *UploadTool) Description() string {
	return "Uploads a local document so the assistant can cite it. Supported types: " +
		strings.Join(api.SupportedExtensions, ", ") + "."
}

func (t *UploadTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"path":{"type":"string","description":"Path of the file to upload"}},"required":["path"]}`)
}

func (t *UploadTool) Run(ctx context.Context, args string) (string, error) {
	var toolArgs struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal([]byte(args), &toolArgs); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if toolArgs.Path == "" {
		return "", fmt.Errorf("path is required")
	}

	res, err := t.chat.Upload(ctx, toolArgs.Path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", app.UploadStatus(res, err), err)
	}
	return app.UploadStatus(res, nil), nil
}
