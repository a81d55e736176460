// Package llm provides an api.Service that talks straight to an OpenAI-compatible model
// endpoint instead of going through the assistant service.
package llm

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/chat-go/internal/api"
	"github.com/comigor/chat-go/internal/config"
	"github.com/comigor/chat-go/internal/logger"
)

const (
	defaultSystemPrompt = "You are a helpful AI assistant. Please respond to the user's request accurately and concisely."
	defaultTemperature  = 0.7
	defaultMaxTokens    = 8192

	// maxMemoryMessages caps the per-session history replayed to the model.
	maxMemoryMessages = 40
)

// Backend implements api.Service over an OpenAI-compatible chat completion API.
// With UseMemory set, earlier exchanges of the same session are replayed to the model.
type Backend struct {
	client Client
	cfg    config.LLMConfig
	now    func() time.Time

	mu     sync.Mutex
	memory map[string][]openai.ChatCompletionMessage
}

var _ api.Service = (*Backend)(nil)

// NewBackend creates a Backend. The provider model comes from cfg.Model; the catalog id
// carried by a turn is only logged.
func NewBackend(client Client, cfg config.LLMConfig) *Backend {
	return &Backend{
		client: client,
		cfg:    cfg,
		now:    time.Now,
		memory: make(map[string][]openai.ChatCompletionMessage),
	}
}

// SendTurn runs one chat completion.
func (b *Backend) SendTurn(ctx context.Context, req api.TurnRequest) (*api.TurnResponse, error) {
	systemPrompt := defaultSystemPrompt
	if b.cfg.SystemPrompt != "" {
		systemPrompt = b.cfg.SystemPrompt
	}

	messages := []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	}}
	if req.UseMemory && req.SessionID != "" {
		messages = append(messages, b.recall(req.SessionID)...)
	}
	if req.UseRAG {
		logger.L.Debug("retrieval is not available on the direct backend", "session", req.SessionID)
	}

	stamp := b.now().Format("Monday, January 02, 2006 - 15:04")
	user := openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: fmt.Sprintf("[System Note: Current Time is %s] %s", stamp, req.Message),
	}
	messages = append(messages, user)

	logger.L.Debug("sending chat completion", "model", b.cfg.Model, "catalog_model", req.Model, "messages", len(messages))
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       b.cfg.Model,
		Messages:    messages,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("send turn: %w: %w", api.ErrTransport, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("send turn: %w: no choices", api.ErrMalformedResponse)
	}

	content := resp.Choices[0].Message.Content
	if req.UseMemory && req.SessionID != "" {
		b.remember(req.SessionID, user, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleAssistant,
			Content: content,
		})
	}

	ts := b.now().UTC()
	if resp.Created > 0 {
		ts = time.Unix(resp.Created, 0).UTC()
	}
	return &api.TurnResponse{Response: content, Timestamp: ts}, nil
}

// CheckHealth lists the provider's models as a liveness check.
func (b *Backend) CheckHealth(ctx context.Context) (*api.Health, error) {
	models, err := b.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("health: %w: %w", api.ErrTransport, err)
	}
	return &api.Health{
		Status: "healthy",
		Subsystems: map[string]string{
			"llm":    "connected",
			"models": strconv.Itoa(len(models.Models)),
		},
		Timestamp: b.now().UTC(),
	}, nil
}

// GetStats reports the messages held in session memory. Nothing is ever indexed.
func (b *Backend) GetStats(context.Context) (*api.Stats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	count := 0
	for _, msgs := range b.memory {
		count += len(msgs)
	}
	return &api.Stats{MessageCount: count, Timestamp: b.now().UTC()}, nil
}

// UploadDocument is not available without the assistant service.
func (b *Backend) UploadDocument(context.Context, api.Document) (*api.UploadResult, error) {
	return nil, fmt.Errorf("upload: %w", api.ErrUnsupported)
}

// Forget drops the memory of one session.
func (b *Backend) Forget(sessionID string) {
	b.mu.Lock()
	delete(b.memory, sessionID)
	b.mu.Unlock()
}

func (b *Backend) recall(sessionID string) []openai.ChatCompletionMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]openai.ChatCompletionMessage(nil), b.memory[sessionID]...)
}

func (b *Backend) remember(sessionID string, msgs ...openai.ChatCompletionMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	history := append(b.memory[sessionID], msgs...)
	if len(history) > maxMemoryMessages {
		history = history[len(history)-maxMemoryMessages:]
	}
	b.memory[sessionID] = history
}
