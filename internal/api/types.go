// Package api is the boundary between the chat core and the remote assistant service.
package api

import (
	"context"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Service is the set of remote exchanges the core depends on. Every call is a fresh
// request; failures come back as errors, never as zero values.
type Service interface {
	SendTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error)
	CheckHealth(ctx context.Context) (*Health, error)
	GetStats(ctx context.Context) (*Stats, error)
	UploadDocument(ctx context.Context, doc Document) (*UploadResult, error)
}

// TurnRequest carries one user message and the preferences that shape the reply.
type TurnRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Model     string `json:"model,omitempty"`
	UseRAG    bool   `json:"use_rag"`
	UseMemory bool   `json:"use_letta"`
}

// TurnResponse is the assistant's reply. Timestamp is zero when the service did not
// send a parseable one.
type TurnResponse struct {
	Response  string
	Sources   []string
	Timestamp time.Time
}

// Health is the liveness report. Subsystems holds backend-specific statuses
// such as the database or the vector index.
type Health struct {
	Status     string
	Subsystems map[string]string
	Timestamp  time.Time
}

// Stats summarizes what the service has stored.
type Stats struct {
	MessageCount     int
	IndexedDocuments int
	Timestamp        time.Time
}

// Document is a file offered for indexing.
type Document struct {
	Name    string
	Content io.Reader
}

// UploadResult is the service's acknowledgement of an upload.
type UploadResult struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// SupportedExtensions lists the document types the service indexes.
var SupportedExtensions = []string{".txt", ".md", ".pdf", ".docx"}

// IsSupportedDocument reports whether name has an indexable extension.
// Hosts use it as a hint before uploading; the service has the final word.
func IsSupportedDocument(name string) bool {
	return slices.Contains(SupportedExtensions, strings.ToLower(filepath.Ext(name)))
}
