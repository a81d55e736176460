// Package app assembles the chat core from configuration: the persisted session store, the
// service backend, the turn orchestrator and the connectivity monitor. Every host (the
// terminal UI, the one-shot commands, the MCP server) goes through it.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/comigor/chat-go/internal/api"
	"github.com/comigor/chat-go/internal/config"
	"github.com/comigor/chat-go/internal/history"
	"github.com/comigor/chat-go/internal/llm"
	"github.com/comigor/chat-go/internal/logger"
	"github.com/comigor/chat-go/internal/monitor"
	"github.com/comigor/chat-go/internal/session"
	"github.com/comigor/chat-go/internal/turn"
)

// ErrUnsupportedDocument is returned by Upload for files outside api.SupportedExtensions.
var ErrUnsupportedDocument = errors.New("unsupported document type")

// ErrTurnInFlight is returned when the transcript would be reset while a reply is pending.
var ErrTurnInFlight = errors.New("a message is still waiting for a reply")

// App is one running chat session with its collaborators.
type App struct {
	Config  *config.Config
	Store   *session.Store
	Service api.Service
	Turns   *turn.Orchestrator
	Monitor *monitor.Monitor

	history *history.Store
}

// New builds an App from cfg: snapshots go to the SQLite file at storage.path and turns go
// to the backend named by service.backend.
func New(cfg *config.Config) (*App, error) {
	var svc api.Service
	switch cfg.Service.Backend {
	case config.BackendHTTP, "":
		svc = api.NewClient(cfg.Service.BaseURL, cfg.Service.Timeout)
	case config.BackendOpenAI:
		svc = llm.NewBackend(llm.NewClient(cfg.LLM), cfg.LLM)
	default:
		return nil, fmt.Errorf("unsupported service backend: %s", cfg.Service.Backend)
	}

	hist := history.New(cfg.Storage.Path)
	a := Assemble(cfg, svc, hist)
	a.history = hist
	return a, nil
}

// Assemble wires an App around an existing service and persister.
func Assemble(cfg *config.Config, svc api.Service, persister session.Persister) *App {
	store := session.NewStore(session.Options{
		Persister: persister,
		Key:       cfg.Storage.Key,
		Catalog:   Catalog(cfg),
	})
	logger.L.Info("session ready", "session", store.Snapshot().SessionID, "backend", cfg.Service.Backend)

	return &App{
		Config:  cfg,
		Store:   store,
		Service: svc,
		Turns:   turn.New(store, svc),
		Monitor: monitor.New(svc, store, cfg.Service.HealthInterval, cfg.Service.HealthTimeout),
	}
}

// Purge deletes the persisted snapshot named by cfg, so the next App starts fresh.
func Purge(cfg *config.Config) error {
	key := cfg.Storage.Key
	if key == "" {
		key = session.DefaultKey
	}
	hist := history.New(cfg.Storage.Path)
	defer hist.Close()
	return hist.Remove(key)
}

// Catalog builds the model catalog from cfg, falling back to session.DefaultCatalog when
// no models are configured.
func Catalog(cfg *config.Config) session.Catalog {
	if len(cfg.Models) == 0 {
		c := session.DefaultCatalog
		if cfg.DefaultModel != "" {
			c.Default = cfg.DefaultModel
		}
		return c
	}

	c := session.Catalog{Default: cfg.DefaultModel}
	for _, m := range cfg.Models {
		if m.ID == "" {
			continue
		}
		name := m.Name
		if name == "" {
			name = m.ID
		}
		c.Models = append(c.Models, session.Model{ID: m.ID, Name: name})
	}
	return c
}

// Send runs one turn.
func (a *App) Send(ctx context.Context, text string) turn.Result {
	return a.Turns.Submit(ctx, text)
}

// Snapshot returns the current session state.
func (a *App) Snapshot() session.State {
	return a.Store.Snapshot()
}

// ClearTranscript empties the transcript and keeps the session. It is refused while a
// turn is in flight.
func (a *App) ClearTranscript() error {
	if !a.Turns.WhenIdle(a.Store.ClearTranscript) {
		return ErrTurnInFlight
	}
	return nil
}

type forgetter interface {
	Forget(sessionID string)
}

// NewSession starts over with a fresh session id. Backends that keep per-session memory
// drop the old session's. It is refused while a turn is in flight.
func (a *App) NewSession() error {
	ok := a.Turns.WhenIdle(func() {
		old := a.Store.Snapshot().SessionID
		if f, ok := a.Service.(forgetter); ok {
			f.Forget(old)
		}
		a.Store.NewSession()
	})
	if !ok {
		return ErrTurnInFlight
	}
	return nil
}

// Upload sends the file at path for indexing. Files without a supported extension are
// refused before any request is made.
func (a *App) Upload(ctx context.Context, path string) (*api.UploadResult, error) {
	name := filepath.Base(path)
	if !api.IsSupportedDocument(name) {
		return nil, fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedDocument, name, strings.Join(api.SupportedExtensions, ", "))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	res, err := a.Service.UploadDocument(ctx, api.Document{Name: name, Content: f})
	if err != nil {
		logger.L.Error("upload failed", "file", name, "error", err)
		return nil, err
	}
	logger.L.Info("document uploaded", "file", res.Filename, "status", res.Status)
	return res, nil
}

// UploadStatus is the one-line message shown after an upload attempt.
func UploadStatus(res *api.UploadResult, err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedDocument):
		return "Unsupported file type. Supported: " + strings.Join(api.SupportedExtensions, ", ")
	case err != nil || res == nil:
		return "Failed to upload file. Please try again."
	default:
		return res.Filename + " uploaded and indexed successfully!"
	}
}

// Overview is a point-in-time status report.
type Overview struct {
	Connected bool
	Health    *api.Health
	HealthErr error
	Stats     *api.Stats
	StatsErr  error
	CheckedAt time.Time
}

// Overview fetches health and stats concurrently. Failures are reported per field. A
// failed health call means the service is unreachable, so it cancels the stats call.
// The result goes through the monitor, which owns the connected flag.
func (a *App) Overview(ctx context.Context) Overview {
	ov := Overview{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ov.Health, ov.HealthErr = a.Service.CheckHealth(gctx)
		return ov.HealthErr
	})
	g.Go(func() error {
		ov.Stats, ov.StatsErr = a.Service.GetStats(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.L.Debug("service unreachable; overview incomplete", "error", err)
	}

	ov.Connected = a.Monitor.Record(ov.Health, ov.HealthErr)
	ov.CheckedAt = time.Now()
	return ov
}

// Close stops the monitor and releases the snapshot database.
func (a *App) Close() error {
	a.Monitor.Stop()
	if a.history != nil {
		return a.history.Close()
	}
	return nil
}
