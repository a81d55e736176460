package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/chat-go/internal/turn"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		fmt.Fprintf(w, `{"response":"echo: %s","rag_sources":["notes.md"],"timestamp":"2024-05-01T10:00:00"}`, req["message"])
	})
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"healthy","mongodb":"connected","faiss":"ready"}`)
	})
	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message_count":5,"indexed_documents":2}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf("service:\n  base_url: %s\n  timeout: 2s\nstorage:\n  path: %s\n",
		baseURL, filepath.Join(dir, "chat.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_PATH", path)
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, teardown := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	require.NoError(t, teardown())
	return out.String(), err
}

func TestSendAndHistory(t *testing.T) {
	writeConfig(t, newBackend(t).URL)

	out, err := execute(t, "send", "hello", "there")
	require.NoError(t, err)
	require.Contains(t, out, "echo: hello there")
	require.Contains(t, out, "Sources: notes.md")

	out, err = execute(t, "history")
	require.NoError(t, err)
	require.Contains(t, out, "user: hello there")
	require.Contains(t, out, "assistant: echo: hello there")

	out, err = execute(t, "history", "--limit", "1")
	require.NoError(t, err)
	require.NotContains(t, out, "user: hello there")
}

func TestSendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	writeConfig(t, server.URL)

	out, err := execute(t, "send", "hello")
	require.Error(t, err)
	require.Contains(t, out, turn.FailureReply)

	out, err = execute(t, "history")
	require.NoError(t, err)
	require.Contains(t, out, "user: hello")
	require.Contains(t, out, "assistant: "+turn.FailureReply)
}

func TestPrefs(t *testing.T) {
	writeConfig(t, newBackend(t).URL)

	out, err := execute(t, "prefs", "--model", "gpt-4o", "--rag=false", "--theme", "light")
	require.NoError(t, err)
	require.Contains(t, out, "model:  gpt-4o")
	require.Contains(t, out, "rag:    false")
	require.Contains(t, out, "memory: true")
	require.Contains(t, out, "theme:  light")

	out, err = execute(t, "prefs")
	require.NoError(t, err)
	require.Contains(t, out, "model:  gpt-4o")
	require.Contains(t, out, "rag:    false")

	_, err = execute(t, "prefs", "--theme", "sepia")
	require.Error(t, err)

	out, err = execute(t, "models")
	require.NoError(t, err)
	require.Contains(t, out, "* gpt-4o")
	require.Contains(t, out, "longcat")
	require.Contains(t, out, "(default)")
}

func TestClearAndReset(t *testing.T) {
	writeConfig(t, newBackend(t).URL)

	_, err := execute(t, "send", "hello")
	require.NoError(t, err)

	out, err := execute(t, "clear")
	require.NoError(t, err)
	require.Contains(t, out, "Transcript cleared.")

	out, err = execute(t, "history")
	require.NoError(t, err)
	require.Contains(t, out, "The transcript is empty.")

	_, err = execute(t, "prefs", "--memory=false")
	require.NoError(t, err)

	out, err = execute(t, "reset")
	require.NoError(t, err)
	require.Contains(t, out, "Stored session deleted.")

	out, err = execute(t, "prefs")
	require.NoError(t, err)
	require.Contains(t, out, "memory: true")
}

func TestStatus(t *testing.T) {
	writeConfig(t, newBackend(t).URL)

	out, err := execute(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "service: connected (healthy)")
	require.Contains(t, out, "faiss: ready")
	require.Contains(t, out, "stats: 5 stored messages, 2 indexed documents")
}

func TestUploadUnsupported(t *testing.T) {
	writeConfig(t, newBackend(t).URL)

	out, err := execute(t, "upload", "tool.exe")
	require.Error(t, err)
	require.Contains(t, out, "Unsupported file type")
}

func TestConfigFlag(t *testing.T) {
	path := writeConfig(t, newBackend(t).URL)
	t.Setenv("CONFIG_PATH", "")

	out, err := execute(t, "--config", path, "send", "hi")
	require.NoError(t, err)
	require.Contains(t, out, "echo: hi")
}
