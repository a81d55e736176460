package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel("info"); SetOutput(os.Stdout) })

	var buf bytes.Buffer
	SetOutput(&buf)

	SetLevel("warn")
	L.Info("hidden")
	L.Warn("shown", "key", "value")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "shown", line["msg"])
	require.Equal(t, "value", line["key"])

	buf.Reset()
	SetLevel("DEBUG")
	L.Debug("debug line")
	require.Contains(t, buf.String(), "debug line")

	buf.Reset()
	SetLevel("bogus")
	L.Debug("debug line")
	require.Empty(t, buf.String())
}

func TestOpenFile(t *testing.T) {
	t.Cleanup(func() { SetOutput(os.Stdout) })

	path := filepath.Join(t.TempDir(), "chat.log")
	c, err := OpenFile(path)
	require.NoError(t, err)
	L.Info("to file")
	require.NoError(t, c.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "to file")

	c, err = OpenFile("")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = OpenFile(filepath.Join(t.TempDir(), "missing", "chat.log"))
	require.Error(t, err)
}
