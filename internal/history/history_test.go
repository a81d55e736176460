package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_SaveLoadAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s := New(path)
	require.NoError(t, s.Save("chat-storage", []byte(`{"v":1}`)))
	require.NoError(t, s.Save("chat-storage", []byte(`{"v":2}`)))
	require.NoError(t, s.Close())

	reopened := New(path)
	defer reopened.Close()
	data, err := reopened.Load("chat-storage")
	require.NoError(t, err)
	require.Equal(t, `{"v":2}`, string(data))
}

func TestStore_LoadMissingKey(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "history.db"))
	defer s.Close()

	data, err := s.Load("nope")
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestStore_Remove(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "history.db"))
	defer s.Close()

	require.NoError(t, s.Save("k", []byte("x")))
	require.NoError(t, s.Remove("k"))

	data, err := s.Load("k")
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestStore_MemoryFallback(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Save("k", []byte("abc")))

	data, err := s.Load("k")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), data)

	// Callers must not be able to mutate the stored copy.
	data[0] = 'z'
	again, err := s.Load("k")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), again)
	require.NoError(t, s.Close())
}

func TestStore_UnopenableDatabaseFallsBackToMemory(t *testing.T) {
	// A directory cannot be opened as a database file.
	s := New(t.TempDir())
	defer s.Close()
	require.NoError(t, s.Save("k", []byte("v")))

	data, err := s.Load("k")
	require.NoError(t, err)
	require.Equal(t, "v", string(data))
}
