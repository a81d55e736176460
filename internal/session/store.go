// Package session owns the chat session aggregate: the ordered transcript, the session
// identifier, transient status flags and user preferences. Every mutation goes through
// Store, which persists the durable subset after each change.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/comigor/chat-go/internal/logger"
)

// DefaultKey is the name the snapshot is stored under when none is configured.
const DefaultKey = "chat-storage"

// Persister is durable key/value storage for the serialized snapshot.
// Load returns nil data when nothing is stored under key.
type Persister interface {
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
}

// Options configures a Store. The zero value gives an in-memory store with the default catalog.
type Options struct {
	Persister Persister
	Key       string
	Catalog   Catalog
}

// Store holds the session State and serializes all access to it.
type Store struct {
	mu        sync.RWMutex
	state     State
	persister Persister
	key       string
	catalog   Catalog

	obsMu     sync.Mutex
	observers map[int]func(State)
	nextObs   int
}

// NewStore builds a Store, restoring the persisted snapshot when one is readable.
// Absent or corrupt snapshots yield a fresh session; this never fails.
func NewStore(opts Options) *Store {
	s := &Store{
		persister: opts.Persister,
		key:       opts.Key,
		catalog:   opts.Catalog,
		observers: make(map[int]func(State)),
	}
	if s.key == "" {
		s.key = DefaultKey
	}
	if len(s.catalog.Models) == 0 {
		s.catalog = DefaultCatalog
	}
	s.state = s.restore()
	return s
}

func (s *Store) fresh() State {
	return State{
		Transcript:    []Message{},
		SessionID:     uuid.NewString(),
		Theme:         ThemeDark,
		SelectedModel: s.catalog.DefaultID(),
		UseRAG:        true,
		UseMemory:     true,
	}
}

func (s *Store) restore() State {
	if s.persister == nil {
		return s.fresh()
	}
	data, err := s.persister.Load(s.key)
	if err != nil {
		logger.L.Warn("failed to read session snapshot; starting fresh", "key", s.key, "error", err)
		return s.fresh()
	}
	if len(data) == 0 {
		logger.L.Debug("no session snapshot; starting fresh", "key", s.key)
		return s.fresh()
	}
	st, err := DecodeSnapshot(data)
	if err != nil {
		logger.L.Warn("corrupt session snapshot; starting fresh", "key", s.key, "error", err)
		return s.fresh()
	}
	if st.SelectedModel == "" {
		st.SelectedModel = s.catalog.DefaultID()
	}
	logger.L.Info("session restored", "session", st.SessionID, "messages", len(st.Transcript))
	return st
}

// Catalog returns the models offered by this store.
func (s *Store) Catalog() Catalog {
	return s.catalog
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Subscribe registers fn to be called with a copy of the state after every mutation.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()
	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

// update applies fn under the write lock. When durable is set the persisted
// subset is written before the lock is released so snapshots land in mutation order.
func (s *Store) update(durable bool, fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.state.clone()
	if durable {
		s.persist(snap)
	}
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Store) persist(st State) {
	if s.persister == nil {
		return
	}
	data, err := EncodeSnapshot(st)
	if err != nil {
		logger.L.Error("failed to encode session snapshot", "error", err)
		return
	}
	if err := s.persister.Save(s.key, data); err != nil {
		logger.L.Warn("failed to persist session snapshot", "key", s.key, "error", err)
	}
}

func (s *Store) notify(st State) {
	s.obsMu.Lock()
	fns := make([]func(State), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

// AppendMessage adds msg to the end of the transcript. Content is not validated here.
func (s *Store) AppendMessage(msg Message) {
	msg = msg.clone()
	s.update(true, func(st *State) {
		st.Transcript = append(st.Transcript, msg)
	})
}

// SetTyping records whether a turn's exchange is in flight.
func (s *Store) SetTyping(typing bool) {
	s.update(false, func(st *State) { st.Typing = typing })
}

// SetConnected records the latest liveness result.
func (s *Store) SetConnected(connected bool) {
	s.update(false, func(st *State) { st.Connected = connected })
}

// SetSelectedModel stores id as is; the remote service decides whether it is valid.
func (s *Store) SetSelectedModel(id string) {
	s.update(true, func(st *State) { st.SelectedModel = id })
}

func (s *Store) SetUseRAG(on bool) {
	s.update(true, func(st *State) { st.UseRAG = on })
}

func (s *Store) SetUseMemory(on bool) {
	s.update(true, func(st *State) { st.UseMemory = on })
}

// ToggleTheme flips between dark and light.
func (s *Store) ToggleTheme() {
	s.update(true, func(st *State) {
		if st.Theme == ThemeLight {
			st.Theme = ThemeDark
		} else {
			st.Theme = ThemeLight
		}
	})
}

// ClearTranscript empties the transcript and leaves every other field alone.
func (s *Store) ClearTranscript() {
	s.update(true, func(st *State) { st.Transcript = []Message{} })
}

// NewSession starts over with a fresh session id and an empty transcript.
// Preferences are kept.
func (s *Store) NewSession() {
	id := uuid.NewString()
	s.update(true, func(st *State) {
		st.SessionID = id
		st.Transcript = []Message{}
	})
}
