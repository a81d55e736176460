package turn

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comigor/chat-go/internal/api"
	"github.com/comigor/chat-go/internal/session"
)

// mockService mirrors api.Service.
type mockService struct {
	SendTurnFunc func(ctx context.Context, req api.TurnRequest) (*api.TurnResponse, error)

	mu       sync.Mutex
	requests []api.TurnRequest
}

func (m *mockService) SendTurn(ctx context.Context, req api.TurnRequest) (*api.TurnResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.SendTurnFunc != nil {
		return m.SendTurnFunc(ctx, req)
	}
	return &api.TurnResponse{Response: "ok"}, nil
}

func (m *mockService) CheckHealth(context.Context) (*api.Health, error) {
	return &api.Health{Status: "healthy"}, nil
}

func (m *mockService) GetStats(context.Context) (*api.Stats, error) {
	return nil, api.ErrUnsupported
}

func (m *mockService) UploadDocument(context.Context, api.Document) (*api.UploadResult, error) {
	return nil, api.ErrUnsupported
}

// spyStore records typing transitions on top of a real session store.
type spyStore struct {
	*session.Store

	mu     sync.Mutex
	typing []bool
}

func (s *spyStore) SetTyping(typing bool) {
	s.mu.Lock()
	s.typing = append(s.typing, typing)
	s.mu.Unlock()
	s.Store.SetTyping(typing)
}

func newSpyStore() *spyStore {
	return &spyStore{Store: session.NewStore(session.Options{})}
}

func TestSubmit_Success(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	store := newSpyStore()
	svc := &mockService{SendTurnFunc: func(ctx context.Context, req api.TurnRequest) (*api.TurnResponse, error) {
		require.True(t, store.Snapshot().Typing, "typing must be raised during the exchange")
		return &api.TurnResponse{Response: "hi there", Sources: []string{}, Timestamp: ts}, nil
	}}
	o := New(store, svc)

	require.False(t, store.Snapshot().Typing)
	res := o.Submit(context.Background(), "hello")

	require.Equal(t, StatusReplied, res.Status)
	require.NoError(t, res.Err)

	st := store.Snapshot()
	require.False(t, st.Typing)
	require.Len(t, st.Transcript, 2)
	require.Equal(t, session.SenderUser, st.Transcript[0].Sender)
	require.Equal(t, "hello", st.Transcript[0].Content)
	require.Equal(t, session.SenderAssistant, st.Transcript[1].Sender)
	require.Equal(t, "hi there", st.Transcript[1].Content)
	require.Nil(t, st.Transcript[1].Sources)
	require.True(t, st.Transcript[1].Timestamp.Equal(ts))
	require.Equal(t, []bool{true, false}, store.typing)
	require.Equal(t, res.Reply.ID, st.Transcript[1].ID)
}

func TestSubmit_ForwardsPreferences(t *testing.T) {
	store := newSpyStore()
	store.SetSelectedModel("custom-model")
	store.SetUseRAG(false)
	svc := &mockService{}
	o := New(store, svc)

	o.Submit(context.Background(), "  spaced  ")

	require.Len(t, svc.requests, 1)
	req := svc.requests[0]
	require.Equal(t, "  spaced  ", req.Message)
	require.Equal(t, store.Snapshot().SessionID, req.SessionID)
	require.Equal(t, "custom-model", req.Model)
	require.False(t, req.UseRAG)
	require.True(t, req.UseMemory)
}

func TestSubmit_KeepsSources(t *testing.T) {
	store := newSpyStore()
	svc := &mockService{SendTurnFunc: func(context.Context, api.TurnRequest) (*api.TurnResponse, error) {
		return &api.TurnResponse{Response: "cited", Sources: []string{"a.md", "b.pdf"}}, nil
	}}

	before := time.Now()
	New(store, svc).Submit(context.Background(), "q")

	reply := store.Snapshot().Transcript[1]
	require.Equal(t, []string{"a.md", "b.pdf"}, reply.Sources)
	require.False(t, reply.Timestamp.Before(before), "missing server timestamp falls back to client time")
}

func TestSubmit_TransportError(t *testing.T) {
	store := newSpyStore()
	boom := errors.New("connection refused")
	svc := &mockService{SendTurnFunc: func(context.Context, api.TurnRequest) (*api.TurnResponse, error) {
		return nil, boom
	}}
	o := New(store, svc)

	res := o.Submit(context.Background(), "hello")

	require.Equal(t, StatusFailed, res.Status)
	require.ErrorIs(t, res.Err, boom)
	require.ErrorIs(t, o.LastError(), boom)

	st := store.Snapshot()
	require.False(t, st.Typing)
	require.Len(t, st.Transcript, 2)
	require.Equal(t, "hello", st.Transcript[0].Content)
	require.Equal(t, session.SenderAssistant, st.Transcript[1].Sender)
	require.Equal(t, FailureReply, st.Transcript[1].Content)
	require.Nil(t, st.Transcript[1].Sources)
	require.Equal(t, []bool{true, false}, store.typing)
}

func TestSubmit_PanickingServiceStillPairsReply(t *testing.T) {
	store := newSpyStore()
	svc := &mockService{SendTurnFunc: func(context.Context, api.TurnRequest) (*api.TurnResponse, error) {
		panic("boom")
	}}
	o := New(store, svc)

	res := o.Submit(context.Background(), "hello")

	require.Equal(t, StatusFailed, res.Status)
	require.False(t, store.Snapshot().Typing)
	require.Len(t, store.Snapshot().Transcript, 2)
	require.False(t, o.Busy())
}

func TestSubmit_NilResponseIsFailure(t *testing.T) {
	store := newSpyStore()
	svc := &mockService{SendTurnFunc: func(context.Context, api.TurnRequest) (*api.TurnResponse, error) {
		return nil, nil
	}}

	res := New(store, svc).Submit(context.Background(), "hello")

	require.Equal(t, StatusFailed, res.Status)
	require.Equal(t, FailureReply, store.Snapshot().Transcript[1].Content)
}

func TestSubmit_BlankInputIsNoop(t *testing.T) {
	store := newSpyStore()
	svc := &mockService{}
	o := New(store, svc)

	for _, in := range []string{"", "   ", "\n\t "} {
		res := o.Submit(context.Background(), in)
		require.Equal(t, StatusSkipped, res.Status)
	}

	require.Empty(t, store.Snapshot().Transcript)
	require.Empty(t, svc.requests)
	require.Empty(t, store.typing)
}

func TestSubmit_DropsWhileInFlight(t *testing.T) {
	store := newSpyStore()
	entered := make(chan struct{})
	release := make(chan struct{})
	svc := &mockService{SendTurnFunc: func(context.Context, api.TurnRequest) (*api.TurnResponse, error) {
		close(entered)
		<-release
		return &api.TurnResponse{Response: "first reply"}, nil
	}}
	o := New(store, svc)

	done := make(chan Result)
	go func() { done <- o.Submit(context.Background(), "first") }()
	<-entered

	require.True(t, o.Busy())
	busy := o.Submit(context.Background(), "second")
	require.Equal(t, StatusBusy, busy.Status)

	close(release)
	first := <-done
	require.Equal(t, StatusReplied, first.Status)

	st := store.Snapshot()
	require.Len(t, st.Transcript, 2)
	require.Equal(t, "first", st.Transcript[0].Content)
	require.Equal(t, "first reply", st.Transcript[1].Content)
	require.False(t, st.Typing)
	require.False(t, o.Busy())
	require.Len(t, svc.requests, 1)
}

func TestSubmit_SequentialTurnsDoNotInterleave(t *testing.T) {
	store := newSpyStore()
	svc := &mockService{SendTurnFunc: func(_ context.Context, req api.TurnRequest) (*api.TurnResponse, error) {
		if req.Message == "two" {
			return nil, errors.New("flaky")
		}
		return &api.TurnResponse{Response: "re: " + req.Message}, nil
	}}
	o := New(store, svc)

	for _, in := range []string{"one", "two", "three"} {
		o.Submit(context.Background(), in)
	}

	var got []string
	for _, m := range store.Snapshot().Transcript {
		got = append(got, string(m.Sender)+":"+m.Content)
	}
	require.Equal(t, []string{
		"user:one", "assistant:re: one",
		"user:two", "assistant:" + FailureReply,
		"user:three", "assistant:re: three",
	}, got)
	require.Equal(t, []bool{true, false, true, false, true, false}, store.typing)
}

func TestStatusString(t *testing.T) {
	require.Equal(t, "replied", StatusReplied.String())
	require.Equal(t, "Status(9)", Status(9).String())
}

func TestWhenIdle(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	store := newSpyStore()
	o := New(store, &mockService{SendTurnFunc: func(context.Context, api.TurnRequest) (*api.TurnResponse, error) {
		close(started)
		<-release
		return &api.TurnResponse{Response: "ok"}, nil
	}})

	done := make(chan Result, 1)
	go func() { done <- o.Submit(context.Background(), "hello") }()
	<-started

	ran := false
	require.False(t, o.WhenIdle(func() { ran = true }))
	require.False(t, ran)

	close(release)
	<-done
	require.True(t, o.WhenIdle(func() { ran = true }))
	require.True(t, ran)
}
