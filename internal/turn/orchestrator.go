// Package turn drives one conversational turn at a time: the user message goes into the
// transcript, the remote exchange runs, and exactly one assistant message (the reply or a
// fixed apology) follows it.
package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/qmuntal/stateless"

	"github.com/comigor/chat-go/internal/api"
	"github.com/comigor/chat-go/internal/logger"
	"github.com/comigor/chat-go/internal/session"
)

// FailureReply is the assistant message appended when an exchange fails.
const FailureReply = "Sorry, I'm having trouble connecting right now. Please try again!"

// FSM states
type state string

const (
	stateIdle          state = "Idle"
	stateAwaitingReply state = "AwaitingReply"
)

// FSM triggers
type trigger string

const (
	triggerSubmit         trigger = "Submit"
	triggerReplyReceived  trigger = "ReplyReceived"
	triggerExchangeFailed trigger = "ExchangeFailed"
)

// Status says what Submit did with the input.
type Status int

const (
	// StatusSkipped means the input was blank; nothing happened.
	StatusSkipped Status = iota
	// StatusBusy means another turn was in flight; the input was dropped.
	StatusBusy
	// StatusReplied means the service answered and its reply was appended.
	StatusReplied
	// StatusFailed means the exchange failed and FailureReply was appended.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusBusy:
		return "busy"
	case StatusReplied:
		return "replied"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result describes a finished Submit. Err is set only for StatusFailed and is kept for
// diagnostics; it has already been handled by appending FailureReply.
type Result struct {
	Status Status
	User   *session.Message
	Reply  *session.Message
	Err    error
}

// Store is the part of the session store the orchestrator writes to.
type Store interface {
	Snapshot() session.State
	AppendMessage(msg session.Message)
	SetTyping(typing bool)
}

// Orchestrator serializes turns against one session.
type Orchestrator struct {
	store Store
	svc   api.Service

	mu      sync.Mutex // guards fsm transitions and lastErr
	fsm     *stateless.StateMachine
	lastErr error
}

// New creates an orchestrator. Typing is raised on entering AwaitingReply and lowered on
// leaving it, so the flag cannot outlive the exchange.
func New(store Store, svc api.Service) *Orchestrator {
	o := &Orchestrator{store: store, svc: svc}

	fsm := stateless.NewStateMachine(stateIdle)
	fsm.Configure(stateIdle).
		Permit(triggerSubmit, stateAwaitingReply)
	fsm.Configure(stateAwaitingReply).
		OnEntry(func(_ context.Context, _ ...any) error {
			o.store.SetTyping(true)
			return nil
		}).
		OnExit(func(_ context.Context, _ ...any) error {
			o.store.SetTyping(false)
			return nil
		}).
		Permit(triggerReplyReceived, stateIdle).
		Permit(triggerExchangeFailed, stateIdle)
	o.fsm = fsm

	return o
}

// Busy reports whether a turn is in flight.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fsm.MustState() != stateIdle
}

// WhenIdle runs fn only if no turn is in flight and reports whether it ran. No turn can
// start while fn runs, so fn may reset the transcript without orphaning a reply.
func (o *Orchestrator) WhenIdle(fn func()) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fsm.MustState() != stateIdle {
		return false
	}
	fn()
	return true
}

// LastError returns the error of the most recent failed exchange, or nil.
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Submit runs one turn for text. It never returns an error: blank input is skipped, input
// arriving while a turn is in flight is dropped, and exchange failures become FailureReply.
func (o *Orchestrator) Submit(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Status: StatusSkipped}
	}

	user, req, ok := o.begin(text)
	if !ok {
		logger.L.Debug("turn dropped; another turn is in flight")
		return Result{Status: StatusBusy}
	}

	resp, err := o.exchange(ctx, req)

	var reply session.Message
	if err != nil {
		logger.L.Error("turn exchange failed", "session", req.SessionID, "error", err)
		reply = session.NewAssistantMessage(FailureReply, time.Time{}, nil)
	} else {
		reply = session.NewAssistantMessage(resp.Response, resp.Timestamp, resp.Sources)
	}
	o.store.AppendMessage(reply)
	o.finish(err)

	if err != nil {
		return Result{Status: StatusFailed, User: &user, Reply: &reply, Err: err}
	}
	return Result{Status: StatusReplied, User: &user, Reply: &reply}
}

// begin claims the FSM and appends the user message. The request is built from the
// state as it was when the turn started.
func (o *Orchestrator) begin(text string) (session.Message, api.TurnRequest, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.fsm.MustState() != stateIdle {
		return session.Message{}, api.TurnRequest{}, false
	}

	user := session.NewUserMessage(text)
	o.store.AppendMessage(user)

	st := o.store.Snapshot()
	if err := o.fsm.Fire(triggerSubmit); err != nil {
		// Idle always permits Submit; reaching this is a programming error.
		panic(fmt.Sprintf("turn: %v", err))
	}
	return user, api.TurnRequest{
		Message:   text,
		SessionID: st.SessionID,
		Model:     st.SelectedModel,
		UseRAG:    st.UseRAG,
		UseMemory: st.UseMemory,
	}, true
}

// exchange calls the service and turns a panic in it into an error so that the turn still
// gets its reply and the FSM returns to Idle.
func (o *Orchestrator) exchange(ctx context.Context, req api.TurnRequest) (resp *api.TurnResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, fmt.Errorf("exchange panicked: %v", r)
		}
	}()
	resp, err = o.svc.SendTurn(ctx, req)
	if err == nil && resp == nil {
		err = errors.New("exchange returned no response")
	}
	return resp, err
}

func (o *Orchestrator) finish(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	t := triggerReplyReceived
	if err != nil {
		t = triggerExchangeFailed
		o.lastErr = err
	}
	if fireErr := o.fsm.Fire(t); fireErr != nil {
		logger.L.Warn("FSM fire error", "error", fireErr)
	}
}
