// ABOUTME: Tests for the inbound message processor using fake collaborators.
// ABOUTME: Covers routing precedence, expiry, batch isolation, apologies, and action follow-ups.

package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaykit/relay-gateway/internal/action"
	"github.com/relaykit/relay-gateway/internal/command"
	"github.com/relaykit/relay-gateway/internal/flow"
	"github.com/relaykit/relay-gateway/internal/llm"
	"github.com/relaykit/relay-gateway/internal/platform"
	"github.com/relaykit/relay-gateway/internal/session"
	"github.com/relaykit/relay-gateway/internal/store"
)

type sentMessage struct {
	To   string
	Text string
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []sentMessage
	failOn func(to, text string) error
}

func (f *fakeSender) Send(_ context.Context, to, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != nil {
		if err := f.failOn(to, text); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, sentMessage{To: to, Text: text})
	return nil
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type fakeResponder struct {
	completion llm.Completion
	err        error
	panicWith  any
}

func (f *fakeResponder) Complete(context.Context, string) (llm.Completion, error) {
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.completion, f.err
}

type fakeDispatcher struct {
	mu       sync.Mutex
	calls    []string
	result   action.Result
	lastArgs map[string]string
}

func (f *fakeDispatcher) Dispatch(_ context.Context, name string, params map[string]string, _ action.Context) action.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	f.lastArgs = params
	return f.result
}

type fixture struct {
	proc      *Processor
	sessions  *session.Store
	sender    *fakeSender
	responder *fakeResponder
	actions   *fakeDispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	sessions := session.NewStore(10 * time.Minute)
	flows := flow.NewEngine(flow.EmailCompose())
	router := command.NewRouter(flows)
	sender := &fakeSender{}
	responder := &fakeResponder{
		completion: llm.Completion{Reply: "hi there", Action: "none", Params: map[string]string{}},
	}
	actions := &fakeDispatcher{result: action.Result{Success: true}}

	proc := New(sessions, flows, router, responder, actions, sender, store.NewNopStore(), nil)
	return &fixture{proc: proc, sessions: sessions, sender: sender, responder: responder, actions: actions}
}

func textEvent(from, text string) platform.Event {
	return platform.Event{Type: platform.EventTypeText, From: from, Text: text, MessageID: from + "-" + text}
}

func TestProcess_FreeTextGoesToResponder(t *testing.T) {
	f := newFixture(t)

	f.proc.ProcessBatch(context.Background(), []platform.Event{textEvent("user-1", "hello")})

	msgs := f.sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi there", msgs[0].Text)
	assert.Empty(t, f.actions.calls, "action 'none' never reaches the dispatcher")
}

func TestProcess_NonTextEventIgnored(t *testing.T) {
	f := newFixture(t)

	f.proc.ProcessBatch(context.Background(), []platform.Event{
		{Type: "sticker", From: "user-1", MessageID: "m1"},
	})

	assert.Empty(t, f.sender.messages())
}

func TestProcess_EmailFlowEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.actions.result = action.Result{Success: true, Message: "Email to a@b.com sent."}
	ctx := context.Background()

	steps := []string{"/email", "a@b.com", "Lunch", "Want to grab lunch?", "send"}
	for _, text := range steps {
		f.proc.ProcessBatch(ctx, []platform.Event{textEvent("user-1", text)})
	}

	msgs := f.sender.messages()
	require.Len(t, msgs, 6, "five prompts/acks plus the action follow-up")
	assert.Contains(t, msgs[3].Text, "Here's your draft")
	assert.Equal(t, "Okay, sending it now.", msgs[4].Text)
	assert.Equal(t, "Email to a@b.com sent.", msgs[5].Text)

	require.Equal(t, []string{"email.send"}, f.actions.calls)
	assert.Equal(t, "a@b.com", f.actions.lastArgs["to"])
	assert.Equal(t, "Lunch", f.actions.lastArgs["subject"])
	assert.Equal(t, 0, f.sessions.Len(), "completed flow removes the session")
}

func TestProcess_ActiveSessionSwallowsCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.proc.ProcessBatch(ctx, []platform.Event{textEvent("user-1", "/email")})
	// The repeated command is consumed as the recipient field, not a restart
	f.proc.ProcessBatch(ctx, []platform.Event{textEvent("user-1", "/email")})

	st, err := f.sessions.Get("user-1")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, "/email", st.Data["to"])
}

func TestProcess_CancelDiscardsWithoutAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, text := range []string{"/email", "a@b.com", "Hi", "body", "cancel"} {
		f.proc.ProcessBatch(ctx, []platform.Event{textEvent("user-1", text)})
	}

	msgs := f.sender.messages()
	assert.Equal(t, "Cancelled. Nothing was sent.", msgs[len(msgs)-1].Text)
	assert.Empty(t, f.actions.calls)
	assert.Equal(t, 0, f.sessions.Len())
}

func TestProcess_ExpiredSessionConsumesMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.proc.ProcessBatch(ctx, []platform.Event{textEvent("user-1", "/email")})

	// Force the session past the window, then send what would have been the recipient
	st, err := f.sessions.Get("user-1")
	require.NoError(t, err)
	st.LastActivity = time.Now().Add(-11 * time.Minute)

	f.proc.ProcessBatch(ctx, []platform.Event{textEvent("user-1", "a@b.com")})

	msgs := f.sender.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Text, "timed out")
	assert.Equal(t, 0, f.sessions.Len(), "expired session is deleted")

	// The next message starts fresh as free text, not a flow step
	f.proc.ProcessBatch(ctx, []platform.Event{textEvent("user-1", "hello again")})
	msgs = f.sender.messages()
	assert.Equal(t, "hi there", msgs[2].Text)
}

func TestProcess_UnknownCommand(t *testing.T) {
	f := newFixture(t)

	f.proc.ProcessBatch(context.Background(), []platform.Event{textEvent("user-1", "/teleport home")})

	msgs := f.sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "/teleport")
	assert.Equal(t, 0, f.sessions.Len(), "unknown commands create no state")
}

func TestProcess_Help(t *testing.T) {
	f := newFixture(t)

	f.proc.ProcessBatch(context.Background(), []platform.Event{textEvent("user-1", "/help")})

	msgs := f.sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "/email")
	assert.Contains(t, msgs[0].Text, "/help")
}

func TestProcess_ResponderErrorTriggersApology(t *testing.T) {
	f := newFixture(t)
	f.responder.err = errors.New("upstream down")

	f.proc.ProcessBatch(context.Background(), []platform.Event{textEvent("user-1", "hello")})

	msgs := f.sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, replyApology, msgs[0].Text)
}

func TestProcess_PanicIsContained(t *testing.T) {
	f := newFixture(t)
	f.responder.panicWith = "boom"

	assert.NotPanics(t, func() {
		f.proc.ProcessBatch(context.Background(), []platform.Event{textEvent("user-1", "hello")})
	})

	msgs := f.sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, replyApology, msgs[0].Text)
}

func TestProcess_BatchIsolation(t *testing.T) {
	f := newFixture(t)
	// user-2's reply send always fails; user-1 and user-3 must be unaffected
	f.sender.failOn = func(to, _ string) error {
		if to == "user-2" {
			return errors.New("unreachable")
		}
		return nil
	}

	f.proc.ProcessBatch(context.Background(), []platform.Event{
		textEvent("user-1", "hello"),
		textEvent("user-2", "hello"),
		textEvent("user-3", "hello"),
	})

	var got []string
	for _, m := range f.sender.messages() {
		got = append(got, m.To)
	}
	assert.Equal(t, []string{"user-1", "user-3"}, got)
}

func TestProcess_ApologySendFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.responder.err = errors.New("upstream down")
	f.sender.failOn = func(string, string) error { return errors.New("also down") }

	assert.NotPanics(t, func() {
		f.proc.ProcessBatch(context.Background(), []platform.Event{textEvent("user-1", "hello")})
	})
	assert.Empty(t, f.sender.messages())
}

func TestProcess_AISuggestedActionFollowUp(t *testing.T) {
	f := newFixture(t)
	f.responder.completion = llm.Completion{
		Reply:  "Checking the weather for you.",
		Action: "weather.get",
		Params: map[string]string{"city": "Oslo"},
	}
	f.actions.result = action.Result{Success: true, Message: "The weather.get action is not yet implemented."}

	f.proc.ProcessBatch(context.Background(), []platform.Event{textEvent("user-1", "what's the weather in Oslo?")})

	msgs := f.sender.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Checking the weather for you.", msgs[0].Text)
	assert.Contains(t, msgs[1].Text, "not yet implemented")
	assert.Equal(t, []string{"weather.get"}, f.actions.calls)
	assert.Equal(t, "Oslo", f.actions.lastArgs["city"])
}

func TestProcess_CorruptSessionIsReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.sessions.Put("user-1", &session.State{Flow: "no-such-flow", Step: "wat", Data: map[string]string{}})

	f.proc.ProcessBatch(ctx, []platform.Event{textEvent("user-1", "hello")})

	msgs := f.sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, replyFlowError, msgs[0].Text)
	assert.Equal(t, 0, f.sessions.Len())
}

func TestProcess_TranscriptRecorded(t *testing.T) {
	recs, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer recs.Close()

	sessions := session.NewStore(10 * time.Minute)
	flows := flow.NewEngine(flow.EmailCompose())
	router := command.NewRouter(flows)
	sender := &fakeSender{}
	responder := &fakeResponder{completion: llm.Completion{Reply: "hi", Action: "none"}}
	actions := &fakeDispatcher{result: action.Result{Success: true}}
	proc := New(sessions, flows, router, responder, actions, sender, recs, nil)

	proc.ProcessBatch(context.Background(), []platform.Event{textEvent("user-1", "hello")})

	msgs, err := recs.RecentMessages(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	var directions []string
	for _, m := range msgs {
		directions = append(directions, m.Direction)
	}
	assert.ElementsMatch(t, []string{store.DirectionInbound, store.DirectionOutbound}, directions)
}

func TestProcess_PerUserOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.proc.ProcessBatch(ctx, []platform.Event{textEvent("user-1", "/email")})

	// Concurrent deliveries of the three data steps for the same user must
	// serialize: each input lands in exactly one field, none are lost or
	// duplicated, regardless of arrival order.
	var wg sync.WaitGroup
	inputs := []string{"a@b.com", "subject line", "body text"}
	for _, in := range inputs {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			f.proc.ProcessBatch(ctx, []platform.Event{textEvent("user-1", text)})
		}(in)
	}
	wg.Wait()

	st, err := f.sessions.Get("user-1")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, flow.StepConfirmation, st.Step)

	seen := map[string]bool{}
	for _, v := range st.Data {
		assert.Contains(t, inputs, v)
		assert.False(t, seen[v], fmt.Sprintf("value %q landed in two fields", v))
		seen[v] = true
	}
	assert.Len(t, st.Data, 3)

	f.proc.ProcessBatch(ctx, []platform.Event{textEvent("user-1", "send")})
	assert.Equal(t, []string{"email.send"}, f.actions.calls)
	assert.Equal(t, 0, f.sessions.Len())
}
