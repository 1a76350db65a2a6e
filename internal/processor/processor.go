// ABOUTME: Per-message orchestration: session check, routing, flow/AI handling, action dispatch, replies.
// ABOUTME: Every failure is contained at the message boundary; one bad message never sinks a batch.

package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/relaykit/relay-gateway/internal/action"
	"github.com/relaykit/relay-gateway/internal/command"
	"github.com/relaykit/relay-gateway/internal/flow"
	"github.com/relaykit/relay-gateway/internal/llm"
	"github.com/relaykit/relay-gateway/internal/platform"
	"github.com/relaykit/relay-gateway/internal/session"
	"github.com/relaykit/relay-gateway/internal/store"
)

// Canned replies for the session error taxonomy. Specific and actionable:
// the user always learns what happened and what to do next.
const (
	replyExpired        = "Your session timed out, so I've discarded the draft. Send the command again to start over."
	replyFlowError      = "Something went wrong with that conversation, so I've reset it. Please start over."
	replyApology        = "Sorry, something went wrong on my end. Please try again."
	replyUnknownCommand = "I don't recognize the command /%s. Send /help to see what I can do."
)

// Responder produces the AI answer for free-text messages.
type Responder interface {
	Complete(ctx context.Context, userText string) (llm.Completion, error)
}

// Dispatcher executes named actions.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, params map[string]string, actx action.Context) action.Result
}

// Processor applies inbound platform events to conversation state and
// produces outbound replies.
type Processor struct {
	sessions  *session.Store
	flows     *flow.Engine
	router    *command.Router
	responder Responder
	actions   Dispatcher
	sender    platform.Sender
	records   store.Store
	logger    *slog.Logger
}

// New creates a processor over the given collaborators.
func New(
	sessions *session.Store,
	flows *flow.Engine,
	router *command.Router,
	responder Responder,
	actions Dispatcher,
	sender platform.Sender,
	records store.Store,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if records == nil {
		records = store.NewNopStore()
	}
	return &Processor{
		sessions:  sessions,
		flows:     flows,
		router:    router,
		responder: responder,
		actions:   actions,
		sender:    sender,
		records:   records,
		logger:    logger.With("component", "processor"),
	}
}

// ProcessBatch applies each event independently. A panic or error in one
// event is contained there; the remaining events still process. Each
// failure triggers a best-effort apology to the affected user.
func (p *Processor) ProcessBatch(ctx context.Context, events []platform.Event) {
	for i := range events {
		p.processSafely(ctx, events[i])
	}
}

// processSafely wraps one event in panic recovery and the apology fallback.
func (p *Processor) processSafely(ctx context.Context, ev platform.Event) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic processing message", "user", ev.From, "message_id", ev.MessageID, "panic", r)
			p.apologize(ctx, ev.From)
		}
	}()

	if err := p.processOne(ctx, ev); err != nil {
		p.logger.Error("failed to process message", "user", ev.From, "message_id", ev.MessageID, "error", err)
		p.apologize(ctx, ev.From)
	}
}

// processOne handles a single inbound event end to end: session lookup,
// routing, flow or AI handling, action dispatch, and the reply sends.
func (p *Processor) processOne(ctx context.Context, ev platform.Event) error {
	if ev.Type != platform.EventTypeText {
		p.logger.Debug("ignoring non-text event", "type", ev.Type, "user", ev.From)
		return nil
	}

	// Messages from one user apply strictly in arrival order
	unlock := p.sessions.LockUser(ev.From)
	defer unlock()

	p.recordMessage(ctx, ev.From, store.DirectionInbound, ev.Text)

	st, err := p.sessions.Get(ev.From)
	if err == session.ErrExpired {
		// The expired session consumed this message; the user restarts fresh
		return p.reply(ctx, ev.From, replyExpired)
	}

	decision := p.router.Classify(st != nil, ev.Text)

	switch decision.Kind {
	case command.KindSession:
		return p.advanceFlow(ctx, ev.From, st, ev.Text)

	case command.KindStartFlow:
		fresh, prompt := decision.Flow.Begin()
		p.sessions.Put(ev.From, fresh)
		return p.reply(ctx, ev.From, prompt)

	case command.KindHelp:
		return p.reply(ctx, ev.From, p.router.HelpText())

	case command.KindUnknownCommand:
		return p.reply(ctx, ev.From, fmt.Sprintf(replyUnknownCommand, decision.Token))

	default:
		return p.answerFreeText(ctx, ev.From, ev.Text)
	}
}

// advanceFlow applies one message to the user's active flow. Corrupted
// state deletes the session and reports a reset; a confirmed terminal
// dispatches the flow's action and sends the result as a follow-up.
func (p *Processor) advanceFlow(ctx context.Context, userID string, st *session.State, text string) error {
	outcome, err := p.flows.Advance(st, text)
	if err != nil {
		p.logger.Warn("deleting corrupted session", "user", userID, "error", err)
		p.sessions.Delete(userID)
		return p.reply(ctx, userID, replyFlowError)
	}

	if outcome.Done {
		p.sessions.Delete(userID)
	} else {
		p.sessions.Put(userID, st)
	}

	if err := p.reply(ctx, userID, outcome.Reply); err != nil {
		return err
	}

	if outcome.Done && outcome.Action != "" {
		res := p.dispatchAction(ctx, userID, outcome.Action, outcome.Params)
		if res.Message != "" {
			return p.reply(ctx, userID, res.Message)
		}
	}
	return nil
}

// answerFreeText routes a non-command message through the AI responder
// and dispatches any action the model suggested.
func (p *Processor) answerFreeText(ctx context.Context, userID, text string) error {
	completion, err := p.responder.Complete(ctx, text)
	if err != nil {
		return fmt.Errorf("ai responder: %w", err)
	}

	if err := p.reply(ctx, userID, completion.Reply); err != nil {
		return err
	}

	if completion.Action != "" && completion.Action != action.None {
		res := p.dispatchAction(ctx, userID, completion.Action, completion.Params)
		if res.Message != "" {
			return p.reply(ctx, userID, res.Message)
		}
	}
	return nil
}

// dispatchAction records then executes one action.
func (p *Processor) dispatchAction(ctx context.Context, userID, name string, params map[string]string) action.Result {
	res := p.actions.Dispatch(ctx, name, params, action.Context{UserID: userID})

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		paramsJSON = []byte("{}")
	}
	if err := p.records.SaveAction(ctx, &store.ActionRecord{
		ID:         uuid.NewString(),
		UserID:     userID,
		Name:       name,
		ParamsJSON: string(paramsJSON),
		Success:    res.Success,
		Message:    res.Message,
		CreatedAt:  time.Now(),
	}); err != nil {
		p.logger.Warn("failed to record action", "action", name, "error", err)
	}

	return res
}

// reply sends one outbound message and records it in the transcript.
func (p *Processor) reply(ctx context.Context, userID, text string) error {
	if err := p.sender.Send(ctx, userID, text); err != nil {
		return fmt.Errorf("sending reply: %w", err)
	}
	p.recordMessage(ctx, userID, store.DirectionOutbound, text)
	return nil
}

// apologize makes a best-effort attempt to tell the user something went
// wrong. Its own failure is logged, not retried.
func (p *Processor) apologize(ctx context.Context, userID string) {
	if err := p.sender.Send(ctx, userID, replyApology); err != nil {
		p.logger.Error("failed to send apology", "user", userID, "error", err)
	}
}

// recordMessage appends a transcript row; failures are logged only.
func (p *Processor) recordMessage(ctx context.Context, userID, direction, content string) {
	if err := p.records.SaveMessage(ctx, &store.Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Direction: direction,
		Content:   content,
		CreatedAt: time.Now(),
	}); err != nil {
		p.logger.Warn("failed to record message", "direction", direction, "error", err)
	}
}
