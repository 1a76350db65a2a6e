// ABOUTME: Engine advances per-user conversation state through a flow's step table.
// ABOUTME: Owns the confirmation terminal (send/cancel/repeat) and corrupted-state recovery.

package flow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/relaykit/relay-gateway/internal/session"
)

// ErrCorruptState means a session carries a flow or step name the engine
// does not know. The session is unrecoverable; callers delete it and reply
// with a generic flow error.
var ErrCorruptState = errors.New("corrupted flow state")

// Outcome is the result of applying one inbound message to a flow.
type Outcome struct {
	// Reply is the message to send back to the user
	Reply string

	// Done reports a terminal transition; the caller deletes the session
	Done bool

	// Action is the action to dispatch, set only on a confirmed terminal
	Action string

	// Params carries the collected flow data for the dispatched action
	Params map[string]string
}

// Engine drives flows by name. Flows are registered once at startup;
// the engine itself is stateless, all conversation state lives in the
// session store.
type Engine struct {
	byName    map[string]*Flow
	byCommand map[string]*Flow
	order     []*Flow
}

// NewEngine creates an engine with the given flows registered.
func NewEngine(flows ...*Flow) *Engine {
	e := &Engine{
		byName:    make(map[string]*Flow),
		byCommand: make(map[string]*Flow),
	}
	for _, f := range flows {
		e.byName[f.Name] = f
		e.byCommand[f.Command] = f
		e.order = append(e.order, f)
	}
	return e
}

// ByCommand resolves a slash-command token to its flow.
func (e *Engine) ByCommand(cmd string) (*Flow, bool) {
	f, ok := e.byCommand[cmd]
	return f, ok
}

// Flows returns the registered flows in registration order.
func (e *Engine) Flows() []*Flow {
	return e.order
}

// Begin creates fresh session state at the flow's first step and returns
// it together with the first prompt.
func (f *Flow) Begin() (*session.State, string) {
	st := &session.State{
		Flow: f.Name,
		Step: f.Steps[0].Name,
		Data: make(map[string]string),
	}
	return st, f.Steps[0].Prompt
}

// Advance applies one inbound message to the given session state and
// returns the resulting outcome. The state is mutated in place; the caller
// persists it (refreshing activity) unless the outcome is terminal, in
// which case the caller deletes it. Expiry is the caller's concern and has
// already been checked before Advance runs.
func (e *Engine) Advance(st *session.State, input string) (Outcome, error) {
	f, ok := e.byName[st.Flow]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: unknown flow %q", ErrCorruptState, st.Flow)
	}

	if st.Step == StepConfirmation {
		return f.confirm(st, input), nil
	}

	idx := f.step(st.Step)
	if idx < 0 {
		return Outcome{}, fmt.Errorf("%w: flow %q has no step %q", ErrCorruptState, st.Flow, st.Step)
	}

	if st.Data == nil {
		st.Data = make(map[string]string)
	}
	st.Data[f.Steps[idx].FieldKey] = strings.TrimSpace(input)

	// Last data step filled: enter confirmation and echo the draft
	if idx == len(f.Steps)-1 {
		st.Step = StepConfirmation
		reply := fmt.Sprintf("Here's your draft:\n\n%s\n\nReply \"send\" to send it, or \"cancel\" to discard it.", f.Draft(st.Data))
		return Outcome{Reply: reply}, nil
	}

	st.Step = f.Steps[idx+1].Name
	return Outcome{Reply: f.Steps[idx+1].Prompt}, nil
}

// confirm handles the confirmation terminal: "send" dispatches the flow's
// action, "cancel" discards, anything else repeats the step.
func (f *Flow) confirm(st *session.State, input string) Outcome {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "send":
		params := make(map[string]string, len(st.Data))
		for k, v := range st.Data {
			params[k] = v
		}
		return Outcome{
			Reply:  "Okay, sending it now.",
			Done:   true,
			Action: f.Action,
			Params: params,
		}
	case "cancel":
		return Outcome{
			Reply: "Cancelled. Nothing was sent.",
			Done:  true,
		}
	default:
		return Outcome{
			Reply: `Sorry, I didn't catch that. Reply "send" to send it, or "cancel" to discard it.`,
		}
	}
}
