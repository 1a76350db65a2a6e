// ABOUTME: Classifies inbound messages: active-session input, slash command, or free text.
// ABOUTME: Active sessions win unconditionally, even when the text looks like a new command.

package command

import (
	"fmt"
	"strings"

	"github.com/relaykit/relay-gateway/internal/flow"
)

// Kind is the routing classification of one inbound message.
type Kind int

const (
	// KindSession routes to the flow engine for the user's active session
	KindSession Kind = iota

	// KindStartFlow starts the flow named by a recognized slash command
	KindStartFlow

	// KindHelp answers the built-in /help command
	KindHelp

	// KindUnknownCommand is a slash command with no matching flow
	KindUnknownCommand

	// KindFreeText goes to the AI responder
	KindFreeText
)

// Decision is the outcome of classifying one message.
type Decision struct {
	Kind Kind

	// Flow is set for KindStartFlow
	Flow *flow.Flow

	// Token is the parsed command token for the command kinds
	Token string
}

// Router classifies inbound text against the registered flows.
type Router struct {
	flows *flow.Engine
}

// NewRouter creates a router over the given flow engine.
func NewRouter(flows *flow.Engine) *Router {
	return &Router{flows: flows}
}

// Classify routes one inbound message. Precedence is deliberate: an active
// session swallows all input until the flow terminates or expires, so
// hasSession wins even when text parses as a command (including the very
// command that started the flow).
func (r *Router) Classify(hasSession bool, text string) Decision {
	if hasSession {
		return Decision{Kind: KindSession}
	}

	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return Decision{Kind: KindFreeText}
	}

	token := strings.ToLower(strings.TrimPrefix(strings.Fields(trimmed)[0], "/"))
	if token == "help" {
		return Decision{Kind: KindHelp, Token: token}
	}
	if f, ok := r.flows.ByCommand(token); ok {
		return Decision{Kind: KindStartFlow, Flow: f, Token: token}
	}
	return Decision{Kind: KindUnknownCommand, Token: token}
}

// HelpText lists the registered commands for the /help reply.
func (r *Router) HelpText() string {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, f := range r.flows.Flows() {
		fmt.Fprintf(&b, "/%s - %s\n", f.Command, f.Summary)
	}
	b.WriteString("/help - show this list")
	return b.String()
}
