// ABOUTME: Declarative multi-step conversation flow definitions.
// ABOUTME: A flow is an ordered list of step descriptors plus a terminal action; new flows are data, not code.

package flow

import (
	"fmt"
	"strings"
)

// StepConfirmation is the synthetic final step every flow enters after its
// last data-collection step. It is not listed in Flow.Steps.
const StepConfirmation = "confirmation"

// Step describes one position in a flow: the prompt sent on entry, and the
// data key the user's reply is stored under.
type Step struct {
	// Name identifies the step within the flow (e.g. "recipient")
	Name string

	// Label is the human caption used when echoing the collected draft
	Label string

	// Prompt is sent to the user when the flow enters this step
	Prompt string

	// FieldKey is the Data key the trimmed reply is stored under
	FieldKey string
}

// Flow is a named multi-step structured-data-collection conversation.
// Steps run strictly forward; after the last step the flow enters the
// confirmation step, which dispatches Action on "send" or discards on
// "cancel".
type Flow struct {
	// Name tags session state belonging to this flow (e.g. "email-compose")
	Name string

	// Command is the slash token that starts the flow (e.g. "email" for /email)
	Command string

	// Action is the action name dispatched with the collected data on confirmation
	Action string

	// Summary is a one-line description shown by /help
	Summary string

	Steps []Step
}

// step returns the index of the named step, or -1 if the flow has no such step.
func (f *Flow) step(name string) int {
	for i, s := range f.Steps {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// Draft renders the collected fields in step order for the confirmation echo.
func (f *Flow) Draft(data map[string]string) string {
	var b strings.Builder
	for _, s := range f.Steps {
		fmt.Fprintf(&b, "%s: %s\n", s.Label, data[s.FieldKey])
	}
	return strings.TrimRight(b.String(), "\n")
}
