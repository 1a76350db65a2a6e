// ABOUTME: Maps action names to side-effecting handlers; both flow terminals and AI intents land here.
// ABOUTME: Failures are contained and reported as results, never propagated as crashes.

package action

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// None is the action name meaning "no action"; dispatching it is a no-op success.
const None = "none"

// Context carries the sender identity an action executes on behalf of.
type Context struct {
	UserID string
}

// Result is the uniform outcome of dispatching an action.
type Result struct {
	Success bool
	Message string
	Data    map[string]any
}

// WebhookCaller is what side-effecting actions need from the automation layer.
type WebhookCaller interface {
	Post(ctx context.Context, payload any) error
}

// Handler executes one named action. Handlers report failure through the
// Result; they do not return errors.
type Handler func(ctx context.Context, params map[string]string, actx Context) Result

// Dispatcher routes action names to their handlers.
type Dispatcher struct {
	handlers map[string]Handler
	logger   *slog.Logger

	// now is swappable for tests
	now func() time.Time
}

// stubActions are recognized but not yet implemented. Dispatching one is a
// deliberate placeholder contract: success with a "not yet implemented"
// message, so upstream prompts can advertise them without breaking.
var stubActions = []string{
	"calendar.add",
	"reminder.add",
	"notes.create",
	"weather.get",
	"search.web",
}

// NewDispatcher creates a dispatcher with the built-in action set
// registered: email.send against the automation webhook, plus the stubs.
func NewDispatcher(hook WebhookCaller, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		handlers: make(map[string]Handler),
		logger:   logger.With("component", "action"),
		now:      time.Now,
	}

	d.Register("email.send", d.emailSend(hook))
	for _, name := range stubActions {
		d.Register(name, stubHandler(name))
	}

	return d
}

// Register adds or replaces the handler for an action name.
func (d *Dispatcher) Register(name string, h Handler) {
	d.handlers[name] = h
}

// Dispatch executes the named action. It never panics: handler panics are
// recovered and reported as failed results. Unknown names fail with the
// literal name echoed for diagnosability; "none" (or empty) succeeds
// without doing anything.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, params map[string]string, actx Context) (res Result) {
	if name == "" || name == None {
		return Result{Success: true}
	}

	h, ok := d.handlers[name]
	if !ok {
		d.logger.Warn("unknown action requested", "action", name, "user", actx.UserID)
		return Result{
			Success: false,
			Message: fmt.Sprintf("I don't know how to perform the action %q.", name),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("action handler panicked", "action", name, "panic", r)
			res = Result{Success: false, Message: "Something went wrong performing that action."}
		}
	}()

	res = h(ctx, params, actx)
	d.logger.Info("action dispatched", "action", name, "user", actx.UserID, "success", res.Success)
	return res
}

// emailSend posts the collected draft to the automation webhook along with
// sender context and a timestamp. Success iff the call returns no error.
func (d *Dispatcher) emailSend(hook WebhookCaller) Handler {
	return func(ctx context.Context, params map[string]string, actx Context) Result {
		payload := map[string]any{
			"action":    "email.send",
			"to":        params["to"],
			"subject":   params["subject"],
			"body":      params["body"],
			"from_user": actx.UserID,
			"timestamp": d.now().UTC().Format(time.RFC3339),
		}

		if err := hook.Post(ctx, payload); err != nil {
			d.logger.Error("email.send webhook failed", "error", err, "user", actx.UserID)
			return Result{
				Success: false,
				Message: "I couldn't send the email. Please try again later.",
			}
		}

		return Result{
			Success: true,
			Message: fmt.Sprintf("Email to %s sent.", params["to"]),
		}
	}
}

// stubHandler returns the placeholder handler for a recognized but
// unimplemented action.
func stubHandler(name string) Handler {
	return func(context.Context, map[string]string, Context) Result {
		return Result{
			Success: true,
			Message: fmt.Sprintf("The %s action is not yet implemented.", name),
		}
	}
}
