// Package action dispatches structured intents (email.send, calendar.add,
// ...) to their side-effecting handlers. Flow confirmations and
// AI-suggested actions converge on the same dispatcher so one action name
// always means one behavior.
package action
