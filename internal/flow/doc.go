// Package flow implements multi-turn structured-data-collection
// conversations as declarative step tables driven by a shared engine.
//
// A Flow is pure data: an ordered list of steps (name, prompt, field key)
// plus the action dispatched when the user confirms. The engine walks a
// user's session state strictly forward through the steps, then holds at
// the confirmation step until the user replies "send" or "cancel".
// Adding a new flow means writing a new Flow value, not new control flow.
package flow
