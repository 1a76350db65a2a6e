// Package processor orchestrates inbound message handling: per-user
// ordering, session expiry, command routing, flow advancement, AI
// responses, action dispatch, and outbound replies. Errors and panics
// are contained per message so a batch always processes every event.
package processor
