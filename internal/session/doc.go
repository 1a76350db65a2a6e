// Package session holds in-memory conversation state for in-progress
// multi-step flows, one state per user, with lazy inactivity expiry.
// State is deliberately not persisted; a restart ends all flows.
package session
