// Package command classifies inbound messages into exactly one route:
// continuation of an active session, a flow-starting slash command, the
// built-in /help, an unrecognized command, or free text for the AI
// responder.
package command
