// Package llm is the AI responder: free text in, a structured
// reply-plus-action-intent out, with a documented fallback for model
// output that does not honor the JSON envelope.
package llm
