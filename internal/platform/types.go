// ABOUTME: Inbound webhook event types for the messaging platform.
// ABOUTME: Only text events are processed; everything else is ignored without error.

package platform

// EventTypeText is the only event type the relay acts on.
const EventTypeText = "text"

// Event is one inbound message event delivered by the platform webhook.
// MessageID is the platform's delivery identifier, used for redelivery
// deduplication.
type Event struct {
	Type      string `json:"type"`
	From      string `json:"from"`
	Text      string `json:"text"`
	MessageID string `json:"message_id"`
}

// Envelope is the webhook request body: a batch of events delivered
// together. Platforms may batch several users' messages in one delivery.
type Envelope struct {
	Events []Event `json:"events"`
}
