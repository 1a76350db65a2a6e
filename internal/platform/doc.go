// Package platform is the narrow boundary to the messaging platform:
// inbound webhook event types with HMAC signature verification, and the
// outbound send(recipient, text) call.
package platform
