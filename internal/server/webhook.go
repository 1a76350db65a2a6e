// ABOUTME: Inbound webhook and health handlers.
// ABOUTME: Deliveries are deduped by message ID before the batch is processed.

package server

import (
	"encoding/json"
	"net/http"

	"github.com/relaykit/relay-gateway/internal/platform"
)

// handleWebhook accepts a batch of platform events. Redelivered events
// (same message ID within the dedupe window) are dropped; the rest are
// processed in order. The response always acks so the platform stops
// retrying: per-message failures are the processor's problem, not the
// platform's.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var env platform.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		s.logger.Warn("rejecting malformed webhook payload", "error", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	fresh := make([]platform.Event, 0, len(env.Events))
	for _, ev := range env.Events {
		if ev.MessageID != "" && s.deliveries.Seen(ev.MessageID) {
			s.logger.Debug("suppressing redelivered event", "message_id", ev.MessageID)
			continue
		}
		fresh = append(fresh, ev)
	}

	s.processor.ProcessBatch(r.Context(), fresh)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"processed": len(fresh),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleReady reports readiness: the relay is ready once constructed,
// so this mirrors /health but keeps a separate probe path for
// orchestration.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":          "ok",
		"active_sessions": s.sessions.Len(),
	})
}
