// ABOUTME: Developer test chat page for exercising the relay without a real platform.
// ABOUTME: Messages go through the full processor; the transcript renders via goldmark.

package server

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"github.com/relaykit/relay-gateway/internal/platform"
)

const defaultDevUser = "dev-user"

type devMessage struct {
	Direction string
	Content   template.HTML
}

type devPageData struct {
	UserID   string
	Messages []devMessage
}

// handleDevPage renders the test chat page with the user's recent
// transcript, oldest first.
func (s *Server) handleDevPage(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		userID = defaultDevUser
	}

	recent, err := s.records.RecentMessages(r.Context(), userID, 50)
	if err != nil {
		s.logger.Error("failed to load transcript for dev page", "error", err)
		http.Error(w, "transcript unavailable", http.StatusInternalServerError)
		return
	}

	data := devPageData{UserID: userID}
	// RecentMessages is newest-first; the chat reads top to bottom
	for i := len(recent) - 1; i >= 0; i-- {
		data.Messages = append(data.Messages, devMessage{
			Direction: recent[i].Direction,
			Content:   renderMarkdown(recent[i].Content),
		})
	}

	tmpl := template.Must(template.ParseFS(templateFS, "templates/dev.html"))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		s.logger.Error("failed to render dev page", "error", err)
	}
}

// handleDevSend injects a form-submitted message as an inbound event and
// runs it through the processor, then bounces back to the transcript.
func (s *Server) handleDevSend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	userID := r.PostFormValue("user")
	if userID == "" {
		userID = defaultDevUser
	}
	text := r.PostFormValue("text")
	if text == "" {
		http.Redirect(w, r, "/dev?user="+url.QueryEscape(userID), http.StatusSeeOther)
		return
	}

	s.processor.ProcessBatch(r.Context(), []platform.Event{{
		Type:      platform.EventTypeText,
		From:      userID,
		Text:      text,
		MessageID: "dev-" + uuid.NewString(),
	}})

	http.Redirect(w, r, "/dev?user="+url.QueryEscape(userID), http.StatusSeeOther)
}

// renderMarkdown converts message content to HTML. Replies often carry
// markdown from the model; inbound text passes through the same renderer,
// which also takes care of escaping.
func renderMarkdown(content string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(content), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(content))
	}
	return template.HTML(buf.String())
}
