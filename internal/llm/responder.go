// ABOUTME: AI responder on OpenAI chat completions returning a structured reply plus action intent.
// ABOUTME: Malformed model output falls back to a plain-text reply with no action, never an error.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Completion is the structured answer expected from the model.
type Completion struct {
	Reply  string            `json:"reply"`
	Action string            `json:"action"`
	Params map[string]string `json:"params"`
}

// systemPrompt pins the model to the JSON envelope the relay parses.
// The recognized action names match the dispatcher's registry.
const systemPrompt = `You are a helpful assistant behind a chat relay.
Respond ONLY with valid JSON, no text outside it, in exactly this shape:
{"reply": "<message for the user>", "action": "<action name or none>", "params": {}}
Recognized actions: email.send, calendar.add, reminder.add, notes.create, weather.get, search.web.
Use "none" unless the user clearly asked for one of those. Put action inputs as string values in params.`

// Client calls the OpenAI chat completions API.
type Client struct {
	api    *openai.Client
	model  string
	logger *slog.Logger
}

// NewClient creates a responder client. baseURL is optional and supports
// OpenAI-compatible endpoints; model defaults to gpt-4o-mini.
func NewClient(apiKey, model, baseURL string, logger *slog.Logger) *Client {
	if model == "" {
		model = openai.GPT4oMini
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Client{
		api:    openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger.With("component", "llm"),
	}
}

// Complete sends the user's text and returns the parsed completion.
// An error is returned only for transport/API failures; malformed model
// output is absorbed by the parse fallback.
func (c *Client) Complete(ctx context.Context, userText string) (Completion, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userText},
		},
	})
	if err != nil {
		return Completion{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf("chat completion returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	completion := Parse(raw)
	if completion.Action != "none" {
		c.logger.Debug("model suggested action", "action", completion.Action)
	}
	return completion, nil
}

// Parse extracts a Completion from raw model output. Models occasionally
// wrap the JSON in prose or code fences, so after a direct unmarshal fails
// the outermost brace span is tried. Anything still unparseable becomes
// {reply: raw, action: none} so the user always gets an answer.
func Parse(raw string) Completion {
	if c, ok := tryUnmarshal(raw); ok {
		return c
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if c, ok := tryUnmarshal(raw[start : end+1]); ok {
			return c
		}
	}

	return Completion{
		Reply:  strings.TrimSpace(raw),
		Action: "none",
		Params: map[string]string{},
	}
}

func tryUnmarshal(s string) (Completion, bool) {
	var c Completion
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return Completion{}, false
	}
	if c.Reply == "" {
		// A JSON blob without a reply is not the envelope we asked for
		return Completion{}, false
	}
	if c.Action == "" {
		c.Action = "none"
	}
	if c.Params == nil {
		c.Params = map[string]string{}
	}
	return c, true
}
