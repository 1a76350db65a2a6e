// ABOUTME: Tests for completion parsing, especially the malformed-output fallback.
// ABOUTME: The fallback contract: the user always gets a reply and never sees a parse error.

package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_WellFormed(t *testing.T) {
	c := Parse(`{"reply":"Sure, sending now.","action":"email.send","params":{"to":"a@b.com"}}`)

	assert.Equal(t, "Sure, sending now.", c.Reply)
	assert.Equal(t, "email.send", c.Action)
	assert.Equal(t, "a@b.com", c.Params["to"])
}

func TestParse_MissingActionDefaultsToNone(t *testing.T) {
	c := Parse(`{"reply":"Hello there."}`)

	assert.Equal(t, "Hello there.", c.Reply)
	assert.Equal(t, "none", c.Action)
	assert.NotNil(t, c.Params)
}

func TestParse_JSONWrappedInProse(t *testing.T) {
	raw := "Here you go:\n```json\n{\"reply\":\"42\",\"action\":\"none\",\"params\":{}}\n```\nHope that helps!"

	c := Parse(raw)
	assert.Equal(t, "42", c.Reply)
	assert.Equal(t, "none", c.Action)
}

func TestParse_PlainTextFallsBack(t *testing.T) {
	c := Parse("  I can't answer in JSON today.  ")

	assert.Equal(t, "I can't answer in JSON today.", c.Reply)
	assert.Equal(t, "none", c.Action)
	assert.Empty(t, c.Params)
}

func TestParse_BrokenJSONFallsBack(t *testing.T) {
	raw := `{"reply":"unterminated`

	c := Parse(raw)
	assert.Equal(t, raw, c.Reply)
	assert.Equal(t, "none", c.Action)
}

func TestParse_JSONWithoutReplyFallsBack(t *testing.T) {
	// Valid JSON but not our envelope: treat the whole thing as prose
	raw := `{"answer":"not the right key"}`

	c := Parse(raw)
	assert.Equal(t, raw, c.Reply)
	assert.Equal(t, "none", c.Action)
}
