package escalation

import (
	"testing"

	"github.com/mj1618/desktop-escalate/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Structured(t *testing.T) {
	p := NewPolicy(config.Default().Escalation.Validation)
	tests := []struct {
		name string
		text string
		err  string
	}{
		{name: "bare object", text: `{"answer": "Use a read replica."}`},
		{name: "fenced", text: "Here you go:\n```json\n{\"summary\": \"Latency is network bound.\"}\n```"},
		{name: "embedded", text: `Sure. {"recommendation": "roll back"} Hope that helps.`},
		{name: "too short", text: "  ok  ", err: "too short"},
		{name: "template", text: `{"answer": "Your response here"}`, err: "template"},
		{name: "prose", text: "The answer is to use a read replica.", err: "no JSON object"},
		{name: "wrong fields", text: `{"foo": "bar", "baz": 1}`, err: "none of"},
		{name: "blank field", text: `{"answer": "   ", "note": "x"}`, err: "none of"},
		{name: "array", text: `["answer", "summary"]`, err: "no JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Check(tt.text)
			if tt.err == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestPolicy_Length(t *testing.T) {
	cfg := config.Default().Escalation.Validation
	cfg.Mode = config.ValidationLength
	p := NewPolicy(cfg)

	assert.NoError(t, p.Check("The answer is to use a read replica."))
	assert.Error(t, p.Check("short"))
	assert.Error(t, p.Check("As an AI language model I cannot say."))
}

func TestExtractJSON(t *testing.T) {
	obj, ok := ExtractJSON("```\n{\"a\": {\"b\": 1}}\n```")
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": 1}}`, obj)

	_, ok = ExtractJSON("{ not json }")
	assert.False(t, ok)
}
