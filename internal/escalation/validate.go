package escalation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mj1618/desktop-escalate/internal/config"
	"github.com/tidwall/gjson"
)

var errNoJSON = errors.New("no JSON object in response")

// Policy decides whether a copied reply is usable.
type Policy struct {
	cfg config.Validation
}

// NewPolicy returns the policy described by cfg.
func NewPolicy(cfg config.Validation) Policy {
	return Policy{cfg: cfg}
}

// Check returns nil when text passes every check of the configured mode.
func (p Policy) Check(text string) error {
	t := strings.TrimSpace(text)
	if len(t) <= p.cfg.MinLength {
		return fmt.Errorf("response too short (%d chars)", len(t))
	}
	lower := strings.ToLower(t)
	for _, phrase := range p.cfg.TemplatePhrases {
		if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
			return fmt.Errorf("response looks like a template answer (%q)", phrase)
		}
	}
	if p.cfg.Mode != config.ValidationStructured {
		return nil
	}

	obj, ok := ExtractJSON(t)
	if !ok {
		return errNoJSON
	}
	if len(p.cfg.ExpectedFields) == 0 {
		return nil
	}
	for _, field := range p.cfg.ExpectedFields {
		if v := gjson.Get(obj, field); v.Exists() && strings.TrimSpace(v.String()) != "" {
			return nil
		}
	}
	return fmt.Errorf("JSON reply carries none of %s", strings.Join(p.cfg.ExpectedFields, ", "))
}

// ExtractJSON finds a JSON object in text: the whole text, the first fenced
// code block, or the outermost braces embedded in prose.
func ExtractJSON(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if isObject(t) {
		return t, true
	}
	if block, ok := fenced(t); ok && isObject(block) {
		return block, true
	}
	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		if candidate := t[start : end+1]; isObject(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func isObject(s string) bool {
	return strings.HasPrefix(s, "{") && gjson.Valid(s) && gjson.Parse(s).IsObject()
}

func fenced(t string) (string, bool) {
	open := strings.Index(t, "```")
	if open < 0 {
		return "", false
	}
	rest := t[open+3:]
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		// Drop the language tag.
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}
