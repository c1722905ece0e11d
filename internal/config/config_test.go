package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mj1618/desktop-escalate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Valid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Timeouts, cfg.Timeouts)
	assert.Equal(t, def.Layout, cfg.Layout)
	assert.Equal(t, def.Vision, cfg.Vision)
	assert.Equal(t, def.Escalation.Validation.ExpectedFields, cfg.Escalation.Validation.ExpectedFields)
	assert.Equal(t, 3, cfg.Escalation.MaxAttempts)
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "escalate.yaml")
	body := `
target:
  executable: Other.exe
layout:
  input:
    x: 0.45
    y: 0.9
timeouts:
  response: 3m
escalation:
  max_attempts: 5
  validation:
    mode: length
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Other.exe", cfg.Target.Executable)
	assert.Equal(t, "ChatGPT", cfg.Target.LaunchName)
	assert.Equal(t, model.FracPoint{X: 0.45, Y: 0.9}, cfg.Layout.Input)
	assert.Equal(t, DefaultLayout().PanelToggle, cfg.Layout.PanelToggle)
	assert.Equal(t, 3*time.Minute, cfg.Timeouts.Response)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Kill)
	assert.Equal(t, 5, cfg.Escalation.MaxAttempts)
	assert.Equal(t, ValidationLength, cfg.Escalation.Validation.Mode)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DESKTOP_ESCALATE_TIMEOUTS_RESPONSE", "45s")
	t.Setenv("DESKTOP_ESCALATE_ESCALATION_MAX_ATTEMPTS", "2")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Timeouts.Response)
	assert.Equal(t, 2, cfg.Escalation.MaxAttempts)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no executable", func(c *Config) { c.Target.Executable = "" }},
		{"point outside window", func(c *Config) { c.Layout.Input = model.FracPoint{X: 1.5, Y: 0.5} }},
		{"inverted region", func(c *Config) { c.Layout.Content = model.FracRect{Left: 0.9, Top: 0.3, Right: 0.1, Bottom: 0.7} }},
		{"overlapping button ranges", func(c *Config) { c.Vision.Button.ReadyMin = c.Vision.Button.IdleMax }},
		{"zero attempts", func(c *Config) { c.Escalation.MaxAttempts = 0 }},
		{"unknown validation mode", func(c *Config) { c.Escalation.Validation.Mode = "both" }},
		{"zero radius", func(c *Config) { c.Layout.SendButtonRadius = 0 }},
		{"bad key combo", func(c *Config) { c.Flow.CopyKeys = "ctrl++c" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
