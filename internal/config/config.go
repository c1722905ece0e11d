// Package config loads engine settings from defaults, an optional YAML file
// and DESKTOP_ESCALATE_* environment variables.
package config

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mj1618/desktop-escalate/internal/ocr"
	"github.com/mj1618/desktop-escalate/internal/platform"
	"github.com/mj1618/desktop-escalate/internal/vision"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g.
// DESKTOP_ESCALATE_TIMEOUTS_RESPONSE=180s.
const EnvPrefix = "DESKTOP_ESCALATE"

// Validation modes.
const (
	ValidationStructured = "structured"
	ValidationLength     = "length"
)

// Config is the full engine configuration.
type Config struct {
	Target     Target      `mapstructure:"target"     yaml:"target"`
	Layout     Layout      `mapstructure:"layout"     yaml:"layout"`
	Timeouts   Timeouts    `mapstructure:"timeouts"   yaml:"timeouts"`
	Flow       Flow        `mapstructure:"flow"       yaml:"flow"`
	Vision     Vision      `mapstructure:"vision"     yaml:"vision"`
	OCR        ocr.Options `mapstructure:"ocr"        yaml:"ocr"`
	Escalation Escalation  `mapstructure:"escalation" yaml:"escalation"`
	Privileges Privileges  `mapstructure:"privileges" yaml:"privileges"`
	Log        Log         `mapstructure:"log"        yaml:"log"`
}

// Target identifies the application under automation.
type Target struct {
	// Executable is matched against running process names.
	Executable string `mapstructure:"executable" yaml:"executable"`
	// LaunchName is passed to the launcher.
	LaunchName string `mapstructure:"launch_name" yaml:"launch_name"`
	// IgnoreTitles excludes helper windows whose title contains any entry.
	IgnoreTitles []string `mapstructure:"ignore_titles" yaml:"ignore_titles"`
}

// Timeouts bounds every wait in the flow.
type Timeouts struct {
	Kill           time.Duration `mapstructure:"kill"            yaml:"kill"`
	KillPoll       time.Duration `mapstructure:"kill_poll"       yaml:"kill_poll"`
	KillSettle     time.Duration `mapstructure:"kill_settle"     yaml:"kill_settle"`
	Launch         time.Duration `mapstructure:"launch"          yaml:"launch"`
	LaunchPoll     time.Duration `mapstructure:"launch_poll"     yaml:"launch_poll"`
	LaunchSettle   time.Duration `mapstructure:"launch_settle"   yaml:"launch_settle"`
	Focus          time.Duration `mapstructure:"focus"           yaml:"focus"`
	FocusSettle    time.Duration `mapstructure:"focus_settle"    yaml:"focus_settle"`
	Panel          time.Duration `mapstructure:"panel"           yaml:"panel"`
	PanelPoll      time.Duration `mapstructure:"panel_poll"      yaml:"panel_poll"`
	Project        time.Duration `mapstructure:"project"         yaml:"project"`
	Conversation   time.Duration `mapstructure:"conversation"    yaml:"conversation"`
	ClickSettle    time.Duration `mapstructure:"click_settle"    yaml:"click_settle"`
	ScrollSettle   time.Duration `mapstructure:"scroll_settle"   yaml:"scroll_settle"`
	TitleSettle    time.Duration `mapstructure:"title_settle"    yaml:"title_settle"`
	KeySettle      time.Duration `mapstructure:"key_settle"      yaml:"key_settle"`
	ReadyProbe     time.Duration `mapstructure:"ready_probe"     yaml:"ready_probe"`
	Response       time.Duration `mapstructure:"response"        yaml:"response"`
	ResponsePoll   time.Duration `mapstructure:"response_poll"   yaml:"response_poll"`
	ResponseSettle time.Duration `mapstructure:"response_settle" yaml:"response_settle"`
	CopySettle     time.Duration `mapstructure:"copy_settle"     yaml:"copy_settle"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"   yaml:"retry_backoff"`
}

// Flow tunes step behavior.
type Flow struct {
	FocusAttempts       int    `mapstructure:"focus_attempts"        yaml:"focus_attempts"`
	StepAttempts        int    `mapstructure:"step_attempts"         yaml:"step_attempts"`
	ReadyProbes         int    `mapstructure:"ready_probes"          yaml:"ready_probes"`
	CopyAttempts        int    `mapstructure:"copy_attempts"         yaml:"copy_attempts"`
	MaxScrolls          int    `mapstructure:"max_scrolls"           yaml:"max_scrolls"`
	ScrollAmount        int    `mapstructure:"scroll_amount"         yaml:"scroll_amount"`
	CorrectionTolerance int    `mapstructure:"correction_tolerance"  yaml:"correction_tolerance"`
	IdleAfterGenerating int    `mapstructure:"idle_after_generating" yaml:"idle_after_generating"`
	IdleWithoutSeen     int    `mapstructure:"idle_without_seen"     yaml:"idle_without_seen"`
	MaxFocusLosses      int    `mapstructure:"max_focus_losses"      yaml:"max_focus_losses"`
	UncheckedTabs       int    `mapstructure:"unchecked_tabs"        yaml:"unchecked_tabs"`
	CheckedTabs         int    `mapstructure:"checked_tabs"          yaml:"checked_tabs"`
	MinCopyLength       int    `mapstructure:"min_copy_length"       yaml:"min_copy_length"`
	KeyboardFallback    bool   `mapstructure:"keyboard_fallback"     yaml:"keyboard_fallback"`
	VerifyPaste         bool   `mapstructure:"verify_paste"          yaml:"verify_paste"`
	QuickSearch         bool   `mapstructure:"quick_search"          yaml:"quick_search"`
	QuickSearchKeys     string `mapstructure:"quick_search_keys"     yaml:"quick_search_keys"`
	CopyKeys            string `mapstructure:"copy_keys"             yaml:"copy_keys"`
	PasteKeys           string `mapstructure:"paste_keys"            yaml:"paste_keys"`
	SelectAllKeys       string `mapstructure:"select_all_keys"       yaml:"select_all_keys"`
	CopySelectionKeys   string `mapstructure:"copy_selection_keys"   yaml:"copy_selection_keys"`
	// DangerousControls are never activated while tabbing to the copy
	// control.
	DangerousControls []string `mapstructure:"dangerous_controls" yaml:"dangerous_controls"`
	CopyControl       string   `mapstructure:"copy_control"       yaml:"copy_control"`
}

// Vision groups the pixel classifier settings.
type Vision struct {
	Highlight vision.HighlightConfig `mapstructure:"highlight" yaml:"highlight"`
	Button    vision.ButtonConfig    `mapstructure:"button"    yaml:"button"`
	Panel     vision.PanelConfig     `mapstructure:"panel"     yaml:"panel"`
}

// Escalation configures whole-flow restarts and response validation.
type Escalation struct {
	MaxAttempts   int           `mapstructure:"max_attempts"   yaml:"max_attempts"`
	RestartDelay  time.Duration `mapstructure:"restart_delay"  yaml:"restart_delay"`
	ClarifyPrefix string        `mapstructure:"clarify_prefix" yaml:"clarify_prefix"`
	Validation    Validation    `mapstructure:"validation"     yaml:"validation"`
}

// Validation decides whether a copied reply counts as success.
type Validation struct {
	Mode            string   `mapstructure:"mode"             yaml:"mode"`
	MinLength       int      `mapstructure:"min_length"       yaml:"min_length"`
	ExpectedFields  []string `mapstructure:"expected_fields"  yaml:"expected_fields"`
	TemplatePhrases []string `mapstructure:"template_phrases" yaml:"template_phrases"`
}

// Privileges enables the OS techniques that need elevated rights. Each is
// used only when the platform also reports the capability.
type Privileges struct {
	StealFocus bool `mapstructure:"steal_focus" yaml:"steal_focus"`
	BlockInput bool `mapstructure:"block_input" yaml:"block_input"`
}

// Log configures the zap logger.
type Log struct {
	Level       string `mapstructure:"level"       yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// Default returns the configuration tuned for the ChatGPT desktop app.
func Default() Config {
	return Config{
		Target: Target{
			Executable:   "ChatGPT.exe",
			LaunchName:   "ChatGPT",
			IgnoreTitles: []string{"IME", "Default"},
		},
		Layout: DefaultLayout(),
		Timeouts: Timeouts{
			Kill:           5 * time.Second,
			KillPoll:       300 * time.Millisecond,
			KillSettle:     time.Second,
			Launch:         15 * time.Second,
			LaunchPoll:     500 * time.Millisecond,
			LaunchSettle:   1500 * time.Millisecond,
			Focus:          5 * time.Second,
			FocusSettle:    300 * time.Millisecond,
			Panel:          3 * time.Second,
			PanelPoll:      300 * time.Millisecond,
			Project:        15 * time.Second,
			Conversation:   15 * time.Second,
			ClickSettle:    350 * time.Millisecond,
			ScrollSettle:   400 * time.Millisecond,
			TitleSettle:    800 * time.Millisecond,
			KeySettle:      100 * time.Millisecond,
			ReadyProbe:     500 * time.Millisecond,
			Response:       120 * time.Second,
			ResponsePoll:   500 * time.Millisecond,
			ResponseSettle: time.Second,
			CopySettle:     300 * time.Millisecond,
			RetryBackoff:   500 * time.Millisecond,
		},
		Flow: Flow{
			FocusAttempts:       3,
			StepAttempts:        3,
			ReadyProbes:         8,
			CopyAttempts:        3,
			MaxScrolls:          5,
			ScrollAmount:        3,
			CorrectionTolerance: 18,
			IdleAfterGenerating: 3,
			IdleWithoutSeen:     5,
			MaxFocusLosses:      10,
			UncheckedTabs:       5,
			CheckedTabs:         6,
			MinCopyLength:       5,
			KeyboardFallback:    true,
			VerifyPaste:         false,
			QuickSearch:         true,
			QuickSearchKeys:     "ctrl+k",
			CopyKeys:            "ctrl+shift+c",
			PasteKeys:           "ctrl+v",
			SelectAllKeys:       "ctrl+a",
			CopySelectionKeys:   "ctrl+c",
			DangerousControls:   []string{"thumb", "dislike", "like", "refresh", "regenerate", "more"},
			CopyControl:         "copy",
		},
		Vision: Vision{
			Highlight: vision.DefaultHighlightConfig(),
			Button:    vision.DefaultButtonConfig(),
			Panel:     vision.DefaultPanelConfig(),
		},
		OCR: ocr.DefaultOptions(),
		Escalation: Escalation{
			MaxAttempts:   3,
			RestartDelay:  1500 * time.Millisecond,
			ClarifyPrefix: "Answer the question below directly. Reply only with a JSON object containing an \"answer\" field.\n\n",
			Validation: Validation{
				Mode:           ValidationStructured,
				MinLength:      10,
				ExpectedFields: []string{"answer", "response", "result", "summary", "analysis", "recommendation"},
				TemplatePhrases: []string{
					"your response here",
					"insert answer here",
					"[answer]",
					"<answer>",
					"lorem ipsum",
					"as an ai language model",
					"i can't help with that",
				},
			},
		},
		Privileges: Privileges{StealFocus: true, BlockInput: false},
		Log:        Log{Level: "info"},
	}
}

// Load returns Default overlaid with the YAML file at path (skipped when
// path is empty) and environment overrides. A .env file in the working
// directory is loaded first when present.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	base, err := yaml.Marshal(Default())
	if err != nil {
		return Config{}, fmt.Errorf("encode defaults: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(base)); err != nil {
		return Config{}, fmt.Errorf("read defaults: %w", err)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if c.Target.Executable == "" {
		return fmt.Errorf("config: target.executable is required")
	}
	if c.Target.LaunchName == "" {
		return fmt.Errorf("config: target.launch_name is required")
	}
	if err := c.Layout.Validate(); err != nil {
		return err
	}
	if !c.Vision.Button.Valid() {
		return fmt.Errorf("config: vision.button ranges overlap (idle_max=%d ready_min=%d)",
			c.Vision.Button.IdleMax, c.Vision.Button.ReadyMin)
	}
	if c.Vision.Highlight.RowHeight <= 0 {
		return fmt.Errorf("config: vision.highlight.row_height must be positive")
	}
	if c.Timeouts.Response <= 0 || c.Timeouts.ResponsePoll <= 0 {
		return fmt.Errorf("config: timeouts.response and timeouts.response_poll must be positive")
	}
	for name, n := range map[string]int{
		"flow.focus_attempts":     c.Flow.FocusAttempts,
		"flow.step_attempts":      c.Flow.StepAttempts,
		"flow.ready_probes":       c.Flow.ReadyProbes,
		"flow.copy_attempts":      c.Flow.CopyAttempts,
		"escalation.max_attempts": c.Escalation.MaxAttempts,
	} {
		if n < 1 {
			return fmt.Errorf("config: %s must be at least 1", name)
		}
	}
	for name, combo := range map[string]string{
		"flow.quick_search_keys":   c.Flow.QuickSearchKeys,
		"flow.copy_keys":           c.Flow.CopyKeys,
		"flow.paste_keys":          c.Flow.PasteKeys,
		"flow.select_all_keys":     c.Flow.SelectAllKeys,
		"flow.copy_selection_keys": c.Flow.CopySelectionKeys,
	} {
		if _, err := platform.ParseKeyCombo(combo); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	if c.Flow.CopyControl == "" {
		return fmt.Errorf("config: flow.copy_control is required")
	}
	switch c.Escalation.Validation.Mode {
	case ValidationStructured, ValidationLength:
	default:
		return fmt.Errorf("config: escalation.validation.mode must be %q or %q, got %q",
			ValidationStructured, ValidationLength, c.Escalation.Validation.Mode)
	}
	return nil
}
