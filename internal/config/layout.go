package config

import (
	"fmt"

	"github.com/mj1618/desktop-escalate/internal/model"
)

// Layout locates every UI target as a fraction of the window rectangle.
type Layout struct {
	PanelToggle      model.FracPoint `mapstructure:"panel_toggle"       yaml:"panel_toggle"`
	PanelCloseProbe  model.FracPoint `mapstructure:"panel_close_probe"  yaml:"panel_close_probe"`
	PanelProbeRadius int             `mapstructure:"panel_probe_radius" yaml:"panel_probe_radius"`
	TitleBar         model.FracPoint `mapstructure:"title_bar"          yaml:"title_bar"`
	// Panel is the full navigation panel, used for highlight detection.
	Panel model.FracRect `mapstructure:"panel" yaml:"panel"`
	// PanelScan is the part of the panel holding project labels.
	PanelScan model.FracRect `mapstructure:"panel_scan" yaml:"panel_scan"`
	// Content is the main area listing a project's conversations.
	Content          model.FracRect  `mapstructure:"content"            yaml:"content"`
	Input            model.FracPoint `mapstructure:"input"              yaml:"input"`
	InputBand        model.FracRect  `mapstructure:"input_band"         yaml:"input_band"`
	SendButton       model.FracPoint `mapstructure:"send_button"        yaml:"send_button"`
	SendButtonRadius int             `mapstructure:"send_button_radius" yaml:"send_button_radius"`
}

// DefaultLayout matches the ChatGPT desktop app at its default size.
func DefaultLayout() Layout {
	return Layout{
		PanelToggle:      model.FracPoint{X: 0.03, Y: 0.0875},
		PanelCloseProbe:  model.FracPoint{X: 0.275, Y: 0.0725},
		PanelProbeRadius: 10,
		TitleBar:         model.FracPoint{X: 0.04, Y: 0.0125},
		Panel:            model.FracRect{Left: 0, Top: 0, Right: 0.28, Bottom: 1},
		PanelScan:        model.FracRect{Left: 0, Top: 0.1, Right: 0.28, Bottom: 0.9375},
		Content:          model.FracRect{Left: 0.12, Top: 0.30, Right: 0.88, Bottom: 0.75},
		Input:            model.FracPoint{X: 0.5, Y: 0.83},
		InputBand:        model.FracRect{Left: 0.15, Top: 0.80, Right: 0.85, Bottom: 0.86},
		SendButton:       model.FracPoint{X: 0.83, Y: 0.87},
		SendButtonRadius: 15,
	}
}

// Validate checks that every point and region lies inside the window.
func (l Layout) Validate() error {
	points := map[string]model.FracPoint{
		"panel_toggle":      l.PanelToggle,
		"panel_close_probe": l.PanelCloseProbe,
		"title_bar":         l.TitleBar,
		"input":             l.Input,
		"send_button":       l.SendButton,
	}
	for name, p := range points {
		if !p.Valid() {
			return fmt.Errorf("config: layout.%s (%g,%g) is outside the window", name, p.X, p.Y)
		}
	}
	regions := map[string]model.FracRect{
		"panel":      l.Panel,
		"panel_scan": l.PanelScan,
		"content":    l.Content,
		"input_band": l.InputBand,
	}
	for name, r := range regions {
		if !r.Valid() {
			return fmt.Errorf("config: layout.%s is not an ordered region inside the window", name)
		}
	}
	if l.PanelProbeRadius <= 0 || l.SendButtonRadius <= 0 {
		return fmt.Errorf("config: layout probe radii must be positive")
	}
	return nil
}
