package vision

import "image"

// PanelConfig detects the open navigation panel from the close control
// drawn near its top edge.
type PanelConfig struct {
	DarkLevel float64 `mapstructure:"dark_level" yaml:"dark_level"`
	MinDark   int     `mapstructure:"min_dark"   yaml:"min_dark"`
}

func DefaultPanelConfig() PanelConfig {
	return PanelConfig{DarkLevel: 180, MinDark: 30}
}

// IsOpen reports whether the probe image carries the panel-open signature.
func (c PanelConfig) IsOpen(img image.Image) bool {
	return CountBelow(img, c.DarkLevel) > c.MinDark
}
