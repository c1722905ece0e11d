package vision

import (
	"image"

	"github.com/mj1618/desktop-escalate/internal/model"
)

// ButtonConfig classifies the send/stop button by its near-black pixel
// count. Counts up to IdleMax are idle, counts from ReadyMin up are ready,
// and everything in between is generating.
type ButtonConfig struct {
	DarkLevel uint8 `mapstructure:"dark_level" yaml:"dark_level"`
	IdleMax   int   `mapstructure:"idle_max"   yaml:"idle_max"`
	ReadyMin  int   `mapstructure:"ready_min"  yaml:"ready_min"`
}

func DefaultButtonConfig() ButtonConfig {
	return ButtonConfig{DarkLevel: 50, IdleMax: 60, ReadyMin: 400}
}

// Valid reports whether the three ranges are non-empty and disjoint.
func (c ButtonConfig) Valid() bool {
	return c.IdleMax >= 0 && c.ReadyMin > c.IdleMax+1
}

// ClassifyCount maps a dark-pixel count to exactly one state.
func (c ButtonConfig) ClassifyCount(n int) model.ButtonState {
	switch {
	case n <= c.IdleMax:
		return model.ButtonIdle
	case n >= c.ReadyMin:
		return model.ButtonReady
	default:
		return model.ButtonGenerating
	}
}

// Classify counts the near-black pixels of img and classifies them.
func (c ButtonConfig) Classify(img image.Image) (model.ButtonState, int) {
	n := CountDarkRGB(img, c.DarkLevel)
	return c.ClassifyCount(n), n
}
