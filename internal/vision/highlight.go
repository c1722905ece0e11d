package vision

import "image"

// HighlightConfig parameterizes row-highlight detection in a list panel.
type HighlightConfig struct {
	RowHeight  int `mapstructure:"row_height"  yaml:"row_height"`
	TopSkip    int `mapstructure:"top_skip"    yaml:"top_skip"`
	BottomSkip int `mapstructure:"bottom_skip" yaml:"bottom_skip"`
	EdgeInset  int `mapstructure:"edge_inset"  yaml:"edge_inset"`
	// Only pixels brighter than LuminanceFloor are part of the background.
	LuminanceFloor float64 `mapstructure:"luminance_floor" yaml:"luminance_floor"`
	// Bands with fewer background pixels are ignored.
	MinPixels          int     `mapstructure:"min_pixels"          yaml:"min_pixels"`
	NormalBackground   float64 `mapstructure:"normal_background"   yaml:"normal_background"`
	DeviationThreshold float64 `mapstructure:"deviation_threshold" yaml:"deviation_threshold"`
}

// DefaultHighlightConfig matches the chat app's light theme.
func DefaultHighlightConfig() HighlightConfig {
	return HighlightConfig{
		RowHeight:          35,
		TopSkip:            35,
		BottomSkip:         40,
		EdgeInset:          10,
		LuminanceFloor:     200,
		MinPixels:          100,
		NormalBackground:   249,
		DeviationThreshold: 2.0,
	}
}

// Highlight is the detected emphasized row.
type Highlight struct {
	Row       int     // band index from the top of the image
	Top       int     // absolute y of the band's first pixel
	CenterY   int     // absolute y of the band's centre
	Deviation float64 // how much darker than NormalBackground the band is
}

// RowDeviations returns the darkening of each band relative to the normal
// background. Bands without enough background pixels report ok=false.
func (c HighlightConfig) RowDeviations(img image.Image) (devs []float64, ok []bool) {
	b := img.Bounds()
	if c.RowHeight <= 0 {
		return nil, nil
	}
	left, right := b.Min.X+c.EdgeInset, b.Max.X-c.EdgeInset
	for top := b.Min.Y + c.TopSkip; top+c.RowHeight <= b.Max.Y-c.BottomSkip; top += c.RowHeight {
		var sum float64
		n := 0
		for y := top; y < top+c.RowHeight; y++ {
			for x := left; x < right; x++ {
				l := Luminance(img.At(x, y))
				if l > c.LuminanceFloor {
					sum += l
					n++
				}
			}
		}
		if n < c.MinPixels {
			devs = append(devs, 0)
			ok = append(ok, false)
			continue
		}
		devs = append(devs, c.NormalBackground-sum/float64(n))
		ok = append(ok, true)
	}
	return devs, ok
}

// Detect returns the band of maximum deviation, first on ties. Nothing is
// reported when every deviation is below DeviationThreshold.
func (c HighlightConfig) Detect(img image.Image) (Highlight, bool) {
	devs, usable := c.RowDeviations(img)
	best, bestDev := -1, 0.0
	for i, d := range devs {
		if !usable[i] {
			continue
		}
		if best < 0 || d > bestDev {
			best, bestDev = i, d
		}
	}
	if best < 0 || bestDev < c.DeviationThreshold {
		return Highlight{}, false
	}
	top := img.Bounds().Min.Y + c.TopSkip + best*c.RowHeight
	return Highlight{
		Row:       best,
		Top:       top,
		CenterY:   top + c.RowHeight/2,
		Deviation: bestDev,
	}, true
}
