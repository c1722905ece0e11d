package model

import (
	"fmt"
	"image"
)

// Rect is a screen rectangle in absolute pixel coordinates.
// Right and Bottom are exclusive.
type Rect struct {
	Left   int `yaml:"left"   json:"left"`
	Top    int `yaml:"top"    json:"top"`
	Right  int `yaml:"right"  json:"right"`
	Bottom int `yaml:"bottom" json:"bottom"`
}

// FracPoint is a point expressed as fractions of a window's width and height.
type FracPoint struct {
	X float64 `yaml:"x" json:"x" mapstructure:"x"`
	Y float64 `yaml:"y" json:"y" mapstructure:"y"`
}

// FracRect is a region expressed as fractions of a window's width and height.
type FracRect struct {
	Left   float64 `yaml:"left"   json:"left"   mapstructure:"left"`
	Top    float64 `yaml:"top"    json:"top"    mapstructure:"top"`
	Right  float64 `yaml:"right"  json:"right"  mapstructure:"right"`
	Bottom float64 `yaml:"bottom" json:"bottom" mapstructure:"bottom"`
}

func (r Rect) Width() int  { return r.Right - r.Left }
func (r Rect) Height() int { return r.Bottom - r.Top }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// Contains reports whether (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.Left && x < r.Right && y >= r.Top && y < r.Bottom
}

// Offset returns an absolute point displaced from the top-left corner.
func (r Rect) Offset(dx, dy int) (int, int) {
	return r.Left + dx, r.Top + dy
}

// Point resolves a fractional point against the rectangle.
func (r Rect) Point(p FracPoint) (int, int) {
	return r.Left + int(float64(r.Width())*p.X), r.Top + int(float64(r.Height())*p.Y)
}

// Sub resolves a fractional region against the rectangle.
func (r Rect) Sub(f FracRect) Rect {
	w, h := float64(r.Width()), float64(r.Height())
	return Rect{
		Left:   r.Left + int(w*f.Left),
		Top:    r.Top + int(h*f.Top),
		Right:  r.Left + int(w*f.Right),
		Bottom: r.Top + int(h*f.Bottom),
	}
}

// Around returns the square of the given radius centred on (x, y).
func Around(x, y, radius int) Rect {
	return Rect{Left: x - radius, Top: y - radius, Right: x + radius, Bottom: y + radius}
}

// Image converts the rectangle to an image.Rectangle in screen space.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Right, r.Bottom)
}

// FromImage converts an image.Rectangle to a Rect.
func FromImage(r image.Rectangle) Rect {
	return Rect{Left: r.Min.X, Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.Left, r.Top, r.Right, r.Bottom)
}

// Valid reports whether the fractional region is ordered and within [0,1].
func (f FracRect) Valid() bool {
	return f.Left >= 0 && f.Top >= 0 && f.Right <= 1 && f.Bottom <= 1 &&
		f.Left < f.Right && f.Top < f.Bottom
}

// Valid reports whether the fractional point lies within [0,1].
func (p FracPoint) Valid() bool {
	return p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1
}
