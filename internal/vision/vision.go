// Package vision classifies UI state from raw screen pixels.
package vision

import (
	"image"
	"image/color"
)

// Luminance returns the Rec. 601 luma of c on a 0-255 scale.
func Luminance(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	return 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
}

// CountDarkRGB counts pixels whose three channels are all below level.
func CountDarkRGB(img image.Image, level uint8) int {
	b := img.Bounds()
	n := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if uint8(r>>8) < level && uint8(g>>8) < level && uint8(bl>>8) < level {
				n++
			}
		}
	}
	return n
}

// CountBelow counts pixels whose luminance is below level.
func CountBelow(img image.Image, level float64) int {
	b := img.Bounds()
	n := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if Luminance(img.At(x, y)) < level {
				n++
			}
		}
	}
	return n
}

// ColumnVariancePeak returns the absolute x of the column whose luminance
// varies most across the image's rows. ok is false for an empty image.
func ColumnVariancePeak(img image.Image) (x int, ok bool) {
	b := img.Bounds()
	if b.Empty() {
		return 0, false
	}
	rows := float64(b.Dy())
	best, bestVar := b.Min.X, -1.0
	for cx := b.Min.X; cx < b.Max.X; cx++ {
		var sum, sumSq float64
		for y := b.Min.Y; y < b.Max.Y; y++ {
			l := Luminance(img.At(cx, y))
			sum += l
			sumSq += l * l
		}
		mean := sum / rows
		v := sumSq/rows - mean*mean
		if v > bestVar {
			best, bestVar = cx, v
		}
	}
	return best, true
}
