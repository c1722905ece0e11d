//go:build darwin

package darwin

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"os/exec"

	"github.com/mj1618/desktop-escalate/internal/model"
)

// Screen implements platform.Screen with the screencapture tool.
type Screen struct{}

func NewScreen() *Screen {
	return &Screen{}
}

// Capture grabs r and returns it with screen-space bounds.
func (s *Screen) Capture(r model.Rect) (image.Image, error) {
	if r.Empty() {
		return nil, fmt.Errorf("capture: empty region %v", r)
	}
	f, err := os.CreateTemp("", "desktop-escalate-*.png")
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	region := fmt.Sprintf("%d,%d,%d,%d", r.Left, r.Top, r.Width(), r.Height())
	if out, err := exec.Command("screencapture", "-x", "-R", region, path).CombinedOutput(); err != nil {
		return nil, fmt.Errorf("screencapture: %w: %s", err, out)
	}

	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	defer in.Close()
	decoded, err := png.Decode(in)
	if err != nil {
		return nil, fmt.Errorf("capture decode: %w", err)
	}
	return placeAt(decoded, r), nil
}

// placeAt copies img into an RGBA whose bounds are r. Retina captures come
// back at twice the logical size and are sampled down by nearest pixel.
func placeAt(img image.Image, r model.Rect) *image.RGBA {
	dst := image.NewRGBA(r.Image())
	src := img.Bounds()
	if src.Dx() == r.Width() && src.Dy() == r.Height() {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)
		return dst
	}
	for y := 0; y < r.Height(); y++ {
		sy := src.Min.Y + y*src.Dy()/r.Height()
		for x := 0; x < r.Width(); x++ {
			sx := src.Min.X + x*src.Dx()/r.Width()
			dst.Set(r.Left+x, r.Top+y, img.At(sx, sy))
		}
	}
	return dst
}
