package simdesk

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"

	"github.com/mj1618/desktop-escalate/internal/model"
	"github.com/mj1618/desktop-escalate/internal/ocr"
)

var (
	desktopColor   = gray(60)
	contentColor   = gray(255)
	titleBarColor  = gray(235)
	panelColor     = gray(249)
	highlightColor = gray(240)
	iconColor      = gray(90)
	inputColor     = gray(245)
	buttonColor    = gray(10)
)

func gray(v uint8) color.RGBA { return color.RGBA{v, v, v, 255} }

// label is a text run drawn on screen, in absolute coordinates.
type label struct {
	text string
	box  model.Rect
}

func labelBox(x, y int, text string) model.Rect {
	w := 7 * len(text)
	if w > 240 {
		w = 240
	}
	return model.Rect{Left: x, Top: y, Right: x + w, Bottom: y + 11}
}

// labelShade gives each text a distinct bar color so scrolled lists render
// different pixels.
func labelShade(text string) color.RGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	return gray(uint8(100 + h.Sum32()%60))
}

func (d *Desktop) panelRect() model.Rect {
	r := d.Geometry
	return model.Rect{Left: r.Left, Top: r.Top, Right: r.Left + r.Width()*28/100, Bottom: r.Bottom}
}

// shift is how far the window sits from defaultGeometry.
func (d *Desktop) shift() (int, int) {
	return d.Geometry.Left - defaultGeometry.Left, d.Geometry.Top - defaultGeometry.Top
}

// place moves a rectangle measured against defaultGeometry onto the window.
func (d *Desktop) place(r model.Rect) model.Rect {
	dx, dy := d.shift()
	return model.Rect{Left: r.Left + dx, Top: r.Top + dy, Right: r.Right + dx, Bottom: r.Bottom + dy}
}

func (d *Desktop) inputRect() model.Rect {
	return d.place(model.Rect{Left: 250, Top: 690, Right: 950, Bottom: 738})
}

func (d *Desktop) buttonRect() model.Rect {
	return d.place(model.Rect{Left: 915, Top: 731, Right: 945, Bottom: 761})
}

func (d *Desktop) togglePoint() (int, int) {
	dx, dy := d.shift()
	return 130 + dx, 120 + dy
}

// panelBand returns the top of the highlight band holding panel item i.
func (d *Desktop) panelBand(i int) (int, bool) {
	k := i - d.panelOffset + panelFirstRow
	if k < panelFirstRow {
		return 0, false
	}
	_, dy := d.shift()
	top := panelBandTop + dy + k*panelRowHeight
	if top > panelLastTop+dy {
		return 0, false
	}
	return top, true
}

// panelItemAt maps a screen y inside the panel to an item index.
func (d *Desktop) panelItemAt(y int) (int, bool) {
	_, dy := d.shift()
	y -= dy
	if y < panelBandTop {
		return 0, false
	}
	k := (y - panelBandTop) / panelRowHeight
	i := k - panelFirstRow + d.panelOffset
	if k < panelFirstRow || i >= len(d.Projects) {
		return 0, false
	}
	if _, ok := d.panelBand(i); !ok {
		return 0, false
	}
	return i, true
}

func (d *Desktop) listRowTop(j int) int {
	_, dy := d.shift()
	return listTop + dy + j*listRowPitch
}

// listItemAt maps a screen point inside the content list to an item index.
func (d *Desktop) listItemAt(x, y int) (int, bool) {
	top := d.listRowTop(0)
	if x < d.panelRect().Right || x >= d.Geometry.Right || y < top || y >= top+listRows*listRowPitch {
		return 0, false
	}
	i := (y-top)/listRowPitch + d.listOffset
	if i >= len(d.listItems()) {
		return 0, false
	}
	return i, true
}

// labels lists every text run currently on screen.
func (d *Desktop) labels() []label {
	if !d.visible() {
		return nil
	}
	var out []label
	if d.panelOpen {
		for i, p := range d.Projects {
			top, ok := d.panelBand(i)
			if !ok {
				continue
			}
			out = append(out, label{text: p, box: labelBox(d.panelRect().Left+15, top+12, p)})
		}
	}
	if d.listView() {
		dx, _ := d.shift()
		items := d.listItems()
		for j := 0; j < listRows && d.listOffset+j < len(items); j++ {
			c := items[d.listOffset+j]
			out = append(out, label{text: c.Name, box: labelBox(listLabelX+dx, d.listRowTop(j)+10, c.Name)})
		}
	}
	return out
}

func fill(img *image.RGBA, r model.Rect, c color.Color) {
	draw.Draw(img, r.Image(), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// frame renders the whole screen.
func (d *Desktop) frame() *image.RGBA {
	d.settle()
	img := image.NewRGBA(image.Rect(0, 0, ScreenWidth, ScreenHeight))
	fill(img, model.Rect{Right: ScreenWidth, Bottom: ScreenHeight}, desktopColor)
	if !d.visible() {
		return img
	}

	w := d.Geometry
	fill(img, w, contentColor)
	fill(img, model.Rect{Left: w.Left, Top: w.Top, Right: w.Right, Bottom: w.Top + titleBarHeight}, titleBarColor)

	if d.panelOpen {
		p := d.panelRect()
		fill(img, p, panelColor)
		fill(img, d.place(model.Rect{Left: 370, Top: 103, Right: 380, Bottom: 113}), iconColor)
		if d.selectedRow >= 0 {
			if top, ok := d.panelBand(d.selectedRow); ok {
				fill(img, model.Rect{Left: p.Left, Top: top, Right: p.Right, Bottom: top + panelRowHeight}, highlightColor)
			}
		}
	} else {
		x, y := d.togglePoint()
		fill(img, model.Around(x, y, 4), iconColor)
	}

	for _, l := range d.labels() {
		fill(img, l.box, labelShade(l.text))
	}

	dx, dy := d.shift()
	if d.thread != nil {
		for i, p := range d.thread.Prompts {
			fill(img, labelBox(600+dx, 320+dy+i*24, p), labelShade(p))
		}
		if d.thread.LastResponse != "" {
			fill(img, labelBox(420+dx, 560+dy, d.thread.LastResponse), labelShade(d.thread.LastResponse))
		}
	}

	fill(img, d.inputRect(), inputColor)
	if d.input != "" {
		fill(img, labelBox(262+dx, 708+dy, d.input), labelShade(d.input))
	}
	b := d.buttonRect()
	switch {
	case d.Generating():
		fill(img, model.Rect{Left: b.Left + 8, Top: b.Top + 8, Right: b.Left + 23, Bottom: b.Top + 23}, buttonColor)
	case d.input != "":
		fill(img, b, buttonColor)
	}
	return img
}

// Capture implements platform.Screen.
func (d *Desktop) Capture(r model.Rect) (image.Image, error) {
	if d.CaptureFails {
		return nil, errors.New("capture: screen unavailable")
	}
	if r.Empty() {
		return nil, fmt.Errorf("capture: empty region %v", r)
	}
	screen := image.Rect(0, 0, ScreenWidth, ScreenHeight)
	if !r.Image().In(screen) {
		return nil, fmt.Errorf("capture: region %v outside screen", r)
	}
	return d.frame().SubImage(r.Image()), nil
}

// Recognize implements ocr.Engine by reporting the labels that lie fully
// inside the image. The image must keep its screen-space bounds.
func (d *Desktop) Recognize(ctx context.Context, img image.Image) ([]ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := model.FromImage(img.Bounds())
	var out []ocr.Result
	for _, l := range d.labels() {
		if l.box.Left < b.Left || l.box.Top < b.Top || l.box.Right > b.Right || l.box.Bottom > b.Bottom {
			continue
		}
		text := l.text
		if m, ok := d.OCRMisreads[text]; ok {
			text = m
		}
		out = append(out, ocr.Result{
			Text: text,
			Box: model.Rect{
				Left:   l.box.Left - b.Left,
				Top:    l.box.Top - b.Top,
				Right:  l.box.Right - b.Left,
				Bottom: l.box.Bottom - b.Top,
			},
			Confidence: 0.9,
		})
	}
	return out, nil
}

// OCREngine returns the desktop as an ocr.Engine.
func (d *Desktop) OCREngine() ocr.Engine { return d }
