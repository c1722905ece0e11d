package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"strings"

	"github.com/mj1618/desktop-escalate/internal/model"
)

// Tesseract recognizes text by running the tesseract command-line tool.
// Words are merged into one Result per text line.
type Tesseract struct {
	path string
}

// TesseractLoader resolves the tesseract binary on PATH.
func TesseractLoader(ctx context.Context) (Engine, error) {
	path, err := exec.LookPath("tesseract")
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w", err)
	}
	// Starting the binary once loads the language data into the page cache.
	if err := exec.CommandContext(ctx, path, "--version").Run(); err != nil {
		return nil, fmt.Errorf("tesseract --version: %w", err)
	}
	return &Tesseract{path: path}, nil
}

func (t *Tesseract) Recognize(ctx context.Context, img image.Image) ([]Result, error) {
	var in bytes.Buffer
	if err := png.Encode(&in, img); err != nil {
		return nil, fmt.Errorf("encode capture: %w", err)
	}
	cmd := exec.CommandContext(ctx, t.path, "stdin", "stdout", "--psm", "11", "tsv")
	cmd.Stdin = &in
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return ParseTSV(string(out)), nil
}

type lineKey struct {
	block, par, line int
}

// ParseTSV converts tesseract TSV output into line-level results. A line's
// confidence is the mean of its word confidences, scaled to 0..1.
func ParseTSV(tsv string) []Result {
	var order []lineKey
	lines := map[lineKey]*Result{}
	words := map[lineKey]int{}

	for i, row := range strings.Split(tsv, "\n") {
		if i == 0 {
			continue // header
		}
		cols := strings.Split(strings.TrimRight(row, "\r"), "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		n := make([]int, 10)
		for j := 1; j <= 9; j++ {
			n[j], _ = strconv.Atoi(cols[j])
		}
		conf, _ := strconv.ParseFloat(cols[10], 64)
		left, top, width, height := n[6], n[7], n[8], n[9]
		box := model.Rect{Left: left, Top: top, Right: left + width, Bottom: top + height}

		key := lineKey{block: n[2], par: n[3], line: n[4]}
		r, ok := lines[key]
		if !ok {
			r = &Result{Text: text, Box: box}
			lines[key] = r
			order = append(order, key)
		} else {
			r.Text += " " + text
			r.Box = union(r.Box, box)
		}
		r.Confidence += conf / 100
		words[key]++
	}

	out := make([]Result, 0, len(order))
	for _, k := range order {
		r := *lines[k]
		r.Confidence /= float64(words[k])
		out = append(out, r)
	}
	return out
}

func union(a, b model.Rect) model.Rect {
	return model.Rect{
		Left:   min(a.Left, b.Left),
		Top:    min(a.Top, b.Top),
		Right:  max(a.Right, b.Right),
		Bottom: max(a.Bottom, b.Bottom),
	}
}
