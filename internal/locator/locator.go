// Package locator finds on-screen text with OCR and clicks it, correcting
// for misclicks with the row-highlight detector.
package locator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mj1618/desktop-escalate/internal/clock"
	"github.com/mj1618/desktop-escalate/internal/config"
	"github.com/mj1618/desktop-escalate/internal/fuzzy"
	"github.com/mj1618/desktop-escalate/internal/guard"
	"github.com/mj1618/desktop-escalate/internal/model"
	"github.com/mj1618/desktop-escalate/internal/ocr"
	"github.com/mj1618/desktop-escalate/internal/platform"
	"github.com/mj1618/desktop-escalate/internal/vision"
	"go.uber.org/zap"
)

// ErrNotFound is returned when the target text never appeared within the
// scroll and time budget.
var ErrNotFound = errors.New("target not found")

// Target describes one scan-and-click request. All rectangles are in screen
// coordinates measured against the window position current when
// ScanAndClick is called; they follow the window if it moves.
type Target struct {
	Text   string
	Region model.Rect
	// HighlightRegion is re-checked after the click. Leave it empty to skip
	// misclick correction.
	HighlightRegion model.Rect
}

// Result reports where the target was clicked.
type Result struct {
	X, Y      int
	Matched   string
	Score     float64
	Scrolls   int
	Corrected bool
}

// Locator runs scans for one engine instance.
type Locator struct {
	p         *platform.Provider
	guard     *guard.Guardrail
	ocr       *ocr.Service
	clk       clock.Clock
	highlight vision.HighlightConfig
	flow      config.Flow
	timeouts  config.Timeouts
	log       *zap.Logger
}

// New returns a Locator.
func New(p *platform.Provider, g *guard.Guardrail, o *ocr.Service, clk clock.Clock, cfg config.Config, log *zap.Logger) *Locator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Locator{
		p:         p,
		guard:     g,
		ocr:       o,
		clk:       clk,
		highlight: cfg.Vision.Highlight,
		flow:      cfg.Flow,
		timeouts:  cfg.Timeouts,
		log:       log.Named("locator"),
	}
}

// ScanAndClick looks for t.Text inside t.Region and clicks the best match,
// scrolling the region between scans. It gives up after MaxScrolls scrolls
// or when timeout has elapsed.
func (l *Locator) ScanAndClick(ctx context.Context, t Target, timeout time.Duration) (Result, error) {
	deadline := clock.Deadline(l.clk, timeout)
	origin := l.guard.Rect()
	res := Result{}

	for {
		remaining := deadline.Sub(l.clk.Now())
		if remaining <= 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if !l.guard.EnsureForeground(l.flow.FocusAttempts) {
			l.log.Debug("lost foreground before scan", zap.String("target", t.Text))
			l.clk.Sleep(l.timeouts.PanelPoll)
			continue
		}
		at := l.guard.Rect()
		region := l.guard.Follow(origin, t.Region)

		best, ok, err := l.scan(ctx, t.Text, region, remaining)
		if err != nil {
			l.log.Debug("scan failed", zap.String("target", t.Text), zap.Error(err))
		}
		if ok {
			x := region.Left + (best.Box.Left+best.Box.Right)/2
			y := region.Top + (best.Box.Top+best.Box.Bottom)/2
			l.log.Debug("target found", zap.String("target", t.Text), zap.String("text", best.Text), zap.Float64("score", best.Score))
			if l.guard.SafeClickFrom(at, x, y, t.Text) {
				l.clk.Sleep(l.timeouts.ClickSettle)
				cur := l.guard.Rect()
				x, y = x+cur.Left-at.Left, y+cur.Top-at.Top
				res.X, res.Y = x, y
				res.Matched, res.Score = best.Text, best.Score
				res.Corrected = l.correct(t.Text, l.guard.Follow(origin, t.HighlightRegion), x, y)
				return res, nil
			}
			l.clk.Sleep(l.timeouts.ClickSettle)
			continue
		}

		if res.Scrolls >= l.flow.MaxScrolls {
			break
		}
		res.Scrolls++
		l.log.Debug("target not visible, scrolling", zap.String("target", t.Text), zap.Int("scroll", res.Scrolls))
		cx, cy := (region.Left+region.Right)/2, (region.Top+region.Bottom)/2
		if err := l.p.Inputter.Scroll(cx, cy, 0, -l.flow.ScrollAmount); err != nil {
			l.log.Debug("scroll failed", zap.Error(err))
		}
		l.clk.Sleep(l.timeouts.ScrollSettle)
	}
	return res, fmt.Errorf("%w: %q after %d scrolls", ErrNotFound, t.Text, res.Scrolls)
}

// scan captures the region once and returns the best acceptable candidate.
func (l *Locator) scan(ctx context.Context, text string, region model.Rect, budget time.Duration) (model.MatchCandidate, bool, error) {
	results, err := l.recognize(ctx, region, budget)
	if err != nil {
		return model.MatchCandidate{}, false, err
	}
	best, ok := BestMatch(text, results)
	return best, ok, nil
}

func (l *Locator) recognize(ctx context.Context, region model.Rect, budget time.Duration) ([]ocr.Result, error) {
	img, err := l.p.Screen.Capture(region)
	if err != nil {
		return nil, fmt.Errorf("capture %v: %w", region, err)
	}
	octx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	return l.ocr.Recognize(octx, img)
}

// BestMatch scores each reading against target. A reading is acceptable
// when it scores at least 0.7 or carries the target verbatim; the highest
// acceptable score wins and ties keep the earliest reading.
func BestMatch(target string, results []ocr.Result) (model.MatchCandidate, bool) {
	want := strings.ToLower(strings.TrimSpace(target))
	var best model.MatchCandidate
	found := false
	for _, r := range results {
		score := fuzzy.Score(target, r.Text)
		verbatim := want != "" && strings.Contains(strings.ToLower(r.Text), want)
		if score < fuzzy.DefaultMatchThreshold && !verbatim {
			continue
		}
		if !found || score > best.Score {
			best = model.MatchCandidate{Text: r.Text, Box: r.Box, Confidence: r.Confidence, Score: score}
			found = true
		}
	}
	return best, found
}

// correct re-runs highlight detection after a click at (x, y). When the
// highlight landed more than CorrectionTolerance away the click hit a
// neighbouring row, so one corrective click is issued a row height on the
// other side of the click point.
func (l *Locator) correct(text string, region model.Rect, x, y int) bool {
	if region.Empty() {
		return false
	}
	at := l.guard.Rect()
	img, err := l.p.Screen.Capture(region)
	if err != nil {
		l.log.Debug("highlight capture failed", zap.Error(err))
		return false
	}
	hl, ok := l.highlight.Detect(img)
	if !ok {
		return false
	}
	delta := hl.CenterY - y
	if abs(delta) <= l.flow.CorrectionTolerance {
		return false
	}
	cy := y + l.highlight.RowHeight
	if delta > 0 {
		cy = y - l.highlight.RowHeight
	}
	l.log.Info("correcting misclick",
		zap.String("target", text),
		zap.Int("click_y", y),
		zap.Int("highlight_y", hl.CenterY),
		zap.Int("corrective_y", cy))
	if !l.guard.SafeClickFrom(at, x, cy, "correction for "+text) {
		return false
	}
	l.clk.Sleep(l.timeouts.ClickSettle)
	return true
}

// VerifySelection reports whether the highlighted row in region reads as
// target: the OCR text nearest the highlight centre must match it.
func (l *Locator) VerifySelection(ctx context.Context, target string, region model.Rect) bool {
	img, err := l.p.Screen.Capture(region)
	if err != nil {
		return false
	}
	hl, ok := l.highlight.Detect(img)
	if !ok {
		l.log.Debug("no highlighted row")
		return false
	}
	results, err := l.recognize(ctx, region, l.timeouts.Project)
	if err != nil || len(results) == 0 {
		return false
	}
	nearest, bestDist := "", -1
	for _, r := range results {
		d := abs(region.Top + (r.Box.Top+r.Box.Bottom)/2 - hl.CenterY)
		if bestDist < 0 || d < bestDist {
			nearest, bestDist = r.Text, d
		}
	}
	score := fuzzy.SimilarityRatio(target, nearest)
	matched := score >= fuzzy.DefaultMatchThreshold ||
		strings.Contains(strings.ToLower(nearest), strings.ToLower(target))
	l.log.Debug("selection check", zap.String("nearest", nearest), zap.Float64("score", score), zap.Bool("matched", matched))
	return matched
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
