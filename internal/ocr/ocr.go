// Package ocr wraps the text-recognition engine behind an explicitly
// constructed service with background warm-up and result caching.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mj1618/desktop-escalate/internal/model"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

// ErrNotReady is returned when the engine did not finish loading before the
// caller's context expired.
var ErrNotReady = errors.New("ocr engine not ready")

// Result is one recognized text run. Box is relative to the top-left corner
// of the image that was recognized.
type Result struct {
	Text       string
	Box        model.Rect
	Confidence float64
}

// Engine recognizes text in an image.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) ([]Result, error)
}

// Loader constructs an Engine. Loading may take several seconds.
type Loader func(ctx context.Context) (Engine, error)

// Options configures a Service.
type Options struct {
	// Scale is the integer upscale factor applied before recognition.
	// Values below 2 pass the capture through untouched.
	Scale         int     `mapstructure:"scale"          yaml:"scale"`
	CacheSize     int     `mapstructure:"cache_size"     yaml:"cache_size"`
	MinConfidence float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
}

func DefaultOptions() Options {
	return Options{Scale: 2, CacheSize: 64, MinConfidence: 0}
}

type cacheKey struct {
	bounds image.Rectangle
	sum    uint64
}

// Service owns one Engine instance.
type Service struct {
	loader Loader
	opts   Options
	log    *zap.Logger

	start  sync.Once
	loaded chan struct{}
	engine Engine
	err    error

	cache *lru.Cache[cacheKey, []Result]
}

// NewService returns a Service that loads its engine with loader. The engine
// is not loaded until WarmUp or the first ReadyOrBlock.
func NewService(loader Loader, opts Options, log *zap.Logger) (*Service, error) {
	if loader == nil {
		return nil, fmt.Errorf("ocr: nil loader")
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		loader: loader,
		opts:   opts,
		log:    log,
		loaded: make(chan struct{}),
	}
	if opts.CacheSize > 0 {
		c, err := lru.New[cacheKey, []Result](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("ocr cache: %w", err)
		}
		s.cache = c
	}
	return s, nil
}

// FromEngine returns a Service wrapping an already loaded engine.
func FromEngine(e Engine, opts Options, log *zap.Logger) (*Service, error) {
	s, err := NewService(func(context.Context) (Engine, error) { return e, nil }, opts, log)
	if err != nil {
		return nil, err
	}
	s.WarmUp()
	<-s.loaded
	return s, nil
}

// WarmUp starts loading the engine in the background. Later calls are no-ops.
func (s *Service) WarmUp() {
	s.start.Do(func() {
		go func() {
			defer close(s.loaded)
			s.log.Debug("ocr warm-up started")
			s.engine, s.err = s.loader(context.Background())
			if s.err != nil {
				s.log.Warn("ocr warm-up failed", zap.Error(s.err))
				return
			}
			s.log.Debug("ocr warm-up complete")
		}()
	})
}

// Ready reports whether loading finished successfully, without blocking.
func (s *Service) Ready() bool {
	select {
	case <-s.loaded:
		return s.err == nil
	default:
		return false
	}
}

// ReadyOrBlock waits for warm-up to finish, starting it if needed.
func (s *Service) ReadyOrBlock(ctx context.Context) error {
	s.WarmUp()
	select {
	case <-s.loaded:
		if s.err != nil {
			return fmt.Errorf("ocr load: %w", s.err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrNotReady, ctx.Err())
	}
}

// Recognize runs the engine over img. Boxes are mapped back to img's own
// pixel grid, relative to img.Bounds().Min.
func (s *Service) Recognize(ctx context.Context, img image.Image) ([]Result, error) {
	if err := s.ReadyOrBlock(ctx); err != nil {
		return nil, err
	}

	var key cacheKey
	if s.cache != nil {
		key = cacheKey{bounds: img.Bounds(), sum: Fingerprint(img)}
		if hit, ok := s.cache.Get(key); ok {
			return hit, nil
		}
	}

	input, scale := s.preprocess(img)
	raw, err := s.engine.Recognize(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("ocr recognize: %w", err)
	}

	results := make([]Result, 0, len(raw))
	for _, r := range raw {
		if r.Confidence < s.opts.MinConfidence {
			continue
		}
		if scale > 1 {
			r.Box = model.Rect{
				Left:   r.Box.Left / scale,
				Top:    r.Box.Top / scale,
				Right:  r.Box.Right / scale,
				Bottom: r.Box.Bottom / scale,
			}
		}
		results = append(results, r)
	}

	if s.cache != nil {
		s.cache.Add(key, results)
	}
	return results, nil
}

func (s *Service) preprocess(img image.Image) (image.Image, int) {
	scale := s.opts.Scale
	if scale < 2 {
		return img, 1
	}
	src := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, src.Dx()*scale, src.Dy()*scale))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	return dst, scale
}

// Fingerprint hashes the pixels of img.
func Fingerprint(img image.Image) uint64 {
	d := xxhash.New()
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := rgba.PixOffset(b.Min.X, y)
			_, _ = d.Write(rgba.Pix[off : off+4*b.Dx()])
		}
		return d.Sum64()
	}
	var px [8]byte
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			px[0], px[1] = byte(r>>8), byte(r)
			px[2], px[3] = byte(g>>8), byte(g)
			px[4], px[5] = byte(bl>>8), byte(bl)
			px[6], px[7] = byte(a>>8), byte(a)
			_, _ = d.Write(px[:])
		}
	}
	return d.Sum64()
}
