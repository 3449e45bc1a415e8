package pdfdoc

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"runtime"
	"sync"

	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"
)

// RasterFunc produces an upright page raster at the given scale: the
// returned image has the page's DisplaySize times scale in pixels, with
// rotation already applied. The viewer ships without a content
// rasterizer, so the default raster draws a blank page sheet; a real
// rasterizer plugs in through WithRaster.
type RasterFunc func(page PageInfo, scale float64) (*image.RGBA, error)

// Result is the outcome of one render request.
type Result struct {
	Page  int
	Image *image.RGBA
	Err   error
}

// Config controls the render worker pool.
type Config struct {
	// Workers is the number of raster workers. Zero or negative picks a
	// size from GOMAXPROCS.
	Workers int

	// Synchronous renders on the calling goroutine with no workers at
	// all. Debugging aid.
	Synchronous bool
}

type renderJob struct {
	ctx   context.Context
	page  int
	info  PageInfo
	scale float64
	out   chan<- Result
}

// Renderer rasterizes pages on a fixed worker pool so a burst of visible
// pages cannot start an unbounded number of raster goroutines.
type Renderer struct {
	log    *slog.Logger
	raster RasterFunc
	sync   bool

	jobs      chan renderJob
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithRaster replaces the default blank-sheet raster.
func WithRaster(fn RasterFunc) RendererOption {
	return func(r *Renderer) {
		if fn != nil {
			r.raster = fn
		}
	}
}

// WithRendererLogger sets the renderer's logger.
func WithRendererLogger(log *slog.Logger) RendererOption {
	return func(r *Renderer) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRenderer starts the worker pool. Close must be called to stop it.
func NewRenderer(cfg Config, opts ...RendererOption) *Renderer {
	r := &Renderer{
		log:    slog.New(slog.DiscardHandler),
		raster: BlankPageRaster,
		sync:   cfg.Synchronous,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.sync {
		return r
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	r.jobs = make(chan renderJob, 4*workers)
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	r.log.Debug("page renderer started", "workers", workers)
	return r
}

// RenderPage renders page at scale. The returned channel delivers exactly
// one Result and is then closed. Cancelling ctx abandons the request; a
// cancelled job reports ctx's error instead of an image.
func (r *Renderer) RenderPage(ctx context.Context, page int, info PageInfo, scale float64) <-chan Result {
	out := make(chan Result, 1)
	job := renderJob{ctx: ctx, page: page, info: info, scale: scale, out: out}

	if r.sync {
		out <- r.render(job)
		close(out)
		return out
	}

	go func() {
		select {
		case r.jobs <- job:
		case <-ctx.Done():
			out <- Result{Page: page, Err: ctx.Err()}
			close(out)
		}
	}()
	return out
}

// Close stops the workers after draining queued jobs. Queued jobs whose
// context is already cancelled report the cancellation without
// rasterizing.
func (r *Renderer) Close() {
	if r.sync {
		return
	}
	r.closeOnce.Do(func() {
		close(r.jobs)
		r.wg.Wait()
	})
}

func (r *Renderer) worker() {
	defer r.wg.Done()
	for job := range r.jobs {
		if err := job.ctx.Err(); err != nil {
			job.out <- Result{Page: job.page, Err: err}
			close(job.out)
			continue
		}
		job.out <- r.render(job)
		close(job.out)
	}
}

func (r *Renderer) render(job renderJob) Result {
	img, err := r.raster(job.info, job.scale)
	if err != nil {
		r.log.Warn("page raster failed", "page", job.page, "error", err)
		return Result{Page: job.page, Err: fmt.Errorf("raster page %d: %w", job.page, err)}
	}
	return Result{Page: job.page, Image: img}
}

// BlankPageRaster draws an empty white page sheet with a hairline border
// at the page's upright display size.
func BlankPageRaster(page PageInfo, scale float64) (*image.RGBA, error) {
	size := page.DisplaySize()
	w := int(math.Round(size.Width * scale))
	h := int(math.Round(size.Height * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dc := gg.NewContext(w, h)
	if dc == nil {
		return nil, fmt.Errorf("allocate %dx%d raster", w, h)
	}
	defer dc.Close()

	dc.SetRGB(1, 1, 1)
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	if err := dc.Fill(); err != nil {
		return nil, err
	}
	dc.SetHexColor("#c8c8c8")
	dc.SetStroke(gg.DefaultStroke().WithWidth(1))
	dc.DrawRectangle(0.5, 0.5, float64(w)-1, float64(h)-1)
	if err := dc.Stroke(); err != nil {
		return nil, err
	}
	return dc.ResizeTarget().ToImage(), nil
}

// ScaleRaster resamples src to w x h. The coordinator uses it to show a
// stretched copy of a stale raster while the re-render for a new scale is
// still in flight.
func ScaleRaster(src *image.RGBA, w, h int) *image.RGBA {
	if w < 1 || h < 1 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}
