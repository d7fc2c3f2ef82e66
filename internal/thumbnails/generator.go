package thumbnails

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/clipforge/video-pipeline/internal/models"
	"github.com/clipforge/video-pipeline/internal/processor"
	"github.com/clipforge/video-pipeline/pkg/logger"
	"github.com/clipforge/video-pipeline/pkg/utils"
)

// Strategy selects how timestamps are placed across the duration.
type Strategy string

const (
	// StrategyUniform spaces count timestamps evenly, avoiding the first and
	// last frame.
	StrategyUniform Strategy = "uniform"
	// StrategySmart keeps every timestamp strictly inside the middle 80% of
	// the video, skipping intros and outros.
	StrategySmart Strategy = "smart"
	// StrategyKeyframes approximates keyframe positions with a uniform
	// spread. Listing real keyframes needs a second demux pass the engine
	// does not expose.
	StrategyKeyframes Strategy = "keyframes"
)

const (
	defaultCount   = 5
	defaultQuality = 80
	coverQuality   = 85
)

// Options configures one generation run. Zero Width picks a size tier from
// the source resolution.
type Options struct {
	Count    int
	Width    int
	Height   int
	Quality  int
	Format   string
	Strategy Strategy
}

func (o Options) withDefaults() Options {
	if o.Count <= 0 {
		o.Count = defaultCount
	}
	if o.Quality <= 0 {
		o.Quality = defaultQuality
	}
	if o.Format == "" {
		o.Format = "jpeg"
	}
	if o.Strategy == "" {
		o.Strategy = StrategyUniform
	}
	return o
}

// Thumbnail is one generated frame plus its preview handle. The handle stays
// valid until Release or ClearCache.
type Thumbnail struct {
	Index     int
	Timestamp float64
	Width     int
	Height    int
	Data      []byte
	PreviewID string
}

// GridOptions configures the contact-sheet composite. Zero values fall back
// to 160x90 cells with 4px spacing on black.
type GridOptions struct {
	Columns     int
	Rows        int
	ThumbWidth  int
	ThumbHeight int
	Spacing     int
	Quality     int
	Background  color.Color
}

func (o GridOptions) withDefaults() GridOptions {
	if o.Columns <= 0 {
		o.Columns = 3
	}
	if o.Rows <= 0 {
		o.Rows = 2
	}
	if o.ThumbWidth <= 0 {
		o.ThumbWidth = 160
	}
	if o.ThumbHeight <= 0 {
		o.ThumbHeight = 90
	}
	if o.Spacing < 0 {
		o.Spacing = 0
	} else if o.Spacing == 0 {
		o.Spacing = 4
	}
	if o.Quality <= 0 {
		o.Quality = defaultQuality
	}
	if o.Background == nil {
		o.Background = color.Black
	}
	return o
}

type BatchResult struct {
	Index      int
	Thumbnails []Thumbnail
	Err        error
}

// Generator produces thumbnails on top of the processor's frame extraction,
// adding a result cache and a preview handle registry.
type Generator struct {
	processor *processor.VideoProcessor
	logger    logger.Logger

	mu       sync.Mutex
	cache    map[string][]Thumbnail
	previews map[string][]byte
}

func NewGenerator(proc *processor.VideoProcessor, log logger.Logger) *Generator {
	if log == nil {
		log = logger.NopLogger
	}
	return &Generator{
		processor: proc,
		logger:    log,
		cache:     make(map[string][]Thumbnail),
		previews:  make(map[string][]byte),
	}
}

// Generate extracts thumbnails per the options. Repeated calls with an equal
// source and options hit the cache without touching the engine.
func (g *Generator) Generate(ctx context.Context, src *models.Source, opts Options) ([]Thumbnail, error) {
	opts = opts.withDefaults()
	key := cacheKey(src, opts)

	g.mu.Lock()
	if cached, ok := g.cache[key]; ok {
		g.mu.Unlock()
		return cached, nil
	}
	g.mu.Unlock()

	meta, err := g.processor.ExtractMetadata(ctx, src)
	if err != nil {
		return nil, errors.Wrap(err, "thumbnails: probe source")
	}

	timestamps := placeTimestamps(opts.Strategy, meta.Duration, opts.Count)
	width, height := resolveDims(opts, meta)

	frames, err := g.processor.GenerateThumbnails(ctx, src, processor.ThumbnailOptions{
		Timestamps: timestamps,
		Count:      opts.Count,
		Width:      width,
		Height:     height,
		Quality:    opts.Quality,
		Format:     opts.Format,
	})
	if err != nil {
		return nil, errors.Wrap(err, "thumbnails: extract frames")
	}

	thumbs := make([]Thumbnail, 0, len(frames))
	for _, f := range frames {
		thumbs = append(thumbs, Thumbnail{
			Index:     f.Index,
			Timestamp: f.Timestamp,
			Width:     width,
			Height:    height,
			Data:      f.Data,
			PreviewID: g.registerPreview(f.Data),
		})
	}

	g.mu.Lock()
	g.cache[key] = thumbs
	g.mu.Unlock()

	g.logger.Debugf("generated %d thumbnails for %s", len(thumbs), src.Identity())
	return thumbs, nil
}

// GenerateSingle extracts one frame at the given timestamp, bypassing the
// cache.
func (g *Generator) GenerateSingle(ctx context.Context, src *models.Source, timestamp float64, opts Options) (*Thumbnail, error) {
	opts = opts.withDefaults()
	width, height := opts.Width, opts.Height
	if width == 0 || height == 0 {
		meta, err := g.processor.ExtractMetadata(ctx, src)
		if err != nil {
			return nil, errors.Wrap(err, "thumbnails: probe source")
		}
		width, height = resolveDims(opts, meta)
	}

	frames, err := g.processor.GenerateThumbnails(ctx, src, processor.ThumbnailOptions{
		Timestamps: []float64{timestamp},
		Width:      width,
		Height:     height,
		Quality:    opts.Quality,
		Format:     opts.Format,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "thumbnails: extract frame at %.2fs", timestamp)
	}
	f := frames[0]
	return &Thumbnail{
		Timestamp: f.Timestamp,
		Width:     width,
		Height:    height,
		Data:      f.Data,
		PreviewID: g.registerPreview(f.Data),
	}, nil
}

// GenerateCover picks the frame at a third of the duration, which tends to
// land past intros but before any end cards.
func (g *Generator) GenerateCover(ctx context.Context, src *models.Source, opts Options) (*Thumbnail, error) {
	meta, err := g.processor.ExtractMetadata(ctx, src)
	if err != nil {
		return nil, errors.Wrap(err, "thumbnails: probe source")
	}
	opts = opts.withDefaults()
	opts.Quality = coverQuality
	opts.Width, opts.Height = resolveDims(opts, meta)
	return g.GenerateSingle(ctx, src, math.Floor(meta.Duration*0.33), opts)
}

// GenerateGrid composites columns x rows uniformly-spread thumbnails into one
// contact sheet image.
func (g *Generator) GenerateGrid(ctx context.Context, src *models.Source, opts GridOptions) ([]byte, error) {
	opts = opts.withDefaults()

	thumbs, err := g.Generate(ctx, src, Options{
		Count:   opts.Columns * opts.Rows,
		Width:   opts.ThumbWidth,
		Height:  opts.ThumbHeight,
		Quality: opts.Quality,
	})
	if err != nil {
		return nil, err
	}

	gridWidth := opts.Columns*opts.ThumbWidth + (opts.Columns-1)*opts.Spacing
	gridHeight := opts.Rows*opts.ThumbHeight + (opts.Rows-1)*opts.Spacing
	canvas := imaging.New(gridWidth, gridHeight, opts.Background)

	for i, t := range thumbs {
		img, err := imaging.Decode(bytes.NewReader(t.Data))
		if err != nil {
			return nil, errors.Wrapf(err, "thumbnails: decode grid cell %d", i)
		}
		cell := imaging.Fill(img, opts.ThumbWidth, opts.ThumbHeight, imaging.Center, imaging.Lanczos)
		x := (i % opts.Columns) * (opts.ThumbWidth + opts.Spacing)
		y := (i / opts.Columns) * (opts.ThumbHeight + opts.Spacing)
		canvas = imaging.Paste(canvas, cell, image.Pt(x, y))
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(opts.Quality)); err != nil {
		return nil, errors.Wrap(err, "thumbnails: encode grid")
	}
	return buf.Bytes(), nil
}

// GenerateBatch runs Generate over sources in bounded waves. Each source owns
// its result slot; a failure does not affect siblings.
func (g *Generator) GenerateBatch(ctx context.Context, sources []*models.Source, opts Options, concurrency int) []BatchResult {
	results := make([]BatchResult, len(sources))
	_ = utils.RunInWaves(ctx, len(sources), concurrency, func(i int) {
		thumbs, err := g.Generate(ctx, sources[i], opts)
		results[i] = BatchResult{Index: i, Thumbnails: thumbs, Err: err}
	})
	return results
}

// Preview resolves a preview handle to its bytes.
func (g *Generator) Preview(id string) ([]byte, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	data, ok := g.previews[id]
	return data, ok
}

// Release revokes one preview handle.
func (g *Generator) Release(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.previews, id)
}

// ClearCache drops every cached result and revokes all outstanding preview
// handles.
func (g *Generator) ClearCache() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache = make(map[string][]Thumbnail)
	g.previews = make(map[string][]byte)
}

// CacheSize reports the number of cached generation results.
func (g *Generator) CacheSize() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.cache)
}

func (g *Generator) registerPreview(data []byte) string {
	id := uuid.New().String()
	g.mu.Lock()
	g.previews[id] = data
	g.mu.Unlock()
	return id
}

// placeTimestamps spreads count timestamps per the strategy. Unknown
// strategies fall back to uniform.
func placeTimestamps(strategy Strategy, duration float64, count int) []float64 {
	if count <= 0 || duration <= 0 {
		return nil
	}
	switch strategy {
	case StrategySmart:
		start := duration * 0.1
		span := duration * 0.8
		timestamps := make([]float64, 0, count)
		for i := 1; i <= count; i++ {
			timestamps = append(timestamps, start+span*float64(i)/float64(count+1))
		}
		return timestamps
	default:
		return processor.UniformTimestamps(duration, count)
	}
}

// resolveDims fills unset dimensions: width from the source's size tier,
// height from the source aspect ratio at the resolved width.
func resolveDims(opts Options, meta *models.VideoMetadata) (int, int) {
	width := opts.Width
	if width == 0 {
		width = downscaleWidth(meta.Width)
	}
	height := opts.Height
	if height == 0 && meta.Width > 0 {
		height = width * meta.Height / meta.Width
	}
	return width, height
}

// downscaleWidth maps the source width onto a preview size tier.
func downscaleWidth(sourceWidth int) int {
	switch {
	case sourceWidth > 1920:
		return 320
	case sourceWidth > 1280:
		return 240
	case sourceWidth > 720:
		return 180
	default:
		return 160
	}
}

func cacheKey(src *models.Source, opts Options) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d|%d|%d|%s|%s",
		src.Identity(), opts.Count, opts.Width, opts.Height, opts.Quality, opts.Format, opts.Strategy)))
	return hex.EncodeToString(h[:])
}
