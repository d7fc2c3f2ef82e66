package processor

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/clipforge/video-pipeline/internal/mediaengine"
	"github.com/clipforge/video-pipeline/internal/models"
	"github.com/clipforge/video-pipeline/pkg/logger"
)

const (
	inputFileName = "input_video"

	fallbackWidth  = 1920
	fallbackHeight = 1080
	fallbackFPS    = 30
)

// EngineInitError marks a failed engine load. Fatal for the current request
// but retryable by the caller.
type EngineInitError struct {
	Cause error
}

func (e *EngineInitError) Error() string {
	return fmt.Sprintf("media engine initialization failed: %v", e.Cause)
}

func (e *EngineInitError) Unwrap() error { return e.Cause }

// ThumbnailOptions configures a frame extraction run.
type ThumbnailOptions struct {
	Count      int
	Width      int
	Height     int
	Quality    int
	Format     string
	Timestamps []float64
}

func (o ThumbnailOptions) format() string {
	if o.Format == "" {
		return "jpeg"
	}
	return o.Format
}

// Frame is one extracted thumbnail frame.
type Frame struct {
	Index     int
	Timestamp float64
	Data      []byte
}

// ChunkOptions configures fixed-duration chunk processing.
type ChunkOptions struct {
	SegmentDuration float64
	Overlap         float64
	Quality         models.QualityTier
	TargetSizeMB    float64
}

// ChunkOutput is one produced segment.
type ChunkOutput struct {
	Index          int
	Data           []byte
	StartTime      float64
	Duration       float64
	Size           int64
	Quality        models.QualityTier
	ProcessingTime time.Duration
}

// ChunkResult bundles the produced chunks with the metadata that drove the
// boundary computation.
type ChunkResult struct {
	Chunks   []ChunkOutput
	Metadata *models.VideoMetadata
}

type qualitySettings struct {
	videoCodec   string
	audioCodec   string
	videoBitrate string
	audioBitrate string
	preset       string
}

var qualityTable = map[models.QualityTier]qualitySettings{
	models.QualityHigh:   {"libx264", "aac", "2M", "128k", "medium"},
	models.QualityMedium: {"libx264", "aac", "1M", "96k", "fast"},
	models.QualityLow:    {"libx264", "aac", "500k", "64k", "veryfast"},
}

// VideoProcessor owns the media engine lifecycle and exposes the probe,
// thumbnail and chunk primitives the rest of the pipeline builds on. The
// engine is non-reentrant, so every operation serializes on engineMu; the
// single-flight group keeps identical logical operations from queueing up
// duplicate engine work behind each other.
type VideoProcessor struct {
	engine mediaengine.Engine
	logger logger.Logger

	mu     sync.Mutex
	loaded bool

	engineMu sync.Mutex
	flight   *flightGroup
}

func NewVideoProcessor(engine mediaengine.Engine, log logger.Logger) *VideoProcessor {
	if log == nil {
		log = logger.NopLogger
	}
	return &VideoProcessor{
		engine: engine,
		logger: log,
		flight: newFlightGroup(),
	}
}

// Initialize loads the engine exactly once; subsequent calls are no-ops while
// loaded.
func (p *VideoProcessor) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return nil
	}
	if err := p.engine.Load(ctx); err != nil {
		return &EngineInitError{Cause: err}
	}
	p.loaded = true
	p.logger.Info("video processor initialized")
	return nil
}

// Cleanup terminates the engine and resets loaded state. Safe to call when
// not initialized.
func (p *VideoProcessor) Cleanup(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return nil
	}
	p.loaded = false
	if err := p.engine.Terminate(ctx); err != nil {
		return fmt.Errorf("engine terminate: %w", err)
	}
	return nil
}

// ProcessWithQueue deduplicates concurrent operations that share a key: while
// one is in flight, every caller with the same key receives its result.
func (p *VideoProcessor) ProcessWithQueue(ctx context.Context, key string, op func() (interface{}, error)) (interface{}, error) {
	return p.flight.Do(ctx, key, op)
}

// ExtractMetadata probes the source and returns structured metadata. Probe
// failures degrade to a byte-length estimate (Estimated=true, Duration=0)
// instead of failing the caller.
func (p *VideoProcessor) ExtractMetadata(ctx context.Context, src *models.Source) (*models.VideoMetadata, error) {
	if err := p.Initialize(ctx); err != nil {
		return nil, err
	}
	p.engineMu.Lock()
	defer p.engineMu.Unlock()

	if err := p.engine.WriteFile(ctx, inputFileName, src.Data); err != nil {
		return nil, fmt.Errorf("write input: %w", err)
	}
	defer p.discard(inputFileName)

	return p.probeInput(ctx, src), nil
}

// probeInput assumes the input file is already in the engine workspace.
func (p *VideoProcessor) probeInput(ctx context.Context, src *models.Source) *models.VideoMetadata {
	out, err := p.engine.Exec(ctx, []string{"-i", inputFileName, "-hide_banner", "-f", "null", "-"})
	if err != nil && out == "" {
		p.logger.Warnf("probe failed for %s: %v, using estimated metadata", src.Identity(), err)
		return estimatedMetadata(src)
	}

	r, ok := parseProbeOutput(out)
	if !ok {
		p.logger.Warnf("probe output unparseable for %s, using estimated metadata", src.Identity())
		return estimatedMetadata(src)
	}

	m := &models.VideoMetadata{
		Duration:        r.Duration,
		Width:           r.Width,
		Height:          r.Height,
		FPS:             r.FPS,
		Bitrate:         r.Bitrate,
		Format:          r.Format,
		Codec:           r.Codec,
		FileSize:        src.Size(),
		HasAudio:        r.HasAudio,
		AudioCodec:      r.AudioCodec,
		AudioBitrate:    r.AudioBitrate,
		AudioSampleRate: r.AudioSampleRate,
		AudioChannels:   r.AudioChannels,
	}
	if m.FPS == 0 {
		m.FPS = fallbackFPS
	}
	if m.Format == "" {
		m.Format = "unknown"
	}
	if m.Codec == "" {
		m.Codec = "unknown"
	}
	if m.Width > 0 && m.Height > 0 {
		m.AspectRatio = fmt.Sprintf("%d:%d", m.Width, m.Height)
	} else {
		m.AspectRatio = "16:9"
	}
	return m
}

// estimatedMetadata is the degraded-result path: a fully populated object
// derived only from the byte length, distinguishable by Estimated and the
// zero duration.
func estimatedMetadata(src *models.Source) *models.VideoMetadata {
	format := src.Ext()
	if format == "" {
		format = "mp4"
	}
	return &models.VideoMetadata{
		Duration:    0,
		Width:       fallbackWidth,
		Height:      fallbackHeight,
		FPS:         fallbackFPS,
		Bitrate:     src.Size() * 8 / 1000,
		Format:      format,
		Codec:       "h264",
		FileSize:    src.Size(),
		AspectRatio: "16:9",
		HasAudio:    true,
		AudioCodec:  "aac",
		Estimated:   true,
	}
}

// GenerateThumbnails extracts one frame per timestamp. The call is
// all-or-nothing: a failed extraction aborts the whole run, and the input
// file is removed on every path.
func (p *VideoProcessor) GenerateThumbnails(ctx context.Context, src *models.Source, opts ThumbnailOptions) ([]Frame, error) {
	if err := p.Initialize(ctx); err != nil {
		return nil, err
	}
	p.engineMu.Lock()
	defer p.engineMu.Unlock()

	if err := p.engine.WriteFile(ctx, inputFileName, src.Data); err != nil {
		return nil, fmt.Errorf("write input: %w", err)
	}
	defer p.discard(inputFileName)

	timestamps := opts.Timestamps
	if len(timestamps) == 0 {
		meta := p.probeInput(ctx, src)
		timestamps = UniformTimestamps(meta.Duration, opts.Count)
	}

	frames := make([]Frame, 0, len(timestamps))
	for i, ts := range timestamps {
		outName := fmt.Sprintf("thumbnail_%d.%s", i, opts.format())
		args := []string{
			"-i", inputFileName,
			"-ss", formatSeconds(ts),
			"-vframes", "1",
			"-f", "image2",
			"-y",
		}
		switch {
		case opts.Width > 0 && opts.Height > 0:
			args = append(args, "-s", fmt.Sprintf("%dx%d", opts.Width, opts.Height))
		case opts.Width > 0:
			args = append(args, "-vf", fmt.Sprintf("scale=%d:-1", opts.Width))
		case opts.Height > 0:
			args = append(args, "-vf", fmt.Sprintf("scale=-1:%d", opts.Height))
		}
		if opts.Quality > 0 && opts.format() == "jpeg" {
			// Map 1-100 quality onto ffmpeg's inverted 2-31 qscale range.
			qscale := int(float64(100-opts.Quality)/3.125) + 2
			args = append(args, "-q:v", strconv.Itoa(qscale))
		}
		args = append(args, outName)

		if _, err := p.engine.Exec(ctx, args); err != nil {
			return nil, fmt.Errorf("thumbnail extraction at %.2fs: %w", ts, err)
		}
		data, err := p.engine.ReadFile(ctx, outName)
		if err != nil {
			return nil, fmt.Errorf("read thumbnail %d: %w", i, err)
		}
		p.discard(outName)

		frames = append(frames, Frame{Index: i, Timestamp: ts, Data: data})
	}
	return frames, nil
}

// ProcessVideoChunks cuts the source into fixed-duration re-encoded segments.
// Re-encodes run sequentially; outputs are returned in chunk index order.
func (p *VideoProcessor) ProcessVideoChunks(ctx context.Context, src *models.Source, opts ChunkOptions) (*ChunkResult, error) {
	if err := p.Initialize(ctx); err != nil {
		return nil, err
	}
	if opts.SegmentDuration <= 0 {
		return nil, fmt.Errorf("segment duration must be positive, got %.2f", opts.SegmentDuration)
	}
	p.engineMu.Lock()
	defer p.engineMu.Unlock()

	if err := p.engine.WriteFile(ctx, inputFileName, src.Data); err != nil {
		return nil, fmt.Errorf("write input: %w", err)
	}
	defer p.discard(inputFileName)

	meta := p.probeInput(ctx, src)
	total := meta.Duration
	numChunks := int(math.Ceil(total / opts.SegmentDuration))

	chunks := make([]ChunkOutput, 0, numChunks)
	for i := 0; i < numChunks; i++ {
		start := math.Max(0, float64(i)*opts.SegmentDuration-opts.Overlap)
		end := math.Min(total, float64(i+1)*opts.SegmentDuration+opts.Overlap)
		dur := end - start
		if dur <= 0 {
			continue
		}
		chunk, err := p.encodeRange(ctx, i, start, dur, opts)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	p.logger.Infof("processed %d chunks for %s", len(chunks), src.Identity())
	return &ChunkResult{Chunks: chunks, Metadata: meta}, nil
}

// ProcessSegment re-encodes a single [start, start+duration) window. Used by
// scene-aware chunking, which chooses its own boundaries.
func (p *VideoProcessor) ProcessSegment(ctx context.Context, src *models.Source, start, duration float64, opts ChunkOptions) (*ChunkOutput, error) {
	if err := p.Initialize(ctx); err != nil {
		return nil, err
	}
	if duration <= 0 {
		return nil, fmt.Errorf("segment duration must be positive, got %.2f", duration)
	}
	p.engineMu.Lock()
	defer p.engineMu.Unlock()

	if err := p.engine.WriteFile(ctx, inputFileName, src.Data); err != nil {
		return nil, fmt.Errorf("write input: %w", err)
	}
	defer p.discard(inputFileName)

	return p.encodeRange(ctx, 0, start, duration, opts)
}

// encodeRange assumes the input file is present. It trims and re-encodes one
// range with the quality tier's codec parameters, reads the result back and
// removes the output file.
func (p *VideoProcessor) encodeRange(ctx context.Context, index int, start, duration float64, opts ChunkOptions) (*ChunkOutput, error) {
	quality := opts.Quality
	if quality == "" {
		quality = models.QualityMedium
	}
	settings, ok := qualityTable[quality]
	if !ok {
		return nil, fmt.Errorf("unknown quality tier %q", quality)
	}

	began := time.Now()
	outName := fmt.Sprintf("chunk_%d.mp4", index)
	args := []string{
		"-i", inputFileName,
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-c:v", settings.videoCodec,
		"-c:a", settings.audioCodec,
		"-b:v", settings.videoBitrate,
		"-b:a", settings.audioBitrate,
		"-preset", settings.preset,
		"-movflags", "+faststart",
	}
	if opts.TargetSizeMB > 0 {
		targetKbps := int(opts.TargetSizeMB * 8 * 1024 / duration)
		args = append(args, "-b:v", fmt.Sprintf("%dk", targetKbps))
	}
	args = append(args, "-y", outName)

	if _, err := p.engine.Exec(ctx, args); err != nil {
		return nil, fmt.Errorf("chunk %d encode: %w", index, err)
	}
	data, err := p.engine.ReadFile(ctx, outName)
	if err != nil {
		return nil, fmt.Errorf("read chunk %d: %w", index, err)
	}
	p.discard(outName)

	return &ChunkOutput{
		Index:          index,
		Data:           data,
		StartTime:      start,
		Duration:       duration,
		Size:           int64(len(data)),
		Quality:        quality,
		ProcessingTime: time.Since(began),
	}, nil
}

// discard removes a workspace file, ignoring failures: cleanup must not mask
// the operation's own error.
func (p *VideoProcessor) discard(name string) {
	if err := p.engine.DeleteFile(context.Background(), name); err != nil {
		p.logger.Debugf("cleanup of %s failed: %v", name, err)
	}
}

// UniformTimestamps spaces count timestamps evenly across the duration,
// avoiding both 0 and the final frame: duration/(count+1)*i for i in 1..count.
func UniformTimestamps(duration float64, count int) []float64 {
	if count <= 0 || duration <= 0 {
		return nil
	}
	interval := duration / float64(count+1)
	timestamps := make([]float64, 0, count)
	for i := 1; i <= count; i++ {
		timestamps = append(timestamps, math.Floor(interval*float64(i)))
	}
	return timestamps
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
