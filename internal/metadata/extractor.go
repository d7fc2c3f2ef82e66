package metadata

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/clipforge/video-pipeline/internal/models"
	"github.com/clipforge/video-pipeline/internal/processor"
	"github.com/clipforge/video-pipeline/pkg/logger"
	"github.com/clipforge/video-pipeline/pkg/utils"
)

const (
	// Quality tier thresholds: resolution and bitrate must both clear the bar.
	highResPixels   = 1920 * 1080
	highBitrate     = 2_000_000
	mediumResPixels = 1280 * 720
	mediumBitrate   = 1_000_000

	// A dimension delta under this many pixels counts as square.
	squareTolerance = 50

	defaultAudioChannels = 2
	defaultMotionScore   = 5.0
)

// ExtractionOptions toggles the optional enrichment layers. Each layer is
// independent of the others.
type ExtractionOptions struct {
	IncludeAdvanced        bool
	IncludeContentAnalysis bool
	IncludeSNSOptimization bool
}

type BatchItem struct {
	Source  *models.Source
	Options ExtractionOptions
}

type BatchResult struct {
	Index          int
	Metadata       *models.DetailedVideoMetadata
	Err            error
	ProcessingTime time.Duration
}

// Extractor turns raw probe data into decision-ready metadata, optionally
// enriched with content and SNS heuristics.
type Extractor struct {
	processor *processor.VideoProcessor
	logger    logger.Logger
}

func NewExtractor(proc *processor.VideoProcessor, log logger.Logger) *Extractor {
	if log == nil {
		log = logger.NopLogger
	}
	return &Extractor{processor: proc, logger: log}
}

// ExtractDetailedMetadata builds the full metadata object. Engine failures
// degrade to a synthetic fallback rather than propagating; only an invalid
// source is an error, and it is rejected before any engine work.
func (e *Extractor) ExtractDetailedMetadata(ctx context.Context, src *models.Source, opts ExtractionOptions) (*models.DetailedVideoMetadata, error) {
	if src == nil || len(src.Data) == 0 {
		return nil, fmt.Errorf("metadata extraction requires a non-empty source")
	}
	start := time.Now()

	basic, err := e.processor.ExtractMetadata(ctx, src)
	if err != nil {
		e.logger.Warnf("metadata extraction degraded for %s: %v", src.Identity(), err)
		return e.fallbackMetadata(src, start), nil
	}

	d := &models.DetailedVideoMetadata{
		VideoMetadata: *basic,

		EstimatedQuality: EstimateQuality(basic),
		CompressionRatio: compressionRatio(basic),

		HasMotion:        true,
		AvgMotionScore:   defaultMotionScore,
		SceneChangeCount: 0,

		IsVertical:   basic.Height > basic.Width,
		IsSquare:     abs(basic.Width-basic.Height) < squareTolerance,
		IsHorizontal: basic.Width > basic.Height,

		ExtractedAt: time.Now().UTC(),
		Method:      models.MethodProbe,
	}
	if d.AudioChannels == 0 && d.HasAudio {
		d.AudioChannels = defaultAudioChannels
	}
	d.RecommendedPlatforms = recommendPlatforms(basic)
	d.SuggestedCropRegions = suggestCropRegions(basic)

	if opts.IncludeAdvanced {
		applyAdvancedDefaults(d)
	}
	if opts.IncludeContentAnalysis {
		applyContentHeuristics(d, basic)
	}
	if opts.IncludeSNSOptimization {
		applySNSCrops(d)
	}

	d.ProcessingTime = time.Since(start)
	return d, nil
}

// ExtractQuickMetadata is the O(1) path: file size plus a format guessed from
// the filename extension, with no engine interaction.
func (e *Extractor) ExtractQuickMetadata(src *models.Source) *models.DetailedVideoMetadata {
	format := "unknown"
	if src.Name != "" {
		format = GuessFormat(src.Name)
	}
	return &models.DetailedVideoMetadata{
		VideoMetadata: models.VideoMetadata{
			FileSize: src.Size(),
			Format:   format,
		},
		ExtractedAt: time.Now().UTC(),
		Method:      models.MethodQuick,
	}
}

// BatchExtractMetadata processes items in bounded waves of size concurrency.
// A failing item fills its own result slot; siblings in the same and later
// waves are unaffected.
func (e *Extractor) BatchExtractMetadata(ctx context.Context, items []BatchItem, concurrency int) []BatchResult {
	results := make([]BatchResult, len(items))
	_ = utils.RunInWaves(ctx, len(items), concurrency, func(i int) {
		start := time.Now()
		m, err := e.ExtractDetailedMetadata(ctx, items[i].Source, items[i].Options)
		results[i] = BatchResult{
			Index:          i,
			Metadata:       m,
			Err:            err,
			ProcessingTime: time.Since(start),
		}
	})
	return results
}

// EstimateQuality classifies a source by resolution and bitrate together.
func EstimateQuality(m *models.VideoMetadata) models.QualityTier {
	pixels := m.Width * m.Height
	switch {
	case pixels >= highResPixels && m.Bitrate >= highBitrate:
		return models.QualityHigh
	case pixels >= mediumResPixels && m.Bitrate >= mediumBitrate:
		return models.QualityMedium
	default:
		return models.QualityLow
	}
}

// compressionRatio compares an uncompressed RGB estimate against the actual
// file size.
func compressionRatio(m *models.VideoMetadata) float64 {
	if m.FileSize == 0 {
		return 0
	}
	uncompressed := float64(m.Width) * float64(m.Height) * 3 * m.FPS * m.Duration
	return uncompressed / float64(m.FileSize)
}

func recommendPlatforms(m *models.VideoMetadata) []string {
	if m.Height == 0 {
		return nil
	}
	aspect := float64(m.Width) / float64(m.Height)

	var platforms []string
	if aspect > 1.5 {
		platforms = append(platforms, "youtube", "facebook", "twitter")
	}
	if math.Abs(aspect-1) < 0.1 {
		platforms = append(platforms, "instagram-post", "facebook", "linkedin")
	}
	if aspect < 0.8 {
		platforms = append(platforms, "tiktok", "instagram-story", "youtube-shorts")
	}
	return platforms
}

func suggestCropRegions(m *models.VideoMetadata) []models.CropRegion {
	var regions []models.CropRegion

	// Centered square crop when the source isn't square already.
	if m.Width != m.Height {
		size := m.Width
		if m.Height < size {
			size = m.Height
		}
		regions = append(regions, models.CropRegion{
			Platform:   "instagram-post",
			X:          (m.Width - size) / 2,
			Y:          (m.Height - size) / 2,
			Width:      size,
			Height:     size,
			Confidence: 0.9,
		})
	}

	// Centered 16:9 crop when the source isn't 16:9 and is wide enough.
	if m.Height > 0 && float64(m.Width)/float64(m.Height) != 16.0/9.0 {
		targetWidth := float64(m.Height) * 16 / 9
		if targetWidth <= float64(m.Width) {
			regions = append(regions, models.CropRegion{
				Platform:   "youtube",
				X:          int((float64(m.Width) - targetWidth) / 2),
				Y:          0,
				Width:      int(targetWidth),
				Height:     m.Height,
				Confidence: 0.85,
			})
		}
	}
	return regions
}

// applyAdvancedDefaults fills container/codec fields the engine does not
// expose with the common H.264 delivery profile.
func applyAdvancedDefaults(d *models.DetailedVideoMetadata) {
	d.KeyframeInterval = 30
	d.ColorSpace = "bt709"
	d.ColorRange = "tv"
	d.PixelFormat = "yuv420p"
	d.Profile = "High"
	d.Level = "4.0"
	d.BitDepth = 8
}

// applyContentHeuristics estimates motion from bitrate and scene changes from
// duration. Frame-accurate analysis is too expensive for this path.
func applyContentHeuristics(d *models.DetailedVideoMetadata, basic *models.VideoMetadata) {
	d.HasMotion = basic.Bitrate > 500_000
	score := float64(basic.Bitrate) / 200_000
	d.AvgMotionScore = math.Min(10, math.Max(1, score))
	d.SceneChangeCount = int(math.Max(1, math.Floor(basic.Duration/5)))
	d.BlackFrameCount = 0
}

// applySNSCrops adds a vertical story crop for horizontal sources.
func applySNSCrops(d *models.DetailedVideoMetadata) {
	if !d.IsHorizontal {
		return
	}
	storyWidth := d.Height * 9 / 16
	d.SuggestedCropRegions = append(d.SuggestedCropRegions, models.CropRegion{
		Platform:   "instagram-story",
		X:          (d.Width - storyWidth) / 2,
		Y:          0,
		Width:      storyWidth,
		Height:     d.Height,
		Confidence: 0.8,
	})
}

func (e *Extractor) fallbackMetadata(src *models.Source, start time.Time) *models.DetailedVideoMetadata {
	format := "mp4"
	if src.Name != "" {
		format = GuessFormat(src.Name)
	}
	return &models.DetailedVideoMetadata{
		VideoMetadata: models.VideoMetadata{
			Duration:    0,
			Width:       1920,
			Height:      1080,
			FPS:         30,
			Bitrate:     src.Size() * 8 / 1000,
			Format:      format,
			Codec:       "h264",
			FileSize:    src.Size(),
			AspectRatio: "16:9",
			HasAudio:    true,
			AudioCodec:  "aac",
			Estimated:   true,
		},
		EstimatedQuality:     models.QualityMedium,
		CompressionRatio:     100,
		HasMotion:            true,
		AvgMotionScore:       defaultMotionScore,
		IsHorizontal:         true,
		RecommendedPlatforms: []string{"youtube", "facebook"},
		ExtractedAt:          time.Now().UTC(),
		ProcessingTime:       time.Since(start),
		Method:               models.MethodFallback,
	}
}

var formatByExt = map[string]string{
	"mp4":  "mp4",
	"avi":  "avi",
	"mov":  "mov",
	"mkv":  "matroska",
	"webm": "webm",
	"flv":  "flv",
	"wmv":  "wmv",
	"m4v":  "mp4",
}

// GuessFormat maps a filename extension to a container format name.
func GuessFormat(filename string) string {
	ext := (&models.Source{Name: filename}).Ext()
	if ext == "" {
		return "unknown"
	}
	if format, ok := formatByExt[ext]; ok {
		return format
	}
	return ext
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
