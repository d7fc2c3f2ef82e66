package chunker

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/clipforge/video-pipeline/internal/metadata"
	"github.com/clipforge/video-pipeline/internal/models"
	"github.com/clipforge/video-pipeline/internal/processor"
	"github.com/clipforge/video-pipeline/pkg/logger"
	"github.com/clipforge/video-pipeline/pkg/utils"
)

// Strategy is one named chunking profile. MaxBitrate zero means adaptive:
// the encoder bitrate follows the quality tier instead of a fixed cap.
type Strategy struct {
	Name            string
	SegmentDuration float64
	Overlap         float64
	MaxChunkSizeMB  float64
	Quality         models.QualityTier
	MaxBitrate      int64
	SceneAware      bool
}

// DefaultStrategyName is used when a caller leaves the strategy blank and as
// the defaults template for registered custom strategies.
const DefaultStrategyName = "ai-analysis"

func builtinStrategies() map[string]Strategy {
	return map[string]Strategy{
		"ai-analysis": {
			Name:            "ai-analysis",
			SegmentDuration: 30,
			Overlap:         2,
			MaxChunkSizeMB:  50,
			Quality:         models.QualityMedium,
			MaxBitrate:      1_000_000,
			SceneAware:      true,
		},
		"social-media": {
			Name:            "social-media",
			SegmentDuration: 15,
			Overlap:         1,
			MaxChunkSizeMB:  25,
			Quality:         models.QualityMedium,
			MaxBitrate:      800_000,
		},
		"high-quality": {
			Name:            "high-quality",
			SegmentDuration: 60,
			Overlap:         3,
			MaxChunkSizeMB:  100,
			Quality:         models.QualityHigh,
			SceneAware:      true,
		},
		"memory-efficient": {
			Name:            "memory-efficient",
			SegmentDuration: 10,
			Overlap:         0.5,
			MaxChunkSizeMB:  10,
			Quality:         models.QualityLow,
			MaxBitrate:      500_000,
		},
		"adaptive": {
			Name:            "adaptive",
			SegmentDuration: 20,
			Overlap:         1.5,
			MaxChunkSizeMB:  40,
			Quality:         models.QualityMedium,
			SceneAware:      true,
		},
	}
}

// UnknownStrategyError reports a strategy name with no registration.
type UnknownStrategyError struct {
	Name string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown chunking strategy %q", e.Name)
}

// OptimizationResult is the full outcome of one optimization run.
type OptimizationResult struct {
	Strategy         string                  `json:"strategy"`
	Chunks           []processor.ChunkOutput `json:"chunks"`
	Metadata         *models.VideoMetadata   `json:"metadata"`
	TotalInputSize   int64                   `json:"total_input_size"`
	TotalOutputSize  int64                   `json:"total_output_size"`
	CompressionRatio float64                 `json:"compression_ratio"`
	SceneChanges     []float64               `json:"scene_changes,omitempty"`
	Recommendations  []string                `json:"recommendations"`
	ProcessingTime   time.Duration           `json:"processing_time"`
}

// ProcessingEstimate predicts the cost of a run without touching the engine.
type ProcessingEstimate struct {
	ChunkCount      int           `json:"chunk_count"`
	EstimatedTime   time.Duration `json:"estimated_time"`
	EstimatedMemMB  float64       `json:"estimated_mem_mb"`
	EstimatedOutput int64         `json:"estimated_output"`
}

type BatchItem struct {
	Source   *models.Source
	Strategy string
}

type BatchResult struct {
	Index  int
	Result *OptimizationResult
	Err    error
}

// Optimizer cuts sources into chunks per a named strategy, adapting the
// strategy to the probed source before encoding.
type Optimizer struct {
	processor *processor.VideoProcessor
	detector  *PseudoSceneDetector
	logger    logger.Logger

	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewOptimizer builds an optimizer with the built-in strategies. A nil
// detector gets a time-seeded default.
func NewOptimizer(proc *processor.VideoProcessor, detector *PseudoSceneDetector, log logger.Logger) *Optimizer {
	if detector == nil {
		detector = newDefaultSceneDetector()
	}
	if log == nil {
		log = logger.NopLogger
	}
	return &Optimizer{
		processor:  proc,
		detector:   detector,
		logger:     log,
		strategies: builtinStrategies(),
	}
}

// RegisterStrategy adds or replaces a strategy. Zero fields are filled from
// the ai-analysis defaults, so a registration only needs to name what it
// changes.
func (o *Optimizer) RegisterStrategy(s Strategy) error {
	if s.Name == "" {
		return errors.New("strategy name is required")
	}
	defaults := builtinStrategies()[DefaultStrategyName]
	if s.SegmentDuration <= 0 {
		s.SegmentDuration = defaults.SegmentDuration
	}
	if s.Overlap < 0 {
		s.Overlap = defaults.Overlap
	}
	if s.MaxChunkSizeMB <= 0 {
		s.MaxChunkSizeMB = defaults.MaxChunkSizeMB
	}
	if s.Quality == "" {
		s.Quality = defaults.Quality
	}
	o.mu.Lock()
	o.strategies[s.Name] = s
	o.mu.Unlock()
	return nil
}

// Strategies lists the registered strategy names in sorted order.
func (o *Optimizer) Strategies() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := make([]string, 0, len(o.strategies))
	for name := range o.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (o *Optimizer) lookup(name string) (Strategy, error) {
	if name == "" {
		name = DefaultStrategyName
	}
	o.mu.RLock()
	s, ok := o.strategies[name]
	o.mu.RUnlock()
	if !ok {
		return Strategy{}, &UnknownStrategyError{Name: name}
	}
	return s, nil
}

// OptimizeVideoChunks runs the named strategy over the source. Concurrent
// calls for an equal source and strategy share one run.
func (o *Optimizer) OptimizeVideoChunks(ctx context.Context, src *models.Source, strategyName string) (*OptimizationResult, error) {
	strategy, err := o.lookup(strategyName)
	if err != nil {
		return nil, err
	}

	key := "optimize|" + src.Identity() + "|" + strategy.Name
	v, err := o.processor.ProcessWithQueue(ctx, key, func() (interface{}, error) {
		return o.optimize(ctx, src, strategy)
	})
	if err != nil {
		return nil, err
	}
	return v.(*OptimizationResult), nil
}

func (o *Optimizer) optimize(ctx context.Context, src *models.Source, strategy Strategy) (*OptimizationResult, error) {
	began := time.Now()

	meta, err := o.processor.ExtractMetadata(ctx, src)
	if err != nil {
		return nil, errors.Wrap(err, "chunker: probe source")
	}
	strategy = adaptStrategy(strategy, meta)

	opts := processor.ChunkOptions{
		SegmentDuration: strategy.SegmentDuration,
		Overlap:         strategy.Overlap,
		Quality:         strategy.Quality,
		TargetSizeMB:    bitrateCapSizeMB(strategy),
	}

	var (
		chunks       []processor.ChunkOutput
		sceneChanges []float64
	)
	if strategy.SceneAware && meta.Duration > 0 {
		chunks, sceneChanges, err = o.chunkByScenes(ctx, src, meta, strategy, opts)
	} else {
		var res *processor.ChunkResult
		res, err = o.processor.ProcessVideoChunks(ctx, src, opts)
		if res != nil {
			chunks = res.Chunks
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "chunker: strategy %s", strategy.Name)
	}

	var totalOutput int64
	for _, c := range chunks {
		totalOutput += c.Size
	}
	result := &OptimizationResult{
		Strategy:        strategy.Name,
		Chunks:          chunks,
		Metadata:        meta,
		TotalInputSize:  src.Size(),
		TotalOutputSize: totalOutput,
		SceneChanges:    sceneChanges,
		ProcessingTime:  time.Since(began),
	}
	if totalOutput > 0 {
		result.CompressionRatio = float64(src.Size()) / float64(totalOutput)
	}
	result.Recommendations = recommend(result, strategy)

	o.logger.Infof("optimized %s with %s: %d chunks, %s out",
		src.Identity(), strategy.Name, len(chunks), utils.FormatBytes(totalOutput))
	return result, nil
}

// chunkByScenes encodes one chunk per detected scene window and collects the
// start times of windows flagged as hard cuts.
func (o *Optimizer) chunkByScenes(ctx context.Context, src *models.Source, meta *models.VideoMetadata, strategy Strategy, opts processor.ChunkOptions) ([]processor.ChunkOutput, []float64, error) {
	scenes := o.detector.DetectScenes(meta.Duration, strategy.SegmentDuration)

	chunks := make([]processor.ChunkOutput, 0, len(scenes))
	var sceneChanges []float64
	for i, scene := range scenes {
		chunk, err := o.processor.ProcessSegment(ctx, src, scene.Start, scene.End-scene.Start, opts)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "scene %d [%.2f, %.2f)", i, scene.Start, scene.End)
		}
		chunk.Index = i
		chunks = append(chunks, *chunk)
		if scene.SceneChange {
			sceneChanges = append(sceneChanges, scene.Start)
		}
	}
	return chunks, sceneChanges, nil
}

// EstimateProcessing predicts chunk count, runtime, memory and output size
// without engine work. A zero duration assumes a 60 second source.
func (o *Optimizer) EstimateProcessing(sizeBytes int64, duration float64, strategyName string) (*ProcessingEstimate, error) {
	strategy, err := o.lookup(strategyName)
	if err != nil {
		return nil, err
	}
	if duration <= 0 {
		duration = 60
	}

	sizeMB := float64(sizeBytes) / (1024 * 1024)
	memFactor, outputFactor := 2.0, 0.6
	switch strategy.Quality {
	case models.QualityHigh:
		memFactor, outputFactor = 3.0, 0.8
	case models.QualityLow:
		memFactor, outputFactor = 1.0, 0.4
	}

	return &ProcessingEstimate{
		ChunkCount:      int(math.Ceil(duration / strategy.SegmentDuration)),
		EstimatedTime:   time.Duration(duration*200) * time.Millisecond,
		EstimatedMemMB:  math.Max(100, sizeMB*memFactor),
		EstimatedOutput: int64(float64(sizeBytes) * outputFactor),
	}, nil
}

// BatchOptimizeChunks runs OptimizeVideoChunks over items in bounded waves.
// Each item owns its result slot.
func (o *Optimizer) BatchOptimizeChunks(ctx context.Context, items []BatchItem, concurrency int) []BatchResult {
	results := make([]BatchResult, len(items))
	_ = utils.RunInWaves(ctx, len(items), concurrency, func(i int) {
		res, err := o.OptimizeVideoChunks(ctx, items[i].Source, items[i].Strategy)
		results[i] = BatchResult{Index: i, Result: res, Err: err}
	})
	return results
}

// adaptStrategy tunes the profile to the probed source: very short sources
// get finer segments, very long ones coarser; low-quality sources drop to the
// low tier with a bitrate cap, high-quality ones are promoted unless the
// strategy deliberately encodes low; vertical sources get a tighter size
// budget.
func adaptStrategy(s Strategy, meta *models.VideoMetadata) Strategy {
	if meta.Duration > 0 && meta.Duration < 60 {
		s.SegmentDuration = math.Min(s.SegmentDuration, meta.Duration/4)
	}
	if meta.Duration > 3600 {
		s.SegmentDuration = math.Max(s.SegmentDuration, 60)
	}
	switch metadata.EstimateQuality(meta) {
	case models.QualityLow:
		s.Quality = models.QualityLow
		if s.MaxBitrate == 0 || s.MaxBitrate > 500_000 {
			s.MaxBitrate = 500_000
		}
	case models.QualityHigh:
		if s.Quality != models.QualityLow {
			s.Quality = models.QualityHigh
		}
	}
	if meta.Height > meta.Width {
		s.MaxChunkSizeMB *= 0.8
	}
	return s
}

// bitrateCapSizeMB converts a fixed bitrate cap into the per-chunk size the
// encoder targets; adaptive strategies return zero and leave the bitrate to
// the quality tier.
func bitrateCapSizeMB(s Strategy) float64 {
	if s.MaxBitrate == 0 {
		return 0
	}
	capMB := float64(s.MaxBitrate) * s.SegmentDuration / 8 / 1024 / 1024
	return math.Min(capMB, s.MaxChunkSizeMB)
}

func recommend(r *OptimizationResult, s Strategy) []string {
	var recs []string

	capBytes := int64(s.MaxChunkSizeMB * 1024 * 1024)
	var maxSize, sumSize int64
	for _, c := range r.Chunks {
		sumSize += c.Size
		if c.Size > maxSize {
			maxSize = c.Size
		}
	}
	if capBytes > 0 && len(r.Chunks) > 0 {
		if maxSize > capBytes*12/10 {
			recs = append(recs, "largest chunk exceeds the size budget; lower the quality tier or shorten segments")
		}
		avg := sumSize / int64(len(r.Chunks))
		if avg < capBytes/2 {
			recs = append(recs, "chunks average well under the size budget; longer segments would reduce overhead")
		}
	}
	if len(r.Chunks) > 20 {
		recs = append(recs, "high chunk count; consider longer segments to reduce per-chunk overhead")
	}
	if len(r.Chunks) < 3 && r.Metadata.Duration > 180 {
		recs = append(recs, "few chunks for a long source; shorter segments would improve parallelism")
	}
	if r.Metadata.Height > r.Metadata.Width {
		recs = append(recs, "vertical source; social-media oriented strategies usually fit better")
	}
	if metadata.EstimateQuality(r.Metadata) == models.QualityLow {
		recs = append(recs, "low source quality; higher encode tiers will not recover detail")
	}
	if motionScore(r.Metadata) > 7 {
		recs = append(recs, "high motion content; scene-aware strategies preserve cuts better")
	}
	return recs
}

func motionScore(m *models.VideoMetadata) float64 {
	return math.Min(10, math.Max(1, float64(m.Bitrate)/200_000))
}
