package chunker

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/clipforge/video-pipeline/internal/mediaengine"
	"github.com/clipforge/video-pipeline/internal/models"
	"github.com/clipforge/video-pipeline/internal/processor"
)

const probe100s = `Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'input_video':
  Duration: 00:01:40.00, start: 0.000000, bitrate: 1200 kb/s
  Stream #0:0(und): Video: h264 (High) (avc1 / 0x31637661), yuv420p, 1280x720, 1100 kb/s, 30 fps, 30 tbr`

const probe30s = `Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'input_video':
  Duration: 00:00:30.00, start: 0.000000, bitrate: 1200 kb/s
  Stream #0:0(und): Video: h264 (High) (avc1 / 0x31637661), yuv420p, 1280x720, 1100 kb/s, 30 fps, 30 tbr`

func newTestOptimizer(engine *mediaengine.FakeEngine) *Optimizer {
	proc := processor.NewVideoProcessor(engine, nil)
	return NewOptimizer(proc, NewPseudoSceneDetector(1), nil)
}

func src(name string, size int) *models.Source {
	return models.NewSource(name, make([]byte, size))
}

func TestOptimizeVideoChunks_UnknownStrategy(t *testing.T) {
	o := newTestOptimizer(mediaengine.NewFakeEngine())

	_, err := o.OptimizeVideoChunks(context.Background(), src("clip.mp4", 100), "does-not-exist")
	var unknownErr *UnknownStrategyError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownStrategyError, got %v", err)
	}
	if unknownErr.Name != "does-not-exist" {
		t.Errorf("error names %q", unknownErr.Name)
	}
}

func TestOptimizeVideoChunks_FixedStrategy(t *testing.T) {
	engine := mediaengine.NewFakeEngine()
	engine.ProbeOutput = probe100s
	engine.OutputData = []byte("chunk-bytes")
	o := newTestOptimizer(engine)

	res, err := o.OptimizeVideoChunks(context.Background(), src("clip.mp4", 1000), "social-media")
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if res.Strategy != "social-media" {
		t.Errorf("strategy = %q", res.Strategy)
	}
	// 100s at 15s segments.
	if want := int(math.Ceil(100.0 / 15)); len(res.Chunks) != want {
		t.Errorf("got %d chunks, want %d", len(res.Chunks), want)
	}
	if res.SceneChanges != nil {
		t.Error("fixed strategy should not report scene changes")
	}
	if res.TotalInputSize != 1000 {
		t.Errorf("input size = %d, want 1000", res.TotalInputSize)
	}
	wantOutput := int64(len(res.Chunks) * len("chunk-bytes"))
	if res.TotalOutputSize != wantOutput {
		t.Errorf("output size = %d, want %d", res.TotalOutputSize, wantOutput)
	}
	if res.CompressionRatio != 1000/float64(wantOutput) {
		t.Errorf("compression ratio = %v, want original size over chunk total", res.CompressionRatio)
	}
}

func TestOptimizeVideoChunks_SceneAwareCoverage(t *testing.T) {
	engine := mediaengine.NewFakeEngine()
	engine.ProbeOutput = probe100s
	engine.OutputData = []byte("chunk-bytes")
	o := newTestOptimizer(engine)

	res, err := o.OptimizeVideoChunks(context.Background(), src("clip.mp4", 1000), "ai-analysis")
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if len(res.Chunks) == 0 {
		t.Fatal("scene-aware run produced no chunks")
	}

	// Scene windows must tile [0, 100] contiguously in index order, each near
	// the 30s target (within the detector's ±20% jitter).
	var cursor float64
	for i, c := range res.Chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if math.Abs(c.StartTime-cursor) > 1e-9 {
			t.Errorf("chunk %d starts at %v, want %v", i, c.StartTime, cursor)
		}
		if i < len(res.Chunks)-1 && (c.Duration < 30*0.8-1e-9 || c.Duration > 30*1.2+1e-9) {
			t.Errorf("chunk %d duration = %v, want within 30s ±20%%", i, c.Duration)
		}
		cursor = c.StartTime + c.Duration
	}
	if math.Abs(cursor-100) > 1e-6 {
		t.Errorf("chunks end at %v, want 100", cursor)
	}
	for _, ts := range res.SceneChanges {
		if ts < 0 || ts >= 100 {
			t.Errorf("scene change at %v is outside the source", ts)
		}
	}
}

func TestOptimizeVideoChunks_AdaptsShortSource(t *testing.T) {
	engine := mediaengine.NewFakeEngine()
	engine.ProbeOutput = probe30s
	engine.OutputData = []byte("chunk-bytes")
	o := newTestOptimizer(engine)

	res, err := o.OptimizeVideoChunks(context.Background(), src("short.mp4", 1000), "ai-analysis")
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	// 30s source adapts ai-analysis from 30s to 7.5s segments, jittered up to
	// +20% by the scene detector.
	for i, c := range res.Chunks {
		if c.Duration > 7.5*1.2+1e-9 {
			t.Errorf("chunk %d duration = %v, want <= 9 after short-source adaptation", i, c.Duration)
		}
	}
	if len(res.Chunks) < 3 {
		t.Errorf("got %d chunks for an adapted 30s source, want several", len(res.Chunks))
	}
}

func TestAdaptStrategy(t *testing.T) {
	base := builtinStrategies()["ai-analysis"]

	t.Run("long source coarsens segments", func(t *testing.T) {
		s := base
		s.SegmentDuration = 20
		got := adaptStrategy(s, &models.VideoMetadata{Duration: 4000, Width: 1920, Height: 1080, Bitrate: 3_000_000})
		if got.SegmentDuration != 60 {
			t.Errorf("segment = %v, want 60", got.SegmentDuration)
		}
	})

	t.Run("low quality source drops tier and caps bitrate", func(t *testing.T) {
		got := adaptStrategy(base, &models.VideoMetadata{Duration: 300, Width: 640, Height: 360, Bitrate: 400_000})
		if got.Quality != models.QualityLow {
			t.Errorf("quality = %q, want low", got.Quality)
		}
		if got.MaxBitrate != 500_000 {
			t.Errorf("bitrate cap = %d, want 500000", got.MaxBitrate)
		}
	})

	t.Run("adaptive strategy gains cap for low quality", func(t *testing.T) {
		s := base
		s.MaxBitrate = 0
		got := adaptStrategy(s, &models.VideoMetadata{Duration: 300, Width: 640, Height: 360, Bitrate: 400_000})
		if got.Quality != models.QualityLow {
			t.Errorf("quality = %q, want low", got.Quality)
		}
		if got.MaxBitrate != 500_000 {
			t.Errorf("bitrate cap = %d, want 500000", got.MaxBitrate)
		}
	})

	t.Run("high quality source promotes tier", func(t *testing.T) {
		got := adaptStrategy(base, &models.VideoMetadata{Duration: 300, Width: 1920, Height: 1080, Bitrate: 3_000_000})
		if got.Quality != models.QualityHigh {
			t.Errorf("quality = %q, want high", got.Quality)
		}
	})

	t.Run("low strategy never promoted", func(t *testing.T) {
		s := builtinStrategies()["memory-efficient"]
		got := adaptStrategy(s, &models.VideoMetadata{Duration: 300, Width: 1920, Height: 1080, Bitrate: 3_000_000})
		if got.Quality != models.QualityLow {
			t.Errorf("quality = %q, want low kept", got.Quality)
		}
	})

	t.Run("vertical source tightens size budget", func(t *testing.T) {
		got := adaptStrategy(base, &models.VideoMetadata{Duration: 300, Width: 720, Height: 1280, Bitrate: 2_000_000})
		if got.MaxChunkSizeMB != base.MaxChunkSizeMB*0.8 {
			t.Errorf("size budget = %v, want %v", got.MaxChunkSizeMB, base.MaxChunkSizeMB*0.8)
		}
	})
}

func TestEstimateProcessing(t *testing.T) {
	o := newTestOptimizer(mediaengine.NewFakeEngine())
	size := int64(10 * 1024 * 1024)

	est, err := o.EstimateProcessing(size, 120, "ai-analysis")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if est.ChunkCount != 4 {
		t.Errorf("chunks = %d, want 4 for 120s at 30s", est.ChunkCount)
	}
	if est.EstimatedTime != 24*time.Second {
		t.Errorf("time = %v, want 24s", est.EstimatedTime)
	}
	// Medium quality: 10MB * 2 = 20MB, floored at 100MB.
	if est.EstimatedMemMB != 100 {
		t.Errorf("memory = %v, want 100", est.EstimatedMemMB)
	}
	if est.EstimatedOutput != int64(float64(size)*0.6) {
		t.Errorf("output = %d, want 60%% of input", est.EstimatedOutput)
	}

	// Unknown duration assumes 60s.
	est, err = o.EstimateProcessing(size, 0, "memory-efficient")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if est.ChunkCount != 6 {
		t.Errorf("chunks = %d, want 6 for assumed 60s at 10s", est.ChunkCount)
	}
	if est.EstimatedOutput != int64(float64(size)*0.4) {
		t.Errorf("low quality output = %d, want 40%% of input", est.EstimatedOutput)
	}

	if _, err := o.EstimateProcessing(size, 60, "bogus"); err == nil {
		t.Error("expected unknown strategy error")
	}
}

func TestRegisterStrategy_MergesDefaults(t *testing.T) {
	o := newTestOptimizer(mediaengine.NewFakeEngine())

	if err := o.RegisterStrategy(Strategy{}); err == nil {
		t.Error("nameless strategy should be rejected")
	}

	if err := o.RegisterStrategy(Strategy{Name: "custom", Quality: models.QualityHigh}); err != nil {
		t.Fatalf("register: %v", err)
	}
	s, err := o.lookup("custom")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if s.Quality != models.QualityHigh {
		t.Errorf("quality = %q, want high", s.Quality)
	}
	defaults := builtinStrategies()[DefaultStrategyName]
	if s.SegmentDuration != defaults.SegmentDuration || s.MaxChunkSizeMB != defaults.MaxChunkSizeMB {
		t.Errorf("unset fields = %v/%v, want defaults %v/%v",
			s.SegmentDuration, s.MaxChunkSizeMB, defaults.SegmentDuration, defaults.MaxChunkSizeMB)
	}

	names := o.Strategies()
	found := false
	for _, n := range names {
		if n == "custom" {
			found = true
		}
	}
	if !found || len(names) != 6 {
		t.Errorf("strategies = %v, want 5 builtins plus custom", names)
	}
}

func TestRecommend(t *testing.T) {
	strategy := Strategy{Name: "t", SegmentDuration: 30, MaxChunkSizeMB: 1, Quality: models.QualityMedium}
	mb := int64(1024 * 1024)

	t.Run("oversized chunk", func(t *testing.T) {
		r := &OptimizationResult{
			Chunks:   []processor.ChunkOutput{{Size: 2 * mb}, {Size: 2 * mb}, {Size: 2 * mb}},
			Metadata: &models.VideoMetadata{Duration: 90, Width: 1920, Height: 1080, Bitrate: 3_000_000},
		}
		if recs := recommend(r, strategy); !containsSubstring(recs, "size budget") {
			t.Errorf("recs = %v, want size budget warning", recs)
		}
	})

	t.Run("too many chunks", func(t *testing.T) {
		chunks := make([]processor.ChunkOutput, 25)
		for i := range chunks {
			chunks[i].Size = mb
		}
		r := &OptimizationResult{
			Chunks:   chunks,
			Metadata: &models.VideoMetadata{Duration: 750, Width: 1920, Height: 1080, Bitrate: 2_500_000},
		}
		if recs := recommend(r, strategy); !containsSubstring(recs, "chunk count") {
			t.Errorf("recs = %v, want chunk count warning", recs)
		}
	})

	t.Run("too few chunks for long source", func(t *testing.T) {
		r := &OptimizationResult{
			Chunks:   []processor.ChunkOutput{{Size: mb}, {Size: mb}},
			Metadata: &models.VideoMetadata{Duration: 600, Width: 1920, Height: 1080, Bitrate: 2_500_000},
		}
		if recs := recommend(r, strategy); !containsSubstring(recs, "parallelism") {
			t.Errorf("recs = %v, want parallelism hint", recs)
		}
	})

	t.Run("vertical and high motion", func(t *testing.T) {
		r := &OptimizationResult{
			Chunks:   []processor.ChunkOutput{{Size: mb}, {Size: mb}, {Size: mb}},
			Metadata: &models.VideoMetadata{Duration: 90, Width: 720, Height: 1280, Bitrate: 1_600_000},
		}
		recs := recommend(r, strategy)
		if !containsSubstring(recs, "vertical") {
			t.Errorf("recs = %v, want vertical note", recs)
		}
		if !containsSubstring(recs, "motion") {
			t.Errorf("recs = %v, want motion note", recs)
		}
	})
}

func containsSubstring(recs []string, sub string) bool {
	for _, r := range recs {
		for i := 0; i+len(sub) <= len(r); i++ {
			if r[i:i+len(sub)] == sub {
				return true
			}
		}
	}
	return false
}

func TestDetectScenes(t *testing.T) {
	d := NewPseudoSceneDetector(42)

	scenes := d.DetectScenes(100, 10)
	if len(scenes) == 0 {
		t.Fatal("no scenes detected")
	}
	var cursor float64
	for i, s := range scenes {
		if math.Abs(s.Start-cursor) > 1e-9 {
			t.Errorf("scene %d starts at %v, want %v", i, s.Start, cursor)
		}
		if s.End <= s.Start {
			t.Errorf("scene %d is empty: [%v, %v)", i, s.Start, s.End)
		}
		cursor = s.End
	}
	if math.Abs(cursor-100) > 1e-9 {
		t.Errorf("scenes end at %v, want 100", cursor)
	}

	if d.DetectScenes(0, 10) != nil {
		t.Error("zero duration should detect nothing")
	}
	if d.DetectScenes(100, 0) != nil {
		t.Error("zero target length should detect nothing")
	}

	// Same seed, same boundaries.
	a := NewPseudoSceneDetector(7).DetectScenes(100, 10)
	b := NewPseudoSceneDetector(7).DetectScenes(100, 10)
	if len(a) != len(b) {
		t.Fatalf("seeded runs differ: %d vs %d scenes", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("scene %d differs between seeded runs", i)
		}
	}
}
