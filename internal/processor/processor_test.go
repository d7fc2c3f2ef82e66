package processor

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clipforge/video-pipeline/internal/mediaengine"
	"github.com/clipforge/video-pipeline/internal/models"
)

func newTestProcessor(engine *mediaengine.FakeEngine) *VideoProcessor {
	return NewVideoProcessor(engine, nil)
}

func testSource(name string, size int) *models.Source {
	return models.NewSource(name, make([]byte, size))
}

func TestUniformTimestamps(t *testing.T) {
	got := UniformTimestamps(100, 4)
	want := []float64{20, 40, 60, 80}
	if len(got) != len(want) {
		t.Fatalf("got %v timestamps, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("timestamp[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if ts := UniformTimestamps(0, 4); ts != nil {
		t.Errorf("zero duration should produce no timestamps, got %v", ts)
	}
	if ts := UniformTimestamps(100, 0); ts != nil {
		t.Errorf("zero count should produce no timestamps, got %v", ts)
	}
}

func TestInitialize_Idempotent(t *testing.T) {
	engine := mediaengine.NewFakeEngine()
	p := newTestProcessor(engine)

	ctx := context.Background()
	if err := p.Initialize(ctx); err != nil {
		t.Fatalf("first initialize: %v", err)
	}
	if err := p.Initialize(ctx); err != nil {
		t.Fatalf("second initialize: %v", err)
	}
	if engine.LoadCalls != 1 {
		t.Errorf("engine loaded %d times, want 1", engine.LoadCalls)
	}
}

func TestInitialize_EngineFailure(t *testing.T) {
	engine := mediaengine.NewFakeEngine()
	engine.LoadErr = errors.New("asset fetch failed")
	p := newTestProcessor(engine)

	err := p.Initialize(context.Background())
	var initErr *EngineInitError
	if !errors.As(err, &initErr) {
		t.Fatalf("expected EngineInitError, got %v", err)
	}
}

func TestCleanup_WhenNotInitialized(t *testing.T) {
	p := newTestProcessor(mediaengine.NewFakeEngine())
	if err := p.Cleanup(context.Background()); err != nil {
		t.Fatalf("cleanup without initialize: %v", err)
	}
}

func TestProcessWithQueue_SingleFlight(t *testing.T) {
	p := newTestProcessor(mediaengine.NewFakeEngine())
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	op := func() (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "result", nil
	}

	var wg sync.WaitGroup
	results := make([]interface{}, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := p.ProcessWithQueue(ctx, "k", op)
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
			}
			results[i] = v
		}(i)
	}

	// Wait for the first caller to enter the operation, then give the second
	// caller time to join the in-flight entry before releasing.
	for atomic.LoadInt32(&calls) == 0 {
		runtime.Gosched()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("operation ran %d times for concurrent callers, want 1", n)
	}
	if results[0] != "result" || results[1] != "result" {
		t.Errorf("callers got %v and %v, want shared result", results[0], results[1])
	}

	// A later call with the same key starts fresh.
	fresh := func() (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "second", nil
	}
	if v, err := p.ProcessWithQueue(ctx, "k", fresh); err != nil || v != "second" {
		t.Fatalf("fresh call = %v, %v", v, err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("total operations = %d, want 2", n)
	}
}

func TestProcessWithQueue_SharesError(t *testing.T) {
	p := newTestProcessor(mediaengine.NewFakeEngine())
	opErr := errors.New("encode blew up")

	_, err := p.ProcessWithQueue(context.Background(), "k", func() (interface{}, error) {
		return nil, opErr
	})
	if !errors.Is(err, opErr) {
		t.Fatalf("expected operation error, got %v", err)
	}
}

func TestExtractMetadata_ProbeSuccess(t *testing.T) {
	engine := mediaengine.NewFakeEngine()
	engine.ProbeOutput = sampleProbeText
	p := newTestProcessor(engine)

	m, err := p.ExtractMetadata(context.Background(), testSource("clip.mp4", 1000))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if m.Estimated {
		t.Error("probe success should not be flagged estimated")
	}
	if m.Duration != 100.5 || m.Width != 1280 || m.Height != 720 {
		t.Errorf("metadata = %.1fs %dx%d, want 100.5s 1280x720", m.Duration, m.Width, m.Height)
	}
	if m.FileSize != 1000 {
		t.Errorf("file size = %d, want 1000", m.FileSize)
	}
	if m.AspectRatio != "1280:720" {
		t.Errorf("aspect ratio = %q, want 1280:720", m.AspectRatio)
	}
	if engine.FileCount() != 0 {
		t.Errorf("%d files left in engine workspace, want 0", engine.FileCount())
	}
}

func TestExtractMetadata_FallsBackOnProbeFailure(t *testing.T) {
	engine := mediaengine.NewFakeEngine()
	engine.ProbeErr = errors.New("probe exploded")
	p := newTestProcessor(engine)

	m, err := p.ExtractMetadata(context.Background(), testSource("clip.mp4", 8000))
	if err != nil {
		t.Fatalf("probe failure must degrade, not error: %v", err)
	}
	if !m.Estimated {
		t.Error("fallback metadata must be flagged estimated")
	}
	if m.Duration != 0 {
		t.Errorf("fallback duration = %v, want 0", m.Duration)
	}
	if m.Width != 1920 || m.Height != 1080 {
		t.Errorf("fallback dimensions = %dx%d, want 1920x1080", m.Width, m.Height)
	}
	if m.Bitrate != 8000*8/1000 {
		t.Errorf("fallback bitrate = %d, want %d", m.Bitrate, 8000*8/1000)
	}
	if engine.FileCount() != 0 {
		t.Errorf("%d files left in engine workspace after fallback, want 0", engine.FileCount())
	}
}

func TestGenerateThumbnails_ExplicitTimestamps(t *testing.T) {
	engine := mediaengine.NewFakeEngine()
	engine.OutputData = []byte("jpeg-bytes")
	p := newTestProcessor(engine)

	frames, err := p.GenerateThumbnails(context.Background(), testSource("clip.mp4", 100), ThumbnailOptions{
		Timestamps: []float64{5, 15, 25},
		Width:      320,
		Quality:    80,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	for i, f := range frames {
		if f.Index != i {
			t.Errorf("frame %d has index %d", i, f.Index)
		}
		if f.Timestamp != []float64{5, 15, 25}[i] {
			t.Errorf("frame %d timestamp = %v", i, f.Timestamp)
		}
		if string(f.Data) != "jpeg-bytes" {
			t.Errorf("frame %d carries wrong data", i)
		}
	}
	if engine.FileCount() != 0 {
		t.Errorf("%d files left in engine workspace, want 0", engine.FileCount())
	}
}

func TestGenerateThumbnails_CleanupOnFailure(t *testing.T) {
	engine := mediaengine.NewFakeEngine()
	engine.ExecErr = errors.New("frame extraction failed")
	p := newTestProcessor(engine)

	_, err := p.GenerateThumbnails(context.Background(), testSource("clip.mp4", 100), ThumbnailOptions{
		Timestamps: []float64{5},
	})
	if err == nil {
		t.Fatal("expected extraction error")
	}
	if engine.FileCount() != 0 {
		t.Errorf("%d files left in engine workspace after failure, want 0", engine.FileCount())
	}
}

func TestProcessVideoChunks_Coverage(t *testing.T) {
	engine := mediaengine.NewFakeEngine()
	engine.ProbeOutput = sampleProbeText // 100.5s source
	engine.OutputData = []byte("chunk-bytes")
	p := newTestProcessor(engine)

	res, err := p.ProcessVideoChunks(context.Background(), testSource("clip.mp4", 100), ChunkOptions{
		SegmentDuration: 30,
		Quality:         models.QualityMedium,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(res.Chunks) != 4 {
		t.Fatalf("got %d chunks for 100.5s/30s, want 4", len(res.Chunks))
	}

	// Chunks must cover [0, D) in index order with no gaps.
	var cursor float64
	for i, c := range res.Chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.StartTime != cursor {
			t.Errorf("chunk %d starts at %v, want %v", i, c.StartTime, cursor)
		}
		if c.Size != int64(len("chunk-bytes")) {
			t.Errorf("chunk %d size = %d", i, c.Size)
		}
		cursor = c.StartTime + c.Duration
	}
	if diff := cursor - res.Metadata.Duration; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("chunks end at %v, want %v", cursor, res.Metadata.Duration)
	}
	if engine.FileCount() != 0 {
		t.Errorf("%d files left in engine workspace, want 0", engine.FileCount())
	}
}

func TestProcessVideoChunks_QualityArgs(t *testing.T) {
	engine := mediaengine.NewFakeEngine()
	engine.ProbeOutput = sampleProbeText
	p := newTestProcessor(engine)

	_, err := p.ProcessVideoChunks(context.Background(), testSource("clip.mp4", 100), ChunkOptions{
		SegmentDuration: 60,
		Quality:         models.QualityLow,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	var sawPreset bool
	for _, args := range engine.ExecHistory {
		for i, a := range args {
			if a == "-preset" && i+1 < len(args) && args[i+1] == "veryfast" {
				sawPreset = true
			}
		}
	}
	if !sawPreset {
		t.Error("low quality tier should encode with -preset veryfast")
	}
}

func TestProcessSegment(t *testing.T) {
	engine := mediaengine.NewFakeEngine()
	engine.OutputData = []byte("segment")
	p := newTestProcessor(engine)

	chunk, err := p.ProcessSegment(context.Background(), testSource("clip.mp4", 100), 12.5, 20, ChunkOptions{
		Quality: models.QualityHigh,
	})
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	if chunk.StartTime != 12.5 || chunk.Duration != 20 {
		t.Errorf("segment window = [%v, +%v), want [12.5, +20)", chunk.StartTime, chunk.Duration)
	}
	if chunk.Quality != models.QualityHigh {
		t.Errorf("segment quality = %q, want high", chunk.Quality)
	}
	if engine.FileCount() != 0 {
		t.Errorf("%d files left in engine workspace, want 0", engine.FileCount())
	}
}
