package thumbnails

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/clipforge/video-pipeline/internal/mediaengine"
	"github.com/clipforge/video-pipeline/internal/models"
	"github.com/clipforge/video-pipeline/internal/processor"
)

const probe100s = `Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'input_video':
  Duration: 00:01:40.00, start: 0.000000, bitrate: 1200 kb/s
  Stream #0:0(und): Video: h264 (High) (avc1 / 0x31637661), yuv420p, 1280x720, 1100 kb/s, 30 fps, 30 tbr`

func newTestGenerator(engine *mediaengine.FakeEngine) *Generator {
	return NewGenerator(processor.NewVideoProcessor(engine, nil), nil)
}

func src(name string, size int) *models.Source {
	return models.NewSource(name, make([]byte, size))
}

// tinyJPEG encodes a solid-color image so grid compositing has real bytes to
// decode.
func tinyJPEG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := imaging.New(w, h, c)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestGenerate_CacheHitSkipsEngine(t *testing.T) {
	engine := mediaengine.NewFakeEngine()
	engine.ProbeOutput = probe100s
	engine.OutputData = []byte("jpeg-bytes")
	g := newTestGenerator(engine)
	ctx := context.Background()
	source := src("clip.mp4", 1000)

	first, err := g.Generate(ctx, source, Options{Count: 3})
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("got %d thumbnails, want 3", len(first))
	}
	callsAfterFirst := engine.ExecCalls

	second, err := g.Generate(ctx, source, Options{Count: 3})
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if engine.ExecCalls != callsAfterFirst {
		t.Errorf("cache hit ran %d extra engine calls", engine.ExecCalls-callsAfterFirst)
	}
	if len(second) != 3 || second[0].PreviewID != first[0].PreviewID {
		t.Error("cache hit should return the identical result set")
	}

	// Different options miss the cache.
	if _, err := g.Generate(ctx, source, Options{Count: 4}); err != nil {
		t.Fatalf("third generate: %v", err)
	}
	if engine.ExecCalls == callsAfterFirst {
		t.Error("changed options should bypass the cache")
	}
	if g.CacheSize() != 2 {
		t.Errorf("cache size = %d, want 2", g.CacheSize())
	}
}

func TestGenerate_SmartStrategyBounds(t *testing.T) {
	engine := mediaengine.NewFakeEngine()
	engine.ProbeOutput = probe100s // 100s source
	engine.OutputData = []byte("jpeg-bytes")
	g := newTestGenerator(engine)

	thumbs, err := g.Generate(context.Background(), src("clip.mp4", 1000), Options{
		Count:    1,
		Strategy: StrategySmart,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	ts := thumbs[0].Timestamp
	if ts <= 10 || ts >= 90 {
		t.Errorf("smart timestamp = %v, want strictly inside (10, 90)", ts)
	}
}

func TestGenerate_DownscaleTiers(t *testing.T) {
	tests := []struct {
		sourceWidth int
		want        int
	}{
		{3840, 320},
		{1920, 240},
		{1280, 180},
		{720, 160},
		{640, 160},
	}
	for _, tt := range tests {
		if got := downscaleWidth(tt.sourceWidth); got != tt.want {
			t.Errorf("downscaleWidth(%d) = %d, want %d", tt.sourceWidth, got, tt.want)
		}
	}
}

func TestGenerate_ResolvesHeightFromAspect(t *testing.T) {
	engine := mediaengine.NewFakeEngine()
	engine.ProbeOutput = probe100s // 1280x720 source
	engine.OutputData = []byte("jpeg-bytes")
	g := newTestGenerator(engine)
	ctx := context.Background()

	// Unset dimensions: 1280-wide source lands in the 180 tier, height follows
	// the 16:9 aspect.
	thumbs, err := g.Generate(ctx, src("clip.mp4", 1000), Options{Count: 1})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if thumbs[0].Width != 180 || thumbs[0].Height != 180*720/1280 {
		t.Errorf("thumbnail = %dx%d, want 180x%d", thumbs[0].Width, thumbs[0].Height, 180*720/1280)
	}

	// Explicit width, unset height: aspect applies at the requested width.
	thumbs, err = g.Generate(ctx, src("clip.mp4", 1000), Options{Count: 1, Width: 320})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if thumbs[0].Width != 320 || thumbs[0].Height != 180 {
		t.Errorf("thumbnail = %dx%d, want 320x180", thumbs[0].Width, thumbs[0].Height)
	}

	// Both set: nothing is derived.
	thumbs, err = g.Generate(ctx, src("clip.mp4", 1000), Options{Count: 1, Width: 160, Height: 120})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if thumbs[0].Width != 160 || thumbs[0].Height != 120 {
		t.Errorf("thumbnail = %dx%d, want 160x120", thumbs[0].Width, thumbs[0].Height)
	}

	single, err := g.GenerateSingle(ctx, src("clip.mp4", 1000), 12, Options{})
	if err != nil {
		t.Fatalf("single: %v", err)
	}
	if single.Width != 180 || single.Height != 180*720/1280 {
		t.Errorf("single = %dx%d, want 180x%d", single.Width, single.Height, 180*720/1280)
	}
}

func TestGenerate_PropagatesEngineFailure(t *testing.T) {
	engine := mediaengine.NewFakeEngine()
	engine.ProbeOutput = probe100s
	engine.ExecFunc = func(args []string) (string, error) {
		if args[len(args)-1] == "-" {
			return probe100s, nil
		}
		return "", errors.New("frame extraction failed")
	}
	g := newTestGenerator(engine)

	if _, err := g.Generate(context.Background(), src("clip.mp4", 1000), Options{Count: 2}); err == nil {
		t.Fatal("expected extraction failure to propagate")
	}
	if g.CacheSize() != 0 {
		t.Error("failed generation must not be cached")
	}
}

func TestGenerateCover(t *testing.T) {
	engine := mediaengine.NewFakeEngine()
	engine.ProbeOutput = probe100s
	engine.OutputData = []byte("cover-bytes")
	g := newTestGenerator(engine)

	cover, err := g.GenerateCover(context.Background(), src("clip.mp4", 1000), Options{})
	if err != nil {
		t.Fatalf("cover: %v", err)
	}
	// floor(0.33 * 100s) = 33s.
	if cover.Timestamp != 33 {
		t.Errorf("cover timestamp = %v, want 33", cover.Timestamp)
	}
	if string(cover.Data) != "cover-bytes" {
		t.Error("cover carries wrong frame data")
	}
}

func TestGenerateGrid_Dimensions(t *testing.T) {
	engine := mediaengine.NewFakeEngine()
	engine.ProbeOutput = probe100s
	engine.OutputData = tinyJPEG(t, 160, 90, color.NRGBA{R: 200, A: 255})
	g := newTestGenerator(engine)

	data, err := g.GenerateGrid(context.Background(), src("clip.mp4", 1000), GridOptions{
		Columns: 3,
		Rows:    2,
	})
	if err != nil {
		t.Fatalf("grid: %v", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode grid: %v", err)
	}
	bounds := img.Bounds()
	// 3*160 + 2*4 = 488 wide, 2*90 + 1*4 = 184 tall.
	if bounds.Dx() != 488 || bounds.Dy() != 184 {
		t.Errorf("grid = %dx%d, want 488x184", bounds.Dx(), bounds.Dy())
	}
}

func TestPreviewLifecycle(t *testing.T) {
	engine := mediaengine.NewFakeEngine()
	engine.ProbeOutput = probe100s
	engine.OutputData = []byte("jpeg-bytes")
	g := newTestGenerator(engine)

	thumbs, err := g.Generate(context.Background(), src("clip.mp4", 1000), Options{Count: 2})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	data, ok := g.Preview(thumbs[0].PreviewID)
	if !ok || string(data) != "jpeg-bytes" {
		t.Fatal("preview handle should resolve to frame bytes")
	}

	g.Release(thumbs[0].PreviewID)
	if _, ok := g.Preview(thumbs[0].PreviewID); ok {
		t.Error("released handle should not resolve")
	}
	if _, ok := g.Preview(thumbs[1].PreviewID); !ok {
		t.Error("sibling handle should survive a single release")
	}

	g.ClearCache()
	if _, ok := g.Preview(thumbs[1].PreviewID); ok {
		t.Error("clear cache should revoke all handles")
	}
	if g.CacheSize() != 0 {
		t.Errorf("cache size after clear = %d, want 0", g.CacheSize())
	}
}

func TestGenerateBatch(t *testing.T) {
	engine := mediaengine.NewFakeEngine()
	engine.ProbeOutput = probe100s
	engine.OutputData = []byte("jpeg-bytes")
	g := newTestGenerator(engine)

	sources := []*models.Source{
		src("a.mp4", 100),
		src("b.mp4", 200),
		src("c.mp4", 300),
	}
	results := g.GenerateBatch(context.Background(), sources, Options{Count: 2}, 2)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("result %d has index %d", i, r.Index)
		}
		if r.Err != nil {
			t.Errorf("item %d: %v", i, r.Err)
		}
		if len(r.Thumbnails) != 2 {
			t.Errorf("item %d produced %d thumbnails, want 2", i, len(r.Thumbnails))
		}
	}
	if g.CacheSize() != 3 {
		t.Errorf("cache size = %d, want one entry per source", g.CacheSize())
	}
}
