package chunker

import (
	"math/rand"
	"sync"
	"time"
)

// Scene is one detected window. SceneChange marks windows that open on a hard
// cut rather than a pacing boundary.
type Scene struct {
	Start       float64
	End         float64
	SceneChange bool
}

// PseudoSceneDetector synthesizes plausible scene boundaries without decoding
// frames: it walks the duration in steps of the target segment length with
// ±20% jitter and flags roughly a third of the boundaries as hard cuts. Real
// content-based detection would need a full decode pass per source.
type PseudoSceneDetector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPseudoSceneDetector seeds the jitter source. Pass a fixed seed for
// reproducible boundaries.
func NewPseudoSceneDetector(seed int64) *PseudoSceneDetector {
	return &PseudoSceneDetector{rng: rand.New(rand.NewSource(seed))}
}

func newDefaultSceneDetector() *PseudoSceneDetector {
	return NewPseudoSceneDetector(time.Now().UnixNano())
}

// DetectScenes covers [0, duration) with contiguous windows near the target
// length. The final window is clamped to the duration; windows shorter than a
// tenth of the target are merged into their predecessor.
func (d *PseudoSceneDetector) DetectScenes(duration, targetLength float64) []Scene {
	if duration <= 0 || targetLength <= 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	var scenes []Scene
	cursor := 0.0
	for cursor < duration {
		length := targetLength * (0.8 + 0.4*d.rng.Float64())
		end := cursor + length
		if end > duration {
			end = duration
		}
		if end-cursor < targetLength*0.1 && len(scenes) > 0 {
			scenes[len(scenes)-1].End = end
			break
		}
		scenes = append(scenes, Scene{
			Start:       cursor,
			End:         end,
			SceneChange: d.rng.Float64() > 0.7,
		})
		cursor = end
	}
	return scenes
}
