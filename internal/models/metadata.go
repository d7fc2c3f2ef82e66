package models

import "time"

type QualityTier string

const (
	QualityHigh   QualityTier = "high"
	QualityMedium QualityTier = "medium"
	QualityLow    QualityTier = "low"
)

// ExtractionMethod records how a metadata object was produced so callers can
// tell a real probe result from a degraded fallback.
type ExtractionMethod string

const (
	MethodProbe    ExtractionMethod = "probe"
	MethodQuick    ExtractionMethod = "quick"
	MethodFallback ExtractionMethod = "fallback"
)

// VideoMetadata holds the basic probe result for a video source.
type VideoMetadata struct {
	Duration    float64 `json:"duration"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	FPS         float64 `json:"fps"`
	Bitrate     int64   `json:"bitrate"`
	Format      string  `json:"format"`
	Codec       string  `json:"codec"`
	FileSize    int64   `json:"file_size"`
	AspectRatio string  `json:"aspect_ratio"`

	HasAudio        bool   `json:"has_audio"`
	AudioCodec      string `json:"audio_codec,omitempty"`
	AudioBitrate    int64  `json:"audio_bitrate,omitempty"`
	AudioSampleRate int    `json:"audio_sample_rate,omitempty"`
	AudioChannels   int    `json:"audio_channels,omitempty"`

	// Estimated marks metadata synthesized from the byte length after a
	// failed probe. Duration is also zero on that path.
	Estimated bool `json:"estimated"`
}

// CropRegion is a platform-tagged crop suggestion.
type CropRegion struct {
	Platform   string  `json:"platform"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}

// DetailedVideoMetadata enriches VideoMetadata with quality, content and
// SNS-oriented heuristics. Instances are built once per extraction and never
// mutated after return.
type DetailedVideoMetadata struct {
	VideoMetadata

	KeyframeInterval int    `json:"keyframe_interval,omitempty"`
	ColorSpace       string `json:"color_space,omitempty"`
	ColorRange       string `json:"color_range,omitempty"`
	PixelFormat      string `json:"pixel_format,omitempty"`
	Profile          string `json:"profile,omitempty"`
	Level            string `json:"level,omitempty"`
	BitDepth         int    `json:"bit_depth,omitempty"`

	EstimatedQuality QualityTier `json:"estimated_quality"`
	CompressionRatio float64     `json:"compression_ratio"`

	HasMotion        bool    `json:"has_motion"`
	AvgMotionScore   float64 `json:"avg_motion_score"`
	SceneChangeCount int     `json:"scene_change_count"`
	BlackFrameCount  int     `json:"black_frame_count"`

	IsVertical           bool         `json:"is_vertical"`
	IsSquare             bool         `json:"is_square"`
	IsHorizontal         bool         `json:"is_horizontal"`
	RecommendedPlatforms []string     `json:"recommended_platforms"`
	SuggestedCropRegions []CropRegion `json:"suggested_crop_regions"`

	ExtractedAt    time.Time        `json:"extracted_at"`
	ProcessingTime time.Duration    `json:"processing_time"`
	Method         ExtractionMethod `json:"method"`
}
