package processor

import (
	"math"
	"testing"
)

const sampleProbeJSON = `{
	"streams": [
		{"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080, "r_frame_rate": "30000/1001"},
		{"codec_type": "audio", "codec_name": "aac", "bit_rate": "128000", "sample_rate": "44100", "channels": 2}
	],
	"format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "120.500000", "bit_rate": "2500000"}
}`

const sampleProbeText = `Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'input_video':
  Duration: 00:01:40.50, start: 0.000000, bitrate: 1200 kb/s
  Stream #0:0(und): Video: h264 (High) (avc1 / 0x31637661), yuv420p, 1280x720, 1100 kb/s, 30 fps, 30 tbr
  Stream #0:1(und): Audio: aac (LC) (mp4a / 0x6134706D), 44100 Hz, stereo, fltp, 96 kb/s`

func TestParseProbeOutput_JSON(t *testing.T) {
	r, ok := parseProbeOutput(sampleProbeJSON)
	if !ok {
		t.Fatal("expected JSON probe output to parse")
	}
	if r.Duration != 120.5 {
		t.Errorf("duration = %v, want 120.5", r.Duration)
	}
	if r.Width != 1920 || r.Height != 1080 {
		t.Errorf("dimensions = %dx%d, want 1920x1080", r.Width, r.Height)
	}
	if math.Abs(r.FPS-29.97) > 0.01 {
		t.Errorf("fps = %v, want ~29.97", r.FPS)
	}
	if r.Bitrate != 2500000 {
		t.Errorf("bitrate = %d, want 2500000", r.Bitrate)
	}
	if r.Format != "mov" {
		t.Errorf("format = %q, want mov", r.Format)
	}
	if !r.HasAudio || r.AudioCodec != "aac" || r.AudioSampleRate != 44100 || r.AudioChannels != 2 {
		t.Errorf("audio = %+v, want aac/44100/2ch", r)
	}
}

func TestParseProbeOutput_FreeText(t *testing.T) {
	r, ok := parseProbeOutput(sampleProbeText)
	if !ok {
		t.Fatal("expected free-text probe output to parse")
	}
	if r.Duration != 100.5 {
		t.Errorf("duration = %v, want 100.5", r.Duration)
	}
	if r.Width != 1280 || r.Height != 720 {
		t.Errorf("dimensions = %dx%d, want 1280x720", r.Width, r.Height)
	}
	if r.FPS != 30 {
		t.Errorf("fps = %v, want 30", r.FPS)
	}
	if r.Bitrate != 1200000 {
		t.Errorf("bitrate = %d, want 1200000", r.Bitrate)
	}
	if r.Codec != "h264" {
		t.Errorf("codec = %q, want h264", r.Codec)
	}
	if !r.HasAudio || r.AudioCodec != "aac" || r.AudioSampleRate != 44100 {
		t.Errorf("audio = codec %q rate %d, want aac/44100", r.AudioCodec, r.AudioSampleRate)
	}
	if r.Format != "mov" {
		t.Errorf("format = %q, want mov", r.Format)
	}
}

func TestParseProbeOutput_Garbage(t *testing.T) {
	if _, ok := parseProbeOutput("no media information here"); ok {
		t.Error("expected garbage output to fail parsing")
	}
	if _, ok := parseProbeOutput(""); ok {
		t.Error("expected empty output to fail parsing")
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"25", 25},
		{"30000/1001", 29.97002997002997},
		{"", 0},
		{"x/1", 0},
		{"30/0", 0},
	}
	for _, tt := range tests {
		if got := parseFrameRate(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("parseFrameRate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
