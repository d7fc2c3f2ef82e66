package processor

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// probeResult is the normalized view of one probe invocation, whether the
// engine produced structured JSON or free-text stream info.
type probeResult struct {
	Duration        float64
	Width           int
	Height          int
	FPS             float64
	Bitrate         int64
	Format          string
	Codec           string
	HasAudio        bool
	AudioCodec      string
	AudioBitrate    int64
	AudioSampleRate int
	AudioChannels   int
}

type probeJSON struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		BitRate    string `json:"bit_rate"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
}

var (
	durationRe = regexp.MustCompile(`Duration: (\d{2}):(\d{2}):(\d{2}(?:\.\d+)?)`)
	bitrateRe  = regexp.MustCompile(`bitrate: (\d+) kb/s`)
	videoRe    = regexp.MustCompile(`Video: (\w+)`)
	sizeRe     = regexp.MustCompile(`(\d{2,5})x(\d{2,5})`)
	fpsRe      = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*fps`)
	audioRe    = regexp.MustCompile(`Audio: (\w+)(?:.*?(\d+) Hz)?`)
)

// parseProbeOutput accepts either ffprobe-style JSON or ffmpeg's free-text
// stream banner and extracts whatever fields are present. Returns false when
// nothing usable could be recovered.
func parseProbeOutput(output string) (probeResult, bool) {
	if r, ok := parseProbeJSON(output); ok {
		return r, true
	}
	return parseProbeText(output)
}

func parseProbeJSON(output string) (probeResult, bool) {
	trimmed := strings.TrimSpace(output)
	if !strings.HasPrefix(trimmed, "{") {
		return probeResult{}, false
	}
	var raw probeJSON
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return probeResult{}, false
	}

	var r probeResult
	r.Duration, _ = strconv.ParseFloat(raw.Format.Duration, 64)
	r.Bitrate, _ = strconv.ParseInt(raw.Format.BitRate, 10, 64)
	if raw.Format.FormatName != "" {
		// ffprobe reports comma-joined demuxer aliases; keep the first.
		r.Format = strings.SplitN(raw.Format.FormatName, ",", 2)[0]
	}
	for _, s := range raw.Streams {
		switch s.CodecType {
		case "video":
			if r.Codec == "" {
				r.Codec = s.CodecName
				r.Width = s.Width
				r.Height = s.Height
				r.FPS = parseFrameRate(s.RFrameRate)
			}
		case "audio":
			if !r.HasAudio {
				r.HasAudio = true
				r.AudioCodec = s.CodecName
				r.AudioBitrate, _ = strconv.ParseInt(s.BitRate, 10, 64)
				r.AudioSampleRate, _ = strconv.Atoi(s.SampleRate)
				r.AudioChannels = s.Channels
			}
		}
	}
	return r, r.Duration > 0 || r.Width > 0
}

func parseProbeText(output string) (probeResult, bool) {
	var r probeResult
	found := false

	if m := durationRe.FindStringSubmatch(output); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		seconds, _ := strconv.ParseFloat(m[3], 64)
		r.Duration = float64(hours)*3600 + float64(minutes)*60 + seconds
		found = true
	}
	if m := bitrateRe.FindStringSubmatch(output); m != nil {
		kbps, _ := strconv.ParseInt(m[1], 10, 64)
		r.Bitrate = kbps * 1000
	}
	for _, line := range strings.Split(output, "\n") {
		switch {
		case strings.Contains(line, "Video:"):
			if m := videoRe.FindStringSubmatch(line); m != nil {
				r.Codec = m[1]
			}
			if m := sizeRe.FindStringSubmatch(line); m != nil {
				r.Width, _ = strconv.Atoi(m[1])
				r.Height, _ = strconv.Atoi(m[2])
				found = true
			}
			if m := fpsRe.FindStringSubmatch(line); m != nil {
				r.FPS, _ = strconv.ParseFloat(m[1], 64)
			}
		case strings.Contains(line, "Audio:"):
			if m := audioRe.FindStringSubmatch(line); m != nil {
				r.HasAudio = true
				r.AudioCodec = m[1]
				if m[2] != "" {
					r.AudioSampleRate, _ = strconv.Atoi(m[2])
				}
			}
		case strings.Contains(line, "Input #0,"):
			parts := strings.SplitN(line, ",", 3)
			if len(parts) >= 2 {
				r.Format = strings.SplitN(strings.TrimSpace(parts[1]), ",", 2)[0]
			}
		}
	}
	return r, found
}

// parseFrameRate converts ffprobe's rational frame rate ("30000/1001") to a
// float.
func parseFrameRate(rate string) float64 {
	if rate == "" {
		return 0
	}
	parts := strings.SplitN(rate, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	if len(parts) == 1 {
		return num
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0
	}
	return num / den
}
