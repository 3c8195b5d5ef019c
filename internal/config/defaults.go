package config

import "fmt"

// Default returns the built-in configuration: a 2560x1440 studio feed with
// the three camera layouts of the podcast set, rendered to a 1080x1920 canvas.
func Default() Config {
	return Config{
		Log:   Log{Level: "info", Format: "text"},
		Paths: Paths{Input: "input", Output: "output", Cache: ".cache"},
		Tools: Tools{FFmpeg: "ffmpeg", FFprobe: "ffprobe", WhisperX: "whisperx"},
		Transcription: Transcription{
			Model:       "large-v3",
			Language:    "es",
			Device:      "cuda",
			ComputeType: "float16",
			BatchSize:   32,
		},
		Source:  Size{Width: 2560, Height: 1440},
		Output:  Output{Width: 1080, Height: 1920, Subtitles: true},
		Workers: 2,
		Selection: Selection{
			SampleStep: 2.0,
			Decay:      "exponential",
			DecayScale: 30,
		},
		AutoDetect: AutoDetect{
			Enabled:  true,
			SampleAt: 5,
			Default: Detect{
				Pixel:         []int{82, 1156},
				SpeakersColor: []int{0, 0, 0},
				ContentColor:  []int{217, 216, 0},
				Tolerance:     float(100),
			},
			BySpeakers: []Detect{{
				Speakers:      5,
				Pixel:         []int{178, 1352},
				SpeakersColor: []int{7, 0, 0},
				ContentColor:  []int{200, 197, 23},
				Tolerance:     float(100),
			}},
		},
		Layouts: []Layout{
			{
				Speakers: 3,
				SpeakersScene: []Rect{
					rect(30, 30, 1180, 685),
					rect(1342, 32, 1180, 685),
					rect(684, 715, 1180, 685),
				},
				ContentScene: []Rect{rect(1728, 0, 810, 1440)},
				Mapping:      sequential(3),
			},
			{
				Speakers: 4,
				SpeakersScene: []Rect{
					rect(30, 30, 1180, 685),
					rect(1342, 32, 1180, 685),
					rect(30, 715, 1180, 685),
					rect(1342, 715, 1180, 685),
				},
				ContentScene: []Rect{
					rect(1600, 0, 900, 480),
					rect(1600, 480, 900, 480),
					rect(1600, 960, 900, 480),
					rect(1600, 960, 900, 480),
				},
				Mapping: sequential(4),
			},
			{
				Speakers: 5,
				SpeakersScene: []Rect{
					rect(58, 169, 778, 437),
					rect(895, 160, 778, 437),
					rect(1726, 160, 778, 437),
					rect(436, 825, 778, 437),
					rect(1271, 818, 778, 437),
				},
				ContentScene: []Rect{
					rect(72, 58, 708, 398),
					rect(917, 58, 708, 398),
					rect(1777, 58, 708, 398),
					rect(1777, 518, 708, 398),
					rect(1777, 993, 708, 398),
				},
				Mapping: sequential(5),
			},
		},
	}
}

func rect(x, y, w, h int) Rect {
	return Rect{X: &x, Y: &y, Width: &w, Height: &h}
}

// sequential maps SPEAKER_00..SPEAKER_{n-1} to positions 0..n-1, the labels
// whisperx diarization assigns.
func sequential(n int) []Assignment {
	out := make([]Assignment, n)
	for i := range out {
		pos := i
		out[i] = Assignment{Speaker: speakerLabel(i), Position: &pos}
	}
	return out
}

func speakerLabel(i int) string { return fmt.Sprintf("SPEAKER_%02d", i) }

func float(f float64) *float64 { return &f }
