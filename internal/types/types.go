package types

import (
	"sort"
	"time"
)

// Transcript is the diarized transcript of one episode in the shape whisperx
// writes it: ordered segments, each optionally carrying word timings.
type Transcript struct {
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Speaker string  `json:"speaker,omitempty"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Words   []Word  `json:"words,omitempty"`
}

type Word struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Word    string  `json:"word"`
	Speaker string  `json:"speaker,omitempty"`
}

// Speakers returns the distinct speaker labels found on segments or words,
// sorted ascending.
func (t Transcript) Speakers() []string {
	seen := map[string]struct{}{}
	for _, s := range t.Segments {
		if s.Speaker != "" {
			seen[s.Speaker] = struct{}{}
		}
		for _, w := range s.Words {
			if w.Speaker != "" {
				seen[w.Speaker] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ClipSpec is one time range of the source episode that becomes a short.
type ClipSpec struct {
	Number int
	Title  string
	Start  time.Duration
	End    time.Duration
}

type Manifest struct {
	RunID    string         `json:"run_id"`
	Input    string         `json:"input"`
	Speakers int            `json:"speakers"`
	Clips    []ManifestClip `json:"clips"`
}

type ManifestClip struct {
	Number        int            `json:"clip_number"`
	Title         string         `json:"title"`
	StartSec      float64        `json:"start_sec"`
	EndSec        float64        `json:"end_sec"`
	Scene         string         `json:"scene,omitempty"`
	AutoDetected  bool           `json:"auto_detected"`
	Speakers      []string       `json:"speakers,omitempty"`
	LowConfidence bool           `json:"low_confidence,omitempty"`
	Crops         []ManifestCrop `json:"crops,omitempty"`
	File          string         `json:"file,omitempty"`
	Status        string         `json:"status"`
	Error         string         `json:"error,omitempty"`
}

type ManifestCrop struct {
	Slot   int `json:"slot"`
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Clip statuses recorded in the manifest.
const (
	StatusRendered = "rendered"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
)
