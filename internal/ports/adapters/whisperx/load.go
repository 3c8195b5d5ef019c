package whisperx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forPelevin/podcrop/internal/domain/timecode"
	"github.com/forPelevin/podcrop/internal/types"
)

// ErrEmpty is returned for a transcript file with no content.
var ErrEmpty = errors.New("empty transcript")

// flatTurn is the flat diarization record some tools emit instead of the
// whisperx segment document.
type flatTurn struct {
	SpeakerID string           `json:"speaker_id"`
	Speaker   string           `json:"speaker"`
	Start     timecode.Seconds `json:"start_time"`
	End       timecode.Seconds `json:"end_time"`
	Text      string           `json:"text"`
}

// Load reads a transcript file. It accepts the whisperx document
// ({"segments": [...]}) and a flat array of speaker turns.
func Load(path string) (types.Transcript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return types.Transcript{}, err
	}
	tr, err := Parse(b)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("transcript %s: %w", filepath.Base(path), err)
	}
	return tr, nil
}

func Parse(b []byte) (types.Transcript, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return types.Transcript{}, ErrEmpty
	}
	var tr types.Transcript
	if b[0] == '[' {
		var flat []flatTurn
		if err := json.Unmarshal(b, &flat); err != nil {
			return types.Transcript{}, err
		}
		tr.Segments = make([]types.Segment, 0, len(flat))
		for _, f := range flat {
			spk := f.SpeakerID
			if spk == "" {
				spk = f.Speaker
			}
			tr.Segments = append(tr.Segments, types.Segment{
				Speaker: spk,
				Start:   float64(f.Start),
				End:     float64(f.End),
				Text:    f.Text,
			})
		}
		sort.SliceStable(tr.Segments, func(i, j int) bool { return tr.Segments[i].Start < tr.Segments[j].Start })
	} else if err := json.Unmarshal(b, &tr); err != nil {
		return types.Transcript{}, err
	}
	for i := range tr.Segments {
		tr.Segments[i].Text = strings.TrimSpace(tr.Segments[i].Text)
		for j := range tr.Segments[i].Words {
			tr.Segments[i].Words[j].Word = strings.TrimSpace(tr.Segments[i].Words[j].Word)
		}
	}
	return tr, nil
}

// Find locates an existing transcript for video in dir: the exact
// <stem>_transcript.json, then its lowercase form, then any
// *_transcript.json.
func Find(dir, video string) (string, bool) {
	exact := TranscriptPath(dir, video)
	candidates := []string{exact, filepath.Join(dir, strings.ToLower(filepath.Base(exact)))}
	for _, c := range candidates {
		if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
			return c, true
		}
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*_transcript.json"))
	sort.Strings(matches)
	if len(matches) > 0 {
		return matches[0], true
	}
	return "", false
}
