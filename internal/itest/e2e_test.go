//go:build integration

package itest

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/forPelevin/podcrop/internal/config"
	"github.com/forPelevin/podcrop/internal/pipeline"
	"github.com/forPelevin/podcrop/internal/types"
)

// TestE2E renders a synthetic five-speaker episode from the extract step on:
// a 2560x1440 feed whose probe pixel shows the speakers scene color, a
// handwritten transcript and clip list.
func TestE2E(t *testing.T) {
	tmp := t.TempDir()
	in := filepath.Join(tmp, "episode.mp4")

	ff := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", "color=c=0x070000:s=2560x1440:d=12",
		"-f", "lavfi",
		"-i", "sine=frequency=440:duration=12",
		"-shortest",
		"-c:v", "libx264",
		"-pix_fmt", "yuv444p",
		"-c:a", "aac",
		in,
	)
	if b, err := ff.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}

	app := config.Default()
	app.Paths.Output = filepath.Join(tmp, "out")
	dirs := pipeline.NewDirs(app.Paths.Output)

	tr := types.Transcript{}
	for i, spk := range []string{"SPEAKER_00", "SPEAKER_01", "SPEAKER_02", "SPEAKER_03", "SPEAKER_04"} {
		start := float64(i * 2)
		tr.Segments = append(tr.Segments, types.Segment{
			Speaker: spk, Start: start, End: start + 2, Text: "hola",
			Words: []types.Word{{Word: "hola", Start: start, End: start + 1, Speaker: spk}},
		})
	}
	writeJSON(t, filepath.Join(dirs.Transcripts, "episode_transcript.json"), tr)
	writeJSON(t, dirs.ClipsFile(), []map[string]any{
		{"clip_number": 1, "title": "Primer corte", "start_time": "0:01", "end_time": "0:09"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	res, err := pipeline.Run(ctx, pipeline.Config{
		Input:    in,
		App:      app,
		FromStep: pipeline.StepExtract,
	})
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	if len(res.Manifest.Clips) != 1 {
		t.Fatalf("expected 1 clip, got %+v", res.Manifest)
	}
	clip := res.Manifest.Clips[0]
	if clip.Status != types.StatusRendered || clip.Scene != "speakers" || !clip.AutoDetected {
		t.Fatalf("unexpected clip: %+v", clip)
	}
	if len(clip.Crops) != 3 {
		t.Fatalf("expected three crops, got %+v", clip.Crops)
	}
	w, h, err := probeFrameSize(clip.File)
	if err != nil {
		t.Fatal(err)
	}
	if w != 1080 || h != 1920 {
		t.Fatalf("expected 1080x1920 output, got %dx%d", w, h)
	}
	if _, err := os.Stat(filepath.Join(app.Paths.Output, "manifest.json")); err != nil {
		t.Fatalf("missing manifest: %v", err)
	}
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}
}
