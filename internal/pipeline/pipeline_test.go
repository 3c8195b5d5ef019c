package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/forPelevin/podcrop/internal/config"
	"github.com/forPelevin/podcrop/internal/domain/layout"
	"github.com/forPelevin/podcrop/internal/domain/scene"
	"github.com/forPelevin/podcrop/internal/types"
)

type fakeVideo struct {
	mu       sync.Mutex
	color    scene.RGB
	frame    layout.Size
	rendered map[string][]layout.Rect
}

func (f *fakeVideo) ExtractClip(_ context.Context, _ string, _, _ time.Duration, out string) error {
	return os.WriteFile(out, []byte("clip"), 0o644)
}

func (f *fakeVideo) ProbeDuration(context.Context, string) (time.Duration, error) {
	return time.Hour, nil
}

func (f *fakeVideo) ProbeFrameSize(context.Context, string) (layout.Size, error) {
	return f.frame, nil
}

func (f *fakeVideo) SampleColor(context.Context, string, time.Duration, scene.Point) (scene.RGB, error) {
	return f.color, nil
}

func (f *fakeVideo) RenderVertical(_ context.Context, _ string, crops []layout.Rect, _ layout.Size, out string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rendered == nil {
		f.rendered = map[string][]layout.Rect{}
	}
	f.rendered[out] = crops
	return os.WriteFile(out, []byte("vertical"), 0o644)
}

func (f *fakeVideo) BurnSubtitles(_ context.Context, _, _, out string) error {
	return os.WriteFile(out, []byte("final"), 0o644)
}

type fakeASR struct{ tr types.Transcript }

func (f fakeASR) Transcribe(_ context.Context, _, dir string) (types.Transcript, string, error) {
	p := filepath.Join(dir, "ep_transcript.json")
	b, _ := json.Marshal(f.tr)
	return f.tr, p, os.WriteFile(p, b, 0o644)
}

func transcript(speakers ...string) types.Transcript {
	var tr types.Transcript
	for i, s := range speakers {
		start := float64(10 + i*4)
		tr.Segments = append(tr.Segments, types.Segment{
			Speaker: s, Start: start, End: start + 4, Text: "hola",
			Words: []types.Word{{Word: "hola", Start: start, End: start + 1, Speaker: s}},
		})
	}
	return tr
}

type fixture struct {
	in  string
	out string
	cfg Config
	vid *fakeVideo
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	tmp := t.TempDir()
	in := filepath.Join(tmp, "input")
	out := filepath.Join(tmp, "output")
	if err := os.MkdirAll(in, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(in, "ep.mp4"), []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(out, "ai_analysis", "clips.json"),
		`[{"clip_number":1,"title":"Apertura","start_time":"0:08","end_time":"0:30"},
		  {"clip_number":2,"title":"Cierre","start_time":"10:00","end_time":"10:40"}]`)

	app := config.Default()
	app.Paths.Output = out
	vid := &fakeVideo{color: scene.RGB{R: 217, G: 216}, frame: layout.Size{Width: 2560, Height: 1440}}
	return fixture{
		in:  in,
		out: out,
		vid: vid,
		cfg: Config{
			Input:        in,
			App:          app,
			PollInterval: 5 * time.Millisecond,
			Video:        vid,
			ASR:          fakeASR{tr: transcript("SPEAKER_00", "SPEAKER_01", "SPEAKER_02")},
		},
	}
}

func writeFile(t *testing.T, p, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRun_FullPipeline(t *testing.T) {
	fx := newFixture(t)
	res, err := Run(context.Background(), fx.cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Ran) != 5 {
		t.Fatalf("expected 5 steps, ran %v", res.Ran)
	}
	m := res.Manifest
	if m.Speakers != 3 || m.RunID == "" || len(m.Clips) != 2 {
		t.Fatalf("unexpected manifest: %+v", m)
	}

	first := m.Clips[0]
	if first.Scene != "content" || !first.AutoDetected || first.Status != types.StatusRendered {
		t.Fatalf("unexpected first clip: %+v", first)
	}
	if len(first.Crops) != 1 || first.Crops[0].X != 1728 || first.Crops[0].Width != 810 {
		t.Fatalf("three-speaker content scene should use the single crop: %+v", first.Crops)
	}
	if first.File != filepath.Join(fx.out, "final", "clip_01_Apertura_subtitled.mp4") {
		t.Fatalf("first clip should be subtitled: %s", first.File)
	}
	second := m.Clips[1]
	if second.File != filepath.Join(fx.out, "cropped", "clip_02_Cierre_vertical.mp4") {
		t.Fatalf("clip without words keeps the vertical file: %s", second.File)
	}

	if _, err := os.Stat(filepath.Join(fx.out, "manifest.json")); err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	if _, err := os.Stat(statePath(fx.out)); !os.IsNotExist(err) {
		t.Fatalf("state should be reset after a complete run")
	}
}

func TestRun_ResumeFromCropWithFiveSpeakers(t *testing.T) {
	fx := newFixture(t)
	tr := types.Transcript{Segments: []types.Segment{
		{Speaker: "SPEAKER_00", Start: 0, End: 5},
		{Speaker: "SPEAKER_01", Start: 5, End: 8},
		{Speaker: "SPEAKER_04", Start: 8, End: 20},
		{Speaker: "SPEAKER_03", Start: 20, End: 26},
		{Speaker: "SPEAKER_02", Start: 26, End: 30},
	}}
	b, _ := json.Marshal(tr)
	writeFile(t, filepath.Join(fx.out, "transcripts", "ep_transcript.json"), string(b))
	writeFile(t, filepath.Join(fx.out, "extracted", "clip_01_Apertura.mp4"), "x")
	writeFile(t, filepath.Join(fx.out, "extracted", "clip_02_Cierre.mp4"), "x")

	fx.cfg.FromStep = StepCrop
	fx.cfg.ASR = nil
	fx.vid.color = scene.RGB{R: 7}
	res, err := Run(context.Background(), fx.cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Ran) != 2 || res.Ran[0] != StepCrop {
		t.Fatalf("expected crop and subtitles only, ran %v", res.Ran)
	}
	first := res.Manifest.Clips[0]
	if res.Manifest.Speakers != 5 || first.Scene != "speakers" || len(first.Crops) != 3 {
		t.Fatalf("unexpected clip: %+v", first)
	}
	// Window 8-30s: 04, 03 and 02 all talk inside it and none spoke before
	// 8s, so they tie on recency and rank by id.
	want := []string{"SPEAKER_02", "SPEAKER_03", "SPEAKER_04"}
	if strings.Join(first.Speakers, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected selection %v, want %v", first.Speakers, want)
	}
	if first.Crops[0].X != 1726 || first.Crops[1].X != 436 || first.Crops[2].X != 1271 {
		t.Fatalf("crops should follow the selection order: %+v", first.Crops)
	}
}

func TestRun_MissingPrerequisites(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.FromStep = StepCrop
	_, err := Run(context.Background(), fx.cfg)
	if err == nil || !strings.Contains(err.Error(), "extracted clips") {
		t.Fatalf("expected missing extracted clips error, got %v", err)
	}
	if err := os.Remove(filepath.Join(fx.out, "ai_analysis", "clips.json")); err != nil {
		t.Fatal(err)
	}
	fx.cfg.FromStep = StepExtract
	if _, err := Run(context.Background(), fx.cfg); err == nil || !strings.Contains(err.Error(), "clips.json") {
		t.Fatalf("expected missing clip list error, got %v", err)
	}
}

func TestRun_WithoutTranscriptFallsBack(t *testing.T) {
	fx := newFixture(t)
	writeFile(t, filepath.Join(fx.out, "extracted", "clip_01_Apertura.mp4"), "x")
	writeFile(t, filepath.Join(fx.out, "extracted", "clip_02_Cierre.mp4"), "x")
	fx.cfg.FromStep = StepCrop
	fx.cfg.Speakers = 4
	fx.vid.color = scene.RGB{}
	res, err := Run(context.Background(), fx.cfg)
	if err != nil {
		t.Fatal(err)
	}
	c := res.Manifest.Clips[0]
	if !c.LowConfidence || strings.Join(c.Speakers, ",") != "SPEAKER_00,SPEAKER_01,SPEAKER_02" {
		t.Fatalf("expected positional fallback, got %+v", c)
	}
}

func TestRun_EmptyTranscriptFallsBack(t *testing.T) {
	fx := newFixture(t)
	writeFile(t, filepath.Join(fx.out, "transcripts", "ep_transcript.json"), "  \n")
	writeFile(t, filepath.Join(fx.out, "extracted", "clip_01_Apertura.mp4"), "x")
	writeFile(t, filepath.Join(fx.out, "extracted", "clip_02_Cierre.mp4"), "x")
	fx.cfg.FromStep = StepCrop
	fx.cfg.Speakers = 4
	fx.vid.color = scene.RGB{}
	res, err := Run(context.Background(), fx.cfg)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range res.Manifest.Clips {
		if !c.LowConfidence || strings.Join(c.Speakers, ",") != "SPEAKER_00,SPEAKER_01,SPEAKER_02" {
			t.Fatalf("expected positional fallback, got %+v", c)
		}
	}

	m, err := Plan(context.Background(), fx.cfg)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(m.Clips) != 2 || !m.Clips[0].LowConfidence {
		t.Fatalf("unexpected plan: %+v", m)
	}
}

type failingASR struct{}

func (failingASR) Transcribe(context.Context, string, string) (types.Transcript, string, error) {
	return types.Transcript{}, "", errors.New("whisperx: diarization needs a Hugging Face token (HF_TOKEN)")
}

func TestRun_TranscriptionFailureFallsBack(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.ASR = failingASR{}
	fx.cfg.Speakers = 4
	fx.vid.color = scene.RGB{}
	res, err := Run(context.Background(), fx.cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res.Ran[0] != StepClips {
		t.Fatalf("transcribe should not be recorded as done, ran %v", res.Ran)
	}
	c := res.Manifest.Clips[0]
	if !c.LowConfidence || len(c.Crops) != 3 {
		t.Fatalf("expected low confidence fallback, got %+v", c)
	}
}

func TestRun_FrameMismatchIsGeometryError(t *testing.T) {
	fx := newFixture(t)
	fx.vid.frame = layout.Size{Width: 1920, Height: 1080}
	_, err := Run(context.Background(), fx.cfg)
	if !errors.Is(err, layout.ErrGeometry) {
		t.Fatalf("expected geometry error, got %v", err)
	}
	st, err := LoadState(fx.out)
	if err != nil {
		t.Fatal(err)
	}
	if st.Next() != StepCrop {
		t.Fatalf("resume point should be crop, got %d (%v)", st.Next(), st.CompletedSteps)
	}
}

func TestRun_ForcedScene(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.Scene = scene.Speakers
	res, err := Run(context.Background(), fx.cfg)
	if err != nil {
		t.Fatal(err)
	}
	c := res.Manifest.Clips[0]
	if c.Scene != "speakers" || c.AutoDetected || len(c.Crops) != 3 {
		t.Fatalf("unexpected clip: %+v", c)
	}
}

func TestPlan(t *testing.T) {
	fx := newFixture(t)
	if _, err := Run(context.Background(), fx.cfg); err != nil {
		t.Fatal(err)
	}
	before := len(fx.vid.rendered)
	m, err := Plan(context.Background(), fx.cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(fx.vid.rendered) != before {
		t.Fatalf("plan must not render")
	}
	if len(m.Clips) != 2 || m.Clips[0].Scene != "content" {
		t.Fatalf("unexpected plan: %+v", m)
	}
}

func TestState(t *testing.T) {
	dir := t.TempDir()
	st, err := LoadState(dir)
	if err != nil {
		t.Fatal(err)
	}
	if st.RunID == "" || st.Next() != StepTranscribe {
		t.Fatalf("unexpected fresh state: %+v", st)
	}
	st.Complete(StepClips)
	st.Complete(StepTranscribe)
	st.Complete(StepTranscribe)
	if err := st.Save(dir); err != nil {
		t.Fatal(err)
	}
	got, err := LoadState(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got.RunID != st.RunID || got.Next() != StepExtract || len(got.CompletedSteps) != 2 {
		t.Fatalf("unexpected loaded state: %+v", got)
	}
	got.Forget(StepClips)
	if got.Next() != StepClips {
		t.Fatalf("forget should drop later steps: %v", got.CompletedSteps)
	}
	if err := ResetState(dir); err != nil {
		t.Fatal(err)
	}
	if err := ResetState(dir); err != nil {
		t.Fatalf("reset of missing state should succeed: %v", err)
	}
}

func TestLock(t *testing.T) {
	dir := t.TempDir()
	l, err := Lock(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Lock(dir); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := l.Unlock(); err != nil {
		t.Fatal(err)
	}
	l2, err := Lock(dir)
	if err != nil {
		t.Fatalf("lock after unlock: %v", err)
	}
	_ = l2.Unlock()
}

func TestFindVideo(t *testing.T) {
	dir := t.TempDir()
	if _, err := FindVideo(dir); err == nil {
		t.Fatalf("expected error for empty dir")
	}
	writeFile(t, filepath.Join(dir, "notes.txt"), "x")
	writeFile(t, filepath.Join(dir, "b.MKV"), "x")
	writeFile(t, filepath.Join(dir, "a.mp4"), "x")
	got, err := FindVideo(dir)
	if err != nil || got != filepath.Join(dir, "a.mp4") {
		t.Fatalf("got %q %v", got, err)
	}
	if _, err := FindVideo(filepath.Join(dir, "notes.txt")); err == nil {
		t.Fatalf("expected unsupported file error")
	}
}
