package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/podcrop/internal/domain/layout"
	"github.com/forPelevin/podcrop/internal/domain/scene"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ExtractClip(ctx context.Context, in string, start, end time.Duration, out string) error {
	if end <= start {
		return fmt.Errorf("ffmpeg extract clip: empty range %s-%s", start, end)
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-ss", fmtSeconds(start),
		"-i", in,
		"-t", fmtSeconds(end-start),
		"-c:v", "libx264",
		"-preset", "fast",
		"-c:a", "aac",
		"-b:a", "192k",
		"-avoid_negative_ts", "make_zero",
		out,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract clip: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, in string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		in,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func (a *Adapter) ProbeFrameSize(ctx context.Context, in string) (layout.Size, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=p=0",
		in,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return layout.Size{}, fmt.Errorf("ffprobe frame size: %w\n%s", err, string(b))
	}
	return parseFrameSize(string(b))
}

func parseFrameSize(s string) (layout.Size, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	w, h, ok := strings.Cut(strings.TrimSuffix(strings.TrimSpace(s), ","), ",")
	if !ok {
		return layout.Size{}, fmt.Errorf("parse frame size %q", s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return layout.Size{}, fmt.Errorf("parse frame width %q: %w", w, err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return layout.Size{}, fmt.Errorf("parse frame height %q: %w", h, err)
	}
	return layout.Size{Width: width, Height: height}, nil
}

// SampleColor decodes a single pixel of the frame at offset at.
func (a *Adapter) SampleColor(ctx context.Context, in string, at time.Duration, p scene.Point) (scene.RGB, error) {
	if p.X < 0 || p.Y < 0 {
		return scene.RGB{}, fmt.Errorf("ffmpeg sample color: negative pixel (%d,%d)", p.X, p.Y)
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-v", "error",
		"-ss", fmtSeconds(at),
		"-i", in,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("crop=1:1:%d:%d", p.X, p.Y),
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return scene.RGB{}, fmt.Errorf("ffmpeg sample color: %w\n%s", err, stderr.String())
	}
	return decodePixel(stdout.Bytes())
}

func decodePixel(b []byte) (scene.RGB, error) {
	if len(b) < 3 {
		return scene.RGB{}, fmt.Errorf("ffmpeg sample color: got %d bytes, want 3", len(b))
	}
	return scene.RGB{R: b[0], G: b[1], B: b[2]}, nil
}

func (a *Adapter) RenderVertical(ctx context.Context, in string, crops []layout.Rect, canvas layout.Size, out string) error {
	graph, err := verticalFilter(crops, canvas)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", in,
		"-filter_complex", graph,
		"-map", "[out]",
		"-map", "0:a?",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-c:a", "copy",
		out,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg render vertical: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) BurnSubtitles(ctx context.Context, in, assPath, out string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", in,
		"-vf", "subtitles="+escapeFilterPath(assPath),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-c:a", "copy",
		out,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg burn subtitles: %w\n%s", err, string(b))
	}
	return nil
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	return p
}
