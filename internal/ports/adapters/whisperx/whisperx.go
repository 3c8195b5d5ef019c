package whisperx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/forPelevin/podcrop/internal/types"
)

type Options struct {
	Bin         string
	Model       string
	Language    string
	Device      string
	ComputeType string
	BatchSize   int
	HFToken     string
}

type Adapter struct {
	opt Options
}

func New(opt Options) *Adapter {
	if opt.Bin == "" {
		opt.Bin = "whisperx"
	}
	return &Adapter{opt: opt}
}

// Transcribe runs whisperx with diarization and moves the result to
// <outDir>/<stem>_transcript.json.
func (a *Adapter) Transcribe(ctx context.Context, video, outDir string) (types.Transcript, string, error) {
	if a.opt.HFToken == "" {
		return types.Transcript{}, "", errors.New("whisperx: diarization needs a Hugging Face token (HF_TOKEN)")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return types.Transcript{}, "", err
	}
	cmd := exec.CommandContext(ctx, a.opt.Bin, a.args(video, outDir)...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, "", fmt.Errorf("whisperx failed: %w\n%s", err, string(b))
	}

	stem := strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))
	raw := filepath.Join(outDir, stem+".json")
	dst := TranscriptPath(outDir, video)
	if err := os.Rename(raw, dst); err != nil {
		return types.Transcript{}, "", fmt.Errorf("whisperx output: %w", err)
	}
	tr, err := Load(dst)
	if err != nil {
		return types.Transcript{}, "", err
	}
	return tr, dst, nil
}

func (a *Adapter) args(video, outDir string) []string {
	args := []string{video, "--diarize", "--output_dir", outDir, "--output_format", "json"}
	add := func(flag, v string) {
		if v != "" {
			args = append(args, flag, v)
		}
	}
	add("--model", a.opt.Model)
	add("--language", a.opt.Language)
	add("--device", a.opt.Device)
	add("--compute_type", a.opt.ComputeType)
	if a.opt.BatchSize > 0 {
		args = append(args, "--batch_size", strconv.Itoa(a.opt.BatchSize))
	}
	args = append(args, "--hf_token", a.opt.HFToken)
	return args
}

// TranscriptPath is where the transcript for video is stored inside dir.
func TranscriptPath(dir, video string) string {
	stem := strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))
	return filepath.Join(dir, stem+"_transcript.json")
}
