package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/podcrop/internal/config"
	"github.com/forPelevin/podcrop/internal/domain/activity"
	"github.com/forPelevin/podcrop/internal/domain/decision"
	"github.com/forPelevin/podcrop/internal/domain/layout"
	"github.com/forPelevin/podcrop/internal/domain/scene"
	"github.com/forPelevin/podcrop/internal/logging"
	"github.com/forPelevin/podcrop/internal/ports"
	"github.com/forPelevin/podcrop/internal/ports/adapters/clipsjson"
	"github.com/forPelevin/podcrop/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/podcrop/internal/ports/adapters/terminal"
	"github.com/forPelevin/podcrop/internal/ports/adapters/whisperx"
	"github.com/forPelevin/podcrop/internal/types"
	"github.com/forPelevin/podcrop/internal/usecase"
)

// Operator is the person running the tool: asked for a scene when detection
// fails and for the speaker count when nothing else tells it.
type Operator interface {
	decision.Chooser
	AskSpeakerCount(ctx context.Context) (int, error)
}

type Config struct {
	// Input is a video file or a directory holding one.
	Input string
	App   config.Config

	// FromStep forces the first step to run; 0 resumes after the last
	// completed one.
	FromStep       int
	SkipTranscribe bool
	// Speakers overrides the configured speaker count when non-zero.
	Speakers int
	// Scene forces one scene for every clip; Ambiguous means detect.
	Scene        scene.Scene
	PollInterval time.Duration

	Log      logrus.FieldLogger
	Operator Operator

	// Video and ASR replace the ffmpeg and whisperx adapters when set.
	Video ports.VideoTool
	ASR   ports.ASR
}

func (c Config) Validate() error {
	if c.Input == "" {
		return errors.New("input is empty")
	}
	if c.FromStep < 0 || c.FromStep > lastStep {
		return fmt.Errorf("from-step must be between 1 and %d", lastStep)
	}
	if c.Speakers != 0 {
		if err := layout.ValidCount(c.Speakers); err != nil {
			return err
		}
	}
	return c.App.Validate()
}

type Result struct {
	Manifest     types.Manifest
	ManifestPath string
	Ran          []int
}

type runner struct {
	cfg   Config
	log   logrus.FieldLogger
	video ports.VideoTool
	uc    usecase.Usecase
	dirs  Dirs
	input string
}

func newRunner(cfg Config) (*runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	input, err := FindVideo(cfg.Input)
	if err != nil {
		return nil, err
	}
	log := cfg.Log
	if log == nil {
		log = logging.Discard()
	}
	app := cfg.App
	video := cfg.Video
	if video == nil {
		video = ffmpeg.New(app.Tools.FFmpeg, app.Tools.FFprobe)
	}
	asr := cfg.ASR
	if asr == nil {
		asr = whisperx.New(whisperx.Options{
			Bin:         app.Tools.WhisperX,
			Model:       app.Transcription.Model,
			Language:    app.Transcription.Language,
			Device:      app.Transcription.Device,
			ComputeType: app.Transcription.ComputeType,
			BatchSize:   app.Transcription.BatchSize,
			HFToken:     app.Transcription.HFToken,
		})
	}
	return &runner{
		cfg:   cfg,
		log:   log,
		video: video,
		uc:    usecase.New(usecase.Deps{Video: video, ASR: asr, Log: log}),
		dirs:  NewDirs(app.Paths.Output),
		input: input,
	}, nil
}

// Run executes the pipeline from the resume point (or FromStep) to the end
// and writes manifest.json. The saved state is cleared once every step has
// completed.
func Run(ctx context.Context, cfg Config) (Result, error) {
	r, err := newRunner(cfg)
	if err != nil {
		return Result{}, err
	}
	if err := r.dirs.create(); err != nil {
		return Result{}, err
	}
	lock, err := Lock(r.dirs.Root)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = lock.Unlock() }()

	st, err := LoadState(r.dirs.Root)
	if err != nil {
		return Result{}, err
	}
	if st.Input != "" && st.Input != r.input && cfg.FromStep == 0 {
		r.log.WithField("previous", st.Input).Warn("saved state belongs to another input, starting over")
		st = State{RunID: st.RunID}
	}
	start := cfg.FromStep
	if start == 0 {
		start = st.Next()
		if start > lastStep {
			start = StepTranscribe
		}
	}
	if cfg.SkipTranscribe && start == StepTranscribe {
		start = StepClips
	}
	st.Forget(start)
	st.Input = r.input
	log := r.log.WithField("run_id", st.RunID)
	log.WithFields(logrus.Fields{"input": r.input, "from": StepName(start)}).Info("starting pipeline")

	if err := r.checkPrereqs(start); err != nil {
		return Result{}, err
	}

	var res Result
	done := func(step int) error {
		st.Complete(step)
		res.Ran = append(res.Ran, step)
		return st.Save(r.dirs.Root)
	}

	var tr types.Transcript
	if start <= StepTranscribe {
		tr, _, err = r.uc.Transcribe(ctx, r.input, r.dirs.Transcripts)
		switch {
		case err == nil:
			if err := done(StepTranscribe); err != nil {
				return res, err
			}
		case ctx.Err() != nil:
			return res, err
		default:
			log.WithError(err).Warn("transcription failed, speaker selection will fall back to position order")
			tr = types.Transcript{}
		}
	} else if tr, err = r.transcript(); err != nil {
		return res, err
	}

	src := clipsjson.New(r.dirs.ClipsFile())
	var specs []types.ClipSpec
	if start <= StepClips {
		log.Infof("waiting for the clip list at %s", src.Path())
		if specs, err = src.Wait(ctx, cfg.PollInterval); err != nil {
			return res, err
		}
		if err := done(StepClips); err != nil {
			return res, err
		}
	} else if specs, err = src.Clips(ctx); err != nil {
		return res, err
	}
	log.Infof("%d clips listed", len(specs))

	prev := readManifest(r.dirs.Manifest())
	count := prev.Speakers

	var entries []types.ManifestClip
	if start <= StepExtract {
		r.checkDuration(ctx, specs)
		entries, err = r.uc.Extract(ctx, usecase.ExtractInput{Video: r.input, Dir: r.dirs.Extracted, Clips: specs})
		if err != nil {
			return res, err
		}
		if err := done(StepExtract); err != nil {
			return res, err
		}
	} else {
		entries = usecase.Existing(specs, r.extractedPath)
	}

	if start <= StepCrop {
		eng, setup, err := r.engine(ctx, tr)
		if err != nil {
			return res, err
		}
		count = setup.Count
		entries, err = r.uc.Crop(ctx, usecase.CropInput{
			Clips:    entries,
			Dir:      r.dirs.Cropped,
			Planner:  eng,
			SampleAt: setup.SampleAt,
			Canvas:   r.canvas(),
			Workers:  cfg.App.Workers,
		})
		if err != nil {
			return res, err
		}
		if err := done(StepCrop); err != nil {
			return res, err
		}
	} else {
		entries = mergePrevious(usecase.Existing(specs, r.croppedPath), prev)
	}

	if cfg.App.Output.Subtitles {
		entries, err = r.uc.Subtitle(ctx, usecase.SubtitleInput{
			Clips:      entries,
			Dir:        r.dirs.Final,
			Transcript: tr,
			Canvas:     r.canvas(),
		})
		if err != nil {
			return res, err
		}
	} else {
		log.Info("subtitles disabled")
	}
	if err := done(StepSubtitles); err != nil {
		return res, err
	}

	res.Manifest = types.Manifest{RunID: st.RunID, Input: r.input, Speakers: count, Clips: entries}
	res.ManifestPath = r.dirs.Manifest()
	if err := writeManifest(res.ManifestPath, res.Manifest); err != nil {
		return res, err
	}
	if err := ResetState(r.dirs.Root); err != nil {
		log.WithError(err).Warn("could not reset pipeline state")
	}
	log.WithField("manifest", res.ManifestPath).Info("pipeline complete")
	return res, nil
}

// Plan decides the crops of every extracted clip without rendering anything.
func Plan(ctx context.Context, cfg Config) (types.Manifest, error) {
	r, err := newRunner(cfg)
	if err != nil {
		return types.Manifest{}, err
	}
	if err := r.checkPrereqs(StepCrop); err != nil {
		return types.Manifest{}, err
	}
	tr, err := r.transcript()
	if err != nil {
		return types.Manifest{}, err
	}
	specs, err := clipsjson.New(r.dirs.ClipsFile()).Clips(ctx)
	if err != nil {
		return types.Manifest{}, err
	}
	eng, setup, err := r.engine(ctx, tr)
	if err != nil {
		return types.Manifest{}, err
	}
	entries, err := r.uc.Crop(ctx, usecase.CropInput{
		Clips:    usecase.Existing(specs, r.extractedPath),
		Planner:  eng,
		SampleAt: setup.SampleAt,
		Workers:  cfg.App.Workers,
		DryRun:   true,
	})
	if err != nil {
		return types.Manifest{}, err
	}
	return types.Manifest{Input: r.input, Speakers: setup.Count, Clips: entries}, nil
}

// engine builds the crop decision engine for the episode.
func (r *runner) engine(ctx context.Context, tr types.Transcript) (*decision.Engine, config.Setup, error) {
	count, err := r.speakerCount(ctx, tr)
	if err != nil {
		return nil, config.Setup{}, err
	}
	setup, err := r.cfg.App.Setup(count)
	if err != nil {
		return nil, config.Setup{}, err
	}
	if err := r.checkFrame(ctx); err != nil {
		return nil, config.Setup{}, err
	}

	var chooser decision.Chooser
	if r.cfg.Operator != nil {
		chooser = r.cfg.Operator
	}
	auto := setup.AutoDetect
	if r.cfg.Scene != scene.Ambiguous {
		chooser = decision.FixedChooser(r.cfg.Scene)
		auto = false
	}
	eng, err := decision.New(decision.Config{
		Classifier: setup.Classifier,
		AutoDetect: auto,
		Selector:   setup.Selector,
		Layout:     setup.Resolver,
	}, decision.Deps{
		Sampler: r.video,
		Chooser: chooser,
		Index:   activity.FromTranscript(tr),
		Log:     r.log,
	})
	if err != nil {
		return nil, config.Setup{}, err
	}
	r.log.WithFields(logrus.Fields{"speakers": count, "roster": eng.Roster(), "auto_detect": auto}).Info("episode configured")
	return eng, setup, nil
}

// speakerCount takes the first of: the override, the configured count, the
// number of diarized speakers, the operator's answer.
func (r *runner) speakerCount(ctx context.Context, tr types.Transcript) (int, error) {
	if r.cfg.Speakers != 0 {
		return r.cfg.Speakers, nil
	}
	if n := r.cfg.App.Episode.Speakers; n != 0 {
		return n, nil
	}
	if n := len(tr.Speakers()); layout.ValidCount(n) == nil {
		r.log.WithField("speakers", n).Info("speaker count taken from transcript")
		return n, nil
	}
	if r.cfg.Operator == nil {
		return 0, fmt.Errorf("%w: speaker count unknown, set episode.speakers or --speakers", layout.ErrConfig)
	}
	n, err := r.cfg.Operator.AskSpeakerCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: speaker count: %w", layout.ErrConfig, err)
	}
	return n, nil
}

// checkFrame compares the episode's frame size with the configured source
// frame the layouts were validated against.
func (r *runner) checkFrame(ctx context.Context) error {
	got, err := r.video.ProbeFrameSize(ctx, r.input)
	if err != nil {
		r.log.WithError(err).Warn("could not probe frame size")
		return nil
	}
	want := layout.Size{Width: r.cfg.App.Source.Width, Height: r.cfg.App.Source.Height}
	if got != want {
		return fmt.Errorf("%w: video frame is %s but layouts are configured for %s", layout.ErrGeometry, got, want)
	}
	return nil
}

func (r *runner) checkDuration(ctx context.Context, specs []types.ClipSpec) {
	d, err := r.video.ProbeDuration(ctx, r.input)
	if err != nil || d <= 0 {
		return
	}
	for _, c := range specs {
		if c.End > d {
			r.log.WithFields(logrus.Fields{"clip": c.Number, "end": c.End.String(), "episode": d.String()}).
				Warn("clip ends after the episode")
		}
	}
}

// transcript loads the saved transcript. A missing or empty one is not
// fatal: speaker selection falls back to position order and flags it.
func (r *runner) transcript() (types.Transcript, error) {
	p, ok := whisperx.Find(r.dirs.Transcripts, r.input)
	if !ok {
		r.log.WithField("dir", r.dirs.Transcripts).Warn("no transcript found, speaker selection will fall back to position order")
		return types.Transcript{}, nil
	}
	r.log.WithField("path", p).Debug("using transcript")
	tr, err := whisperx.Load(p)
	if errors.Is(err, whisperx.ErrEmpty) {
		r.log.WithField("path", p).Warn("transcript is empty, speaker selection will fall back to position order")
		return types.Transcript{}, nil
	}
	return tr, err
}

func (r *runner) canvas() layout.Size {
	return layout.Size{Width: r.cfg.App.Output.Width, Height: r.cfg.App.Output.Height}
}

func (r *runner) extractedPath(c types.ClipSpec) string {
	return usecase.ExtractedPath(r.dirs.Extracted, c.Number, c.Title)
}

func (r *runner) croppedPath(c types.ClipSpec) string {
	return usecase.VerticalPath(r.dirs.Cropped, r.extractedPath(c))
}

// checkPrereqs verifies the artifacts the steps before start should have
// left behind.
func (r *runner) checkPrereqs(start int) error {
	if start > StepClips {
		if _, err := os.Stat(r.dirs.ClipsFile()); err != nil {
			return fmt.Errorf("step %s needs %s", StepName(start), r.dirs.ClipsFile())
		}
	}
	if start > StepExtract && !anyFile(r.dirs.Extracted) {
		return fmt.Errorf("step %s needs extracted clips in %s", StepName(start), r.dirs.Extracted)
	}
	if start > StepCrop && !anyFile(r.dirs.Cropped) {
		return fmt.Errorf("step %s needs cropped clips in %s", StepName(start), r.dirs.Cropped)
	}
	return nil
}

func anyFile(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.Type().IsRegular() {
			return true
		}
	}
	return false
}

func readManifest(path string) types.Manifest {
	var m types.Manifest
	b, err := os.ReadFile(path)
	if err != nil {
		return m
	}
	_ = json.Unmarshal(b, &m)
	return m
}

// mergePrevious restores the crop decisions of clips found on disk from the
// previous manifest.
func mergePrevious(entries []types.ManifestClip, prev types.Manifest) []types.ManifestClip {
	byNum := make(map[int]types.ManifestClip, len(prev.Clips))
	for _, c := range prev.Clips {
		byNum[c.Number] = c
	}
	for i, e := range entries {
		p, ok := byNum[e.Number]
		if !ok || e.Status != types.StatusRendered {
			continue
		}
		entries[i].Scene = p.Scene
		entries[i].AutoDetected = p.AutoDetected
		entries[i].Speakers = p.Speakers
		entries[i].LowConfidence = p.LowConfidence
		entries[i].Crops = p.Crops
	}
	return entries
}

func writeManifest(path string, m types.Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return writeFileAtomic(path, b)
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.ASR = (*whisperx.Adapter)(nil)
var _ ports.ClipSelector = (*clipsjson.Source)(nil)
var _ Operator = (*terminal.Prompter)(nil)
