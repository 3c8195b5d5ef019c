// Package decision composes scene classification, speaker selection and
// layout resolution into the crop instructions of a clip.
package decision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/podcrop/internal/domain/activity"
	"github.com/forPelevin/podcrop/internal/domain/layout"
	"github.com/forPelevin/podcrop/internal/domain/scene"
	"github.com/forPelevin/podcrop/internal/domain/selection"
)

var (
	// ErrSkip is returned by a Chooser when the operator skips a clip.
	ErrSkip = errors.New("clip skipped by operator")
	// ErrAmbiguous is returned when a scene cannot be classified and nobody
	// can be asked.
	ErrAmbiguous = errors.New("ambiguous scene")
)

// Sampler reads the color of one pixel of a video at a given offset.
type Sampler interface {
	SampleColor(ctx context.Context, path string, at time.Duration, p scene.Point) (scene.RGB, error)
}

// Chooser resolves a scene the classifier could not decide. sample is nil when
// no frame could be read. Implementations return ErrSkip to drop the clip.
type Chooser interface {
	ChooseScene(ctx context.Context, clip Clip, sample *scene.RGB) (scene.Scene, error)
}

type Clip struct {
	Number int
	Title  string
	// Source is the video the crops apply to.
	Source string
	// Window is the clip's range in episode time, used against the transcript.
	Window selection.Window
	// SampleAt is the offset into Source of the frame used for classification.
	SampleAt time.Duration
}

// Instruction is one crop handed to the transcoder. Slot is the stacking
// position in the vertical composition, 0 on top.
type Instruction struct {
	Source string
	Rect   layout.Rect
	Slot   int
}

type Plan struct {
	Clip         Clip
	Scene        scene.Scene
	AutoDetected bool
	Sample       *scene.RGB
	Selection    selection.Selection
	Instructions []Instruction
}

type Config struct {
	Classifier scene.Classifier
	AutoDetect bool
	Selector   selection.Selector
	Layout     *layout.Resolver
}

type Deps struct {
	Sampler Sampler
	Chooser Chooser
	// Index may be nil when the episode has no transcript.
	Index *activity.Index
	Log   logrus.FieldLogger
}

type Engine struct {
	cfg    Config
	d      Deps
	roster []string
}

// New checks the transcript against the layout: above three speakers every
// diarized speaker must have a position.
func New(cfg Config, d Deps) (*Engine, error) {
	if cfg.Layout == nil {
		return nil, fmt.Errorf("%w: no layout", layout.ErrConfig)
	}
	if d.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		d.Log = l
	}

	roster := cfg.Layout.Mapping().Roster()
	if cfg.Layout.Count() > 3 {
		for _, id := range d.Index.Speakers() {
			if _, ok := cfg.Layout.Mapping().Position(id); !ok {
				return nil, fmt.Errorf("%w: transcript speaker %s has no position mapping", layout.ErrConfig, id)
			}
		}
	} else if roster == nil {
		roster = d.Index.Speakers()
	}
	if n := len(d.Index.Speakers()); n > 0 && n != cfg.Layout.Count() {
		d.Log.WithFields(logrus.Fields{"configured": cfg.Layout.Count(), "transcript": n}).
			Warn("speaker count differs from transcript")
	}
	return &Engine{cfg: cfg, d: d, roster: roster}, nil
}

// Roster is the episode's speakers in position order.
func (e *Engine) Roster() []string { return append([]string(nil), e.roster...) }

// Plan classifies the clip's scene, asking the Chooser when the sample is
// ambiguous or auto-detection is off, then decides its crops.
func (e *Engine) Plan(ctx context.Context, clip Clip) (Plan, error) {
	log := e.d.Log.WithField("clip", clip.Number)

	sc := scene.Ambiguous
	auto := false
	var sample *scene.RGB
	if e.cfg.AutoDetect && e.d.Sampler != nil {
		c, err := e.d.Sampler.SampleColor(ctx, clip.Source, clip.SampleAt, e.cfg.Classifier.Pixel)
		if err != nil {
			log.WithError(err).Warn("could not sample frame for scene detection")
		} else {
			sample = &c
			sc = e.cfg.Classifier.Classify(c)
			if sc == scene.Ambiguous {
				log.WithFields(logrus.Fields{
					"color":         c.String(),
					"dist_speakers": scene.Distance(c, e.cfg.Classifier.SpeakersColor),
					"dist_content":  scene.Distance(c, e.cfg.Classifier.ContentColor),
				}).Warn("pixel color matches neither scene")
			} else {
				auto = true
				log.WithFields(logrus.Fields{"scene": sc.String(), "color": c.String()}).Info("auto-detected scene")
			}
		}
	}

	if sc == scene.Ambiguous {
		if e.d.Chooser == nil {
			return Plan{}, fmt.Errorf("clip %d: %w", clip.Number, ErrAmbiguous)
		}
		chosen, err := e.d.Chooser.ChooseScene(ctx, clip, sample)
		if err != nil {
			return Plan{}, fmt.Errorf("clip %d: %w", clip.Number, err)
		}
		if chosen == scene.Ambiguous {
			return Plan{}, fmt.Errorf("clip %d: %w", clip.Number, ErrAmbiguous)
		}
		sc = chosen
	}

	p, err := e.Decide(clip, sc)
	if err != nil {
		return Plan{}, err
	}
	p.AutoDetected = auto
	p.Sample = sample
	return p, nil
}

// Decide selects speakers and resolves crops for a clip whose scene is known.
func (e *Engine) Decide(clip Clip, sc scene.Scene) (Plan, error) {
	sel := e.cfg.Selector.Select(e.d.Index, clip.Window, e.roster)
	if sel.LowConfidence {
		e.d.Log.WithFields(logrus.Fields{"clip": clip.Number, "speakers": sel.Speakers}).
			Warn("no transcript data, showing first speakers by position")
	}
	rects, err := e.cfg.Layout.Resolve(sc, sel.Speakers)
	if err != nil {
		return Plan{}, fmt.Errorf("clip %d: %w", clip.Number, err)
	}
	ins := make([]Instruction, 0, len(rects))
	for i, r := range rects {
		ins = append(ins, Instruction{Source: clip.Source, Rect: r, Slot: i})
	}
	return Plan{Clip: clip, Scene: sc, Selection: sel, Instructions: ins}, nil
}

// FixedChooser answers every prompt with the same scene.
type FixedChooser scene.Scene

func (f FixedChooser) ChooseScene(context.Context, Clip, *scene.RGB) (scene.Scene, error) {
	return scene.Scene(f), nil
}
