package config

import (
	"fmt"
	"time"

	"github.com/forPelevin/podcrop/internal/domain/layout"
	"github.com/forPelevin/podcrop/internal/domain/scene"
	"github.com/forPelevin/podcrop/internal/domain/selection"
)

// Setup is the validated crop configuration of an episode with a given
// number of speakers.
type Setup struct {
	Count      int
	Resolver   *layout.Resolver
	Classifier scene.Classifier
	Selector   selection.Selector
	AutoDetect bool
	SampleAt   time.Duration
}

func (c Config) Setup(count int) (Setup, error) {
	res, err := c.Layout(count)
	if err != nil {
		return Setup{}, err
	}
	cls, err := c.Classifier(count)
	if err != nil {
		return Setup{}, err
	}
	sel, err := c.Selector()
	if err != nil {
		return Setup{}, err
	}
	return Setup{
		Count:      count,
		Resolver:   res,
		Classifier: cls,
		Selector:   sel,
		AutoDetect: c.AutoDetect.Enabled,
		SampleAt:   time.Duration(c.AutoDetect.SampleAt * float64(time.Second)),
	}, nil
}

// Layout builds the resolver for count speakers from the layouts list.
func (c Config) Layout(count int) (*layout.Resolver, error) {
	if err := layout.ValidCount(count); err != nil {
		return nil, err
	}
	for _, l := range c.Layouts {
		if l.Speakers != count {
			continue
		}
		return l.resolver(layout.Size{Width: c.Source.Width, Height: c.Source.Height})
	}
	return nil, fmt.Errorf("%w: no layout configured for %d speakers", layout.ErrConfig, count)
}

func (l Layout) resolver(frame layout.Size) (*layout.Resolver, error) {
	var table layout.Table
	var err error
	if table.Speakers, err = rects(l.Speakers, "speakers_scene", l.SpeakersScene); err != nil {
		return nil, err
	}
	if table.Content, err = rects(l.Speakers, "content_scene", l.ContentScene); err != nil {
		return nil, err
	}
	var mapping *layout.Mapping
	if len(l.Mapping) > 0 {
		assign := make(map[string]int, len(l.Mapping))
		for i, a := range l.Mapping {
			if a.Position == nil {
				return nil, fmt.Errorf("%w: layouts[%d speakers].mapping[%d]: position is required", layout.ErrConfig, l.Speakers, i)
			}
			if _, dup := assign[a.Speaker]; dup {
				return nil, fmt.Errorf("%w: layouts[%d speakers].mapping: speaker %s listed twice", layout.ErrConfig, l.Speakers, a.Speaker)
			}
			assign[a.Speaker] = *a.Position
		}
		if mapping, err = layout.NewMapping(assign); err != nil {
			return nil, fmt.Errorf("layouts[%d speakers].mapping: %w", l.Speakers, err)
		}
	}
	res, err := layout.NewResolver(l.Speakers, table, mapping, frame)
	if err != nil {
		return nil, fmt.Errorf("layouts[%d speakers]: %w", l.Speakers, err)
	}
	return res, nil
}

func rects(count int, field string, in []Rect) ([]layout.Rect, error) {
	out := make([]layout.Rect, 0, len(in))
	for i, r := range in {
		if r.X == nil || r.Y == nil || r.Width == nil || r.Height == nil {
			return nil, fmt.Errorf("%w: layouts[%d speakers].%s[%d]: x, y, width and height are all required",
				layout.ErrConfig, count, field, i)
		}
		out = append(out, layout.Rect{X: *r.X, Y: *r.Y, Width: *r.Width, Height: *r.Height})
	}
	return out, nil
}

// Classifier merges the override for count speakers, if any, over the default
// probe settings.
func (c Config) Classifier(count int) (scene.Classifier, error) {
	d := c.AutoDetect.Default
	for _, o := range c.AutoDetect.BySpeakers {
		if o.Speakers != count {
			continue
		}
		if o.Pixel != nil {
			d.Pixel = o.Pixel
		}
		if o.SpeakersColor != nil {
			d.SpeakersColor = o.SpeakersColor
		}
		if o.ContentColor != nil {
			d.ContentColor = o.ContentColor
		}
		if o.Tolerance != nil {
			d.Tolerance = o.Tolerance
		}
	}
	return d.classifier(layout.Size{Width: c.Source.Width, Height: c.Source.Height})
}

func (d Detect) classifier(frame layout.Size) (scene.Classifier, error) {
	if len(d.Pixel) != 2 {
		return scene.Classifier{}, fmt.Errorf("%w: auto_detect.pixel needs [x, y]", layout.ErrConfig)
	}
	p := scene.Point{X: d.Pixel[0], Y: d.Pixel[1]}
	if p.X < 0 || p.Y < 0 || p.X >= frame.Width || p.Y >= frame.Height {
		return scene.Classifier{}, fmt.Errorf("%w: auto_detect pixel (%d,%d) outside %s", layout.ErrGeometry, p.X, p.Y, frame)
	}
	spk, err := color("speakers_color", d.SpeakersColor)
	if err != nil {
		return scene.Classifier{}, err
	}
	cnt, err := color("content_color", d.ContentColor)
	if err != nil {
		return scene.Classifier{}, err
	}
	if d.Tolerance == nil || *d.Tolerance < 0 {
		return scene.Classifier{}, fmt.Errorf("%w: auto_detect.tolerance must be >= 0", layout.ErrConfig)
	}
	return scene.Classifier{Pixel: p, SpeakersColor: spk, ContentColor: cnt, Tolerance: *d.Tolerance}, nil
}

func color(field string, v []int) (scene.RGB, error) {
	if len(v) != 3 {
		return scene.RGB{}, fmt.Errorf("%w: auto_detect.%s needs [r, g, b]", layout.ErrConfig, field)
	}
	for _, c := range v {
		if c < 0 || c > 255 {
			return scene.RGB{}, fmt.Errorf("%w: auto_detect.%s component %d outside 0-255", layout.ErrConfig, field, c)
		}
	}
	return scene.RGB{R: uint8(v[0]), G: uint8(v[1]), B: uint8(v[2])}, nil
}

func (c Config) Selector() (selection.Selector, error) {
	if c.Selection.SampleStep < selection.MinStep {
		return selection.Selector{}, fmt.Errorf("%w: selection.sample_step must be >= %g", layout.ErrConfig, selection.MinStep)
	}
	decay, err := selection.ParseDecay(c.Selection.Decay, c.Selection.DecayScale)
	if err != nil {
		return selection.Selector{}, fmt.Errorf("%w: selection: %w", layout.ErrConfig, err)
	}
	return selection.New(selection.Config{Step: c.Selection.SampleStep, Decay: decay}), nil
}
