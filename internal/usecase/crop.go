package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/podcrop/internal/domain/decision"
	"github.com/forPelevin/podcrop/internal/domain/layout"
	"github.com/forPelevin/podcrop/internal/domain/selection"
	"github.com/forPelevin/podcrop/internal/types"
)

// Planner decides the crops of a clip.
type Planner interface {
	Plan(ctx context.Context, clip decision.Clip) (decision.Plan, error)
}

type CropInput struct {
	Clips   []types.ManifestClip
	Dir     string
	Planner Planner
	// SampleAt is the preferred probe offset; it is capped at half the clip.
	SampleAt time.Duration
	Canvas   layout.Size
	Workers  int
	// DryRun plans every clip without rendering.
	DryRun bool
}

// Crop plans and renders the vertical version of every extracted clip,
// running up to Workers clips at once. Entries keep their input order.
// Configuration and geometry errors abort the episode; anything else is
// recorded on the clip.
func (u Usecase) Crop(ctx context.Context, in CropInput) ([]types.ManifestClip, error) {
	if in.Planner == nil {
		return nil, fmt.Errorf("crop: no planner")
	}
	if !in.DryRun {
		if err := os.MkdirAll(in.Dir, 0o755); err != nil {
			return nil, err
		}
	}
	workers := in.Workers
	if workers < 1 {
		workers = 1
	}

	out := make([]types.ManifestClip, len(in.Clips))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range in.Clips {
		i, c := i, c
		out[i] = c
		if c.Status != types.StatusRendered {
			continue
		}
		g.Go(func() error {
			res, err := u.cropOne(gctx, in, c)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (u Usecase) cropOne(ctx context.Context, in CropInput, e types.ManifestClip) (types.ManifestClip, error) {
	spec := specOf(e)
	log := u.d.Log.WithFields(logrus.Fields{"clip": e.Number, "step": "crop"})

	sampleAt := in.SampleAt
	if half := (spec.End - spec.Start) / 2; sampleAt > half {
		sampleAt = half
	}
	clip := decision.Clip{
		Number:   e.Number,
		Title:    e.Title,
		Source:   e.File,
		Window:   selection.Window{Start: e.StartSec, End: e.EndSec},
		SampleAt: sampleAt,
	}

	plan, err := in.Planner.Plan(ctx, clip)
	switch {
	case err == nil:
	case errors.Is(err, layout.ErrConfig), errors.Is(err, layout.ErrGeometry):
		return e, err
	case ctx.Err() != nil:
		return e, ctx.Err()
	case errors.Is(err, decision.ErrSkip), errors.Is(err, decision.ErrAmbiguous):
		log.WithError(err).Warn("clip skipped")
		e.Status = types.StatusSkipped
		e.Error = err.Error()
		return e, nil
	default:
		log.WithError(err).Error("plan failed")
		e.Status = types.StatusFailed
		e.Error = err.Error()
		return e, nil
	}

	e.Scene = plan.Scene.String()
	e.AutoDetected = plan.AutoDetected
	e.Speakers = plan.Selection.Speakers
	e.LowConfidence = plan.Selection.LowConfidence
	rects := make([]layout.Rect, 0, len(plan.Instructions))
	e.Crops = make([]types.ManifestCrop, 0, len(plan.Instructions))
	for _, ins := range plan.Instructions {
		rects = append(rects, ins.Rect)
		e.Crops = append(e.Crops, types.ManifestCrop{
			Slot: ins.Slot, X: ins.Rect.X, Y: ins.Rect.Y, Width: ins.Rect.Width, Height: ins.Rect.Height,
		})
	}
	log = log.WithFields(logrus.Fields{"scene": e.Scene, "speakers": e.Speakers})
	if in.DryRun {
		log.Info("planned")
		return e, nil
	}

	dst := VerticalPath(in.Dir, e.File)
	if err := u.d.Video.RenderVertical(ctx, e.File, rects, in.Canvas, dst); err != nil {
		if ctx.Err() != nil {
			return e, ctx.Err()
		}
		log.WithError(err).Error("render failed")
		e.Status = types.StatusFailed
		e.Error = fmt.Sprintf("render: %v", err)
		return e, nil
	}
	e.File = dst
	log.Info("rendered " + dst)
	return e, nil
}
