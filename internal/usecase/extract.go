package usecase

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/podcrop/internal/types"
)

type ExtractInput struct {
	Video string
	Dir   string
	Clips []types.ClipSpec
}

// Extract cuts every clip out of the episode. A clip that fails to cut is
// recorded as failed and the rest continue.
func (u Usecase) Extract(ctx context.Context, in ExtractInput) ([]types.ManifestClip, error) {
	if err := os.MkdirAll(in.Dir, 0o755); err != nil {
		return nil, err
	}
	out := make([]types.ManifestClip, 0, len(in.Clips))
	for i, c := range in.Clips {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e := entryOf(c)
		path := ExtractedPath(in.Dir, c.Number, c.Title)
		log := u.d.Log.WithFields(logrus.Fields{"clip": c.Number, "step": "extract"})
		log.Infof("[%d/%d] %s (%s)", i+1, len(in.Clips), c.Title, c.End-c.Start)

		if err := u.d.Video.ExtractClip(ctx, in.Video, c.Start, c.End, path); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithError(err).Error("extract failed")
			e.Status = types.StatusFailed
			e.Error = fmt.Sprintf("extract: %v", err)
		} else {
			e.Status = types.StatusRendered
			e.File = path
		}
		out = append(out, e)
	}
	return out, nil
}

// Existing rebuilds entries for clips from files a previous run left behind.
// locate names the file expected for each clip; clips without one are marked
// failed.
func Existing(clips []types.ClipSpec, locate func(types.ClipSpec) string) []types.ManifestClip {
	out := make([]types.ManifestClip, 0, len(clips))
	for _, c := range clips {
		e := entryOf(c)
		path := locate(c)
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			e.Status = types.StatusRendered
			e.File = path
		} else {
			e.Status = types.StatusFailed
			e.Error = "missing " + path
		}
		out = append(out, e)
	}
	return out
}
