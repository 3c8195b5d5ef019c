package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/podcrop/internal/domain/layout"
	"github.com/forPelevin/podcrop/internal/domain/subtitles"
	"github.com/forPelevin/podcrop/internal/types"
)

type SubtitleInput struct {
	Clips      []types.ManifestClip
	Dir        string
	Transcript types.Transcript
	Canvas     layout.Size
}

// Subtitle burns word-level karaoke captions into every rendered clip. Clips
// without transcribed words keep their unsubtitled file.
func (u Usecase) Subtitle(ctx context.Context, in SubtitleInput) ([]types.ManifestClip, error) {
	if err := os.MkdirAll(in.Dir, 0o755); err != nil {
		return nil, err
	}
	style := subtitles.Style{Width: in.Canvas.Width, Height: in.Canvas.Height}
	out := make([]types.ManifestClip, 0, len(in.Clips))
	for _, e := range in.Clips {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.Status != types.StatusRendered {
			out = append(out, e)
			continue
		}
		log := u.d.Log.WithFields(logrus.Fields{"clip": e.Number, "step": "subtitles"})
		spec := specOf(e)

		ass, err := subtitles.RenderKaraoke(in.Transcript, spec.Start, spec.End, style)
		if errors.Is(err, subtitles.ErrNoWords) {
			log.Warn("no transcribed words in clip, leaving it without subtitles")
			out = append(out, e)
			continue
		}
		if err != nil {
			return nil, err
		}

		dst := SubtitledPath(in.Dir, e.File)
		assPath := strings.TrimSuffix(dst, filepath.Ext(dst)) + ".ass"
		if err := writeFile(assPath, []byte(ass)); err != nil {
			return nil, err
		}
		if err := u.d.Video.BurnSubtitles(ctx, e.File, assPath, dst); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithError(err).Error("burning subtitles failed")
			e.Status = types.StatusFailed
			e.Error = fmt.Sprintf("subtitles: %v", err)
			out = append(out, e)
			continue
		}
		_ = os.Remove(assPath)
		e.File = dst
		log.Info("subtitled " + dst)
		out = append(out, e)
	}
	return out, nil
}
