package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/podcrop/internal/ports"
	"github.com/forPelevin/podcrop/internal/types"
)

type Deps struct {
	Video ports.VideoTool
	ASR   ports.ASR
	Log   logrus.FieldLogger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		d.Log = l
	}
	return Usecase{d: d}
}

// Transcribe produces the diarized transcript of video inside dir.
func (u Usecase) Transcribe(ctx context.Context, video, dir string) (types.Transcript, string, error) {
	if u.d.ASR == nil {
		return types.Transcript{}, "", fmt.Errorf("transcribe: no ASR configured")
	}
	start := time.Now()
	tr, path, err := u.d.ASR.Transcribe(ctx, video, dir)
	if err != nil {
		return types.Transcript{}, "", fmt.Errorf("transcribe: %w", err)
	}
	u.d.Log.WithFields(logrus.Fields{
		"segments": len(tr.Segments),
		"speakers": tr.Speakers(),
		"took":     time.Since(start).Round(time.Second).String(),
	}).Info("transcript saved to " + path)
	return tr, path, nil
}

func specOf(c types.ManifestClip) types.ClipSpec {
	return types.ClipSpec{
		Number: c.Number,
		Title:  c.Title,
		Start:  time.Duration(c.StartSec * float64(time.Second)),
		End:    time.Duration(c.EndSec * float64(time.Second)),
	}
}

func entryOf(s types.ClipSpec) types.ManifestClip {
	return types.ManifestClip{
		Number:   s.Number,
		Title:    s.Title,
		StartSec: s.Start.Seconds(),
		EndSec:   s.End.Seconds(),
	}
}

func writeFile(path string, b []byte) error {
	return os.WriteFile(path, b, 0o644)
}
