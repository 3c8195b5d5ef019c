package ports

import (
	"context"
	"time"

	"github.com/forPelevin/podcrop/internal/domain/layout"
	"github.com/forPelevin/podcrop/internal/domain/scene"
	"github.com/forPelevin/podcrop/internal/types"
)

// VideoTool is the external transcoder.
type VideoTool interface {
	ExtractClip(ctx context.Context, in string, start, end time.Duration, out string) error
	ProbeDuration(ctx context.Context, in string) (time.Duration, error)
	ProbeFrameSize(ctx context.Context, in string) (layout.Size, error)
	SampleColor(ctx context.Context, in string, at time.Duration, p scene.Point) (scene.RGB, error)
	// RenderVertical crops in once per rect and stacks the crops top to
	// bottom in the given order on a canvas-sized output.
	RenderVertical(ctx context.Context, in string, crops []layout.Rect, canvas layout.Size, out string) error
	BurnSubtitles(ctx context.Context, in, assPath, out string) error
}

// ASR produces a diarized transcript for a video and returns it together with
// the path it was saved to.
type ASR interface {
	Transcribe(ctx context.Context, video, outDir string) (types.Transcript, string, error)
}

// ClipSelector lists the time ranges that become shorts.
type ClipSelector interface {
	Clips(ctx context.Context) ([]types.ClipSpec, error)
}
