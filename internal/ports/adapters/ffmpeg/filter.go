package ffmpeg

import (
	"errors"
	"fmt"
	"strings"

	"github.com/forPelevin/podcrop/internal/domain/layout"
)

// verticalFilter builds a filter graph that crops each rect from the first
// input, scales the crops to the canvas width, stacks them in order and fits
// the stack onto the canvas. The result is labeled [out].
func verticalFilter(crops []layout.Rect, canvas layout.Size) (string, error) {
	if len(crops) == 0 {
		return "", errors.New("ffmpeg render vertical: no crops")
	}
	if canvas.Width <= 0 || canvas.Height <= 0 {
		return "", fmt.Errorf("ffmpeg render vertical: invalid canvas %s", canvas)
	}
	fit := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		canvas.Width, canvas.Height, canvas.Width, canvas.Height,
	)
	crop := func(r layout.Rect) string {
		return fmt.Sprintf("crop=%d:%d:%d:%d", r.Width, r.Height, r.X, r.Y)
	}

	if len(crops) == 1 {
		return fmt.Sprintf("[0:v]%s,%s[out]", crop(crops[0]), fit), nil
	}

	parts := make([]string, 0, len(crops)+1)
	var inputs strings.Builder
	for i, r := range crops {
		parts = append(parts, fmt.Sprintf("[0:v]%s,scale=%d:-2,setsar=1[v%d]", crop(r), canvas.Width, i))
		fmt.Fprintf(&inputs, "[v%d]", i)
	}
	parts = append(parts, fmt.Sprintf("%svstack=inputs=%d,%s[out]", inputs.String(), len(crops), fit))
	return strings.Join(parts, ";"), nil
}
