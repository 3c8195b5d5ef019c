package scene

import (
	"fmt"
	"math"
	"strings"
)

// Scene is the camera layout of a clip. Ambiguous is only ever produced by
// classification; it is never a valid layout.
type Scene int

const (
	Ambiguous Scene = iota
	Speakers
	Content
)

func (s Scene) String() string {
	switch s {
	case Speakers:
		return "speakers"
	case Content:
		return "content"
	default:
		return "ambiguous"
	}
}

// Parse accepts "speakers" or "content".
func Parse(s string) (Scene, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "speakers":
		return Speakers, nil
	case "content":
		return Content, nil
	default:
		return Ambiguous, fmt.Errorf("unknown scene %q (want speakers or content)", s)
	}
}

type RGB struct {
	R, G, B uint8
}

func (c RGB) String() string { return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B) }

// Point is a pixel coordinate in the source frame.
type Point struct {
	X, Y int
}

// Distance is the Euclidean distance between two colors in RGB space.
func Distance(a, b RGB) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// Classifier decides the scene of a clip from the color of one reference pixel.
type Classifier struct {
	Pixel         Point
	SpeakersColor RGB
	ContentColor  RGB
	Tolerance     float64
}

// Classify returns Speakers or Content when the sample is within Tolerance of
// the matching reference, preferring the closer one when both match. It
// returns Ambiguous when neither matches or both are exactly equidistant.
func (c Classifier) Classify(sample RGB) Scene {
	ds := Distance(sample, c.SpeakersColor)
	dc := Distance(sample, c.ContentColor)
	okS := ds <= c.Tolerance
	okC := dc <= c.Tolerance
	switch {
	case okS && okC:
		if ds < dc {
			return Speakers
		}
		if dc < ds {
			return Content
		}
		return Ambiguous
	case okS:
		return Speakers
	case okC:
		return Content
	default:
		return Ambiguous
	}
}
