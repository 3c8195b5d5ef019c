package selection

import (
	"fmt"
	"math"
	"strings"
)

// Decay maps the seconds elapsed since a speaker last spoke to a recency
// weight. Implementations must be non-increasing in elapsed and return 1 at 0.
type Decay interface {
	Weight(elapsed float64) float64
}

// Linear falls from 1 to 0 over Horizon seconds.
type Linear struct {
	Horizon float64
}

func (l Linear) Weight(elapsed float64) float64 {
	if elapsed <= 0 {
		return 1
	}
	if l.Horizon <= 0 || elapsed >= l.Horizon {
		return 0
	}
	return 1 - elapsed/l.Horizon
}

// Exponential halves the weight every HalfLife seconds.
type Exponential struct {
	HalfLife float64
}

func (e Exponential) Weight(elapsed float64) float64 {
	if elapsed <= 0 {
		return 1
	}
	if e.HalfLife <= 0 {
		return 0
	}
	return math.Exp2(-elapsed / e.HalfLife)
}

// ParseDecay builds a decay curve by name ("linear" or "exponential"); scale
// is the horizon or half-life in seconds.
func ParseDecay(kind string, scale float64) (Decay, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("decay scale must be > 0, got %v", scale)
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "linear":
		return Linear{Horizon: scale}, nil
	case "exponential", "exp", "":
		return Exponential{HalfLife: scale}, nil
	default:
		return nil, fmt.Errorf("unknown decay %q", kind)
	}
}
