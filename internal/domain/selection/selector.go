package selection

import (
	"sort"

	"github.com/forPelevin/podcrop/internal/domain/activity"
)

const (
	// Shown is how many speakers a clip displays.
	Shown       = 3
	DefaultStep = 2.0
	// MinStep bounds the number of instants sampled per window.
	MinStep = 0.1
)

// Window is the [Start, End) range of a clip in episode seconds.
type Window struct {
	Start float64
	End   float64
}

func (w Window) Mid() float64 { return w.Start + (w.End-w.Start)/2 }

type Config struct {
	// Step is the sampling granularity inside a window, in seconds.
	Step  float64
	Decay Decay
}

// Selection is the ordered set of speakers chosen for a window, most relevant
// first. LowConfidence marks the positional fallback used when no transcript
// data was available.
type Selection struct {
	Speakers      []string
	LowConfidence bool
}

type Selector struct {
	cfg Config
}

func New(cfg Config) Selector {
	switch {
	case cfg.Step <= 0:
		cfg.Step = DefaultStep
	case cfg.Step < MinStep:
		cfg.Step = MinStep
	}
	if cfg.Decay == nil {
		cfg.Decay = Exponential{HalfLife: 30}
	}
	return Selector{cfg: cfg}
}

type candidate struct {
	id      string
	pos     int
	active  bool
	spoke   bool
	recency float64
}

// Select picks the speakers to show for w. roster lists every speaker of the
// episode in ascending position order.
//
// Rosters no larger than Shown are returned whole, in position order. Larger
// rosters are ranked by: active at a sampled instant, recency weight of
// their last turn before the window, then speaker id. Slots left over when too few
// speakers have talked yet are filled in position order.
func (s Selector) Select(idx *activity.Index, w Window, roster []string) Selection {
	if len(roster) <= Shown {
		return Selection{Speakers: append([]string(nil), roster...)}
	}
	if idx.Empty() {
		return Selection{Speakers: append([]string(nil), roster[:Shown]...), LowConfidence: true}
	}

	cands := make(map[string]*candidate, len(roster))
	for i, id := range roster {
		c := &candidate{id: id, pos: i}
		if last, ok := idx.LastSpokeBefore(w.Start, id); ok {
			c.spoke = true
			c.recency = s.cfg.Decay.Weight(w.Start - last)
		}
		cands[id] = c
	}
	for _, t := range s.samples(w) {
		if id, ok := idx.SpeakerAt(t); ok {
			if c := cands[id]; c != nil {
				c.active = true
			}
		}
	}

	var ranked []*candidate
	for _, id := range roster {
		if c := cands[id]; c.active || c.spoke {
			ranked = append(ranked, c)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.active != b.active {
			return a.active
		}
		if a.recency != b.recency {
			return a.recency > b.recency
		}
		return a.id < b.id
	})

	out := make([]string, 0, Shown)
	chosen := map[string]bool{}
	for _, c := range ranked {
		if len(out) == Shown {
			break
		}
		out = append(out, c.id)
		chosen[c.id] = true
	}
	for _, id := range roster {
		if len(out) == Shown {
			break
		}
		if !chosen[id] {
			out = append(out, id)
			chosen[id] = true
		}
	}
	return Selection{Speakers: out}
}

// samples returns the instants probed inside w: every Step from Start, plus
// the midpoint. Degenerate windows are probed at Start only.
func (s Selector) samples(w Window) []float64 {
	if w.End <= w.Start {
		return []float64{w.Start}
	}
	var out []float64
	mid := w.Mid()
	hasMid := false
	for t := w.Start; t < w.End; t += s.cfg.Step {
		out = append(out, t)
		if t == mid {
			hasMid = true
		}
	}
	if !hasMid {
		out = append(out, mid)
	}
	return out
}
