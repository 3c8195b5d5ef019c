// Package activity indexes who is talking when, built once per episode from
// the diarized transcript. An Index is immutable after New and safe for
// concurrent readers.
package activity

import (
	"sort"
	"strings"

	"github.com/forPelevin/podcrop/internal/types"
)

// Turn is one contiguous stretch of speech by a single speaker, in seconds.
type Turn struct {
	Speaker string
	Start   float64
	End     float64
}

// Turns flattens a transcript into speaker turns. Word-level speaker labels
// win over the segment label; a change of speaker between consecutive words
// starts a new turn. Unlabeled and zero-length spans are dropped.
func Turns(tr types.Transcript) []Turn {
	var out []Turn
	for _, s := range tr.Segments {
		segSpk := strings.TrimSpace(s.Speaker)
		if len(s.Words) == 0 {
			if segSpk != "" && s.End > s.Start {
				out = append(out, Turn{Speaker: segSpk, Start: s.Start, End: s.End})
			}
			continue
		}

		var cur *Turn
		flush := func() {
			if cur != nil && cur.End > cur.Start {
				out = append(out, *cur)
			}
			cur = nil
		}
		for _, w := range s.Words {
			if w.End <= w.Start {
				continue
			}
			spk := strings.TrimSpace(w.Speaker)
			if spk == "" {
				spk = segSpk
			}
			if spk == "" {
				flush()
				continue
			}
			if cur != nil && cur.Speaker == spk {
				if w.End > cur.End {
					cur.End = w.End
				}
				continue
			}
			flush()
			cur = &Turn{Speaker: spk, Start: w.Start, End: w.End}
		}
		flush()
	}
	return out
}

type Index struct {
	turns    []Turn
	maxEnd   []float64
	ends     map[string][]float64
	speakers []string
}

// New builds an index over turns. Input order breaks ties between turns that
// start at the same instant: the later one wins.
func New(turns []Turn) *Index {
	ts := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if t.Speaker == "" || t.End <= t.Start {
			continue
		}
		ts = append(ts, t)
	}
	sort.SliceStable(ts, func(i, j int) bool { return ts[i].Start < ts[j].Start })

	x := &Index{
		turns:  ts,
		maxEnd: make([]float64, len(ts)),
		ends:   map[string][]float64{},
	}
	for i, t := range ts {
		x.maxEnd[i] = t.End
		if i > 0 && x.maxEnd[i-1] > t.End {
			x.maxEnd[i] = x.maxEnd[i-1]
		}
		x.ends[t.Speaker] = append(x.ends[t.Speaker], t.End)
	}
	for spk, ends := range x.ends {
		sort.Float64s(ends)
		x.speakers = append(x.speakers, spk)
	}
	sort.Strings(x.speakers)
	return x
}

// FromTranscript is New(Turns(tr)).
func FromTranscript(tr types.Transcript) *Index {
	return New(Turns(tr))
}

func (x *Index) Empty() bool { return x == nil || len(x.turns) == 0 }

// Speakers returns the distinct speakers seen, sorted ascending.
func (x *Index) Speakers() []string {
	if x == nil {
		return nil
	}
	out := make([]string, len(x.speakers))
	copy(out, x.speakers)
	return out
}

// SpeakerAt returns the speaker whose turn contains t (start <= t < end).
// When turns overlap, the most recently started one wins.
func (x *Index) SpeakerAt(t float64) (string, bool) {
	if x.Empty() {
		return "", false
	}
	i := sort.Search(len(x.turns), func(i int) bool { return x.turns[i].Start > t }) - 1
	for ; i >= 0; i-- {
		if x.maxEnd[i] <= t {
			break
		}
		if x.turns[i].End > t {
			return x.turns[i].Speaker, true
		}
	}
	return "", false
}

// LastSpokeBefore returns the greatest end time <= t among the speaker's turns.
func (x *Index) LastSpokeBefore(t float64, speaker string) (float64, bool) {
	if x == nil {
		return 0, false
	}
	ends := x.ends[speaker]
	j := sort.Search(len(ends), func(i int) bool { return ends[i] > t })
	if j == 0 {
		return 0, false
	}
	return ends[j-1], true
}

// TalkTime sums the seconds the speaker talks inside [start, end).
func (x *Index) TalkTime(start, end float64, speaker string) float64 {
	if x.Empty() || end <= start {
		return 0
	}
	var total float64
	for _, t := range x.turns {
		if t.Start >= end {
			break
		}
		if t.Speaker != speaker || t.End <= start {
			continue
		}
		total += min(t.End, end) - max(t.Start, start)
	}
	return total
}
