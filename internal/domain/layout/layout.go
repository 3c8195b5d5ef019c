// Package layout maps a scene and a selection of speakers onto crop
// rectangles of the source frame.
package layout

import (
	"errors"
	"fmt"
	"sort"

	"github.com/forPelevin/podcrop/internal/domain/scene"
)

var (
	// ErrConfig marks an episode configuration that cannot be processed.
	ErrConfig = errors.New("configuration error")
	// ErrGeometry marks a configured crop that does not fit the source frame.
	ErrGeometry = errors.New("crop outside source frame")
)

const (
	MinSpeakers = 3
	MaxSpeakers = 5
)

// ValidCount reports whether n speakers is a supported episode setup.
func ValidCount(n int) error {
	if n < MinSpeakers || n > MaxSpeakers {
		return fmt.Errorf("%w: speaker count %d not in [%d,%d]", ErrConfig, n, MinSpeakers, MaxSpeakers)
	}
	return nil
}

type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d@(%d,%d)", r.Width, r.Height, r.X, r.Y)
}

type Size struct {
	Width  int
	Height int
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// Within checks that r is non-empty and lies inside frame.
func (r Rect) Within(frame Size) error {
	if r.Width <= 0 || r.Height <= 0 || r.X < 0 || r.Y < 0 ||
		r.X+r.Width > frame.Width || r.Y+r.Height > frame.Height {
		return fmt.Errorf("%w: %s does not fit %s", ErrGeometry, r, frame)
	}
	return nil
}

// Table holds the crop positions of one speaker count, indexed by position.
type Table struct {
	Speakers []Rect
	Content  []Rect
}

func (t Table) rects(sc scene.Scene) ([]Rect, error) {
	switch sc {
	case scene.Speakers:
		return t.Speakers, nil
	case scene.Content:
		return t.Content, nil
	default:
		return nil, fmt.Errorf("no layout for %s scene", sc)
	}
}

// Mapping is the bijection between speaker ids and position indices.
type Mapping struct {
	pos map[string]int
	ids []string
}

// NewMapping requires every position 0..len(assign)-1 to be used exactly once.
func NewMapping(assign map[string]int) (*Mapping, error) {
	m := &Mapping{pos: make(map[string]int, len(assign)), ids: make([]string, len(assign))}
	for id, p := range assign {
		if id == "" {
			return nil, fmt.Errorf("%w: empty speaker id in mapping", ErrConfig)
		}
		if p < 0 || p >= len(assign) {
			return nil, fmt.Errorf("%w: speaker %s mapped to position %d outside [0,%d)", ErrConfig, id, p, len(assign))
		}
		if prev := m.ids[p]; prev != "" {
			ids := []string{prev, id}
			sort.Strings(ids)
			return nil, fmt.Errorf("%w: speakers %s and %s share position %d", ErrConfig, ids[0], ids[1], p)
		}
		m.ids[p] = id
		m.pos[id] = p
	}
	return m, nil
}

func (m *Mapping) Position(id string) (int, bool) {
	if m == nil {
		return 0, false
	}
	p, ok := m.pos[id]
	return p, ok
}

func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.ids)
}

// Roster lists speaker ids in ascending position order.
func (m *Mapping) Roster() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.ids...)
}

// Resolver is a validated layout for one episode.
type Resolver struct {
	count   int
	table   Table
	mapping *Mapping
}

// NewResolver validates table and mapping for count speakers against the
// source frame. Every failure wraps ErrConfig or ErrGeometry.
func NewResolver(count int, table Table, mapping *Mapping, frame Size) (*Resolver, error) {
	if err := ValidCount(count); err != nil {
		return nil, err
	}
	wantSpeakers, wantContent := count, count
	if count <= 3 {
		wantSpeakers, wantContent = 3, 1
	}
	if len(table.Speakers) != wantSpeakers {
		return nil, fmt.Errorf("%w: %d speakers: speakers scene needs %d positions, got %d", ErrConfig, count, wantSpeakers, len(table.Speakers))
	}
	if len(table.Content) != wantContent {
		return nil, fmt.Errorf("%w: %d speakers: content scene needs %d positions, got %d", ErrConfig, count, wantContent, len(table.Content))
	}
	if count > 3 || mapping != nil {
		if mapping.Len() != count {
			return nil, fmt.Errorf("%w: %d speakers: mapping has %d entries", ErrConfig, count, mapping.Len())
		}
	}
	for _, rs := range [][]Rect{table.Speakers, table.Content} {
		for _, r := range rs {
			if err := r.Within(frame); err != nil {
				return nil, err
			}
		}
	}
	return &Resolver{count: count, table: table, mapping: mapping}, nil
}

func (r *Resolver) Count() int { return r.count }

func (r *Resolver) Mapping() *Mapping { return r.mapping }

func (r *Resolver) Resolve(sc scene.Scene, selected []string) ([]Rect, error) {
	return Resolve(sc, r.count, selected, r.mapping, r.table)
}

// Resolve returns the crops for a clip. Up to three speakers the scene's
// table is returned as is; above that each selected speaker's position is
// looked up, preserving selection order.
func Resolve(sc scene.Scene, count int, selected []string, mapping *Mapping, table Table) ([]Rect, error) {
	if err := ValidCount(count); err != nil {
		return nil, err
	}
	rects, err := table.rects(sc)
	if err != nil {
		return nil, err
	}
	if count <= 3 {
		return append([]Rect(nil), rects...), nil
	}

	out := make([]Rect, 0, len(selected))
	seen := make(map[string]bool, len(selected))
	for _, id := range selected {
		if seen[id] {
			return nil, fmt.Errorf("speaker %s selected twice", id)
		}
		seen[id] = true
		p, ok := mapping.Position(id)
		if !ok {
			return nil, fmt.Errorf("%w: speaker %s has no position mapping", ErrConfig, id)
		}
		if p >= len(rects) {
			return nil, fmt.Errorf("%w: %s scene has no position %d", ErrConfig, sc, p)
		}
		out = append(out, rects[p])
	}
	return out, nil
}
