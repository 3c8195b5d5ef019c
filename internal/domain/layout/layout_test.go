package layout

import (
	"errors"
	"reflect"
	"testing"

	"github.com/forPelevin/podcrop/internal/domain/scene"
)

var frame = Size{Width: 2560, Height: 1440}

func table3() Table {
	return Table{
		Speakers: []Rect{
			{X: 30, Y: 30, Width: 1180, Height: 685},
			{X: 1342, Y: 32, Width: 1180, Height: 685},
			{X: 684, Y: 715, Width: 1180, Height: 685},
		},
		Content: []Rect{{X: 1728, Y: 0, Width: 810, Height: 1440}},
	}
}

func table5() Table {
	return Table{
		Speakers: []Rect{
			{X: 58, Y: 169, Width: 778, Height: 437},
			{X: 895, Y: 160, Width: 778, Height: 437},
			{X: 1726, Y: 160, Width: 778, Height: 437},
			{X: 436, Y: 825, Width: 778, Height: 437},
			{X: 1271, Y: 818, Width: 778, Height: 437},
		},
		Content: []Rect{
			{X: 72, Y: 58, Width: 708, Height: 398},
			{X: 917, Y: 58, Width: 708, Height: 398},
			{X: 1777, Y: 58, Width: 708, Height: 398},
			{X: 1777, Y: 518, Width: 708, Height: 398},
			{X: 1777, Y: 993, Width: 708, Height: 398},
		},
	}
}

func mapping5(t *testing.T) *Mapping {
	t.Helper()
	m, err := NewMapping(map[string]int{
		"SPEAKER_00": 0, "SPEAKER_01": 1, "SPEAKER_02": 2, "SPEAKER_03": 3, "SPEAKER_04": 4,
	})
	if err != nil {
		t.Fatalf("mapping: %v", err)
	}
	return m
}

func TestResolve_ThreeSpeakers(t *testing.T) {
	r, err := NewResolver(3, table3(), nil, frame)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	content, err := r.Resolve(scene.Content, []string{"SPEAKER_02", "SPEAKER_00"})
	if err != nil {
		t.Fatalf("resolve content: %v", err)
	}
	want := []Rect{{X: 1728, Y: 0, Width: 810, Height: 1440}}
	if !reflect.DeepEqual(content, want) {
		t.Fatalf("content: got %v want %v", content, want)
	}
	speakers, err := r.Resolve(scene.Speakers, nil)
	if err != nil {
		t.Fatalf("resolve speakers: %v", err)
	}
	if !reflect.DeepEqual(speakers, table3().Speakers) {
		t.Fatalf("speakers: got %v", speakers)
	}
}

func TestResolve_FiveSpeakersFollowsSelectionOrder(t *testing.T) {
	m := mapping5(t)
	r, err := NewResolver(5, table5(), m, frame)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	sel := []string{"SPEAKER_04", "SPEAKER_00", "SPEAKER_02"}
	for _, sc := range []scene.Scene{scene.Speakers, scene.Content} {
		got, err := r.Resolve(sc, sel)
		if err != nil {
			t.Fatalf("%s: %v", sc, err)
		}
		src := table5().Speakers
		if sc == scene.Content {
			src = table5().Content
		}
		want := []Rect{src[4], src[0], src[2]}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: got %v want %v", sc, got, want)
		}
	}
}

func TestResolve_UnmappedSpeakerIsConfigError(t *testing.T) {
	m := mapping5(t)
	_, err := Resolve(scene.Speakers, 5, []string{"SPEAKER_00", "GUEST"}, m, table5())
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestResolve_DuplicateSelection(t *testing.T) {
	m := mapping5(t)
	if _, err := Resolve(scene.Speakers, 5, []string{"SPEAKER_00", "SPEAKER_00"}, m, table5()); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestResolve_AmbiguousScene(t *testing.T) {
	if _, err := Resolve(scene.Ambiguous, 3, nil, nil, table3()); err == nil {
		t.Fatalf("expected error for ambiguous scene")
	}
}

func TestNewResolver_Validation(t *testing.T) {
	m := mapping5(t)
	short := table5()
	short.Content = short.Content[:3]
	outside := table3()
	outside.Content = []Rect{{X: 1800, Y: 0, Width: 810, Height: 1440}}
	empty := table3()
	empty.Speakers[1].Width = 0

	tests := []struct {
		name    string
		count   int
		table   Table
		mapping *Mapping
		want    error
	}{
		{"count too small", 2, table3(), nil, ErrConfig},
		{"count too large", 6, table5(), m, ErrConfig},
		{"missing mapping", 5, table5(), nil, ErrConfig},
		{"mapping size mismatch", 4, Table{Speakers: table5().Speakers[:4], Content: table5().Content[:4]}, m, ErrConfig},
		{"content too short", 5, short, m, ErrConfig},
		{"three speakers with grid content", 3, Table{Speakers: table3().Speakers, Content: table5().Content[:3]}, nil, ErrConfig},
		{"rect outside frame", 3, outside, nil, ErrGeometry},
		{"empty rect", 3, empty, nil, ErrGeometry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResolver(tt.count, tt.table, tt.mapping, frame)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNewMapping(t *testing.T) {
	m, err := NewMapping(map[string]int{"B": 1, "A": 0, "C": 2})
	if err != nil {
		t.Fatalf("mapping: %v", err)
	}
	if !reflect.DeepEqual(m.Roster(), []string{"A", "B", "C"}) {
		t.Fatalf("roster: %v", m.Roster())
	}
	if p, ok := m.Position("C"); !ok || p != 2 {
		t.Fatalf("position: %d %v", p, ok)
	}

	bad := []map[string]int{
		{"A": 0, "B": 0},
		{"A": 0, "B": 2},
		{"A": -1},
		{"": 0},
	}
	for _, assign := range bad {
		if _, err := NewMapping(assign); !errors.Is(err, ErrConfig) {
			t.Fatalf("%v: expected ErrConfig, got %v", assign, err)
		}
	}
}
