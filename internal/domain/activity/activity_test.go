package activity

import (
	"math"
	"testing"

	"github.com/forPelevin/podcrop/internal/types"
)

func TestSpeakerAt(t *testing.T) {
	x := New([]Turn{
		{Speaker: "SPEAKER_00", Start: 0, End: 5},
		{Speaker: "SPEAKER_02", Start: 10, End: 40},
		{Speaker: "SPEAKER_01", Start: 20, End: 22},
	})
	tests := []struct {
		at     float64
		want   string
		wantOK bool
	}{
		{0, "SPEAKER_00", true},
		{4.99, "SPEAKER_00", true},
		{5, "", false},
		{7, "", false},
		{15, "SPEAKER_02", true},
		{21, "SPEAKER_01", true},
		{22, "SPEAKER_02", true},
		{39.9, "SPEAKER_02", true},
		{40, "", false},
	}
	for _, tt := range tests {
		got, ok := x.SpeakerAt(tt.at)
		if ok != tt.wantOK || got != tt.want {
			t.Fatalf("SpeakerAt(%v) = %q,%v want %q,%v", tt.at, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSpeakerAt_SameStartLaterWins(t *testing.T) {
	x := New([]Turn{
		{Speaker: "A", Start: 1, End: 3},
		{Speaker: "B", Start: 1, End: 3},
	})
	if got, _ := x.SpeakerAt(2); got != "B" {
		t.Fatalf("expected later turn to win, got %q", got)
	}
}

func TestLastSpokeBefore(t *testing.T) {
	x := New([]Turn{
		{Speaker: "A", Start: 0, End: 2},
		{Speaker: "B", Start: 2, End: 4},
		{Speaker: "A", Start: 6, End: 9},
	})
	tests := []struct {
		at     float64
		spk    string
		want   float64
		wantOK bool
	}{
		{1, "A", 0, false},
		{2, "A", 2, true},
		{8, "A", 2, true},
		{9, "A", 9, true},
		{100, "A", 9, true},
		{3, "B", 0, false},
		{5, "B", 4, true},
		{5, "C", 0, false},
	}
	for _, tt := range tests {
		got, ok := x.LastSpokeBefore(tt.at, tt.spk)
		if ok != tt.wantOK || got != tt.want {
			t.Fatalf("LastSpokeBefore(%v,%s) = %v,%v want %v,%v", tt.at, tt.spk, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestTurns_SplitsOnWordSpeaker(t *testing.T) {
	tr := types.Transcript{Segments: []types.Segment{
		{
			Speaker: "SPEAKER_00", Start: 0, End: 3,
			Words: []types.Word{
				{Start: 0, End: 0.5, Word: "hola", Speaker: "SPEAKER_00"},
				{Start: 0.5, End: 1, Word: "que", Speaker: "SPEAKER_00"},
				{Start: 1.2, End: 1.8, Word: "si", Speaker: "SPEAKER_01"},
				{Start: 2, End: 2.5, Word: "bueno"},
				{Start: 2.5, End: 2.5, Word: "x", Speaker: "SPEAKER_01"},
			},
		},
		{Speaker: "SPEAKER_02", Start: 4, End: 6, Text: "no words"},
		{Start: 7, End: 8, Text: "unlabeled"},
	}}
	got := Turns(tr)
	want := []Turn{
		{Speaker: "SPEAKER_00", Start: 0, End: 1},
		{Speaker: "SPEAKER_01", Start: 1.2, End: 1.8},
		{Speaker: "SPEAKER_00", Start: 2, End: 2.5},
		{Speaker: "SPEAKER_02", Start: 4, End: 6},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d turns want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("turn %d: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestTalkTime(t *testing.T) {
	x := New([]Turn{
		{Speaker: "A", Start: 0, End: 10},
		{Speaker: "B", Start: 10, End: 12},
		{Speaker: "A", Start: 15, End: 30},
	})
	if got := x.TalkTime(5, 20, "A"); math.Abs(got-10) > 1e-9 {
		t.Fatalf("unexpected talk time %v", got)
	}
	if got := x.TalkTime(5, 20, "C"); got != 0 {
		t.Fatalf("unexpected talk time %v", got)
	}
}

func TestNilIndex(t *testing.T) {
	var x *Index
	if !x.Empty() {
		t.Fatalf("nil index must be empty")
	}
	if _, ok := x.SpeakerAt(1); ok {
		t.Fatalf("nil index has no speaker")
	}
	if _, ok := x.LastSpokeBefore(1, "A"); ok {
		t.Fatalf("nil index has no history")
	}
}
