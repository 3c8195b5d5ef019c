package terminal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/forPelevin/podcrop/internal/domain/decision"
	"github.com/forPelevin/podcrop/internal/domain/scene"
)

func TestChooseScene(t *testing.T) {
	cases := []struct {
		input string
		want  scene.Scene
		err   error
	}{
		{"1\n", scene.Content, nil},
		{"2\n", scene.Speakers, nil},
		{"q\n", scene.Ambiguous, decision.ErrSkip},
		{"Q", scene.Ambiguous, decision.ErrSkip},
		{"x\n\n2\n", scene.Speakers, nil},
	}
	for _, tc := range cases {
		var out bytes.Buffer
		p := New(strings.NewReader(tc.input), &out)
		got, err := p.ChooseScene(context.Background(), decision.Clip{Number: 1, Title: "t"}, &scene.RGB{R: 1})
		if !errors.Is(err, tc.err) {
			t.Fatalf("%q: err=%v want %v", tc.input, err, tc.err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %v want %v", tc.input, got, tc.want)
		}
		if !strings.Contains(out.String(), "Your choice (1/2/Q)") {
			t.Fatalf("prompt not written: %q", out.String())
		}
	}
}

func TestChooseScene_InputClosed(t *testing.T) {
	p := New(strings.NewReader(""), io.Discard)
	if _, err := p.ChooseScene(context.Background(), decision.Clip{}, nil); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestAskSpeakerCount(t *testing.T) {
	p := New(strings.NewReader("7\nfour\n4\n"), io.Discard)
	n, err := p.AskSpeakerCount(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatalf("want 4, got %d", n)
	}
}

func TestNotInteractive(t *testing.T) {
	p := New(strings.NewReader("1\n"), io.Discard)
	p.interactive = false
	if _, err := p.ChooseScene(context.Background(), decision.Clip{}, nil); !errors.Is(err, ErrNotInteractive) {
		t.Fatalf("expected ErrNotInteractive, got %v", err)
	}
	if _, err := p.AskSpeakerCount(context.Background()); !errors.Is(err, ErrNotInteractive) {
		t.Fatalf("expected ErrNotInteractive, got %v", err)
	}
}
