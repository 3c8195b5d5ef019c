package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/forPelevin/podcrop/internal/domain/decision"
	"github.com/forPelevin/podcrop/internal/domain/layout"
	"github.com/forPelevin/podcrop/internal/domain/scene"
)

// ErrNotInteractive is returned when a question needs an operator but stdin
// is not a terminal.
var ErrNotInteractive = errors.New("operator input required but stdin is not a terminal")

// Prompter asks the operator on a terminal. Questions are serialized so that
// concurrent clip workers never interleave their prompts.
type Prompter struct {
	mu          sync.Mutex
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// NewStdio returns a prompter over stdin/stdout.
func NewStdio() *Prompter {
	return &Prompter{
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		interactive: isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()),
	}
}

// New returns a prompter reading answers from r.
func New(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(r), out: w, interactive: true}
}

// ChooseScene asks which scene a clip shows. Q skips the clip.
func (p *Prompter) ChooseScene(ctx context.Context, clip decision.Clip, sample *scene.RGB) (scene.Scene, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.interactive {
		return scene.Ambiguous, fmt.Errorf("%w: %w", decision.ErrSkip, ErrNotInteractive)
	}

	fmt.Fprintf(p.out, "\nClip %d: %s\n", clip.Number, clip.Title)
	if sample != nil {
		fmt.Fprintf(p.out, "  probe pixel reads %s, no scene matched\n", sample)
	}
	fmt.Fprintln(p.out, "Scene type:")
	fmt.Fprintln(p.out, "  1 = Content sharing scene")
	fmt.Fprintln(p.out, "  2 = Speakers scene (main discussion)")
	fmt.Fprintln(p.out, "  Q = Skip this clip")
	for {
		ans, err := p.ask(ctx, "Your choice (1/2/Q): ")
		if err != nil {
			return scene.Ambiguous, err
		}
		switch strings.ToLower(ans) {
		case "1":
			return scene.Content, nil
		case "2":
			return scene.Speakers, nil
		case "q":
			return scene.Ambiguous, decision.ErrSkip
		}
		fmt.Fprintln(p.out, "  please enter 1, 2 or Q")
	}
}

// AskSpeakerCount asks how many people are in the episode.
func (p *Prompter) AskSpeakerCount(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.interactive {
		return 0, ErrNotInteractive
	}

	fmt.Fprintln(p.out, "\nHow many people are in this episode?")
	fmt.Fprintln(p.out, "  3 = Core podcast (3 people)")
	fmt.Fprintln(p.out, "  4 = Core + 1 guest")
	fmt.Fprintln(p.out, "  5 = Core + 2 guests")
	prompt := fmt.Sprintf("Enter number of speakers (%d-%d): ", layout.MinSpeakers, layout.MaxSpeakers)
	for {
		ans, err := p.ask(ctx, prompt)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(ans)
		if err == nil && layout.ValidCount(n) == nil {
			return n, nil
		}
		fmt.Fprintf(p.out, "  please enter a number from %d to %d\n", layout.MinSpeakers, layout.MaxSpeakers)
	}
}

func (p *Prompter) ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("operator input closed: %w", err)
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
