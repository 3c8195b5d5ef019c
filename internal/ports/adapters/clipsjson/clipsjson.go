package clipsjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/forPelevin/podcrop/internal/domain/timecode"
	"github.com/forPelevin/podcrop/internal/types"
)

// ErrNotReady is returned while the clip list has not been written yet.
var ErrNotReady = errors.New("clip list not ready")

type record struct {
	Number int              `json:"clip_number"`
	Title  string           `json:"title"`
	Start  timecode.Seconds `json:"start_time"`
	End    timecode.Seconds `json:"end_time"`
}

// Source reads the clip list an editor (or an external analysis step) writes
// to a JSON file.
type Source struct {
	path string
}

func New(path string) *Source { return &Source{path: path} }

func (s *Source) Path() string { return s.path }

func (s *Source) Clips(ctx context.Context) ([]types.ClipSpec, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotReady, s.path)
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNotReady, s.path)
	}
	return Parse(b)
}

// Wait polls until the clip list exists and parses, or ctx is done.
func (s *Source) Wait(ctx context.Context, interval time.Duration) ([]types.ClipSpec, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		clips, err := s.Clips(ctx)
		if !errors.Is(err, ErrNotReady) {
			return clips, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func Parse(b []byte) ([]types.ClipSpec, error) {
	var recs []record
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("parse clip list: %w", err)
	}
	out := make([]types.ClipSpec, 0, len(recs))
	seen := map[int]struct{}{}
	for i, r := range recs {
		n := r.Number
		if n == 0 {
			n = i + 1
		}
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("clip %d: duplicate clip_number", n)
		}
		seen[n] = struct{}{}
		if r.End <= r.Start {
			return nil, fmt.Errorf("clip %d: end %.3fs is not after start %.3fs", n, float64(r.End), float64(r.Start))
		}
		title := r.Title
		if title == "" {
			title = fmt.Sprintf("Clip %d", n)
		}
		out = append(out, types.ClipSpec{
			Number: n,
			Title:  title,
			Start:  timecode.FromSeconds(float64(r.Start)),
			End:    timecode.FromSeconds(float64(r.End)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}
