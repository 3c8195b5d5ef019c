package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	StepTranscribe = 1
	StepClips      = 2
	StepExtract    = 3
	StepCrop       = 4
	StepSubtitles  = 5

	lastStep = StepSubtitles
)

var stepNames = map[int]string{
	StepTranscribe: "transcribe",
	StepClips:      "clips",
	StepExtract:    "extract",
	StepCrop:       "crop",
	StepSubtitles:  "subtitles",
}

func StepName(step int) string {
	if n, ok := stepNames[step]; ok {
		return n
	}
	return fmt.Sprintf("step%d", step)
}

// ErrLocked is returned when another run holds the output directory.
var ErrLocked = errors.New("output directory is in use by another run")

// State records which steps of the current episode finished, so an
// interrupted run can resume.
type State struct {
	RunID          string    `json:"run_id"`
	Input          string    `json:"input,omitempty"`
	CompletedSteps []int     `json:"completed_steps"`
	LastRun        time.Time `json:"last_run"`
}

func statePath(outDir string) string { return filepath.Join(outDir, "pipeline_state.json") }

// LoadState reads the state in outDir. A missing file yields a fresh state
// with a new run id.
func LoadState(outDir string) (State, error) {
	b, err := os.ReadFile(statePath(outDir))
	if errors.Is(err, os.ErrNotExist) {
		return State{RunID: uuid.NewString()}, nil
	}
	if err != nil {
		return State{}, err
	}
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return State{}, fmt.Errorf("parse %s: %w", statePath(outDir), err)
	}
	if s.RunID == "" {
		s.RunID = uuid.NewString()
	}
	return s, nil
}

func (s State) Save(outDir string) error {
	s.LastRun = time.Now().UTC()
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	return writeFileAtomic(statePath(outDir), b)
}

func (s State) Done(step int) bool {
	for _, c := range s.CompletedSteps {
		if c == step {
			return true
		}
	}
	return false
}

func (s *State) Complete(step int) {
	if s.Done(step) {
		return
	}
	s.CompletedSteps = append(s.CompletedSteps, step)
	sort.Ints(s.CompletedSteps)
}

// Forget drops step and every later step.
func (s *State) Forget(step int) {
	kept := s.CompletedSteps[:0]
	for _, c := range s.CompletedSteps {
		if c < step {
			kept = append(kept, c)
		}
	}
	s.CompletedSteps = kept
}

// Next is the first step not completed yet.
func (s State) Next() int {
	for step := StepTranscribe; step <= lastStep; step++ {
		if !s.Done(step) {
			return step
		}
	}
	return lastStep + 1
}

// ResetState removes the saved state of outDir.
func ResetState(outDir string) error {
	err := os.Remove(statePath(outDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Lock takes the exclusive run lock of outDir.
func Lock(outDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	l := flock.New(filepath.Join(outDir, ".podcrop.lock"))
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, outDir)
	}
	return l, nil
}

func writeFileAtomic(path string, b []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
