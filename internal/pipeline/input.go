package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var videoExts = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true,
	".webm": true, ".flv": true, ".m4v": true,
}

// FindVideo resolves input to a video file. A directory yields its first
// video by name.
func FindVideo(input string) (string, error) {
	fi, err := os.Stat(input)
	if err != nil {
		return "", fmt.Errorf("stat input: %w", err)
	}
	if !fi.IsDir() {
		if !videoExts[strings.ToLower(filepath.Ext(input))] {
			return "", fmt.Errorf("input %s is not a supported video", input)
		}
		return input, nil
	}
	entries, err := os.ReadDir(input)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && videoExts[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no video files found in %s", input)
	}
	sort.Strings(names)
	return filepath.Join(input, names[0]), nil
}

// Dirs are the per-step output directories.
type Dirs struct {
	Root        string
	Transcripts string
	Analysis    string
	Extracted   string
	Cropped     string
	Final       string
}

func NewDirs(root string) Dirs {
	return Dirs{
		Root:        root,
		Transcripts: filepath.Join(root, "transcripts"),
		Analysis:    filepath.Join(root, "ai_analysis"),
		Extracted:   filepath.Join(root, "extracted"),
		Cropped:     filepath.Join(root, "cropped"),
		Final:       filepath.Join(root, "final"),
	}
}

func (d Dirs) ClipsFile() string { return filepath.Join(d.Analysis, "clips.json") }

func (d Dirs) Manifest() string { return filepath.Join(d.Root, "manifest.json") }

func (d Dirs) create() error {
	for _, p := range []string{d.Transcripts, d.Analysis, d.Extracted, d.Cropped, d.Final} {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}
