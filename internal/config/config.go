// Package config loads podcrop settings from a YAML, TOML or JSON file with
// PODCROP_* environment overrides.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const envPrefix = "PODCROP"

type Config struct {
	Log           Log           `mapstructure:"log" yaml:"log"`
	Paths         Paths         `mapstructure:"paths" yaml:"paths"`
	Tools         Tools         `mapstructure:"tools" yaml:"tools"`
	Transcription Transcription `mapstructure:"transcription" yaml:"transcription"`
	Episode       Episode       `mapstructure:"episode" yaml:"episode"`
	Source        Size          `mapstructure:"source" yaml:"source"`
	Output        Output        `mapstructure:"output" yaml:"output"`
	Workers       int           `mapstructure:"workers" yaml:"workers"`
	Selection     Selection     `mapstructure:"selection" yaml:"selection"`
	AutoDetect    AutoDetect    `mapstructure:"auto_detect" yaml:"auto_detect"`
	Layouts       []Layout      `mapstructure:"layouts" yaml:"layouts"`
}

type Log struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type Paths struct {
	Input  string `mapstructure:"input" yaml:"input"`
	Output string `mapstructure:"output" yaml:"output"`
	Cache  string `mapstructure:"cache" yaml:"cache"`
}

type Tools struct {
	FFmpeg   string `mapstructure:"ffmpeg" yaml:"ffmpeg"`
	FFprobe  string `mapstructure:"ffprobe" yaml:"ffprobe"`
	WhisperX string `mapstructure:"whisperx" yaml:"whisperx"`
}

type Transcription struct {
	Model       string `mapstructure:"model" yaml:"model"`
	Language    string `mapstructure:"language" yaml:"language"`
	Device      string `mapstructure:"device" yaml:"device"`
	ComputeType string `mapstructure:"compute_type" yaml:"compute_type"`
	BatchSize   int    `mapstructure:"batch_size" yaml:"batch_size"`
	HFToken     string `mapstructure:"hf_token" yaml:"hf_token"`
}

// Episode holds per-episode settings. Speakers 0 means derive the count from
// the transcript, or ask.
type Episode struct {
	Speakers int `mapstructure:"speakers" yaml:"speakers"`
}

type Size struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

type Output struct {
	Width     int  `mapstructure:"width" yaml:"width"`
	Height    int  `mapstructure:"height" yaml:"height"`
	Subtitles bool `mapstructure:"subtitles" yaml:"subtitles"`
}

type Selection struct {
	SampleStep float64 `mapstructure:"sample_step" yaml:"sample_step"`
	Decay      string  `mapstructure:"decay" yaml:"decay"`
	DecayScale float64 `mapstructure:"decay_scale" yaml:"decay_scale"`
}

type AutoDetect struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// SampleAt is the offset in seconds of the probed frame, capped at half
	// the clip.
	SampleAt   float64  `mapstructure:"sample_at" yaml:"sample_at"`
	Default    Detect   `mapstructure:"default" yaml:"default"`
	BySpeakers []Detect `mapstructure:"by_speakers" yaml:"by_speakers,omitempty"`
}

// Detect describes the probe pixel and reference colors (RGB). In overrides
// unset fields inherit from the default.
type Detect struct {
	Speakers      int      `mapstructure:"speakers" yaml:"speakers,omitempty"`
	Pixel         []int    `mapstructure:"pixel" yaml:"pixel,flow,omitempty"`
	SpeakersColor []int    `mapstructure:"speakers_color" yaml:"speakers_color,flow,omitempty"`
	ContentColor  []int    `mapstructure:"content_color" yaml:"content_color,flow,omitempty"`
	Tolerance     *float64 `mapstructure:"tolerance" yaml:"tolerance,omitempty"`
}

type Layout struct {
	Speakers      int          `mapstructure:"speakers" yaml:"speakers"`
	SpeakersScene []Rect       `mapstructure:"speakers_scene" yaml:"speakers_scene"`
	ContentScene  []Rect       `mapstructure:"content_scene" yaml:"content_scene"`
	Mapping       []Assignment `mapstructure:"mapping" yaml:"mapping,omitempty"`
}

// Rect fields are pointers so a missing field can be told apart from zero.
type Rect struct {
	X      *int `mapstructure:"x" yaml:"x"`
	Y      *int `mapstructure:"y" yaml:"y"`
	Width  *int `mapstructure:"width" yaml:"width"`
	Height *int `mapstructure:"height" yaml:"height"`
}

type Assignment struct {
	Speaker  string `mapstructure:"speaker" yaml:"speaker"`
	Position *int   `mapstructure:"position" yaml:"position"`
}

// DefaultConfigPath is ~/.config/podcrop/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "podcrop", "config.yaml"), nil
}

// ExpandPath resolves a leading ~ and makes the path absolute.
func ExpandPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return filepath.Abs(p)
}

// Load reads the config file at path. With an empty path it looks for
// podcrop.yaml in the working directory and then the default path; no file
// at all yields the defaults. The result is validated.
func Load(path string) (Config, string, error) {
	v := viper.New()
	if err := setDefaults(v, Default()); err != nil {
		return Config{}, "", err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("transcription.hf_token", envPrefix+"_TRANSCRIPTION_HF_TOKEN", "HF_TOKEN")

	if path == "" {
		path = discover()
	}
	used := ""
	if path != "" {
		p, err := ExpandPath(path)
		if err != nil {
			return Config{}, "", fmt.Errorf("resolve config path: %w", err)
		}
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, "", fmt.Errorf("read config %s: %w", p, err)
		}
		used = p
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, used, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, used, err
	}
	return cfg, used, nil
}

func discover() string {
	candidates := []string{"podcrop.yaml"}
	if def, err := DefaultConfigPath(); err == nil {
		candidates = append(candidates, def)
	}
	for _, c := range candidates {
		if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
			return c
		}
	}
	return ""
}

// Write stores cfg as YAML at path.
func Write(path string, cfg Config) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// setDefaults registers every leaf of d with viper so that file values and
// environment variables override it key by key.
func setDefaults(v *viper.Viper, d Config) error {
	b, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return err
	}
	walkDefaults(v, "", m)
	return nil
}

func walkDefaults(v *viper.Viper, prefix string, m map[string]any) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			walkDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}
