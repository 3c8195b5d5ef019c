package config

import (
	"fmt"
	"strings"

	"github.com/forPelevin/podcrop/internal/domain/layout"
)

// Validate ensures the configuration is usable. Errors about layouts and
// probe settings wrap layout.ErrConfig or layout.ErrGeometry.
func (c *Config) Validate() error {
	if err := c.validateLog(); err != nil {
		return err
	}
	if err := c.validateFrames(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if c.Episode.Speakers != 0 {
		if err := layout.ValidCount(c.Episode.Speakers); err != nil {
			return fmt.Errorf("episode.speakers: %w", err)
		}
	}
	if _, err := c.Selector(); err != nil {
		return err
	}
	if err := c.validateAutoDetect(); err != nil {
		return err
	}
	return c.validateLayouts()
}

func (c *Config) validateLog() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Format)) {
	case "", "text", "json":
		return nil
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
}

func (c *Config) validateFrames() error {
	if c.Source.Width <= 0 || c.Source.Height <= 0 {
		return fmt.Errorf("%w: source frame %dx%d must be positive", layout.ErrConfig, c.Source.Width, c.Source.Height)
	}
	if c.Output.Width <= 0 || c.Output.Height <= 0 {
		return fmt.Errorf("output canvas %dx%d must be positive", c.Output.Width, c.Output.Height)
	}
	return nil
}

func (c *Config) validateAutoDetect() error {
	if c.AutoDetect.SampleAt < 0 {
		return fmt.Errorf("%w: auto_detect.sample_at must be >= 0", layout.ErrConfig)
	}
	seen := map[int]bool{}
	for _, o := range c.AutoDetect.BySpeakers {
		if err := layout.ValidCount(o.Speakers); err != nil {
			return fmt.Errorf("auto_detect.by_speakers: %w", err)
		}
		if seen[o.Speakers] {
			return fmt.Errorf("%w: auto_detect.by_speakers lists %d speakers twice", layout.ErrConfig, o.Speakers)
		}
		seen[o.Speakers] = true
	}
	for n := layout.MinSpeakers; n <= layout.MaxSpeakers; n++ {
		if _, err := c.Classifier(n); err != nil {
			return fmt.Errorf("auto_detect for %d speakers: %w", n, err)
		}
	}
	return nil
}

func (c *Config) validateLayouts() error {
	seen := map[int]bool{}
	for _, l := range c.Layouts {
		if err := layout.ValidCount(l.Speakers); err != nil {
			return fmt.Errorf("layouts: %w", err)
		}
		if seen[l.Speakers] {
			return fmt.Errorf("%w: layouts lists %d speakers twice", layout.ErrConfig, l.Speakers)
		}
		seen[l.Speakers] = true
		if _, err := l.resolver(layout.Size{Width: c.Source.Width, Height: c.Source.Height}); err != nil {
			return err
		}
	}
	if c.Episode.Speakers != 0 && !seen[c.Episode.Speakers] {
		return fmt.Errorf("%w: episode.speakers is %d but no layout is configured for it", layout.ErrConfig, c.Episode.Speakers)
	}
	return nil
}
