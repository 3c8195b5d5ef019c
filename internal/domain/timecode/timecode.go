package timecode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Parse converts "SS", "SS.fff", "MM:SS" or "HH:MM:SS" (the last field may be
// fractional) into a duration.
func Parse(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty timecode")
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid timecode %q", s)
	}
	var total float64
	for i, p := range parts {
		last := i == len(parts)-1
		var v float64
		if last {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid timecode %q: %w", s, err)
			}
			v = f
		} else {
			n, err := strconv.Atoi(p)
			if err != nil {
				return 0, fmt.Errorf("invalid timecode %q: %w", s, err)
			}
			v = float64(n)
		}
		if v < 0 {
			return 0, fmt.Errorf("invalid timecode %q: negative field", s)
		}
		if i > 0 && v >= 60 {
			return 0, fmt.Errorf("invalid timecode %q: field %d out of range", s, i)
		}
		total = total*60 + v
	}
	return FromSeconds(total), nil
}

// FromSeconds converts fractional seconds to a duration.
func FromSeconds(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}

// Format renders d as HH:MM:SS.mmm.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, d/time.Millisecond)
}

// Seconds is a JSON time value given either as a number of seconds or as a
// timecode string.
type Seconds float64

func (s *Seconds) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		d, err := Parse(str)
		if err != nil {
			return err
		}
		*s = Seconds(d.Seconds())
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("time value: %w", err)
	}
	*s = Seconds(f)
	return nil
}
