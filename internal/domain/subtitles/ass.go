package subtitles

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/podcrop/internal/types"
)

// ErrNoWords is returned when the clip range holds no timed words.
var ErrNoWords = errors.New("no words in clip range")

// Style sizes the subtitle canvas to the vertical output.
type Style struct {
	Width  int
	Height int
}

const (
	wordBudget = 4
	charBudget = 32
	pauseSplit = 300 * time.Millisecond
)

// RenderKaraoke builds a word-level karaoke ASS script for [start, end) of the
// episode, with event times relative to start.
func RenderKaraoke(tr types.Transcript, start, end time.Duration, st Style) (string, error) {
	words := collectWords(tr, start, end)
	if len(words) == 0 {
		return "", ErrNoWords
	}
	return renderASSKaraoke(packWords(words), st), nil
}

type wword struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

type line struct {
	Start time.Duration
	End   time.Duration
	Words []wword
}

func collectWords(tr types.Transcript, start, end time.Duration) []wword {
	var out []wword
	for _, s := range tr.Segments {
		for _, w := range s.Words {
			ws := dur(w.Start)
			we := dur(w.End)
			if we <= start || ws >= end || we <= ws {
				continue
			}
			text := strings.TrimSpace(w.Word)
			if text == "" {
				continue
			}
			if ws < start {
				ws = start
			}
			if we > end {
				we = end
			}
			out = append(out, wword{Start: ws - start, End: we - start, Text: sanitizeASS(text)})
		}
	}
	return out
}

// packWords groups words into short lines, breaking on the word and character
// budgets and on pauses longer than pauseSplit.
func packWords(words []wword) []line {
	var out []line
	cur := line{Start: words[0].Start}
	curLen := 0
	for i, w := range words {
		wl := len([]rune(w.Text))
		nextLen := curLen
		if curLen > 0 {
			nextLen++
		}
		nextLen += wl
		if len(cur.Words) > 0 {
			prev := cur.Words[len(cur.Words)-1]
			if len(cur.Words) >= wordBudget || nextLen > charBudget || w.Start-prev.End > pauseSplit {
				cur.End = prev.End
				out = append(out, cur)
				cur = line{Start: w.Start}
				curLen = 0
			}
		}
		cur.Words = append(cur.Words, w)
		if curLen > 0 {
			curLen++
		}
		curLen += wl
		if i == len(words)-1 {
			cur.End = w.End
			out = append(out, cur)
		}
	}
	return out
}

func renderASSKaraoke(lines []line, st Style) string {
	var b strings.Builder
	b.WriteString(assHeader(st))
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, ln := range lines {
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(ln.Start))
		b.WriteString(",")
		b.WriteString(assTime(ln.End))
		b.WriteString(",Default,,0,0,0,,")
		for i, w := range ln.Words {
			durCS := int((w.End - w.Start) / (10 * time.Millisecond))
			if durCS < 1 {
				durCS = 1
			}
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(fmt.Sprintf("{\\k%d}%s", durCS, w.Text))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func assHeader(st Style) string {
	w, h := st.Width, st.Height
	if w <= 0 || h <= 0 {
		w, h = 1080, 1920
	}
	// Captions sit at 32% of the height from the bottom edge.
	marginV := h * 32 / 100
	fontSize := h / 18
	return fmt.Sprintf(strings.TrimSpace(`
[Script Info]
Title: Podcast Subtitle
ScriptType: v4.00+
WrapStyle: 0
PlayResX: %d
PlayResY: %d
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Default,Montserrat,%d,&H00FFFFFF,&H0000FFFF,&H00000000,&H80000000,-1,0,0,0,100,100,0,0,1,5,2,2,10,10,%d,1
`), w, h, fontSize, marginV)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
