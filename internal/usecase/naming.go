package usecase

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlug = 60

// Slug turns a clip title into a file name segment: accents are stripped,
// anything but letters, digits and hyphens becomes an underscore.
func Slug(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, title)
	if err != nil {
		plain = title
	}
	var b strings.Builder
	prevSep := false
	for _, r := range strings.TrimSpace(plain) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-':
			b.WriteRune(r)
			prevSep = false
		case unicode.IsSpace(r) || r == '_':
			if !prevSep {
				b.WriteByte('_')
				prevSep = true
			}
		}
	}
	s := strings.Trim(b.String(), "_")
	if r := []rune(s); len(r) > maxSlug {
		s = strings.TrimRight(string(r[:maxSlug]), "_")
	}
	return s
}

// ExtractedPath is dir/clip_NN_<slug>.mp4.
func ExtractedPath(dir string, number int, title string) string {
	name := fmt.Sprintf("clip_%02d", number)
	if s := Slug(title); s != "" {
		name += "_" + s
	}
	return filepath.Join(dir, name+".mp4")
}

func VerticalPath(dir, src string) string {
	return filepath.Join(dir, stem(src)+"_vertical.mp4")
}

func SubtitledPath(dir, src string) string {
	return filepath.Join(dir, strings.TrimSuffix(stem(src), "_vertical")+"_subtitled.mp4")
}

func stem(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
