package textutil

import (
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxFileNameBytes leaves room for an extension and a ".part" suffix under
// the common 255 byte limit.
const maxFileNameBytes = 200

// fallbackFileName is used when nothing printable survives sanitisation.
const fallbackFileName = "episode"

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SafeFileName converts a title into a file name without extension.
func SafeFileName(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}
	folded = fileNameReplacer.Replace(folded)

	var b strings.Builder
	prevSpace := false
	for _, r := range folded {
		switch {
		case unicode.IsSpace(r):
			if !prevSpace {
				b.WriteRune(' ')
				prevSpace = true
			}
		case unicode.IsControl(r) || !unicode.IsPrint(r):
		default:
			b.WriteRune(r)
			prevSpace = false
		}
	}
	name := strings.Trim(b.String(), " .")
	name = truncateUTF8(name, maxFileNameBytes)
	name = strings.TrimRight(name, " .")
	if name == "" {
		return fallbackFileName
	}
	return name
}

// TitleFromPath derives a display title from a file name or URL path:
// separators become spaces and words are title-cased.
func TitleFromPath(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	var b strings.Builder
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				b.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(b.String())
	if title == "" || title == "/" {
		return "Untitled Episode"
	}
	return cases.Title(language.Und).String(title)
}

func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }
