package language

import (
	"fmt"
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// words maps the English names people type into config files to their
// BCP 47 base language.
var words = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
}

// bibliographic ISO 639-2/B codes differ from the terminology codes BCP 47
// understands.
var bibliographic = map[string]string{
	"chi": "zh",
	"dut": "nl",
	"fre": "fr",
	"ger": "de",
}

// Normalize converts a language code, ISO 639-2 code, or English language
// name into the lower-case BCP 47 form RSS readers expect, e.g. "en_US" to
// "en-us" and "ger" to "de".
func Normalize(code string) (string, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "", fmt.Errorf("language: empty code")
	}
	if base, ok := words[code]; ok {
		code = base
	}
	if base, ok := bibliographic[code]; ok {
		code = base
	}
	tag, err := xlang.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("language: %q: %w", code, err)
	}
	return strings.ToLower(tag.String()), nil
}

// DisplayName returns the English name of a language code, or the code
// upper-cased when it is not recognised. Empty input yields "Unknown".
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "Unknown"
	}
	normalized, err := Normalize(code)
	if err != nil {
		return strings.ToUpper(code)
	}
	tag := xlang.MustParse(normalized)
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(code)
}
