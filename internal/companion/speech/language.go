package speech

import (
	"strings"

	"golang.org/x/text/language"
)

// regionOverrides maps Indic languages to their Indian locale. CLDR
// likely subtags would give bn-BD.
var regionOverrides = map[string]string{
	"bn": "IN",
	"gu": "IN",
	"hi": "IN",
	"kn": "IN",
	"ml": "IN",
	"mr": "IN",
	"pa": "IN",
	"ta": "IN",
	"te": "IN",
}

// fallbackTag is used when a language code cannot be parsed
const fallbackTag = "en-US"

// MapLanguage expands a short language code into a BCP 47 tag with a
// region, e.g. "en" → "en-US", "hi" → "hi-IN". Codes that already carry
// a region are canonicalized and kept.
func MapLanguage(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return fallbackTag
	}

	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return fallbackTag
	}

	base, _ := tag.Base()
	if region, conf := tag.Region(); conf == language.Exact {
		return base.String() + "-" + region.String()
	}
	if r, ok := regionOverrides[base.String()]; ok {
		return base.String() + "-" + r
	}

	region, _ := tag.Region() // likely-subtag inference
	if region.String() == "ZZ" {
		return base.String()
	}
	return base.String() + "-" + region.String()
}

// BaseLanguage returns the primary language subtag of a tag, lowercased
func BaseLanguage(tag string) string {
	tag = strings.ReplaceAll(strings.TrimSpace(tag), "_", "-")
	if i := strings.IndexByte(tag, '-'); i >= 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

// Voice is a voice offered by a local synthesizer
type Voice struct {
	// ID is what the synthesizer expects to select the voice
	ID   string
	Name string
	// Lang is the voice locale, e.g. "en_US" or "hi"
	Lang string
}

// SelectVoice returns the first voice whose locale shares the base
// language of tag. Exact locale matches are preferred.
func SelectVoice(voices []Voice, tag string) (Voice, bool) {
	want := strings.ToLower(strings.ReplaceAll(tag, "_", "-"))
	base := BaseLanguage(tag)

	for _, v := range voices {
		if strings.ToLower(strings.ReplaceAll(v.Lang, "_", "-")) == want {
			return v, true
		}
	}
	for _, v := range voices {
		if BaseLanguage(v.Lang) == base {
			return v, true
		}
	}
	return Voice{}, false
}
