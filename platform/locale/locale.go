// Package locale normalizes free-text language names into BCP 47 tags.
// This is part of the platform layer and contains no business logic.
package locale

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// supported lists the languages riders commonly report. Names are matched in
// English and in the language's own name.
var supported = []language.Tag{
	language.English,
	language.Spanish,
	language.Chinese,
	language.Vietnamese,
	language.Russian,
	language.Arabic,
	language.Korean,
	language.Portuguese,
	language.French,
	language.Polish,
	language.Filipino,
	language.Make("ht"),
	language.Make("so"),
}

// Normalize returns the BCP 47 tag for input, which may already be a tag
// ("es", "en-US") or a language name ("Spanish", "español").
// Unknown input yields the empty string.
func Normalize(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	if tag, err := language.Parse(trimmed); err == nil {
		return tag.String()
	}

	englishNames := display.English.Languages()
	for _, tag := range supported {
		if strings.EqualFold(englishNames.Name(tag), trimmed) || strings.EqualFold(display.Self.Name(tag), trimmed) {
			return tag.String()
		}
	}

	return ""
}
