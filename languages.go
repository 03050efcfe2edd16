package cozebridge

// Language is a language the host may offer for translation.
type Language struct {
	Identifier string
	Name       string
}

// languages is fixed at startup and never mutated.
var languages = []Language{
	{Identifier: LangAuto, Name: "Auto Detect"},
	{Identifier: "zh-Hans", Name: "Simplified Chinese"},
	{Identifier: "en", Name: "English"},
}

// fallbackLanguages is returned when the language list is unavailable.
var fallbackLanguages = []string{LangAuto, "zh-Hans", "en"}

// SupportLanguages returns the ordered identifiers of the supported languages.
// The returned slice is a copy and may be modified by the caller.
func SupportLanguages() []string {
	return languageIdentifiers(languages)
}

func languageIdentifiers(list []Language) []string {
	if len(list) == 0 {
		return append([]string(nil), fallbackLanguages...)
	}
	ids := make([]string, len(list))
	for i, l := range list {
		ids[i] = l.Identifier
	}
	return ids
}

// Languages returns the supported languages with their display names.
func Languages() []Language {
	return append([]Language(nil), languages...)
}

// GetLanguageName returns the display name for an identifier.
// Falls back to the identifier itself if not found.
func GetLanguageName(identifier string) string {
	for _, l := range languages {
		if l.Identifier == identifier {
			return l.Name
		}
	}
	return identifier
}

// orAuto returns lang, or "auto" when lang is empty.
func orAuto(lang string) string {
	if lang == "" {
		return LangAuto
	}
	return lang
}
