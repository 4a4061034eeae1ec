package lang

import (
	"fmt"
	"sort"
	"strings"
)

// validLanguages contains ISO 639-1 language codes supported by OpenAI's transcription API.
// This is not exhaustive but covers the most common languages.
// OpenAI supports additional languages; users can request additions.
var validLanguages = map[string]bool{
	"af": true, // Afrikaans
	"ar": true, // Arabic
	"bg": true, // Bulgarian
	"bn": true, // Bengali
	"ca": true, // Catalan
	"cs": true, // Czech
	"da": true, // Danish
	"de": true, // German
	"el": true, // Greek
	"en": true, // English
	"es": true, // Spanish
	"et": true, // Estonian
	"fa": true, // Persian
	"fi": true, // Finnish
	"fr": true, // French
	"gu": true, // Gujarati
	"he": true, // Hebrew
	"hi": true, // Hindi
	"hr": true, // Croatian
	"hu": true, // Hungarian
	"id": true, // Indonesian
	"it": true, // Italian
	"ja": true, // Japanese
	"kn": true, // Kannada
	"ko": true, // Korean
	"lt": true, // Lithuanian
	"lv": true, // Latvian
	"mk": true, // Macedonian
	"ml": true, // Malayalam
	"mr": true, // Marathi
	"ms": true, // Malay
	"nl": true, // Dutch
	"no": true, // Norwegian
	"pa": true, // Punjabi
	"pl": true, // Polish
	"pt": true, // Portuguese
	"ro": true, // Romanian
	"ru": true, // Russian
	"sk": true, // Slovak
	"sl": true, // Slovenian
	"sr": true, // Serbian
	"sv": true, // Swedish
	"sw": true, // Swahili
	"ta": true, // Tamil
	"te": true, // Telugu
	"th": true, // Thai
	"tl": true, // Tagalog
	"tr": true, // Turkish
	"uk": true, // Ukrainian
	"ur": true, // Urdu
	"vi": true, // Vietnamese
	"zh": true, // Chinese
}

// englishNames maps the full lowercase language names the transcription
// API reports in verbose responses back to ISO 639-1 codes.
var englishNames = map[string]string{
	"afrikaans":  "af",
	"arabic":     "ar",
	"bulgarian":  "bg",
	"bengali":    "bn",
	"catalan":    "ca",
	"czech":      "cs",
	"danish":     "da",
	"german":     "de",
	"greek":      "el",
	"english":    "en",
	"spanish":    "es",
	"estonian":   "et",
	"persian":    "fa",
	"finnish":    "fi",
	"french":     "fr",
	"hebrew":     "he",
	"hindi":      "hi",
	"croatian":   "hr",
	"hungarian":  "hu",
	"indonesian": "id",
	"italian":    "it",
	"japanese":   "ja",
	"korean":     "ko",
	"lithuanian": "lt",
	"latvian":    "lv",
	"malay":      "ms",
	"dutch":      "nl",
	"norwegian":  "no",
	"polish":     "pl",
	"portuguese": "pt",
	"romanian":   "ro",
	"russian":    "ru",
	"slovak":     "sk",
	"slovenian":  "sl",
	"serbian":    "sr",
	"swedish":    "sv",
	"swahili":    "sw",
	"tamil":      "ta",
	"thai":       "th",
	"tagalog":    "tl",
	"turkish":    "tr",
	"ukrainian":  "uk",
	"urdu":       "ur",
	"vietnamese": "vi",
	"chinese":    "zh",
}

// Normalize normalizes a language code to lowercase with hyphen separator.
// Accepts: "pt-BR", "pt_BR", "PT-BR", "pt-br" -> "pt-br"
func Normalize(lang string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))
}

// Validate checks if the language code is valid.
// Accepts ISO 639-1 codes (e.g., "en", "fr") and locales (e.g., "pt-BR", "zh-CN").
// Returns ErrInvalid if the base language is not recognized.
func Validate(lang string) error {
	if lang == "" {
		return nil // Empty means auto-detect, which is valid
	}

	if !validLanguages[BaseCode(lang)] {
		return fmt.Errorf("invalid language code %q (use ISO 639-1 codes like 'en', 'fr', 'pt-BR'): %w",
			lang, ErrInvalid)
	}

	return nil
}

// BaseCode extracts the ISO 639-1 base language code from a locale or from
// a full language name as reported by the transcription API.
// Examples: "pt-BR" -> "pt", "zh-CN" -> "zh", "en" -> "en", "english" -> "en"
func BaseCode(lang string) string {
	if lang == "" {
		return ""
	}
	normalized := Normalize(lang)
	if code, ok := englishNames[normalized]; ok {
		return code
	}
	if idx := strings.Index(normalized, "-"); idx != -1 {
		return normalized[:idx]
	}
	return normalized
}

// MajorityVote returns the most frequent base language code among the
// given tags, ignoring empty tags. Ties break alphabetically so the
// result is deterministic. Returns fallback when no tag carries a
// language.
func MajorityVote(tags []string, fallback string) string {
	counts := make(map[string]int)
	for _, tag := range tags {
		if code := BaseCode(tag); code != "" {
			counts[code]++
		}
	}
	if len(counts) == 0 {
		return fallback
	}

	codes := make([]string, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	best := codes[0]
	for _, code := range codes[1:] {
		if counts[code] > counts[best] {
			best = code
		}
	}
	return best
}

// DisplayName returns a human-readable name for common locales.
// Falls back to the code itself for unknown locales.
func DisplayName(lang string) string {
	normalized := Normalize(lang)

	// Common locale display names
	displayNames := map[string]string{
		"en":    "English",
		"en-us": "American English",
		"en-gb": "British English",
		"fr":    "French",
		"fr-ca": "Canadian French",
		"es":    "Spanish",
		"es-mx": "Mexican Spanish",
		"pt":    "Portuguese",
		"pt-br": "Brazilian Portuguese",
		"pt-pt": "European Portuguese",
		"zh":    "Chinese",
		"zh-cn": "Simplified Chinese",
		"zh-tw": "Traditional Chinese",
		"de":    "German",
		"it":    "Italian",
		"ja":    "Japanese",
		"ko":    "Korean",
		"ru":    "Russian",
		"ar":    "Arabic",
		"nl":    "Dutch",
		"pl":    "Polish",
		"sv":    "Swedish",
		"da":    "Danish",
		"no":    "Norwegian",
		"fi":    "Finnish",
	}

	if name, ok := displayNames[normalized]; ok {
		return name
	}

	if name, ok := displayNames[BaseCode(normalized)]; ok {
		return name
	}

	// Last resort: return the code itself
	return lang
}
