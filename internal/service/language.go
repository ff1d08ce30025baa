package service

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// Language identifies a natural language.
type Language struct {
	// Code is the ISO 639-1 code, or ISO 639-3 when there is no two-letter code.
	Code string
	Name string
}

// LanguageDetector identifies the language of a text. ok is false when the
// guess is not reliable enough to act on.
type LanguageDetector interface {
	Detect(text string) (lang Language, ok bool)
}

// WhatlangDetector detects languages with whatlanggo.
type WhatlangDetector struct{}

// NewLanguageDetector returns the default LanguageDetector.
func NewLanguageDetector() *WhatlangDetector {
	return &WhatlangDetector{}
}

// Detect implements LanguageDetector.
func (WhatlangDetector) Detect(text string) (Language, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Language{}, false
	}

	info := whatlanggo.Detect(text)
	code := info.Lang.Iso6391()
	if code == "" {
		code = info.Lang.Iso6393()
	}
	if code == "" {
		return Language{}, false
	}

	lang := Language{Code: code, Name: info.Lang.String()}
	return lang, info.IsReliable()
}
