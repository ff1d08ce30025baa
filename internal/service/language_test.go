package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhatlangDetector_English(t *testing.T) {
	lang, ok := NewLanguageDetector().Detect("The speaker explains that cats and dogs are mammals, while fish live in water and breathe through their gills.")

	assert.True(t, ok)
	assert.Equal(t, "en", lang.Code)
	assert.Equal(t, "English", lang.Name)
}

func TestWhatlangDetector_Empty(t *testing.T) {
	lang, ok := NewLanguageDetector().Detect("   ")

	assert.False(t, ok)
	assert.Empty(t, lang.Code)
}
