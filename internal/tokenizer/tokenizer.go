// Package tokenizer turns raw text into normalised word stems. Text is
// decomposed (NFD), stripped of everything but letters and whitespace,
// lower-cased, split on whitespace and stemmed with the Snowball English
// stemmer.
package tokenizer

import (
	"sort"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
	"golang.org/x/text/unicode/norm"
)

// Clean normalises text to lower-case letters and whitespace.
func Clean(text string) string {
	text = norm.NFD.String(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Parse cleans text and splits it into words.
func Parse(text string) []string {
	return strings.Fields(Clean(text))
}

// Stem returns the Snowball English stem of a cleaned word. Stop words are
// stemmed too rather than passed through.
func Stem(word string) string {
	return english.Stem(word, true)
}

// Stems parses text and stems every word, preserving order and duplicates.
func Stems(text string) []string {
	words := Parse(text)
	stems := make([]string, 0, len(words))
	for _, w := range words {
		if s := Stem(w); s != "" {
			stems = append(stems, s)
		}
	}
	return stems
}

// UniqueStems returns the sorted set of stems in text.
func UniqueStems(text string) []string {
	stems := Stems(text)
	if len(stems) == 0 {
		return nil
	}
	sort.Strings(stems)
	out := stems[:1]
	for _, s := range stems[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
