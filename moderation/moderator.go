// Package moderation censors configured words in outgoing messages
// before they leave the client. Matching is diacritic-blind only in
// the sense of case and separator noise: "b.a.d" and "BAD" both match
// the pattern "bad".
package moderation

import (
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	matcher      *goahocorasick.Machine
	censoredChar rune
}

// textMapping relates the normalized search text back to rune
// positions in the original input.
type textMapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the Aho-Corasick automaton from the censored
// word list. Patterns are normalized the same way the input is.
func NewModerator(censoredWords []string, censoredChar rune) (Moderator, error) {
	patterns := make([][]rune, len(censoredWords))
	for i, word := range censoredWords {
		patterns[i] = []rune(strings.ToLower(word))
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Moderator{}, err
	}
	return Moderator{matcher: m, censoredChar: censoredChar}, nil
}

// Censor replaces every rune of a matched word with the censor
// character, preserving the surrounding text and any separator noise
// inside the match.
func (m *Moderator) Censor(original string) string {
	mapping := normalize(original)
	if len(mapping.normalized) == 0 {
		return original
	}

	spans := m.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return original
	}

	origRunes := []rune(original)
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(mapping.origIdx) {
			continue
		}

		// Censor the original range covered by the first and last
		// matched rune, noise characters included.
		for i := mapping.origIdx[normStart]; i <= mapping.origIdx[normEnd-1]; i++ {
			origRunes[i] = m.censoredChar
		}
	}

	return string(origRunes)
}

// normalize lowercases the input and drops separator noise, recording
// where every kept rune came from.
func normalize(input string) textMapping {
	origRunes := []rune(input)
	norm := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))

	for i, r := range origRunes {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			continue
		}
		norm = append(norm, unicode.ToLower(r))
		origIdx = append(origIdx, i)
	}
	return textMapping{normalized: norm, origIdx: origIdx}
}
