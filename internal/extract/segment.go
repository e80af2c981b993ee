// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package extract

import (
	"strings"
	"unicode"
)

// abbreviations that end with a period but do not end a sentence.
// Compared lowercase, without the trailing period.
var abbreviations = map[string]bool{
	"m":    true,
	"mm":   true,
	"mme":  true,
	"mlle": true,
	"dr":   true,
	"st":   true,
	"etc":  true,
	"ex":   true,
	"cf":   true,
	"tel":  true,
	"ref":  true,
	"p":    true,
}

// splitSentences splits a raw email body into trimmed candidate sentences,
// in source order. Sentence boundaries are '.', '!', '?' and newlines.
// Periods inside decimal numbers, after single-letter initials, and after
// common abbreviations do not split. Every returned sentence is a literal
// substring of the body. Empty input yields nil.
func splitSentences(body string) []string {
	if body == "" {
		return nil
	}

	runes := []rune(body)
	var sentences []string
	start := 0

	flush := func(end int) {
		s := strings.TrimSpace(string(runes[start:end]))
		if s != "" {
			sentences = append(sentences, s)
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch r {
		case '\n', '!', '?':
			flush(i)
			start = i + 1
		case '.':
			if !splitsAt(runes, start, i) {
				continue
			}
			flush(i)
			// Swallow consecutive terminators (ellipsis, "?!", "..")
			for i+1 < len(runes) && isTerminator(runes[i+1]) {
				i++
			}
			start = i + 1
		}
	}
	flush(len(runes))

	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// splitsAt reports whether the period at index i is a real sentence
// boundary. Heuristic, not exact parsing.
func splitsAt(runes []rune, start, i int) bool {
	// Decimal number: digit on both sides ("1.5M", "3.14").
	if i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
		return false
	}

	// Walk back to the beginning of the token preceding the period.
	tokStart := i
	for tokStart > start && !unicode.IsSpace(runes[tokStart-1]) {
		tokStart--
	}
	tok := strings.ToLower(string(runes[tokStart:i]))

	// Single-letter initial ("J. Dupont") or known abbreviation ("M. Martin").
	if len([]rune(tok)) == 1 && unicode.IsLetter(runes[i-1]) {
		return false
	}
	if abbreviations[tok] {
		return false
	}

	return true
}
