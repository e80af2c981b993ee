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
	"unicode/utf8"
)

// captureMaxRunes caps the object span used in a title so a long sentence
// cannot produce an unbounded label.
const captureMaxRunes = 50

// clauseMarkers terminate a capture early: the object span ends where a
// deadline or politeness clause begins. Matched on word boundaries,
// lowercase.
var clauseMarkers = []string{
	"avant",
	"d'ici",
	"d’ici",
	"dès",
	"au plus tard",
	"s'il te plaît",
	"s’il te plaît",
	"s'il vous plaît",
	"s’il vous plaît",
	"svp",
	"stp",
	"merci",
	"pour que",
	"parce que",
	"sinon",
	"car",
}

// Extract scans an email body and returns structured action candidates in
// source order. It is total over string inputs: empty, malformed, or
// non-French text yields an empty result, never an error. Identical input
// always yields identical output.
func Extract(email EmailContext) []Action {
	if strings.TrimSpace(email.Body) == "" {
		return nil
	}

	var actions []Action
	seen := make(map[string]bool)

	for _, sentence := range splitSentences(email.Body) {
		title, typ, ok := matchSentence(sentence)
		if !ok {
			continue
		}

		// Stable, order-preserving dedup: repeated reminders within one
		// email collapse to the first occurrence.
		key := string(typ) + "|" + strings.ToLower(title)
		if seen[key] {
			continue
		}
		seen[key] = true

		actions = append(actions, Action{
			Title:           title,
			Type:            typ,
			SourceSentence:  sentence,
			EmailFrom:       email.From,
			EmailReceivedAt: email.ReceivedAt,
			MessageID:       email.MessageID,
		})
	}

	return actions
}

// matchSentence tries the rule table in order and returns the title and
// type from the first matching rule.
func matchSentence(sentence string) (title string, typ ActionType, ok bool) {
	for _, r := range rules {
		m := r.re.FindStringSubmatch(sentence)
		if m == nil {
			continue
		}

		capture := boundCapture(m[1])
		if capture == "" {
			return r.label, r.typ, true
		}
		return r.label + " " + capture, r.typ, true
	}
	return "", "", false
}

// boundCapture trims a raw object span down to a title-sized fragment:
// it stops at the first clause boundary, caps the length at
// captureMaxRunes (cutting back to a word edge), collapses whitespace,
// and strips stray punctuation.
func boundCapture(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	// Punctuation starts a new clause.
	if i := strings.IndexAny(s, ",;:("); i >= 0 {
		s = s[:i]
	}

	// Connector words ("avant vendredi", "d'ici lundi") end the object.
	lower := strings.ToLower(s)
	for _, marker := range clauseMarkers {
		if i := indexOfWord(lower, marker); i >= 0 && i < len(s) {
			s = s[:i]
			lower = lower[:i]
		}
	}

	// Hard cap, backed off to the previous word edge.
	if utf8.RuneCountInString(s) > captureMaxRunes {
		runes := []rune(s)[:captureMaxRunes]
		s = string(runes)
		if i := strings.LastIndexByte(s, ' '); i > 0 {
			s = s[:i]
		}
	}

	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " \t.,;:!?…'\"«»-–—")
}

// indexOfWord returns the byte index of the first occurrence of word in s
// that starts at a word boundary, or -1.
func indexOfWord(s, word string) int {
	from := 0
	for {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return -1
		}
		i += from

		startOK := i == 0 || s[i-1] == ' '
		end := i + len(word)
		endOK := end == len(s) || s[end] == ' ' || s[end] == '.' || s[end] == ','
		if startOK && endOK {
			return i
		}
		from = i + len(word)
	}
}
