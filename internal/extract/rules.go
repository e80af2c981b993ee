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

import "regexp"

// The pattern table is data: an ordered list of declarative rules tried
// per sentence, first match wins. Adding a phrasing variant means adding
// a row, not touching matcher control flow.

// requestPrefix matches the French constructions that introduce a request:
// obligation ("il faut", "il faudrait", "il faudra"), polite question
// ("pourrais-tu", "pouvez-vous", "tu peux"), and imperative politeness
// ("merci de", "pense à", "n'oublie pas de").
//
// The obligation branch must accept both the plain present and the
// conditional mood, with or without an intervening adverb — a rule must
// never require the adverb nor break when it is present.
const requestPrefix = `(?:` +
	`il\s+fau(?:drait|dra|t)\s+` +
	`|(?:pourr(?:ais|iez)|peux|pouvez)[-\s](?:tu|vous)\s+` +
	`|(?:tu\s+peux|vous\s+pouvez)\s+` +
	`|merci\s+(?:de\s+|d['’])` +
	`|pense[sz]?\s+à\s+` +
	`|n['’]oublie[sz]?\s+pas\s+(?:de\s+|d['’])` +
	`)`

// adverbs that may sit between the prefix and the verb ("il faut aussi...").
const adverbs = `(?:(?:aussi|également|encore|bien|vite|rapidement|absolument|impérativement)\s+)*`

// pronouns that may precede the infinitive ("pourrais-tu m'envoyer...").
const pronouns = `(?:m['’]|me\s+|t['’]|te\s+|nous\s+|lui\s+|leur\s+)?`

// infinitive builds a rule pattern for request-prefix + infinitive forms.
func infinitive(verbs string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + requestPrefix + adverbs + pronouns + `(?:` + verbs + `)\s+(.+)`)
}

// imperative builds a rule pattern for sentence-initial imperative forms
// ("Envoie-moi le contrat").
func imperative(verbs string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^(?:` + verbs + `)(?:[-\s](?:moi|nous))?\s+(.+)`)
}

// rule binds an action type and title verb to one linguistic pattern.
// The matched object span is submatch 1.
type rule struct {
	typ   ActionType
	label string
	re    *regexp.Regexp
}

// rules is tried in order per sentence; the first match wins, so a
// sentence yields at most one action. Order is part of the contract.
var rules = []rule{
	{TypeSend, "Envoyer", infinitive(`envoyer|renvoyer|transmettre|faire\s+parvenir|partager`)},
	{TypeCall, "Appeler", infinitive(`appeler|rappeler|contacter|joindre|t[ée]l[ée]phoner\s+à`)},
	{TypeFollowUp, "Relancer", infinitive(`relancer|recontacter|faire\s+le\s+suivi\s+de`)},
	{TypePay, "Payer", infinitive(`payer|r[ée]gler|rembourser`)},
	{TypeValidate, "Valider", infinitive(`valider|approuver|confirmer`)},

	{TypeSend, "Envoyer", imperative(`envoies?|envoyez|transmets|transmettez`)},
	{TypeCall, "Appeler", imperative(`appelles?|appelez|rappelles?|rappelez`)},
	{TypeFollowUp, "Relancer", imperative(`relances?|relancez`)},
	{TypePay, "Payer", imperative(`payes?|payez|r[ée]glez`)},
	{TypeValidate, "Valider", imperative(`valides?|validez|approuvez|confirmez`)},
}
