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
	"reflect"
	"strings"
	"testing"
)

// TestSplitSentences covers the segmentation heuristics.
func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "empty",
			body: "",
			want: nil,
		},
		{
			name: "whitespace only",
			body: "  \n\t \r\n ",
			want: nil,
		},
		{
			name: "terminators",
			body: "Première phrase. Deuxième phrase ! Troisième ?",
			want: []string{"Première phrase", "Deuxième phrase", "Troisième"},
		},
		{
			name: "newline blocks",
			body: "Bonjour\nIl faut envoyer le rapport\nCordialement",
			want: []string{"Bonjour", "Il faut envoyer le rapport", "Cordialement"},
		},
		{
			name: "decimal number does not split",
			body: "Le budget est de 3.5 millions. Il faut valider vite.",
			want: []string{"Le budget est de 3.5 millions", "Il faut valider vite"},
		},
		{
			name: "abbreviation does not split",
			body: "Merci d'appeler M. Dupont dès que possible.",
			want: []string{"Merci d'appeler M. Dupont dès que possible"},
		},
		{
			name: "single-letter initial does not split",
			body: "Le dossier de J. Martin est prêt. Envoie-le.",
			want: []string{"Le dossier de J. Martin est prêt", "Envoie-le"},
		},
		{
			name: "ellipsis collapses",
			body: "On verra... Il faut payer la facture.",
			want: []string{"On verra", "Il faut payer la facture"},
		},
		{
			name: "crlf",
			body: "Ligne une.\r\nLigne deux.",
			want: []string{"Ligne une", "Ligne deux"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.body)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitSentences(%q) = %#v, want %#v", tt.body, got, tt.want)
			}
		})
	}
}

// TestSplitSentences_Substrings verifies every sentence is a literal
// substring of its source.
func TestSplitSentences_Substrings(t *testing.T) {
	body := "Un début.  Une   phrase avec   espaces !\nEt M. X pour finir..."
	for _, s := range splitSentences(body) {
		if !strings.Contains(body, s) {
			t.Errorf("sentence %q is not a substring of the body", s)
		}
	}
}
