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
	"time"
)

func testEmail(body string) EmailContext {
	return EmailContext{
		From:       "chef@example.fr",
		Subject:    "Points en cours",
		Body:       body,
		ReceivedAt: time.Date(2026, 3, 9, 8, 30, 0, 0, time.UTC),
		MessageID:  "msg-123",
	}
}

// TestExtract_ObligationForms verifies the conditional-mood and
// optional-adverb variants of the obligation construction all hit the
// same rule. This exact interaction was previously buggy, so each
// variant is pinned here.
func TestExtract_ObligationForms(t *testing.T) {
	bodies := []string{
		"Il faudrait aussi valider le budget avec la compta",
		"Il faut aussi valider le budget avec la compta",
		"Il faudrait valider le budget avec la compta",
		"Il faut valider le budget avec la compta",
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			actions := Extract(testEmail(body))
			if len(actions) != 1 {
				t.Fatalf("got %d actions, want 1", len(actions))
			}

			a := actions[0]
			if a.Type != TypeValidate {
				t.Errorf("type = %s, want %s", a.Type, TypeValidate)
			}
			if !strings.Contains(a.Title, "le budget avec la compta") {
				t.Errorf("title = %q, want it to contain %q", a.Title, "le budget avec la compta")
			}
			if a.SourceSentence != body {
				t.Errorf("sourceSentence = %q, want %q", a.SourceSentence, body)
			}
		})
	}
}

// TestExtract_RuleCoverage exercises one phrasing per action type.
func TestExtract_RuleCoverage(t *testing.T) {
	tests := []struct {
		body      string
		wantType  ActionType
		wantTitle string
	}{
		{
			body:      "Pourrais-tu m'envoyer le contrat signé",
			wantType:  TypeSend,
			wantTitle: "Envoyer le contrat signé",
		},
		{
			body:      "Merci d'appeler le fournisseur",
			wantType:  TypeCall,
			wantTitle: "Appeler le fournisseur",
		},
		{
			body:      "Il faudrait relancer le client sur le devis",
			wantType:  TypeFollowUp,
			wantTitle: "Relancer le client sur le devis",
		},
		{
			body:      "N'oublie pas de payer la facture EDF",
			wantType:  TypePay,
			wantTitle: "Payer la facture EDF",
		},
		{
			body:      "Vous pouvez confirmer la date de livraison",
			wantType:  TypeValidate,
			wantTitle: "Valider la date de livraison",
		},
		{
			body:      "Envoie-moi le compte rendu de la réunion",
			wantType:  TypeSend,
			wantTitle: "Envoyer le compte rendu de la réunion",
		},
		{
			body:      "Il faut faire le suivi de la commande 4812",
			wantType:  TypeFollowUp,
			wantTitle: "Relancer la commande 4812",
		},
		{
			body:      "Peux-tu régler le solde du prestataire",
			wantType:  TypePay,
			wantTitle: "Payer le solde du prestataire",
		},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			actions := Extract(testEmail(tt.body))
			if len(actions) != 1 {
				t.Fatalf("got %d actions, want 1", len(actions))
			}
			if actions[0].Type != tt.wantType {
				t.Errorf("type = %s, want %s", actions[0].Type, tt.wantType)
			}
			if actions[0].Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", actions[0].Title, tt.wantTitle)
			}
		})
	}
}

// TestExtract_NoMatchSafety verifies non-actionable input yields an empty
// result without error.
func TestExtract_NoMatchSafety(t *testing.T) {
	bodies := []string{
		"",
		"   \n\t  ",
		"Bonjour, j'espère que tu vas bien.",
		"Meeting notes attached, see you Monday.",
		strings.Repeat("bla ", 10000),
	}

	for _, body := range bodies {
		if got := Extract(testEmail(body)); len(got) != 0 {
			t.Errorf("Extract(%.40q) = %d actions, want 0", body, len(got))
		}
	}
}

// TestExtract_Determinism verifies identical input yields identical output.
func TestExtract_Determinism(t *testing.T) {
	email := testEmail(
		"Il faut envoyer le bilan à Marie.\n" +
			"Pourrais-tu appeler le notaire ?\n" +
			"Il faudrait aussi payer l'acompte avant jeudi.",
	)

	first := Extract(email)
	for i := 0; i < 5; i++ {
		if got := Extract(email); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs:\n got %+v\nwant %+v", i, got, first)
		}
	}
}

// TestExtract_SourceSentenceSubstring verifies the auditability invariant:
// every emitted sentence is a literal substring of the body.
func TestExtract_SourceSentenceSubstring(t *testing.T) {
	body := "Bonjour,\nIl faut  envoyer   le rapport.  Merci de valider les congés !\nCordialement"
	actions := Extract(testEmail(body))
	if len(actions) == 0 {
		t.Fatal("expected actions")
	}

	for _, a := range actions {
		if !strings.Contains(body, a.SourceSentence) {
			t.Errorf("sourceSentence %q is not a substring of the body", a.SourceSentence)
		}
	}
}

// TestExtract_TypeClosure verifies only the five known types are emitted.
func TestExtract_TypeClosure(t *testing.T) {
	valid := map[ActionType]bool{
		TypeSend: true, TypeCall: true, TypeFollowUp: true, TypePay: true, TypeValidate: true,
	}

	body := "Il faut envoyer le doc. Appelle-moi ce soir. Merci de régler la note. " +
		"Il faudrait relancer Paul. Pense à valider le planning."
	for _, a := range Extract(testEmail(body)) {
		if !valid[a.Type] {
			t.Errorf("unexpected action type %q", a.Type)
		}
	}
}

// TestExtract_Dedup verifies a repeated request within one email yields a
// single action.
func TestExtract_Dedup(t *testing.T) {
	body := "Il faut payer la facture EDF.\nPetit rappel : il faut payer la facture EDF."
	actions := Extract(testEmail(body))
	if len(actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(actions))
	}
	if actions[0].Type != TypePay {
		t.Errorf("type = %s, want %s", actions[0].Type, TypePay)
	}
}

// TestExtract_OrderPreserved verifies output follows body order, not rule
// priority order.
func TestExtract_OrderPreserved(t *testing.T) {
	body := "Merci de valider le devis.\nIl faut envoyer la relance.\nPeux-tu appeler le banquier ?"
	actions := Extract(testEmail(body))
	if len(actions) != 3 {
		t.Fatalf("got %d actions, want 3", len(actions))
	}

	want := []ActionType{TypeValidate, TypeSend, TypeCall}
	for i, a := range actions {
		if a.Type != want[i] {
			t.Errorf("actions[%d].Type = %s, want %s", i, a.Type, want[i])
		}
	}
}

// TestExtract_CaptureBounding verifies a clause boundary before the hard
// cap wins, and that the cap itself backs off to a word edge.
func TestExtract_CaptureBounding(t *testing.T) {
	t.Run("clause boundary", func(t *testing.T) {
		body := "Il faut envoyer le rapport financier du premier trimestre avant vendredi prochain"
		actions := Extract(testEmail(body))
		if len(actions) != 1 {
			t.Fatalf("got %d actions, want 1", len(actions))
		}

		if strings.Contains(actions[0].Title, "avant") {
			t.Errorf("title %q should stop at the clause boundary", actions[0].Title)
		}
		if actions[0].Title != "Envoyer le rapport financier du premier trimestre" {
			t.Errorf("title = %q", actions[0].Title)
		}
	})

	t.Run("hard cap", func(t *testing.T) {
		body := "Il faut envoyer le dossier complet de renouvellement des contrats cadres fournisseurs européens"
		actions := Extract(testEmail(body))
		if len(actions) != 1 {
			t.Fatalf("got %d actions, want 1", len(actions))
		}

		capture := strings.TrimPrefix(actions[0].Title, "Envoyer ")
		if n := len([]rune(capture)); n > 50 {
			t.Errorf("capture is %d runes, want <= 50: %q", n, capture)
		}
		if strings.HasSuffix(capture, " ") || strings.HasSuffix(capture, "fournis") {
			t.Errorf("capture %q should end on a word edge", capture)
		}
	})
}

// TestExtract_ProvenanceCarried verifies sender, timestamp and message id
// flow through untouched.
func TestExtract_ProvenanceCarried(t *testing.T) {
	email := testEmail("Merci de valider les congés de Sophie")
	actions := Extract(email)
	if len(actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(actions))
	}

	a := actions[0]
	if a.EmailFrom != email.From {
		t.Errorf("emailFrom = %q, want %q", a.EmailFrom, email.From)
	}
	if !a.EmailReceivedAt.Equal(email.ReceivedAt) {
		t.Errorf("emailReceivedAt = %v, want %v", a.EmailReceivedAt, email.ReceivedAt)
	}
	if a.MessageID != email.MessageID {
		t.Errorf("messageID = %q, want %q", a.MessageID, email.MessageID)
	}
}

// TestExtract_BareObligation verifies a request with a deadline but no
// object still yields an action titled with the verb alone.
func TestExtract_BareObligation(t *testing.T) {
	actions := Extract(testEmail("Il faudrait payer avant la fin du mois"))
	if len(actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(actions))
	}
	if actions[0].Title != "Payer" {
		t.Errorf("title = %q, want %q", actions[0].Title, "Payer")
	}
	if actions[0].Type != TypePay {
		t.Errorf("type = %s, want %s", actions[0].Type, TypePay)
	}
}
