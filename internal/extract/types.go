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

// Package extract turns raw email text into structured action items.
//
// The engine is a deterministic, rule-based matcher over French
// imperative/obligation phrasing ("il faut envoyer...", "pourrais-tu
// appeler...", "merci de valider..."). It is a pure function of its
// input: no I/O, no shared state, safe to call concurrently.
package extract

import "time"

// ActionType classifies the kind of action requested in a sentence.
type ActionType string

const (
	TypeSend     ActionType = "SEND"
	TypeCall     ActionType = "CALL"
	TypeFollowUp ActionType = "FOLLOW_UP"
	TypePay      ActionType = "PAY"
	TypeValidate ActionType = "VALIDATE"
)

// EmailContext is the per-message input to the engine. It is built by the
// sync job from a fetched message and discarded after extraction.
type EmailContext struct {
	From       string
	Subject    string
	Body       string
	ReceivedAt time.Time

	// MessageID is the provider's message identifier, carried through for
	// provenance and dedup-on-persist.
	MessageID string
}

// Action is one extracted action candidate. SourceSentence is always a
// literal substring of the originating body so a user can see why the
// action was created. Lifecycle status is assigned by the store, never
// by the engine.
type Action struct {
	Title           string
	Type            ActionType
	SourceSentence  string
	EmailFrom       string
	EmailReceivedAt time.Time
	MessageID       string
}
