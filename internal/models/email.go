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

// Package models defines the data structures shared across the service.
package models

import (
	"strings"
	"time"

	"github.com/jaytaylor/html2text"
)

// EmailAddress represents a sender or recipient with an address and optional name.
type EmailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// EmailBody represents the message body content. ContentType is "text"
// or "html" as reported by the provider.
type EmailBody struct {
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
}

// EmailMessage is a provider-agnostic representation of one fetched email,
// ready for action extraction. Every provider adapter normalises into this
// shape.
type EmailMessage struct {
	// MessageID is the provider's stable message identifier (Gmail message
	// id, Graph message id, or IMAP Message-ID header).
	MessageID  string       `json:"message_id"`
	Account    string       `json:"account"`
	From       EmailAddress `json:"from"`
	Subject    string       `json:"subject"`
	Body       EmailBody    `json:"body"`
	ReceivedAt time.Time    `json:"received_at"`
}

// PlainText returns the body as plain text, converting HTML bodies.
// Conversion failures fall back to the raw content — extraction is
// best-effort and must not lose a message over markup.
func (m *EmailMessage) PlainText() string {
	if !strings.EqualFold(m.Body.ContentType, "html") {
		return m.Body.Content
	}

	text, err := html2text.FromString(m.Body.Content, html2text.Options{TextOnly: true})
	if err != nil {
		return m.Body.Content
	}
	return text
}
