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

// Package gmail provides an email source backed by the Gmail API.
// Authentication uses a stored OAuth2 refresh token; the token source
// refreshes access tokens transparently.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/bcem/inboxactions/internal/config"
	"github.com/bcem/inboxactions/internal/models"
)

// user is the special Gmail API identifier for the authenticated mailbox.
const user = "me"

// Source fetches messages for a single Gmail account.
type Source struct {
	srv     *gmailapi.Service
	account string
}

// NewSource builds a Gmail source from stored OAuth2 credentials.
func NewSource(ctx context.Context, account string, cfg config.GmailConfig) (*Source, error) {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmailapi.GmailReadonlyScope},
	}
	token := &oauth2.Token{RefreshToken: cfg.RefreshToken}
	httpClient := oauthConfig.Client(ctx, token)

	srv, err := gmailapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create Gmail service: %w", err)
	}

	return &Source{srv: srv, account: account}, nil
}

// FetchSince lists inbox messages received since the given time and
// fetches full content for each, up to max.
func (s *Source) FetchSince(ctx context.Context, since time.Time, max int) ([]models.EmailMessage, error) {
	// Gmail search accepts an epoch-seconds "after:" operator.
	query := fmt.Sprintf("in:inbox -in:draft after:%d", since.Unix())

	list, err := s.srv.Users.Messages.List(user).
		Q(query).
		MaxResults(int64(max)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	var messages []models.EmailMessage
	for _, stub := range list.Messages {
		full, err := s.srv.Users.Messages.Get(user, stub.Id).Format("full").Context(ctx).Do()
		if err != nil {
			slog.Warn("gmail: fetch message failed",
				"account", s.account,
				"message_id", stub.Id,
				"error", err,
			)
			continue
		}
		messages = append(messages, s.parseMessage(full))
	}

	return messages, nil
}

// parseMessage converts a Gmail API message into an EmailMessage.
func (s *Source) parseMessage(msg *gmailapi.Message) models.EmailMessage {
	out := models.EmailMessage{
		MessageID:  msg.Id,
		Account:    s.account,
		ReceivedAt: time.UnixMilli(msg.InternalDate).UTC(),
	}

	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			switch header.Name {
			case "Subject":
				out.Subject = header.Value
			case "From":
				out.From = parseAddress(header.Value)
			}
		}

		content, contentType := extractBody(msg.Payload)
		out.Body = models.EmailBody{ContentType: contentType, Content: content}
	}

	return out
}

// parseAddress parses an RFC 5322 "Name <addr>" header value, falling
// back to the raw value.
func parseAddress(raw string) models.EmailAddress {
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return models.EmailAddress{Address: raw}
	}
	return models.EmailAddress{Address: addr.Address, Name: addr.Name}
}

// extractBody walks the MIME part tree and returns the first text/plain
// body, falling back to text/html.
func extractBody(payload *gmailapi.MessagePart) (content, contentType string) {
	if body := findPart(payload, "text/plain"); body != "" {
		return body, "text"
	}
	if body := findPart(payload, "text/html"); body != "" {
		return body, "html"
	}
	return "", "text"
}

// findPart recursively searches the part tree for a decodable body of
// the wanted MIME type.
func findPart(part *gmailapi.MessagePart, want string) string {
	if strings.EqualFold(part.MimeType, want) && part.Body != nil && part.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err == nil {
			return string(data)
		}
		slog.Warn("gmail: base64 decode failed", "mime_type", part.MimeType, "error", err)
	}

	for _, child := range part.Parts {
		if body := findPart(child, want); body != "" {
			return body
		}
	}
	return ""
}
