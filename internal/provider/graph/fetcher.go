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

// Package graph provides an email source backed by the Microsoft Graph
// REST API. It lists recent message ids for a mailbox and fetches full
// content per message.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/bcem/inboxactions/internal/config"
	"github.com/bcem/inboxactions/internal/models"
)

// DefaultBaseURL is the production Graph API endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// Source fetches messages for a single Microsoft 365 mailbox.
type Source struct {
	httpClient *http.Client
	baseURL    string
	mailbox    string
	account    string
}

// NewSource builds a Graph email source using OAuth2 client credentials
// for the account's tenant.
func NewSource(ctx context.Context, account string, cfg config.GraphConfig) *Source {
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}

	return &Source{
		httpClient: creds.Client(ctx),
		baseURL:    DefaultBaseURL,
		mailbox:    cfg.Mailbox,
		account:    account,
	}
}

// messagesResponse represents a page of the /messages list response.
type messagesResponse struct {
	Value    []messageStub `json:"value"`
	NextLink string        `json:"@odata.nextLink"`
}

// messageStub is a minimal message from the list endpoint.
type messageStub struct {
	ID string `json:"id"`
}

// FetchSince lists message ids received since the given time and fetches
// full content for each, up to max.
func (s *Source) FetchSince(ctx context.Context, since time.Time, max int) ([]models.EmailMessage, error) {
	params := url.Values{}
	params.Set("$filter", fmt.Sprintf("receivedDateTime ge %s", since.UTC().Format(time.RFC3339)))
	params.Set("$select", "id")
	params.Set("$orderby", "receivedDateTime desc")
	params.Set("$top", "50")

	listURL := fmt.Sprintf("%s/users/%s/messages?%s", s.baseURL, s.mailbox, params.Encode())

	var messages []models.EmailMessage
	for nextURL := listURL; nextURL != "" && len(messages) < max; {
		page, err := s.fetchPage(ctx, nextURL)
		if err != nil {
			return messages, fmt.Errorf("list messages: %w", err)
		}

		for _, stub := range page.Value {
			if len(messages) >= max {
				break
			}

			msg, err := s.fetchMessage(ctx, stub.ID)
			if err != nil {
				slog.Warn("graph: fetch message failed",
					"account", s.account,
					"message_id", stub.ID,
					"error", err,
				)
				continue
			}
			if msg == nil {
				continue
			}
			messages = append(messages, *msg)
		}

		nextURL = page.NextLink
	}

	return messages, nil
}

// fetchMessage retrieves the full email content for a message ID.
// Returns nil without error when the message has been deleted meanwhile.
func (s *Source) fetchMessage(ctx context.Context, messageID string) (*models.EmailMessage, error) {
	u := fmt.Sprintf("%s/users/%s/messages/%s?$select=id,subject,from,body,receivedDateTime",
		s.baseURL, s.mailbox, messageID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", "outlook.body-content-type=\"text\"")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		slog.Warn("message not found (may have been deleted)",
			"mailbox", s.mailbox,
			"message_id", messageID,
		)
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph API returned HTTP %d for message %s", resp.StatusCode, messageID)
	}

	msg, err := parseGraphMessage(resp.Body, s.account)
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	return msg, nil
}

// fetchPage retrieves a single page of messages from the list endpoint.
func (s *Source) fetchPage(ctx context.Context, pageURL string) (*messagesResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", "odata.maxpagesize=50")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch messages page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		slog.Error("messages list error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("messages list returned HTTP %d", resp.StatusCode)
	}

	var page messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode messages response: %w", err)
	}

	return &page, nil
}
