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

// Package imapsrc provides an email source backed by a generic IMAP
// mailbox. Each fetch opens a fresh connection, searches INBOX since the
// cutoff, and parses MIME bodies with go-message.
package imapsrc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/bcem/inboxactions/internal/config"
	"github.com/bcem/inboxactions/internal/models"
)

// Source fetches messages for a single IMAP mailbox.
type Source struct {
	host     string
	port     string
	username string
	password string
	tls      bool
	account  string
}

// NewSource builds an IMAP email source.
func NewSource(account string, cfg config.IMAPConfig) *Source {
	return &Source{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		tls:      cfg.TLS,
		account:  account,
	}
}

// connect establishes a connection, authenticates, and selects INBOX.
// The caller is responsible for Logout on the returned client.
func (s *Source) connect(_ context.Context) (*imapclient.Client, error) {
	addr := s.host + ":" + s.port

	var client *imapclient.Client
	var err error
	if s.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to IMAP %s: %w", addr, err)
	}

	if err := client.Login(s.username, s.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("IMAP login for %s: %w", s.username, err)
	}

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("select INBOX: %w", err)
	}

	return client, nil
}

// FetchSince searches INBOX for messages received since the cutoff and
// returns up to max of the most recent ones with parsed bodies.
func (s *Source) FetchSince(ctx context.Context, since time.Time, max int) ([]models.EmailMessage, error) {
	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	criteria := &imap.SearchCriteria{Since: since}
	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	// Take the most recent UIDs.
	if max > 0 && len(uids) > max {
		uids = uids[len(uids)-max:]
	}

	uidSet := imap.UIDSetNum(uids...)
	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	var messages []models.EmailMessage
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			slog.Warn("imap: collect message failed", "account", s.account, "error", err)
			continue
		}

		messages = append(messages, s.messageFromBuffer(buf, bodySection))
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, fmt.Errorf("close fetch: %w", err)
	}

	// Search returns ascending UIDs; callers expect newest first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// messageFromBuffer converts a fetched message into an EmailMessage.
func (s *Source) messageFromBuffer(buf *imapclient.FetchMessageBuffer, section *imap.FetchItemBodySection) models.EmailMessage {
	out := models.EmailMessage{Account: s.account}

	if buf.Envelope != nil {
		out.MessageID = buf.Envelope.MessageID
		out.Subject = buf.Envelope.Subject
		out.ReceivedAt = buf.Envelope.Date
		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			out.From = models.EmailAddress{Address: from.Addr(), Name: from.Name}
		}
	}

	// Message-ID may be absent; fall back to the mailbox UID so dedup
	// still has a stable key.
	if out.MessageID == "" {
		out.MessageID = "uid-" + strconv.FormatUint(uint64(buf.UID), 10)
	}

	if raw := buf.FindBodySection(section); raw != nil {
		text, html := parseMIMEBody(raw)
		switch {
		case text != "":
			out.Body = models.EmailBody{ContentType: "text", Content: text}
		case html != "":
			out.Body = models.EmailBody{ContentType: "html", Content: html}
		}
	}

	return out
}

// parseMIMEBody parses a raw RFC 5322 message using go-message and
// extracts the text/plain and text/html bodies.
func parseMIMEBody(raw []byte) (textBody, htmlBody string) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// If parsing fails, treat the whole thing as plain text.
		return string(raw), ""
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := header.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain") && textBody == "":
			textBody = string(body)
		case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
			htmlBody = string(body)
		}
	}

	return textBody, htmlBody
}
