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

package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bcem/inboxactions/internal/models"
)

// graphMessage represents the relevant fields from a Graph API message response.
type graphMessage struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    struct {
		EmailAddress struct {
			Address string `json:"address"`
			Name    string `json:"name"`
		} `json:"emailAddress"`
	} `json:"from"`
	Body struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	ReceivedDateTime string `json:"receivedDateTime"`
}

// parseGraphMessage converts a Graph API message response into an EmailMessage.
func parseGraphMessage(body io.Reader, account string) (*models.EmailMessage, error) {
	var msg graphMessage
	if err := json.NewDecoder(body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("decode graph message: %w", err)
	}

	receivedAt, err := time.Parse(time.RFC3339, msg.ReceivedDateTime)
	if err != nil {
		receivedAt = time.Now().UTC()
	}

	contentType := "text"
	if strings.EqualFold(msg.Body.ContentType, "html") {
		contentType = "html"
	}

	return &models.EmailMessage{
		MessageID: msg.ID,
		Account:   account,
		From: models.EmailAddress{
			Address: msg.From.EmailAddress.Address,
			Name:    msg.From.EmailAddress.Name,
		},
		Subject: msg.Subject,
		Body: models.EmailBody{
			ContentType: contentType,
			Content:     msg.Body.Content,
		},
		ReceivedAt: receivedAt,
	}, nil
}
