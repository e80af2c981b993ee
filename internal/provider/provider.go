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

// Package provider defines the uniform email source capability the sync
// job consumes. Each provider adapter (Gmail, Microsoft Graph, IMAP)
// normalises its wire format into models.EmailMessage.
package provider

import (
	"context"
	"time"

	"github.com/bcem/inboxactions/internal/models"
)

// Source fetches recent messages from one connected mailbox.
type Source interface {
	// FetchSince returns up to max messages received at or after since,
	// newest first. A provider hiccup on a single message is logged and
	// skipped, not fatal to the batch.
	FetchSince(ctx context.Context, since time.Time, max int) ([]models.EmailMessage, error)
}
