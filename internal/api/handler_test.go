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

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bcem/inboxactions/internal/store"
)

// mockActionStore implements ActionStore for testing.
type mockActionStore struct {
	records    []store.Record
	listStatus string
	updated    map[int64]string
	deleted    []int64
	counts     map[string]int
}

func newMockActionStore() *mockActionStore {
	return &mockActionStore{updated: make(map[int64]string)}
}

func (m *mockActionStore) ListByUser(_ context.Context, userID, status string) ([]store.Record, error) {
	m.listStatus = status
	var out []store.Record
	for _, rec := range m.records {
		if rec.UserID != userID {
			continue
		}
		if status != "" && rec.Status != status {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *mockActionStore) Get(_ context.Context, id int64) (*store.Record, error) {
	for _, rec := range m.records {
		if rec.ID == id {
			r := rec
			return &r, nil
		}
	}
	return nil, nil
}

func (m *mockActionStore) UpdateStatus(_ context.Context, userID string, id int64, status string) (bool, error) {
	for _, rec := range m.records {
		if rec.ID == id && rec.UserID == userID {
			m.updated[id] = status
			return true, nil
		}
	}
	return false, nil
}

func (m *mockActionStore) Delete(_ context.Context, userID string, id int64) (bool, error) {
	for _, rec := range m.records {
		if rec.ID == id && rec.UserID == userID {
			m.deleted = append(m.deleted, id)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockActionStore) CountByStatus(_ context.Context, _ string) (map[string]int, error) {
	if m.counts == nil {
		return map[string]int{}, nil
	}
	return m.counts, nil
}

func request(t *testing.T, h *Handler, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *strings.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	} else {
		rdr = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, rdr)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()

	switch {
	case strings.HasPrefix(path, "/actions"):
		h.ServeActions(w, req)
	case strings.HasPrefix(path, "/summary"):
		h.ServeSummary(w, req)
	default:
		h.ServeHealth(w, req)
	}
	return w
}

// TestListActions verifies listing and status filtering.
func TestListActions(t *testing.T) {
	ms := newMockActionStore()
	ms.records = []store.Record{
		{ID: 1, UserID: "u1", Title: "Valider le budget avec la compta", Type: "VALIDATE", Status: "todo"},
		{ID: 2, UserID: "u1", Title: "Appeler le client", Type: "CALL", Status: "done"},
		{ID: 3, UserID: "u2", Title: "Payer la facture", Type: "PAY", Status: "todo"},
	}
	h := NewHandler(ms)

	w := request(t, h, http.MethodGet, "/actions", "u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var got []store.Record
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2 (u1 only)", len(got))
	}

	// Status filter
	w = request(t, h, http.MethodGet, "/actions?status=todo", "u1", "")
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("filtered records = %+v, want only id 1", got)
	}

	// Unknown status filter rejected
	w = request(t, h, http.MethodGet, "/actions?status=archived", "u1", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unknown filter", w.Code)
	}
}

// TestListActions_EmptyIsArray verifies that no rows encodes as [] not null.
func TestListActions_EmptyIsArray(t *testing.T) {
	h := NewHandler(newMockActionStore())

	w := request(t, h, http.MethodGet, "/actions", "u1", "")
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

// TestGetAction verifies fetch by id and cross-user isolation.
func TestGetAction(t *testing.T) {
	ms := newMockActionStore()
	ms.records = []store.Record{
		{ID: 7, UserID: "u1", Title: "Relancer le fournisseur", Type: "FOLLOW_UP", Status: "todo"},
	}
	h := NewHandler(ms)

	w := request(t, h, http.MethodGet, "/actions/7", "u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var rec store.Record
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rec.Title != "Relancer le fournisseur" {
		t.Errorf("title = %q", rec.Title)
	}

	// Another user cannot see it.
	w = request(t, h, http.MethodGet, "/actions/7", "u2", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for other user", w.Code)
	}
}

// TestUpdateAction verifies status transitions and validation.
func TestUpdateAction(t *testing.T) {
	ms := newMockActionStore()
	ms.records = []store.Record{
		{ID: 4, UserID: "u1", Title: "Envoyer le rapport", Type: "SEND", Status: "todo"},
	}
	h := NewHandler(ms)

	w := request(t, h, http.MethodPatch, "/actions/4", "u1", `{"status":"done"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	if ms.updated[4] != "done" {
		t.Errorf("updated status = %q, want done", ms.updated[4])
	}

	// Unknown status rejected before hitting the store.
	w = request(t, h, http.MethodPatch, "/actions/4", "u1", `{"status":"snoozed"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unknown status", w.Code)
	}

	// Missing row is a 404.
	w = request(t, h, http.MethodPatch, "/actions/99", "u1", `{"status":"done"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for missing action", w.Code)
	}
}

// TestDeleteAction verifies deletion.
func TestDeleteAction(t *testing.T) {
	ms := newMockActionStore()
	ms.records = []store.Record{
		{ID: 5, UserID: "u1", Title: "Payer la facture", Type: "PAY", Status: "ignored"},
	}
	h := NewHandler(ms)

	w := request(t, h, http.MethodDelete, "/actions/5", "u1", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if len(ms.deleted) != 1 || ms.deleted[0] != 5 {
		t.Errorf("deleted = %v, want [5]", ms.deleted)
	}

	w = request(t, h, http.MethodDelete, "/actions/5", "u2", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for other user", w.Code)
	}
}

// TestSummary verifies per-status counts with explicit zeros.
func TestSummary(t *testing.T) {
	ms := newMockActionStore()
	ms.counts = map[string]int{"todo": 3, "done": 1}
	h := NewHandler(ms)

	w := request(t, h, http.MethodGet, "/summary", "u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var summary map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if summary["todo"] != 3 || summary["done"] != 1 || summary["ignored"] != 0 {
		t.Errorf("summary = %v", summary)
	}
	if _, ok := summary["ignored"]; !ok {
		t.Error("missing explicit zero for ignored")
	}
}

// TestMissingUserHeader verifies that the user header is required.
func TestMissingUserHeader(t *testing.T) {
	h := NewHandler(newMockActionStore())

	for _, path := range []string{"/actions", "/summary"} {
		w := request(t, h, http.MethodGet, path, "", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400 without X-User-ID", path, w.Code)
		}
	}
}

// TestInvalidActionID verifies id parsing.
func TestInvalidActionID(t *testing.T) {
	h := NewHandler(newMockActionStore())

	w := request(t, h, http.MethodGet, "/actions/abc", "u1", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for non-numeric id", w.Code)
	}
}

// TestHealth verifies the liveness endpoint.
func TestHealth(t *testing.T) {
	h := NewHandler(newMockActionStore())

	w := request(t, h, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}
