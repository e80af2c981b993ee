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

// Package api exposes the persisted actions over HTTP: listing by status,
// status updates, deletion, and summary counts. The user is identified by
// the X-User-ID header; there is no session layer in front of this service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/bcem/inboxactions/internal/store"
)

// ActionStore is the persistence interface the API needs.
// Implemented by store.Store.
type ActionStore interface {
	ListByUser(ctx context.Context, userID, status string) ([]store.Record, error)
	Get(ctx context.Context, id int64) (*store.Record, error)
	UpdateStatus(ctx context.Context, userID string, id int64, status string) (bool, error)
	Delete(ctx context.Context, userID string, id int64) (bool, error)
	CountByStatus(ctx context.Context, userID string) (map[string]int, error)
}

// Handler serves the actions API.
type Handler struct {
	store ActionStore
}

// NewHandler creates an actions API handler.
func NewHandler(store ActionStore) *Handler {
	return &Handler{store: store}
}

type errorResponse struct {
	Error string `json:"error"`
}

type statusUpdate struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// userID extracts the acting user from the request.
func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-ID"))
}

// ServeActions routes /actions and /actions/{id}.
func (h *Handler) ServeActions(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		writeError(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/actions"), "/")

	if rest == "" {
		switch r.Method {
		case http.MethodGet:
			h.listActions(w, r, user)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid action id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getAction(w, r, user, id)
	case http.MethodPatch:
		h.updateAction(w, r, user, id)
	case http.MethodDelete:
		h.deleteAction(w, r, user, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// listActions returns the user's actions, optionally filtered by
// ?status=todo|done|ignored, newest email first.
func (h *Handler) listActions(w http.ResponseWriter, r *http.Request, user string) {
	status := r.URL.Query().Get("status")
	if status != "" && !store.ValidStatus(status) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", status))
		return
	}

	records, err := h.store.ListByUser(r.Context(), user, status)
	if err != nil {
		slog.Error("list actions failed", "user", user, "error", err)
		writeError(w, http.StatusInternalServerError, "list actions failed")
		return
	}

	if records == nil {
		records = []store.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) getAction(w http.ResponseWriter, r *http.Request, user string, id int64) {
	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		slog.Error("get action failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "get action failed")
		return
	}
	if rec == nil || rec.UserID != user {
		writeError(w, http.StatusNotFound, "action not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// updateAction moves an action between todo, done, and ignored.
func (h *Handler) updateAction(w http.ResponseWriter, r *http.Request, user string, id int64) {
	var update statusUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !store.ValidStatus(update.Status) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", update.Status))
		return
	}

	updated, err := h.store.UpdateStatus(r.Context(), user, id, update.Status)
	if err != nil {
		slog.Error("update action failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "update action failed")
		return
	}
	if !updated {
		writeError(w, http.StatusNotFound, "action not found")
		return
	}

	slog.Info("action status updated", "user", user, "id", id, "status", update.Status)
	writeJSON(w, http.StatusOK, map[string]string{"status": update.Status})
}

func (h *Handler) deleteAction(w http.ResponseWriter, r *http.Request, user string, id int64) {
	deleted, err := h.store.Delete(r.Context(), user, id)
	if err != nil {
		slog.Error("delete action failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "delete action failed")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "action not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeSummary returns per-status counts for the acting user.
func (h *Handler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	user := userID(r)
	if user == "" {
		writeError(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}

	counts, err := h.store.CountByStatus(r.Context(), user)
	if err != nil {
		slog.Error("summary failed", "user", user, "error", err)
		writeError(w, http.StatusInternalServerError, "summary failed")
		return
	}

	// Absent statuses come back as explicit zeros.
	summary := map[string]int{
		store.StatusTodo:    0,
		store.StatusDone:    0,
		store.StatusIgnored: 0,
	}
	for status, n := range counts {
		summary[status] = n
	}
	writeJSON(w, http.StatusOK, summary)
}

// ServeHealth reports liveness.
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// Serve starts the actions API server on the given port.
// It binds the port immediately and signals readiness via the returned channel
// before starting to accept connections.
func Serve(ctx context.Context, port int, handler *Handler) (<-chan struct{}, error) {
	mux := http.NewServeMux()

	mux.HandleFunc("/actions", handler.ServeActions)
	mux.HandleFunc("/actions/", handler.ServeActions)
	mux.HandleFunc("/summary", handler.ServeSummary)
	mux.HandleFunc("/health", handler.ServeHealth)

	server := &http.Server{
		Handler: mux,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("bind API port %d: %w", port, err)
	}

	ready := make(chan struct{})

	go func() {
		<-ctx.Done()
		slog.Info("API server shutting down")
		server.Close()
	}()

	go func() {
		slog.Info("API server listening", "port", port)
		close(ready)
		if err := server.Serve(ln); err != http.ErrServerClosed {
			slog.Error("API server error", "error", err)
		}
	}()

	return ready, nil
}
