// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/efchatnet/ghostnet/backend/conversation"
	"github.com/efchatnet/ghostnet/backend/middleware"
	"github.com/efchatnet/ghostnet/backend/models"
)

// maxBodyBytes caps request bodies. A maximal message may double in size
// once JSON escaped.
const maxBodyBytes = 2*conversation.MaxMessageLength + 16<<10

type RoomHandler struct {
	svc *conversation.Service
}

func NewRoomHandler(svc *conversation.Service) *RoomHandler {
	return &RoomHandler{svc: svc}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// serviceError maps conversation errors onto status codes. Store details
// stay in the log.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conversation.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, conversation.ErrNotFound):
		http.Error(w, "Room not found", http.StatusNotFound)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Debugf("Request abandoned: %v", err)
		http.Error(w, "Request cancelled", http.StatusRequestTimeout)
	case errors.Is(err, conversation.ErrStoreUnavailable):
		log.Errorf("Store error: %v", err)
		http.Error(w, "Store unavailable", http.StatusServiceUnavailable)
	default:
		log.Errorf("Request failed: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

// decodeBody reads a JSON body of at most maxBodyBytes into v. On failure
// it writes the response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return false
	}
	http.Error(w, "Invalid request body", http.StatusBadRequest)
	return false
}

func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		TTLHours int    `json:"ttl_hours"`
		Nick     string `json:"nick"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	room, err := h.svc.CreateRoom(r.Context(), req.Name, req.TTLHours, req.Nick)
	if err != nil {
		serviceError(w, err)
		return
	}

	if userID, ok := middleware.GetUserID(r); ok {
		log.Debugf("User %s created room %s", userID, room.RoomID)
	}

	writeJSON(w, http.StatusCreated, room)
}

func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	rooms, err := h.svc.ListRooms(r.Context(), limit)
	if err != nil {
		serviceError(w, err)
		return
	}
	if rooms == nil {
		rooms = []models.Room{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rooms": rooms,
	})
}

func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	room, err := h.svc.GetRoom(r.Context(), roomID)
	if err != nil {
		serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, room)
}
