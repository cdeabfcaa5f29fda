// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/efchatnet/ghostnet/backend/conversation"
	"github.com/efchatnet/ghostnet/backend/middleware"
)

type MessageHandler struct {
	svc *conversation.Service
}

func NewMessageHandler(svc *conversation.Service) *MessageHandler {
	return &MessageHandler{svc: svc}
}

// SendMessage seals and stores a message. The passphrase travels in the
// body and is dropped once the key is derived.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	var req struct {
		Nick       string `json:"nick"`
		Text       string `json:"text"`
		Passphrase string `json:"passphrase"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	msg, err := h.svc.SendToRoom(r.Context(), roomID, req.Nick, req.Text, req.Passphrase)
	if err != nil {
		serviceError(w, err)
		return
	}

	if claims, ok := middleware.GetClaims(r); ok {
		log.Debugf("User %s (%s) sent %s to room %s", claims.User(), claims.Username, msg.EntityKey, roomID)
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"room_id":      msg.RoomID,
		"entity_key":   msg.EntityKey,
		"confirmation": msg.Confirmation,
		"status":       "sent",
	})
}

// ReadMessages is a POST so the passphrase never appears in a URL.
func (h *MessageHandler) ReadMessages(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]

	var req struct {
		Passphrase string `json:"passphrase"`
		Limit      int    `json:"limit"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if _, err := h.svc.GetRoom(r.Context(), roomID); err != nil {
		serviceError(w, err)
		return
	}

	msgs, err := h.svc.ReadMessages(r.Context(), roomID, req.Passphrase, req.Limit)
	if err != nil {
		serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"room_id":  roomID,
		"messages": msgs,
	})
}
