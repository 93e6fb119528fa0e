package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/killallgit/cognilink/pkg/avatar"
	"github.com/killallgit/cognilink/pkg/chat"
	"github.com/killallgit/cognilink/pkg/reconciler"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	provider := s.app.Provider()
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"provider": provider.Name(),
		"model":    provider.Model(),
	})
}

func (s *Server) listAvatars(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Avatars().List())
}

// createAvatarRequest creates from a description alone, or from a full definition
// when a name and prime directive are given
type createAvatarRequest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	PrimeDirective string   `json:"primeDirective"`
	ImageDataURI   string   `json:"imageDataUri"`
	Temperature    *float64 `json:"temperature"`
	WebAccess      bool     `json:"webAccess"`
}

func (req createAvatarRequest) isDefinition() bool {
	return strings.TrimSpace(req.Name) != "" || strings.TrimSpace(req.PrimeDirective) != ""
}

func (s *Server) createAvatar(w http.ResponseWriter, r *http.Request) {
	var req createAvatarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	var (
		created avatar.Avatar
		err     error
	)
	if req.isDefinition() {
		created, err = s.app.Avatars().CreateFromDefinition(r.Context(), avatar.Definition{
			Name:           req.Name,
			Description:    req.Description,
			PrimeDirective: req.PrimeDirective,
			ImageDataURI:   req.ImageDataURI,
			Temperature:    req.Temperature,
			WebAccess:      req.WebAccess,
		})
	} else {
		created, err = s.app.Avatars().Create(r.Context(), req.Description)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getAvatar(w http.ResponseWriter, r *http.Request) {
	found, err := s.app.Avatars().Get(mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

// avatarPatch holds the fields an edit may change; absent fields keep their value
type avatarPatch struct {
	Name           *string  `json:"name"`
	Description    *string  `json:"description"`
	PrimeDirective *string  `json:"primeDirective"`
	ImageDataURI   *string  `json:"imageDataUri"`
	Temperature    *float64 `json:"temperature"`
	WebAccess      *bool    `json:"webAccess"`
}

func (p avatarPatch) apply(a avatar.Avatar) avatar.Avatar {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.PrimeDirective != nil {
		a.PrimeDirective = *p.PrimeDirective
	}
	if p.ImageDataURI != nil {
		a.ImageDataURI = *p.ImageDataURI
	}
	if p.Temperature != nil {
		a.Temperature = *p.Temperature
	}
	if p.WebAccess != nil {
		a.WebAccess = *p.WebAccess
	}
	return a
}

func (s *Server) updateAvatar(w http.ResponseWriter, r *http.Request) {
	existing, err := s.app.Avatars().Get(mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var patch avatarPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	updated := patch.apply(existing)
	if err := s.app.Avatars().Update(r.Context(), updated); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteAvatar(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DeleteAvatar(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) selectAvatar(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Select(mux.Vars(r)["id"]); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.app.History(mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if history == nil {
		history = []chat.Message{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) clearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.app.ClearHistory(mux.Vars(r)["id"]); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sendMessageRequest struct {
	Text       string           `json:"text"`
	Attachment *chat.Attachment `json:"attachment"`
}

// sendMessage streams the reply as partial events followed by one final event.
// The exchange outlives a disconnected client so the reply is still persisted.
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Attachment != nil {
		if _, _, err := chat.ParseDataURI(req.Attachment.DataURI); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid attachment: %w", err))
			return
		}
	}

	events, err := newEventStream(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	_, err = s.app.Send(ctx, mux.Vars(r)["id"], req.Text, req.Attachment, events)
	switch {
	case err == nil:
	case errors.Is(err, reconciler.ErrAbandoned):
		// OnError already reported the abandonment on the open stream
	case !events.started:
		writeDomainError(w, err)
	default:
		events.OnError(err)
	}
}

func (s *Server) exportHistory(w http.ResponseWriter, r *http.Request) {
	fileName, markdown, err := s.app.Export(mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(markdown))
}
