// internal/api/handlers_clients.go
package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "agency-crm/internal/common/errors"
	"agency-crm/internal/models"
)

// actorUser loads the full user record behind the session claims. Client
// ownership checks need the role and id together.
func (s *Server) actorUser(r *http.Request) (*models.User, error) {
	claims := claimsFrom(r.Context())
	if claims == nil {
		return nil, apperrors.NewForbiddenError("no session")
	}
	u, err := s.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewForbiddenError("unknown user")
		}
		return nil, apperrors.FromError(err)
	}
	if !u.IsActive {
		return nil, apperrors.NewForbiddenError("account disabled")
	}
	return u, nil
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorUser(r)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	clients, err := s.clients.List(r.Context(), actor, limit, offset)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusOK, clients)
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actorUser(r)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}

	client, err := s.clients.Get(r.Context(), chi.URLParam(r, "id"), actor)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusOK, client)
}

func (s *Server) handleAddClientNote(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}

	actor, err := s.actorUser(r)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}

	note, err := s.clients.AddNote(r.Context(), chi.URLParam(r, "id"), in.Content, actor)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusCreated, note)
}
