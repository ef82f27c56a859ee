// internal/api/handlers_notifications.go
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "agency-crm/internal/common/errors"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	unreadOnly := q.Get("unread") == "true"

	list, err := s.notifications.ListByRecipient(r.Context(), claims.UserID, unreadOnly, limit)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	unread, err := s.notifications.CountUnread(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": list,
		"unreadCount":   unread,
	})
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	ok, err := s.notifications.MarkRead(r.Context(), chi.URLParam(r, "id"), claims.UserID, time.Now().UTC())
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	if !ok {
		respondError(w, apperrors.NewNotFoundError("Notification", chi.URLParam(r, "id")), s.cfg.App.IsProduction(), s.log)
		return
	}
	respondMessage(w, http.StatusOK, "Notification marked read")
}

func (s *Server) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	n, err := s.notifications.MarkAllRead(r.Context(), claims.UserID, time.Now().UTC())
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"marked": n})
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	ok, err := s.notifications.Delete(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		respondError(w, err, s.cfg.App.IsProduction(), s.log)
		return
	}
	if !ok {
		respondError(w, apperrors.NewNotFoundError("Notification", chi.URLParam(r, "id")), s.cfg.App.IsProduction(), s.log)
		return
	}
	respondMessage(w, http.StatusOK, "Notification deleted")
}
