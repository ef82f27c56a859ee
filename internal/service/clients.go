// internal/service/clients.go
package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	apperrors "agency-crm/internal/common/errors"
	"agency-crm/internal/models"
	"agency-crm/internal/repository"
)

// ClientService reads converted clients and manages their notes.
type ClientService struct {
	clients *repository.ClientRepo
}

func NewClientService(clients *repository.ClientRepo) *ClientService {
	return &ClientService{clients: clients}
}

// Get returns the client with its notes. Agents only see their own clients;
// admins and viewers see all.
func (s *ClientService) Get(ctx context.Context, id string, actor *models.User) (*models.Client, error) {
	c, err := s.clients.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("Client", id)
		}
		return nil, apperrors.FromError(err)
	}
	if actor.Role == models.RoleAgent && c.AssignedTo != actor.ID {
		return nil, apperrors.NewForbiddenError("client is assigned to another agent")
	}
	return c, nil
}

func (s *ClientService) List(ctx context.Context, actor *models.User, limit, offset int) ([]*models.Client, error) {
	assignedTo := ""
	if actor.Role == models.RoleAgent {
		assignedTo = actor.ID
	}
	out, err := s.clients.List(ctx, assignedTo, limit, offset)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	return out, nil
}

// AddNote appends a dated note. Ownership is checked through Get.
func (s *ClientService) AddNote(ctx context.Context, clientID, content string, actor *models.User) (*models.ClientNote, error) {
	if content == "" {
		return nil, apperrors.NewValidationError("Note content is required", "")
	}
	if _, err := s.Get(ctx, clientID, actor); err != nil {
		return nil, err
	}

	note := &models.ClientNote{
		ID:       uuid.NewString(),
		ClientID: clientID,
		Content:  content,
		AddedBy:  actor.ID,
		AddedAt:  time.Now().UTC(),
	}
	if err := s.clients.AddNote(ctx, note); err != nil {
		return nil, apperrors.FromError(err)
	}
	return note, nil
}
