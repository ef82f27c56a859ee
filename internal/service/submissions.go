// internal/service/submissions.go
package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"agency-crm/internal/activity"
	"agency-crm/internal/common/database"
	apperrors "agency-crm/internal/common/errors"
	"agency-crm/internal/common/logger"
	"agency-crm/internal/common/metrics"
	"agency-crm/internal/common/validation"
	"agency-crm/internal/models"
	"agency-crm/internal/notify"
	"agency-crm/internal/repository"
	"agency-crm/internal/workflow"
)

// SubmissionService owns the intake pipeline: public submission, tracking,
// and the staff-driven stage transitions up to conversion.
type SubmissionService struct {
	db          *sql.DB
	submissions *repository.SubmissionRepo
	clients     *repository.ClientRepo
	documents   *repository.DocumentRepo
	notifier    *notify.Service
	recorder    *activity.Recorder
	log         logger.Logger
}

func NewSubmissionService(
	db *sql.DB,
	submissions *repository.SubmissionRepo,
	clients *repository.ClientRepo,
	documents *repository.DocumentRepo,
	notifier *notify.Service,
	recorder *activity.Recorder,
	log logger.Logger,
) *SubmissionService {
	return &SubmissionService{
		db:          db,
		submissions: submissions,
		clients:     clients,
		documents:   documents,
		notifier:    notifier,
		recorder:    recorder,
		log:         log,
	}
}

// CreateInput is the public intake form payload.
type CreateInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Service string `json:"service"`
	Message string `json:"message"`
	Source  string `json:"source"`
}

// Create accepts a public form submission and starts it at
// pending_validation.
func (s *SubmissionService) Create(ctx context.Context, in CreateInput, clientIP, userAgent string) (*models.Submission, error) {
	result := validation.ValidateInput(map[string]interface{}{
		"name":    in.Name,
		"email":   in.Email,
		"phone":   in.Phone,
		"service": in.Service,
		"message": in.Message,
		"source":  in.Source,
	}, validation.SubmissionSchema)
	if !result.Valid {
		msgs := result.GetErrorMessages()
		detail := ""
		if len(msgs) > 0 {
			detail = msgs[0]
		}
		return nil, apperrors.NewValidationError("Invalid submission", detail)
	}

	now := time.Now().UTC()
	sub := &models.Submission{
		ID:             uuid.NewString(),
		Name:           in.Name,
		Email:          in.Email,
		Phone:          in.Phone,
		Service:        in.Service,
		Message:        in.Message,
		Status:         models.SubmissionStatusNew,
		Source:         in.Source,
		WorkflowStatus: models.StagePendingValidation,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.submissions.Create(ctx, sub); err != nil {
		return nil, apperrors.FromError(err)
	}

	s.notifier.SubmissionReceived(ctx, sub)
	s.recorder.Record(ctx, activity.Entry{
		Action:     models.ActionSubmissionCreated,
		EntityType: "submission",
		EntityID:   sub.ID,
		IPAddress:  clientIP,
		UserAgent:  userAgent,
	})

	return sub, nil
}

// TrackStatus is the public status view: stage and coarse progress only,
// never staff fields.
type TrackStatus struct {
	SubmissionID   string                `json:"submissionId"`
	Name           string                `json:"name"`
	Service        string                `json:"service"`
	WorkflowStatus models.WorkflowStatus `json:"workflowStatus"`
	SubmittedAt    time.Time             `json:"submittedAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
	Documents      TrackDocumentStats    `json:"documentStats"`
}

// TrackDocumentStats is the applicant-visible slice of the document counts.
type TrackDocumentStats struct {
	Total    int `json:"total"`
	Verified int `json:"verified"`
}

// Track looks up the most recent submission by phone or email.
func (s *SubmissionService) Track(ctx context.Context, phone, email string) (*TrackStatus, error) {
	if phone == "" && email == "" {
		return nil, apperrors.NewValidationError("Phone or email is required", "")
	}

	sub, err := s.submissions.FindByContact(ctx, phone, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("Submission", "no submission matches the given contact")
		}
		return nil, apperrors.FromError(err)
	}

	stats, err := s.documents.Stats(ctx, sub.ID)
	if err != nil {
		return nil, apperrors.FromError(err)
	}

	return &TrackStatus{
		SubmissionID:   sub.ID,
		Name:           sub.Name,
		Service:        sub.Service,
		WorkflowStatus: sub.WorkflowStatus,
		SubmittedAt:    sub.CreatedAt,
		UpdatedAt:      sub.UpdatedAt,
		Documents: TrackDocumentStats{
			Total:    stats.Total,
			Verified: stats.Verified,
		},
	}, nil
}

func (s *SubmissionService) Get(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("Submission", id)
		}
		return nil, apperrors.FromError(err)
	}
	return sub, nil
}

func (s *SubmissionService) List(ctx context.Context, stage string, limit, offset int) ([]*models.Submission, error) {
	subs, err := s.submissions.List(ctx, stage, limit, offset)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	return subs, nil
}

// Validate advances pending_validation -> validated.
func (s *SubmissionService) Validate(ctx context.Context, id, actorID string) (*models.Submission, error) {
	ok, err := s.submissions.MarkValidated(ctx, id, actorID, time.Now().UTC())
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	if !ok {
		return nil, s.transitionConflict(ctx, id, workflow.ActionValidate)
	}

	metrics.WorkflowTransitionsTotal.WithLabelValues(string(workflow.ActionValidate), "ok").Inc()
	s.recorder.Record(ctx, activity.Entry{
		UserID:     actorID,
		Action:     models.ActionSubmissionValidated,
		EntityType: "submission",
		EntityID:   id,
	})

	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifier.SubmissionValidated(sub)
	return sub, nil
}

// ConfirmCall advances validated -> call_confirmed with optional call notes.
func (s *SubmissionService) ConfirmCall(ctx context.Context, id, actorID, notes string) (*models.Submission, error) {
	ok, err := s.submissions.MarkCallConfirmed(ctx, id, actorID, notes, time.Now().UTC())
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	if !ok {
		return nil, s.transitionConflict(ctx, id, workflow.ActionConfirmCall)
	}

	metrics.WorkflowTransitionsTotal.WithLabelValues(string(workflow.ActionConfirmCall), "ok").Inc()
	s.recorder.Record(ctx, activity.Entry{
		UserID:     actorID,
		Action:     models.ActionSubmissionCallConfirm,
		EntityType: "submission",
		EntityID:   id,
	})

	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifier.CallConfirmed(sub, notes)
	return sub, nil
}

// ConvertToClient creates the client record and flips the submission in one
// transaction. The conditional update inside the transaction makes a second
// conversion lose regardless of interleaving.
func (s *SubmissionService) ConvertToClient(ctx context.Context, id, actorID string) (*models.Client, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.ConvertedToClient {
		return nil, apperrors.NewConflictError("Submission already converted", id)
	}

	now := time.Now().UTC()
	client := &models.Client{
		ID:           uuid.NewString(),
		SubmissionID: sub.ID,
		Name:         sub.Name,
		Email:        sub.Email,
		Phone:        sub.Phone,
		Service:      sub.Service,
		Message:      sub.Message,
		Status:       models.ClientStatusNew,
		AssignedTo:   actorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = database.WithinTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.clients.CreateTx(ctx, tx, client); err != nil {
			return err
		}
		ok, err := s.submissions.MarkConvertedTx(ctx, tx, sub.ID, client.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewConflictError(
				"Submission is not ready for conversion",
				"expected stage documents_verified",
			)
		}
		return nil
	})
	if err != nil {
		metrics.WorkflowTransitionsTotal.WithLabelValues(string(workflow.ActionConvertToClient), "conflict").Inc()
		return nil, apperrors.FromError(err)
	}

	metrics.WorkflowTransitionsTotal.WithLabelValues(string(workflow.ActionConvertToClient), "ok").Inc()
	s.notifier.SubmissionConverted(ctx, sub, client.ID)
	s.recorder.Record(ctx, activity.Entry{
		UserID:     actorID,
		Action:     models.ActionSubmissionConverted,
		EntityType: "submission",
		EntityID:   sub.ID,
		Details:    map[string]interface{}{"clientId": client.ID},
	})
	return client, nil
}

// Delete removes a submission and its dependent links and documents.
func (s *SubmissionService) Delete(ctx context.Context, id, actorID string) error {
	ok, err := s.submissions.Delete(ctx, id)
	if err != nil {
		return apperrors.FromError(err)
	}
	if !ok {
		return apperrors.NewNotFoundError("Submission", id)
	}

	s.recorder.Record(ctx, activity.Entry{
		UserID:     actorID,
		Action:     models.ActionSubmissionDeleted,
		EntityType: "submission",
		EntityID:   id,
	})
	return nil
}

// transitionConflict re-reads the submission to produce a precise conflict
// error after a conditional update affected zero rows.
func (s *SubmissionService) transitionConflict(ctx context.Context, id string, action workflow.Action) error {
	metrics.WorkflowTransitionsTotal.WithLabelValues(string(action), "conflict").Inc()

	sub, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFoundError("Submission", id)
		}
		return apperrors.FromError(err)
	}

	if _, err := workflow.Next(sub.WorkflowStatus, action); err != nil {
		return err
	}
	// The stage was legal on re-read, so a concurrent caller won the race.
	return apperrors.NewConflictError("Submission was modified concurrently", id)
}
