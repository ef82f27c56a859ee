// internal/notify/service.go
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"agency-crm/internal/common/config"
	"agency-crm/internal/common/logger"
	"agency-crm/internal/models"
	"agency-crm/internal/repository"
)

// Service raises staff notifications and applicant messages for workflow
// events. Everything here is best-effort: failures are logged and never
// propagate to the operation that raised the event.
type Service struct {
	users         *repository.UserRepo
	notifications *repository.NotificationRepo
	queue         *Queue
	cfg           *config.Config
	log           logger.Logger
}

func NewService(
	users *repository.UserRepo,
	notifications *repository.NotificationRepo,
	queue *Queue,
	cfg *config.Config,
	log logger.Logger,
) *Service {
	return &Service{
		users:         users,
		notifications: notifications,
		queue:         queue,
		cfg:           cfg,
		log:           log,
	}
}

// NotifyAdmins writes one notification row per active admin. Admins added
// after the event never receive it retroactively.
func (s *Service) NotifyAdmins(ctx context.Context, typ, title, message, link string, data map[string]interface{}) {
	adminIDs, err := s.users.ListAdminIDs(ctx)
	if err != nil {
		s.log.Error("admin fan-out recipient lookup failed", map[string]interface{}{
			"type":  typ,
			"error": err.Error(),
		})
		return
	}
	if len(adminIDs) == 0 {
		return
	}

	now := time.Now().UTC()
	batch := make([]*models.Notification, 0, len(adminIDs))
	for _, id := range adminIDs {
		batch = append(batch, &models.Notification{
			ID:          uuid.NewString(),
			RecipientID: id,
			Type:        typ,
			Title:       title,
			Message:     message,
			Link:        link,
			Data:        data,
			CreatedAt:   now,
		})
	}

	if err := s.notifications.InsertMany(ctx, batch); err != nil {
		s.log.Error("admin fan-out insert failed", map[string]interface{}{
			"type":       typ,
			"recipients": len(adminIDs),
			"error":      err.Error(),
		})
	}
}

// SendApplicantSMS queues an SMS to the applicant. The number is normalized
// before queueing so SNS sees E.164.
func (s *Service) SendApplicantSMS(phone, body string) {
	n := s.cfg.Notifications
	normalized := NormalizePhone(phone, n.HomeCountryCode, n.KnownCountryCodes)
	if normalized == "" {
		s.log.Warn("applicant sms skipped, unusable phone number", nil)
		return
	}
	s.queue.Enqueue(OutboundMessage{
		Channel: ChannelSMS,
		To:      normalized,
		Body:    body,
	})
}

// SendApplicantEmail queues an email to the applicant. No-op without an
// address; email is optional on submissions.
func (s *Service) SendApplicantEmail(to, subject, body string) {
	if to == "" {
		return
	}
	s.queue.Enqueue(OutboundMessage{
		Channel: ChannelEmail,
		To:      to,
		Subject: subject,
		Body:    body,
	})
}

// --- Event helpers: one per workflow event that fans out ---

func (s *Service) SubmissionReceived(ctx context.Context, sub *models.Submission) {
	s.NotifyAdmins(ctx,
		models.NotifyNewSubmission,
		"New submission",
		fmt.Sprintf("%s submitted a %s request", sub.Name, sub.Service),
		"/submissions/"+sub.ID,
		map[string]interface{}{"submissionId": sub.ID, "service": sub.Service},
	)

	body := fmt.Sprintf(
		"Hello %s, we received your %s request. Our team will review it and contact you shortly.",
		sub.Name, sub.Service,
	)
	s.SendApplicantSMS(sub.Phone, body)
	s.SendApplicantEmail(sub.Email, "Request received", body)
}

func (s *Service) SubmissionValidated(sub *models.Submission) {
	body := fmt.Sprintf(
		"Hello %s, your %s request has been reviewed and validated. We will call you to discuss the next steps.",
		sub.Name, sub.Service,
	)
	s.SendApplicantSMS(sub.Phone, body)
	s.SendApplicantEmail(sub.Email, "Request validated", body)
}

func (s *Service) CallConfirmed(sub *models.Submission, notes string) {
	body := fmt.Sprintf(
		"Hello %s, thank you for your call. Your %s request is moving forward.",
		sub.Name, sub.Service,
	)
	if notes != "" {
		body += " " + notes
	}
	s.SendApplicantSMS(sub.Phone, body)
	s.SendApplicantEmail(sub.Email, "Call confirmed", body)
}

func (s *Service) PaymentConfirmed(sub *models.Submission) {
	body := fmt.Sprintf(
		"Hello %s, your payment has been confirmed. We will send you a document upload link next.",
		sub.Name,
	)
	s.SendApplicantSMS(sub.Phone, body)
	s.SendApplicantEmail(sub.Email, "Payment confirmed", body)
}

func (s *Service) PaymentRejected(sub *models.Submission, reason string) {
	body := fmt.Sprintf(
		"Hello %s, your payment receipt could not be accepted: %s. We will contact you with a new payment link.",
		sub.Name, reason,
	)
	s.SendApplicantSMS(sub.Phone, body)
	s.SendApplicantEmail(sub.Email, "Payment receipt rejected", body)
}

func (s *Service) DocumentVerified(sub *models.Submission, doc *models.Document) {
	body := fmt.Sprintf(
		"Hello %s, your %s document has been verified.",
		sub.Name, doc.DocumentType,
	)
	s.SendApplicantSMS(sub.Phone, body)
	s.SendApplicantEmail(sub.Email, "Document verified", body)
}

func (s *Service) DocumentReplacementRequested(sub *models.Submission, doc *models.Document, reason string) {
	body := fmt.Sprintf(
		"Hello %s, your %s document needs to be replaced: %s. Please upload a new copy using your document link.",
		sub.Name, doc.DocumentType, reason,
	)
	s.SendApplicantSMS(sub.Phone, body)
	s.SendApplicantEmail(sub.Email, "Document replacement needed", body)
}

func (s *Service) PaymentLinkIssued(sub *models.Submission, link *models.PaymentLink) {
	url := s.cfg.Server.PublicBaseURL + "/pay/" + link.Token
	body := fmt.Sprintf(
		"Hello %s, please complete your payment of %.2f %s using this link: %s. The link expires on %s.",
		sub.Name, link.Amount, link.Currency, url, link.ExpiresAt.Format("2 Jan 2006"),
	)
	s.SendApplicantSMS(sub.Phone, body)
	s.SendApplicantEmail(sub.Email, "Payment request", body)
}

func (s *Service) ReceiptUploaded(ctx context.Context, sub *models.Submission, link *models.PaymentLink) {
	s.NotifyAdmins(ctx,
		models.NotifyReceiptUploaded,
		"Payment receipt uploaded",
		fmt.Sprintf("%s uploaded a payment receipt", sub.Name),
		"/submissions/"+sub.ID,
		map[string]interface{}{"submissionId": sub.ID, "paymentLinkId": link.ID},
	)
}

func (s *Service) DocumentLinkIssued(sub *models.Submission, link *models.DocumentLink) {
	url := s.cfg.Server.PublicBaseURL + "/upload/" + link.Token
	body := fmt.Sprintf(
		"Hello %s, please upload your documents using this link: %s. The link expires on %s.",
		sub.Name, url, link.ExpiresAt.Format("2 Jan 2006"),
	)
	s.SendApplicantSMS(sub.Phone, body)
	s.SendApplicantEmail(sub.Email, "Document upload request", body)
}

func (s *Service) DocumentsUploaded(ctx context.Context, sub *models.Submission, count int) {
	s.NotifyAdmins(ctx,
		models.NotifyDocumentsUploaded,
		"Documents uploaded",
		fmt.Sprintf("%s uploaded %d document(s)", sub.Name, count),
		"/submissions/"+sub.ID,
		map[string]interface{}{"submissionId": sub.ID, "count": count},
	)
}

func (s *Service) DocumentsVerified(ctx context.Context, sub *models.Submission) {
	s.NotifyAdmins(ctx,
		models.NotifyDocumentsVerified,
		"All documents verified",
		fmt.Sprintf("All documents for %s are verified", sub.Name),
		"/submissions/"+sub.ID,
		map[string]interface{}{"submissionId": sub.ID},
	)

	body := fmt.Sprintf(
		"Hello %s, all your documents have been verified. Your file is moving to the final step.",
		sub.Name,
	)
	s.SendApplicantSMS(sub.Phone, body)
	s.SendApplicantEmail(sub.Email, "All documents verified", body)
}

func (s *Service) SubmissionConverted(ctx context.Context, sub *models.Submission, clientID string) {
	s.NotifyAdmins(ctx,
		models.NotifySubmissionConverted,
		"Submission converted",
		fmt.Sprintf("%s is now a client", sub.Name),
		"/clients/"+clientID,
		map[string]interface{}{"submissionId": sub.ID, "clientId": clientID},
	)

	body := fmt.Sprintf(
		"Hello %s, welcome aboard. Your client file has been created and your assigned agent will follow up with you.",
		sub.Name,
	)
	s.SendApplicantSMS(sub.Phone, body)
	s.SendApplicantEmail(sub.Email, "Welcome", body)
}
