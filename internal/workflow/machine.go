// internal/workflow/machine.go
package workflow

import (
	"fmt"

	apperrors "agency-crm/internal/common/errors"
	"agency-crm/internal/models"
)

// Action is a named workflow transition trigger.
type Action string

const (
	ActionValidate             Action = "validate"
	ActionConfirmCall          Action = "confirm_call"
	ActionGeneratePaymentLink  Action = "generate_payment_link"
	ActionUploadReceipt        Action = "upload_receipt"
	ActionConfirmPayment       Action = "confirm_payment"
	ActionGenerateDocumentLink Action = "generate_document_link"
	ActionUploadDocuments      Action = "upload_documents"
	ActionVerifyDocuments      Action = "verify_documents"
	ActionConvertToClient      Action = "convert_to_client"
)

// transition names the states an action may fire from and where it lands.
type transition struct {
	from []models.WorkflowStatus
	to   models.WorkflowStatus
}

// An action whose current state is not listed here is rejected, so stages
// can only ever move along this table.
var transitions = map[Action]transition{
	ActionValidate: {
		from: []models.WorkflowStatus{models.StagePendingValidation},
		to:   models.StageValidated,
	},
	ActionConfirmCall: {
		from: []models.WorkflowStatus{models.StageValidated},
		to:   models.StageCallConfirmed,
	},
	ActionGeneratePaymentLink: {
		from: []models.WorkflowStatus{models.StageCallConfirmed},
		to:   models.StagePaymentRequested,
	},
	ActionUploadReceipt: {
		from: []models.WorkflowStatus{models.StagePaymentRequested},
		to:   models.StagePaymentUploaded,
	},
	ActionConfirmPayment: {
		from: []models.WorkflowStatus{models.StagePaymentUploaded},
		to:   models.StagePaymentConfirmed,
	},
	ActionGenerateDocumentLink: {
		from: []models.WorkflowStatus{models.StagePaymentConfirmed},
		to:   models.StageDocumentsRequested,
	},
	// Re-uploads through a still-valid link stay in documents_uploaded; the
	// link, not the stage, gates admission.
	ActionUploadDocuments: {
		from: []models.WorkflowStatus{models.StageDocumentsRequested, models.StageDocumentsUploaded},
		to:   models.StageDocumentsUploaded,
	},
	ActionVerifyDocuments: {
		from: []models.WorkflowStatus{models.StageDocumentsUploaded},
		to:   models.StageDocumentsVerified,
	},
	ActionConvertToClient: {
		from: []models.WorkflowStatus{models.StageDocumentsVerified},
		to:   models.StageConvertedToClient,
	},
}

// Next returns the state the action leads to from current, or a ConflictError
// when the action is not legal from current.
func Next(current models.WorkflowStatus, action Action) (models.WorkflowStatus, error) {
	t, ok := transitions[action]
	if !ok {
		return "", apperrors.NewValidationError(
			"Unknown workflow action",
			fmt.Sprintf("action: %s", action),
		)
	}

	for _, from := range t.from {
		if from == current {
			return t.to, nil
		}
	}

	return "", apperrors.NewConflictError(
		fmt.Sprintf("Action %s is not allowed from stage %s", action, current),
		fmt.Sprintf("expected stage %v", statusNames(t.from)),
	)
}

// AllowedFrom returns the states the action may fire from. Repositories use
// it to build conditional updates so concurrent callers cannot both win.
func AllowedFrom(action Action) []models.WorkflowStatus {
	t, ok := transitions[action]
	if !ok {
		return nil
	}
	out := make([]models.WorkflowStatus, len(t.from))
	copy(out, t.from)
	return out
}

func statusNames(states []models.WorkflowStatus) []string {
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = string(s)
	}
	return names
}
