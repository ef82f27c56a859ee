package workflow

import (
	"testing"

	apperrors "agency-crm/internal/common/errors"
	"agency-crm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext_HappyPath(t *testing.T) {
	steps := []struct {
		current models.WorkflowStatus
		action  Action
		want    models.WorkflowStatus
	}{
		{models.StagePendingValidation, ActionValidate, models.StageValidated},
		{models.StageValidated, ActionConfirmCall, models.StageCallConfirmed},
		{models.StageCallConfirmed, ActionGeneratePaymentLink, models.StagePaymentRequested},
		{models.StagePaymentRequested, ActionUploadReceipt, models.StagePaymentUploaded},
		{models.StagePaymentUploaded, ActionConfirmPayment, models.StagePaymentConfirmed},
		{models.StagePaymentConfirmed, ActionGenerateDocumentLink, models.StageDocumentsRequested},
		{models.StageDocumentsRequested, ActionUploadDocuments, models.StageDocumentsUploaded},
		{models.StageDocumentsUploaded, ActionVerifyDocuments, models.StageDocumentsVerified},
		{models.StageDocumentsVerified, ActionConvertToClient, models.StageConvertedToClient},
	}

	for _, step := range steps {
		t.Run(string(step.action), func(t *testing.T) {
			got, err := Next(step.current, step.action)
			require.NoError(t, err)
			assert.Equal(t, step.want, got)
		})
	}
}

func TestNext_OutOfOrderRejected(t *testing.T) {
	tests := []struct {
		name    string
		current models.WorkflowStatus
		action  Action
	}{
		{"validate twice", models.StageValidated, ActionValidate},
		{"convert before documents verified", models.StageDocumentsUploaded, ActionConvertToClient},
		{"confirm payment before receipt", models.StagePaymentRequested, ActionConfirmPayment},
		{"payment link before call", models.StagePendingValidation, ActionGeneratePaymentLink},
		{"convert from terminal", models.StageConvertedToClient, ActionConvertToClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Next(tt.current, tt.action)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
		})
	}
}

func TestNext_ReuploadStaysInDocumentsUploaded(t *testing.T) {
	got, err := Next(models.StageDocumentsUploaded, ActionUploadDocuments)
	require.NoError(t, err)
	assert.Equal(t, models.StageDocumentsUploaded, got)
}

func TestNext_UnknownAction(t *testing.T) {
	_, err := Next(models.StagePendingValidation, Action("bogus"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestAllowedFrom(t *testing.T) {
	assert.Equal(t,
		[]models.WorkflowStatus{models.StagePendingValidation},
		AllowedFrom(ActionValidate),
	)
	assert.Len(t, AllowedFrom(ActionUploadDocuments), 2)
	assert.Nil(t, AllowedFrom(Action("bogus")))
}
