package step

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "credentia/pkg/domain-errors"
)

func TestTransitions(t *testing.T) {
	legal := []struct {
		from, to Status
	}{
		{StatusPending, StatusInProgress},
		{StatusPending, StatusCompleted},
		{StatusPending, StatusSkipped},
		{StatusInProgress, StatusCompleted},
		{StatusInProgress, StatusCorrectionNeeded},
		{StatusCompleted, StatusApproved},
		{StatusCompleted, StatusCorrectionNeeded},
		{StatusCompleted, StatusPending},
		{StatusCorrectionNeeded, StatusCompleted},
		{StatusCompleted, StatusCancelled},
	}
	for _, tc := range legal {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}

	illegal := []struct {
		from, to Status
	}{
		{StatusApproved, StatusCompleted},
		{StatusCancelled, StatusInProgress},
		{StatusRejected, StatusPending},
		{StatusPending, StatusApproved},
		{StatusSkipped, StatusInProgress},
	}
	for _, tc := range illegal {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be illegal", tc.from, tc.to)
	}
}

func TestStepTransition(t *testing.T) {
	s := &Step{Type: TypeConversation, Status: StatusPending}
	require.NoError(t, s.Transition(StatusInProgress))
	require.NoError(t, s.Transition(StatusCompleted))

	err := s.Transition(StatusInProgress)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.Equal(t, StatusCompleted, s.Status)
}

func TestCanonicalOrder(t *testing.T) {
	assert.True(t, TypeConversation.Before(TypeProfessionalData))
	assert.True(t, TypeDocumentReview.Before(TypeSupervisorReview))
	assert.True(t, TypeSupervisorReview.Before(TypePaymentInfo))
	assert.False(t, TypeClientValidation.Before(TypeConversation))
}

func TestRequestable(t *testing.T) {
	for _, stepType := range CanonicalOrder {
		if stepType == TypeSupervisorReview {
			assert.False(t, stepType.Requestable())
			continue
		}
		assert.True(t, stepType.Requestable())
	}
	assert.False(t, Type("UNKNOWN").Requestable())
}

func TestCurrentStep(t *testing.T) {
	steps := []*Step{
		{Type: TypeDocumentUpload, Status: StatusPending},
		{Type: TypeConversation, Status: StatusCompleted},
		{Type: TypeProfessionalData, Status: StatusCompleted},
	}

	current := CurrentStep(steps)
	require.NotNil(t, current)
	assert.Equal(t, TypeDocumentUpload, current.Type)

	t.Run("nil when every step is settled", func(t *testing.T) {
		steps := []*Step{
			{Type: TypeConversation, Status: StatusCompleted},
			{Type: TypePaymentInfo, Status: StatusSkipped},
		}
		assert.Nil(t, CurrentStep(steps))
	})

	t.Run("supervisor review slots in before payment info", func(t *testing.T) {
		steps := []*Step{
			{Type: TypePaymentInfo, Status: StatusPending},
			{Type: TypeSupervisorReview, Status: StatusPending},
			{Type: TypeDocumentReview, Status: StatusCompleted},
		}
		current := CurrentStep(steps)
		require.NotNil(t, current)
		assert.Equal(t, TypeSupervisorReview, current.Type)
	})
}
