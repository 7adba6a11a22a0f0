package progression

import (
	"testing"
	"time"

	"github.com/questforge/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func TestStart_NewRow(t *testing.T) {
	p, err := Start(nil, 1, 2, 3, now)
	require.NoError(t, err)
	assert.Equal(t, model.ProgressInProgress, p.Status)
	assert.Equal(t, int64(1), p.UserID)
	assert.Equal(t, int64(2), p.QuestID)
	assert.Equal(t, 3, p.TotalSteps)
	assert.Equal(t, now, p.StartedAt)
}

func TestStart_RestartAfterAbandon(t *testing.T) {
	at := now.Add(-time.Hour)
	subID := int64(9)
	existing := &model.QuestProgress{
		ID: 5, UserID: 1, QuestID: 2,
		Status:       model.ProgressAbandoned,
		CurrentStep:  2,
		AbandonedAt:  &at,
		SubmissionID: &subID,
	}
	p, err := Start(existing, 1, 2, 4, now)
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.ID, "restart reuses the row")
	assert.Equal(t, model.ProgressInProgress, p.Status)
	assert.Equal(t, 0, p.CurrentStep)
	assert.Nil(t, p.AbandonedAt)
	assert.Nil(t, p.SubmissionID)

	// Original left untouched.
	assert.Equal(t, model.ProgressAbandoned, existing.Status)
}

func TestStart_RejectsActiveStatuses(t *testing.T) {
	for _, status := range []model.ProgressStatus{
		model.ProgressInProgress,
		model.ProgressSubmitted,
		model.ProgressCompleted,
	} {
		_, err := Start(&model.QuestProgress{Status: status}, 1, 2, 1, now)
		assert.True(t, IsValidation(err), "start from %s", status)
	}
}

func TestSubmit(t *testing.T) {
	p, err := Submit(&model.QuestProgress{Status: model.ProgressInProgress}, now)
	require.NoError(t, err)
	assert.Equal(t, model.ProgressSubmitted, p.Status)
	require.NotNil(t, p.SubmittedAt)
	assert.Equal(t, now, *p.SubmittedAt)

	_, err = Submit(nil, now)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Submit(&model.QuestProgress{Status: model.ProgressCompleted}, now)
	assert.True(t, IsValidation(err))
}

func TestComplete_FromInProgressAndSubmitted(t *testing.T) {
	for _, status := range []model.ProgressStatus{
		model.ProgressInProgress,
		model.ProgressSubmitted,
	} {
		p, err := Complete(&model.QuestProgress{Status: status, TotalSteps: 3}, now)
		require.NoError(t, err, "complete from %s", status)
		assert.Equal(t, model.ProgressCompleted, p.Status)
		assert.Equal(t, 3, p.CurrentStep)
		require.NotNil(t, p.CompletedAt)
	}
}

func TestComplete_TerminalStatesRejected(t *testing.T) {
	_, err := Complete(&model.QuestProgress{Status: model.ProgressCompleted}, now)
	assert.True(t, IsValidation(err), "completed is terminal")

	_, err = Complete(&model.QuestProgress{Status: model.ProgressAbandoned}, now)
	assert.True(t, IsValidation(err))

	_, err = Complete(nil, now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAbandon(t *testing.T) {
	p, err := Abandon(&model.QuestProgress{Status: model.ProgressInProgress}, now)
	require.NoError(t, err)
	assert.Equal(t, model.ProgressAbandoned, p.Status)
	require.NotNil(t, p.AbandonedAt)

	_, err = Abandon(&model.QuestProgress{Status: model.ProgressSubmitted}, now)
	assert.True(t, IsValidation(err))

	_, err = Abandon(nil, now)
	assert.ErrorIs(t, err, ErrNotFound)
}
