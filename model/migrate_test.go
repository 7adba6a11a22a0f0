package model_test

import (
	"testing"
	"time"

	"github.com/questforge/server/model"
	"github.com/questforge/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	// User
	user := &model.User{Username: "test_user", PasswordHash: "hash", Status: 1}
	require.NoError(t, db.Create(user).Error)
	assert.Greater(t, user.ID, int64(0))

	var found model.User
	require.NoError(t, db.First(&found, user.ID).Error)
	assert.Equal(t, "test_user", found.Username)

	// Quest
	quest := &model.Quest{
		Title:        "Morning Run",
		Difficulty:   model.DifficultyEasy,
		State:        model.QuestAvailable,
		PointsReward: 50,
	}
	require.NoError(t, db.Create(quest).Error)
	assert.Greater(t, quest.ID, int64(0))

	// QuestProgress
	qp := &model.QuestProgress{
		UserID:    user.ID,
		QuestID:   quest.ID,
		Status:    model.ProgressInProgress,
		StartedAt: time.Now(),
	}
	require.NoError(t, db.Create(qp).Error)

	// UserStats
	stats := &model.UserStats{UserID: user.ID, TotalXP: 150, CurrentLevel: 2}
	require.NoError(t, db.Create(stats).Error)

	// Badge + UserBadge
	badge := &model.Badge{ID: "first-quest", Name: "First Quest", Rarity: model.RarityCommon}
	require.NoError(t, db.Create(badge).Error)
	ub := &model.UserBadge{UserID: user.ID, BadgeID: badge.ID}
	require.NoError(t, db.Create(ub).Error)

	// Submission
	sub := &model.Submission{UserID: user.ID, QuestID: quest.ID, Type: "photo", Caption: "done"}
	require.NoError(t, db.Create(sub).Error)

	// AuditLog
	al := &model.AuditLog{TraceID: "trace-001", Action: "quest_complete", CreatedAt: time.Now()}
	require.NoError(t, db.Create(al).Error)
}

func TestUserBadge_UniquePerUser(t *testing.T) {
	db := testutil.SetupTestDB(t)

	require.NoError(t, db.Create(&model.Badge{ID: "week-warrior", Name: "Week Warrior"}).Error)
	require.NoError(t, db.Create(&model.UserBadge{UserID: 7, BadgeID: "week-warrior"}).Error)

	err := db.Create(&model.UserBadge{UserID: 7, BadgeID: "week-warrior"}).Error
	assert.Error(t, err, "duplicate unlock must hit the unique index")
}
