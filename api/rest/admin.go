package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/questforge/server/game/progression"
	"github.com/questforge/server/model"
	"github.com/questforge/server/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	db     *gorm.DB
	co     *progression.Coordinator
	sched  *scheduler.Scheduler
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(db *gorm.DB, co *progression.Coordinator, sched *scheduler.Scheduler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{db: db, co: co, sched: sched, logger: logger}
}

type questRequest struct {
	Title        string `json:"title" binding:"required,min=2,max=128"`
	Description  string `json:"description" binding:"max=2000"`
	Difficulty   string `json:"difficulty" binding:"omitempty,oneof=easy medium hard epic"`
	State        string `json:"state" binding:"omitempty,oneof=draft available archived"`
	PointsReward int    `json:"points_reward" binding:"required,min=1,max=100000"`
	TotalSteps   int    `json:"total_steps" binding:"omitempty,min=1,max=100"`
}

// CreateQuest handles POST /api/admin/quests.
func (h *AdminHandler) CreateQuest(c *gin.Context) {
	var req questRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	quest := model.Quest{
		Title:        req.Title,
		Description:  req.Description,
		Difficulty:   model.QuestDifficulty(req.Difficulty),
		State:        model.QuestState(req.State),
		PointsReward: req.PointsReward,
		TotalSteps:   req.TotalSteps,
	}
	if quest.Difficulty == "" {
		quest.Difficulty = model.DifficultyEasy
	}
	if quest.State == "" {
		quest.State = model.QuestDraft
	}
	if quest.TotalSteps == 0 {
		quest.TotalSteps = 1
	}
	if err := h.db.Create(&quest).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	h.logger.Info("quest created",
		zap.Int64("quest_id", quest.ID), zap.String("title", quest.Title))
	c.JSON(http.StatusCreated, quest)
}

// UpdateQuest handles PUT /api/admin/quests/:id. Publishing and archiving
// happen here by setting state.
func (h *AdminHandler) UpdateQuest(c *gin.Context) {
	questID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req questRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var quest model.Quest
	if err := h.db.First(&quest, questID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "quest not found"})
		return
	}

	updates := map[string]interface{}{
		"title":         req.Title,
		"description":   req.Description,
		"points_reward": req.PointsReward,
	}
	if req.Difficulty != "" {
		updates["difficulty"] = req.Difficulty
	}
	if req.State != "" {
		updates["state"] = req.State
	}
	if req.TotalSteps > 0 {
		updates["total_steps"] = req.TotalSteps
	}
	if err := h.db.Model(&quest).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, quest)
}

// ListSubmissions handles GET /api/admin/submissions?status=pending.
func (h *AdminHandler) ListSubmissions(c *gin.Context) {
	status := c.DefaultQuery("status", string(model.SubmissionPending))
	limit := 50
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 200 {
		limit = l
	}
	var subs []model.Submission
	if err := h.db.Where("status = ?", status).
		Order("created_at").Limit(limit).Find(&subs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs, "count": len(subs)})
}

type reviewRequest struct {
	Approve bool `json:"approve"`
}

// ReviewSubmission handles POST /api/admin/submissions/:id/review.
// Approving a submission completes the linked quest run when the user has
// already submitted it, so the reward lands without another user action.
func (h *AdminHandler) ReviewSubmission(c *gin.Context) {
	subID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var sub model.Submission
	if err := h.db.First(&sub, subID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
		return
	}
	if sub.Status != model.SubmissionPending {
		c.JSON(http.StatusBadRequest, gin.H{"error": "submission already reviewed"})
		return
	}

	status := model.SubmissionRejected
	if req.Approve {
		status = model.SubmissionApproved
	}
	now := time.Now()
	if err := h.db.Model(&sub).Updates(map[string]interface{}{
		"status":      status,
		"reviewed_at": now,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	sub.Status = status
	sub.ReviewedAt = &now

	resp := gin.H{"submission": sub}
	if req.Approve {
		var p model.QuestProgress
		err := h.db.Where("user_id = ? AND quest_id = ? AND status = ?",
			sub.UserID, sub.QuestID, model.ProgressSubmitted).First(&p).Error
		if err == nil && p.SubmissionID != nil && *p.SubmissionID == sub.ID {
			res, err := h.co.CompleteQuest(c.Request.Context(), sub.UserID, sub.QuestID)
			if err != nil {
				h.logger.Warn("completion after approval failed",
					zap.Int64("submission_id", sub.ID), zap.Error(err))
			} else {
				resp["completion"] = res
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}

// BanUser bans or unbans a user. POST /api/admin/users/:id/ban
func (h *AdminHandler) BanUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req struct {
		Ban bool `json:"ban"`
	}
	_ = c.ShouldBindJSON(&req)

	status := 1
	if req.Ban {
		status = 0
	}
	result := h.db.Model(&model.User{}).Where("id = ?", userID).Update("status", status)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": status})
}

// Metrics returns engine health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	var users, quests, pending int64
	var completions int64
	h.db.Model(&model.User{}).Count(&users)
	h.db.Model(&model.Quest{}).Where("state = ?", model.QuestAvailable).Count(&quests)
	h.db.Model(&model.Submission{}).Where("status = ?", model.SubmissionPending).Count(&pending)
	h.db.Model(&model.QuestProgress{}).Where("status = ?", model.ProgressCompleted).Count(&completions)
	c.JSON(http.StatusOK, gin.H{
		"users":               users,
		"available_quests":    quests,
		"pending_submissions": pending,
		"completions":         completions,
		"scheduler_jobs":      h.sched.Jobs(),
	})
}

// AdminAuth returns a middleware that checks the X-Admin-Key header.
// WARNING: if adminKey is empty all admin endpoints are disabled (503) so the
// server cannot be accidentally deployed without protection. Set a non-empty
// server.admin_key in config to enable admin routes.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		key := c.GetHeader("X-Admin-Key")
		if key != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
