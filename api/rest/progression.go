package rest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/questforge/server/audit"
	"github.com/questforge/server/config"
	"github.com/questforge/server/game/progression"
	mw "github.com/questforge/server/middleware"
	"github.com/questforge/server/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProgressionHandler handles the quest lifecycle REST endpoints.
type ProgressionHandler struct {
	db    *gorm.DB
	co    *progression.Coordinator
	game  config.GameConfig
	audit *audit.Service
}

// NewProgressionHandler creates a new ProgressionHandler.
func NewProgressionHandler(db *gorm.DB, co *progression.Coordinator, game config.GameConfig, auditSvc *audit.Service) *ProgressionHandler {
	return &ProgressionHandler{db: db, co: co, game: game, audit: auditSvc}
}

// Start handles POST /api/quests/:id/start.
func (h *ProgressionHandler) Start(c *gin.Context) {
	userID, questID, ok := h.ids(c)
	if !ok {
		return
	}
	started := time.Now()
	p, err := h.co.StartQuest(c.Request.Context(), userID, questID)
	h.log(c, "quest.start", userID, questID, p, err, started)
	if err != nil {
		writeProgressionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

type submitRequest struct {
	Type          string         `json:"type" binding:"omitempty,oneof=photo video text checklist"`
	Caption       string         `json:"caption" binding:"max=500"`
	Privacy       string         `json:"privacy" binding:"omitempty,oneof=public friends private"`
	MediaRef      string         `json:"media_ref" binding:"max=255"`
	ChecklistData map[string]any `json:"checklist_data"`
	Metadata      map[string]any `json:"metadata"`
}

// Submit handles POST /api/quests/:id/submit. It records the proof
// submission and moves the run to SUBMITTED; with auto-approval on, the
// run completes in the same action and the response carries rewards.
func (h *ProgressionHandler) Submit(c *gin.Context) {
	userID, questID, ok := h.ids(c)
	if !ok {
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub := model.Submission{
		UserID:   userID,
		QuestID:  questID,
		Type:     req.Type,
		Caption:  req.Caption,
		Privacy:  req.Privacy,
		MediaRef: req.MediaRef,
		Status:   model.SubmissionPending,
	}
	if sub.Type == "" {
		sub.Type = "photo"
	}
	if sub.Privacy == "" {
		sub.Privacy = "public"
	}
	if req.ChecklistData != nil {
		raw, _ := json.Marshal(req.ChecklistData)
		sub.ChecklistData = datatypes.JSON(raw)
	}
	if req.Metadata != nil {
		raw, _ := json.Marshal(req.Metadata)
		sub.Metadata = datatypes.JSON(raw)
	}
	if h.game.AutoApproveSubmits {
		now := time.Now()
		sub.Status = model.SubmissionApproved
		sub.ReviewedAt = &now
	}
	if err := h.db.Create(&sub).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	started := time.Now()
	res, err := h.co.SubmitQuest(c.Request.Context(), userID, questID, sub.ID)
	h.log(c, "quest.submit", userID, questID, res, err, started)
	if err != nil {
		writeProgressionError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Complete handles POST /api/quests/:id/complete.
func (h *ProgressionHandler) Complete(c *gin.Context) {
	userID, questID, ok := h.ids(c)
	if !ok {
		return
	}
	started := time.Now()
	res, err := h.co.CompleteQuest(c.Request.Context(), userID, questID)
	h.log(c, "quest.complete", userID, questID, res, err, started)
	if err != nil {
		writeProgressionError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Abandon handles POST /api/quests/:id/abandon.
func (h *ProgressionHandler) Abandon(c *gin.Context) {
	userID, questID, ok := h.ids(c)
	if !ok {
		return
	}
	started := time.Now()
	p, err := h.co.AbandonQuest(c.Request.Context(), userID, questID)
	h.log(c, "quest.abandon", userID, questID, p, err, started)
	if err != nil {
		writeProgressionError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Progress handles GET /api/quests/:id/progress.
func (h *ProgressionHandler) Progress(c *gin.Context) {
	userID, questID, ok := h.ids(c)
	if !ok {
		return
	}
	view, err := h.co.GetProgress(c.Request.Context(), userID, questID)
	if err != nil {
		writeProgressionError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ProgressionHandler) ids(c *gin.Context) (userID, questID int64, ok bool) {
	userID = mw.GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, 0, false
	}
	questID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, 0, false
	}
	return userID, questID, true
}

func (h *ProgressionHandler) log(c *gin.Context, action string, userID, questID int64, resp interface{}, err error, started time.Time) {
	if h.audit == nil {
		return
	}
	entry := audit.Entry{
		TraceID:    mw.GetTraceID(c),
		UserID:     &userID,
		Action:     action,
		Request:    map[string]int64{"quest_id": questID},
		Response:   resp,
		IP:         c.ClientIP(),
		DurationMs: int(time.Since(started).Milliseconds()),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	h.audit.Log(entry)
}
