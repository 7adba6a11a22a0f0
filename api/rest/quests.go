package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/questforge/server/model"
	"gorm.io/gorm"
)

// QuestHandler handles the public quest board REST endpoints.
type QuestHandler struct {
	db *gorm.DB
}

// NewQuestHandler creates a new QuestHandler.
func NewQuestHandler(db *gorm.DB) *QuestHandler {
	return &QuestHandler{db: db}
}

// List handles GET /api/quests?difficulty=easy&limit=20&offset=0.
// Only quests in the available state are listed.
func (h *QuestHandler) List(c *gin.Context) {
	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	offset := 0
	if o, err := strconv.Atoi(c.Query("offset")); err == nil && o >= 0 {
		offset = o
	}

	q := h.db.Model(&model.Quest{}).Where("state = ?", model.QuestAvailable)
	if d := c.Query("difficulty"); d != "" {
		q = q.Where("difficulty = ?", d)
	}

	var total int64
	q.Count(&total)

	var quests []model.Quest
	if err := q.Order("id").Limit(limit).Offset(offset).Find(&quests).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"quests": quests, "total": total})
}

// Detail handles GET /api/quests/:id. Draft quests are hidden.
func (h *QuestHandler) Detail(c *gin.Context) {
	questID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var quest model.Quest
	if err := h.db.First(&quest, questID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "quest not found"})
		return
	}
	if quest.State == model.QuestDraft {
		c.JSON(http.StatusNotFound, gin.H{"error": "quest not found"})
		return
	}
	c.JSON(http.StatusOK, quest)
}
