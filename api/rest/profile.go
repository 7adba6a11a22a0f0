package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/questforge/server/game/scoring"
	mw "github.com/questforge/server/middleware"
	"github.com/questforge/server/model"
	"gorm.io/gorm"
)

// ProfileHandler handles the authenticated user's profile endpoints.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

type badgeView struct {
	model.Badge
	UnlockedAt string `json:"unlocked_at"`
}

// Show handles GET /api/profile. It returns the user's aggregate stats,
// the XP still needed for the next level, and all unlocked badges.
func (h *ProfileHandler) Show(c *gin.Context) {
	userID := mw.GetUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var user model.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	var stats model.UserStats
	if err := h.db.First(&stats, "user_id = ?", userID).Error; err != nil {
		// No completions yet: report the zero aggregate.
		stats = model.UserStats{UserID: userID, CurrentLevel: 1}
	}

	var unlocks []model.UserBadge
	h.db.Where("user_id = ?", userID).Order("unlocked_at").Find(&unlocks)

	badges := make([]badgeView, 0, len(unlocks))
	if len(unlocks) > 0 {
		ids := make([]string, len(unlocks))
		for i, u := range unlocks {
			ids[i] = u.BadgeID
		}
		var catalog []model.Badge
		h.db.Where("id IN ?", ids).Find(&catalog)
		byID := make(map[string]model.Badge, len(catalog))
		for _, b := range catalog {
			byID[b.ID] = b
		}
		for _, u := range unlocks {
			if b, ok := byID[u.BadgeID]; ok {
				badges = append(badges, badgeView{
					Badge:      b,
					UnlockedAt: u.UnlockedAt.UTC().Format("2006-01-02T15:04:05Z"),
				})
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"user":       user,
		"stats":      stats,
		"xp_to_next": scoring.XPToNext(stats.TotalXP),
		"badges":     badges,
	})
}
