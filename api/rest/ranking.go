package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/questforge/server/cache"
	"github.com/questforge/server/game/progression"
	"github.com/questforge/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RankingHandler handles the XP leaderboard REST endpoints.
type RankingHandler struct {
	db     *gorm.DB
	cache  cache.Cache
	size   int
	logger *zap.Logger
}

// NewRankingHandler creates a RankingHandler. size caps how many entries
// the leaderboard holds; values below 1 fall back to 100.
func NewRankingHandler(db *gorm.DB, c cache.Cache, size int, logger *zap.Logger) *RankingHandler {
	if size < 1 {
		size = 100
	}
	return &RankingHandler{db: db, cache: c, size: size, logger: logger}
}

// RankEntry is one row in the leaderboard.
type RankEntry struct {
	Rank     int    `json:"rank"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Level    int    `json:"level"`
	TotalXP  int64  `json:"total_xp"`
}

// TopXP returns the top users sorted by total XP.
// GET /api/ranking/xp?limit=20
func (h *RankingHandler) TopXP(c *gin.Context) {
	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= h.size {
		limit = l
	}

	// Try the cached sorted set first.
	ctx := c.Request.Context()
	members, err := h.cache.ZRevRange(ctx, progression.RankingKey, 0, int64(limit-1))
	if err == nil && len(members) > 0 {
		entries := make([]RankEntry, 0, len(members))
		for i, m := range members {
			userID, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				continue
			}
			score, _ := h.cache.ZScore(ctx, progression.RankingKey, m)
			entries = append(entries, RankEntry{
				Rank:    i + 1,
				UserID:  userID,
				TotalXP: int64(score),
			})
		}
		h.enrichNames(entries)
		c.JSON(http.StatusOK, gin.H{"ranking": entries})
		return
	}

	// Fall back to the DB and refresh the cache on the way out.
	var stats []model.UserStats
	h.db.Order("total_xp DESC").Limit(limit).Find(&stats)

	entries := make([]RankEntry, len(stats))
	for i, s := range stats {
		entries[i] = RankEntry{
			Rank:    i + 1,
			UserID:  s.UserID,
			Level:   s.CurrentLevel,
			TotalXP: s.TotalXP,
		}
		_ = h.cache.ZAdd(ctx, progression.RankingKey, float64(s.TotalXP), strconv.FormatInt(s.UserID, 10))
	}
	h.enrichNames(entries)
	c.JSON(http.StatusOK, gin.H{"ranking": entries})
}

// Refresh handles POST /api/admin/ranking/refresh.
func (h *RankingHandler) Refresh(c *gin.Context) {
	n, err := h.RebuildFromDB(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": n})
}

// RebuildFromDB reloads the leaderboard sorted set from user stats.
// Called periodically by the scheduler and on demand from the admin API.
func (h *RankingHandler) RebuildFromDB(ctx context.Context) (int, error) {
	var stats []model.UserStats
	if err := h.db.Select("user_id, total_xp").
		Order("total_xp DESC").
		Limit(h.size).
		Find(&stats).Error; err != nil {
		return 0, err
	}
	for _, s := range stats {
		if err := h.cache.ZAdd(ctx, progression.RankingKey, float64(s.TotalXP), strconv.FormatInt(s.UserID, 10)); err != nil {
			h.logger.Warn("ranking cache update failed",
				zap.Int64("user_id", s.UserID), zap.Error(err))
		}
	}
	return len(stats), nil
}

func (h *RankingHandler) enrichNames(entries []RankEntry) {
	if len(entries) == 0 {
		return
	}
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}
	var users []model.User
	h.db.Select("id, username").Where("id IN ?", ids).Find(&users)
	var stats []model.UserStats
	h.db.Select("user_id, current_level").Where("user_id IN ?", ids).Find(&stats)

	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	levels := make(map[int64]int, len(stats))
	for _, s := range stats {
		levels[s.UserID] = s.CurrentLevel
	}
	for i := range entries {
		entries[i].Username = names[entries[i].UserID]
		if lvl, ok := levels[entries[i].UserID]; ok {
			entries[i].Level = lvl
		}
	}
}
