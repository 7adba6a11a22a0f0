package rest_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/questforge/server/api/rest"
	"github.com/questforge/server/config"
	"github.com/questforge/server/game/badge"
	mw "github.com/questforge/server/middleware"
	"github.com/questforge/server/model"
	"github.com/questforge/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newProfileRouter(t *testing.T) (*gin.Engine, *gorm.DB, string) {
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	sec := config.SecurityConfig{JWTSecret: "test-secret", JWTTTLH: 72 * time.Hour}

	authH := rest.NewAuthHandler(db, c, sec)
	profH := rest.NewProfileHandler(db)

	r := gin.New()
	r.POST("/api/auth/login", authH.Login)
	r.GET("/api/profile", mw.Auth(sec, c), profH.Show)

	w := postJSON(r, "/api/auth/login", map[string]string{"username": "profuser", "password": "pass1234"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return r, db, resp["token"].(string)
}

func TestProfile_FreshUser(t *testing.T) {
	r, _, token := newProfileRouter(t)

	w := doRequest(r, http.MethodGet, "/api/profile", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Stats    model.UserStats `json:"stats"`
		XPToNext int64           `json:"xp_to_next"`
		Badges   []interface{}   `json:"badges"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(0), resp.Stats.TotalXP)
	assert.Equal(t, 1, resp.Stats.CurrentLevel)
	assert.Equal(t, int64(100), resp.XPToNext)
	assert.Empty(t, resp.Badges)
}

func TestProfile_WithStatsAndBadges(t *testing.T) {
	r, db, token := newProfileRouter(t)

	// Seed the badge catalog plus an aggregate and one unlock.
	for _, b := range badge.CatalogModels() {
		require.NoError(t, db.Create(&b).Error)
	}
	require.NoError(t, db.Create(&model.UserStats{
		UserID: 1, TotalXP: 150, CurrentLevel: 2, QuestsCompleted: 3, CurrentStreak: 2, LongestStreak: 4,
	}).Error)
	require.NoError(t, db.Create(&model.UserBadge{
		UserID: 1, BadgeID: "first-quest", UnlockedAt: time.Now(),
	}).Error)

	w := doRequest(r, http.MethodGet, "/api/profile", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Stats  model.UserStats `json:"stats"`
		Badges []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"badges"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(150), resp.Stats.TotalXP)
	assert.Equal(t, 2, resp.Stats.CurrentLevel)
	require.Len(t, resp.Badges, 1)
	assert.Equal(t, "first-quest", resp.Badges[0].ID)
	assert.NotEmpty(t, resp.Badges[0].Name)
}

func TestProfile_Unauthorized(t *testing.T) {
	r, _, _ := newProfileRouter(t)
	w := doRequest(r, http.MethodGet, "/api/profile", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
