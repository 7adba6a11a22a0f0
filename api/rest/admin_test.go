package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/questforge/server/api/rest"
	"github.com/questforge/server/config"
	"github.com/questforge/server/game/progression"
	mw "github.com/questforge/server/middleware"
	"github.com/questforge/server/model"
	"github.com/questforge/server/scheduler"
	"github.com/questforge/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testAdminKey = "admin-test-key"

type adminEnv struct {
	r     *gin.Engine
	db    *gorm.DB
	token string
}

func newAdminEnv(t *testing.T) *adminEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	sec := config.SecurityConfig{JWTSecret: "test-secret", JWTTTLH: 72 * time.Hour}

	co := progression.NewCoordinator(progression.NewGormStore(db), c, zap.NewNop(), 3)
	sched := scheduler.New(zap.NewNop())
	t.Cleanup(sched.Stop)

	authH := rest.NewAuthHandler(db, c, sec)
	progH := rest.NewProgressionHandler(db, co, config.GameConfig{}, nil)
	adminH := rest.NewAdminHandler(db, co, sched, zap.NewNop())

	r := gin.New()
	r.POST("/api/auth/login", authH.Login)
	quests := r.Group("/api/quests", mw.Auth(sec, c))
	{
		quests.POST("/:id/start", progH.Start)
		quests.POST("/:id/submit", progH.Submit)
	}
	admin := r.Group("/api/admin", rest.AdminAuth(testAdminKey))
	{
		admin.POST("/quests", adminH.CreateQuest)
		admin.PUT("/quests/:id", adminH.UpdateQuest)
		admin.GET("/submissions", adminH.ListSubmissions)
		admin.POST("/submissions/:id/review", adminH.ReviewSubmission)
		admin.POST("/users/:id/ban", adminH.BanUser)
		admin.GET("/metrics", adminH.Metrics)
	}

	w := postJSON(r, "/api/auth/login", map[string]string{"username": "member", "password": "pass1234"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return &adminEnv{r: r, db: db, token: resp["token"].(string)}
}

func adminRequest(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var b []byte
	if body != nil {
		b, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Key", testAdminKey)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminAuth_MissingKey(t *testing.T) {
	env := newAdminEnv(t)
	w := doRequest(env.r, http.MethodGet, "/api/admin/metrics", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuth_DisabledWithoutConfig(t *testing.T) {
	r := gin.New()
	r.GET("/x", rest.AdminAuth(""), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := doRequest(r, http.MethodGet, "/x", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCreateAndUpdateQuest(t *testing.T) {
	env := newAdminEnv(t)

	w := adminRequest(env.r, http.MethodPost, "/api/admin/quests", map[string]interface{}{
		"title":         "new quest",
		"points_reward": 120,
		"difficulty":    "hard",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var q model.Quest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	assert.Equal(t, model.QuestDraft, q.State)
	assert.Equal(t, model.DifficultyHard, q.Difficulty)
	assert.Equal(t, 1, q.TotalSteps)

	// Publish it.
	w2 := adminRequest(env.r, http.MethodPut, "/api/admin/quests/1", map[string]interface{}{
		"title":         "new quest",
		"points_reward": 120,
		"state":         "available",
	})
	require.Equal(t, http.StatusOK, w2.Code, w2.Body.String())

	var stored model.Quest
	require.NoError(t, env.db.First(&stored, q.ID).Error)
	assert.Equal(t, model.QuestAvailable, stored.State)
}

func TestReviewSubmission_ApproveCompletesRun(t *testing.T) {
	env := newAdminEnv(t)
	require.NoError(t, env.db.Create(&model.Quest{
		Title: "review quest", State: model.QuestAvailable, PointsReward: 80, TotalSteps: 1,
	}).Error)

	// Member starts and submits; auto-approve is off in this env.
	require.Equal(t, http.StatusCreated,
		doRequest(env.r, http.MethodPost, "/api/quests/1/start", nil, env.token).Code)
	w := doRequest(env.r, http.MethodPost, "/api/quests/1/submit", map[string]interface{}{
		"type": "photo",
	}, env.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	list := adminRequest(env.r, http.MethodGet, "/api/admin/submissions", nil)
	require.Equal(t, http.StatusOK, list.Code)
	var listResp struct {
		Submissions []model.Submission `json:"submissions"`
	}
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &listResp))
	require.Len(t, listResp.Submissions, 1)

	review := adminRequest(env.r, http.MethodPost, "/api/admin/submissions/1/review",
		map[string]bool{"approve": true})
	require.Equal(t, http.StatusOK, review.Code, review.Body.String())

	var reviewResp struct {
		Submission model.Submission              `json:"submission"`
		Completion *progression.CompletionResult `json:"completion"`
	}
	require.NoError(t, json.Unmarshal(review.Body.Bytes(), &reviewResp))
	assert.Equal(t, model.SubmissionApproved, reviewResp.Submission.Status)
	require.NotNil(t, reviewResp.Completion)
	assert.Equal(t, model.ProgressCompleted, reviewResp.Completion.Progress.Status)
	assert.Equal(t, 80, reviewResp.Completion.Rewards.XPGained)

	// Aggregate landed.
	var stats model.UserStats
	require.NoError(t, env.db.First(&stats, "user_id = ?", 1).Error)
	assert.Equal(t, int64(80), stats.TotalXP)
}

func TestReviewSubmission_Reject(t *testing.T) {
	env := newAdminEnv(t)
	require.NoError(t, env.db.Create(&model.Quest{
		Title: "reject quest", State: model.QuestAvailable, PointsReward: 80, TotalSteps: 1,
	}).Error)

	doRequest(env.r, http.MethodPost, "/api/quests/1/start", nil, env.token)
	doRequest(env.r, http.MethodPost, "/api/quests/1/submit", map[string]interface{}{"type": "photo"}, env.token)

	review := adminRequest(env.r, http.MethodPost, "/api/admin/submissions/1/review",
		map[string]bool{"approve": false})
	require.Equal(t, http.StatusOK, review.Code)

	var sub model.Submission
	require.NoError(t, env.db.First(&sub, 1).Error)
	assert.Equal(t, model.SubmissionRejected, sub.Status)

	// Run stays submitted; no reward was given.
	var p model.QuestProgress
	require.NoError(t, env.db.First(&p, "user_id = ? AND quest_id = ?", 1, 1).Error)
	assert.Equal(t, model.ProgressSubmitted, p.Status)
	var count int64
	env.db.Model(&model.UserStats{}).Where("total_xp > 0").Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestReviewSubmission_AlreadyReviewed(t *testing.T) {
	env := newAdminEnv(t)
	now := time.Now()
	require.NoError(t, env.db.Create(&model.Submission{
		UserID: 1, QuestID: 1, Status: model.SubmissionRejected, ReviewedAt: &now,
	}).Error)

	w := adminRequest(env.r, http.MethodPost, "/api/admin/submissions/1/review",
		map[string]bool{"approve": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBanUser(t *testing.T) {
	env := newAdminEnv(t)

	w := adminRequest(env.r, http.MethodPost, "/api/admin/users/1/ban", map[string]bool{"ban": true})
	require.Equal(t, http.StatusOK, w.Code)

	var user model.User
	require.NoError(t, env.db.First(&user, 1).Error)
	assert.Equal(t, 0, user.Status)

	w2 := adminRequest(env.r, http.MethodPost, "/api/admin/users/999/ban", map[string]bool{"ban": true})
	assert.Equal(t, http.StatusNotFound, w2.Code)
}

func TestAdminMetrics(t *testing.T) {
	env := newAdminEnv(t)
	require.NoError(t, env.db.Create(&model.Quest{
		Title: "m", State: model.QuestAvailable, PointsReward: 10,
	}).Error)

	w := adminRequest(env.r, http.MethodGet, "/api/admin/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp["users"])
	assert.EqualValues(t, 1, resp["available_quests"])
}
