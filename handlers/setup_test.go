package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"evoting-backend/auth"
	"evoting-backend/cache"
	"evoting-backend/database"
	"evoting-backend/models"
	"evoting-backend/repository"
	"evoting-backend/service"
)

const (
	testAdminUsername = "test-admin"
	testAdminPassword = "admin-secret"
)

// recordingPublisher captures broadcast requests instead of hitting a real queue.
type recordingPublisher struct {
	mu      sync.Mutex
	pollIDs []uint
}

func (p *recordingPublisher) PublishVoteUpdate(pollID uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pollIDs = append(p.pollIDs, pollID)
}

func (p *recordingPublisher) published() []uint {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]uint, len(p.pollIDs))
	copy(out, p.pollIDs)
	return out
}

// fakeUploader avoids real image storage calls in tests.
type fakeUploader struct{}

func (fakeUploader) Upload(data []byte, folder string) (string, error) {
	return fmt.Sprintf("https://cdn.example.com/%s/test-image", folder), nil
}

// testEnv bundles the router and collaborators a handler test needs.
type testEnv struct {
	router    *gin.Engine
	db        *gorm.DB
	auth      service.AuthService
	publisher *recordingPublisher
}

// SetupTestEnvironment sets up the Gin router and in-memory SQLite database for testing.
func SetupTestEnvironment(t *testing.T) *testEnv {
	testing.Init()
	gin.SetMode(gin.TestMode)

	// Use in-memory SQLite for testing
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	database.DB = db

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	})

	mockCache := cache.NewMockCache()
	locks := cache.NewLockService(mockCache)
	publisher := &recordingPublisher{}

	userRepo := repository.NewUserRepository(db)
	pollRepo := repository.NewPollRepository(db)
	voteRepo := repository.NewVoteRepository(db)

	tokens := auth.NewTokenService("unit-test-secret")
	authService := service.NewAuthService(userRepo, tokens)
	pollService := service.NewPollService(pollRepo, voteRepo, mockCache, publisher)
	voteService := service.NewVoteService(userRepo, pollRepo, voteRepo, locks, mockCache, publisher)

	if err := authService.EnsureAdmin(context.Background(), testAdminUsername, testAdminPassword); err != nil {
		log.Fatalf("Failed to seed admin account: %v", err)
	}

	authHandler := NewAuthHandler(authService)
	pollHandler := NewPollHandler(pollService, fakeUploader{})
	voteHandler := NewVoteHandler(voteService)
	profileHandler := NewProfileHandler(authService, fakeUploader{})

	// Mirror the production route layout
	router := gin.New()
	api := router.Group("/api")
	{
		api.GET("/health", HealthCheck)

		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)
		api.POST("/token", authHandler.Token)

		api.GET("/polls", pollHandler.GetPolls)
		api.GET("/polls/:id", pollHandler.GetPoll)
		api.GET("/polls/:id/candidates", pollHandler.GetCandidates)

		authed := api.Group("")
		authed.Use(AuthRequired(tokens))
		{
			authed.POST("/polls/:id/vote", voteHandler.SubmitVote)
			authed.GET("/voting_history", voteHandler.VotingHistory)
			authed.POST("/profile/picture", profileHandler.UploadProfilePicture)
		}

		admin := api.Group("/admin")
		admin.Use(AuthRequired(tokens), AdminRequired())
		{
			admin.POST("/polls", pollHandler.CreatePoll)
			admin.PUT("/polls/:id", pollHandler.UpdatePoll)
			admin.DELETE("/polls/:id", pollHandler.DeletePoll)
			admin.POST("/polls/:id/candidates", pollHandler.AddCandidate)
			admin.DELETE("/polls/:id/candidates/:candidateId", pollHandler.RemoveCandidate)
			admin.GET("/polls/:id/votes", pollHandler.GetPollVotes)
			admin.POST("/polls/:id/image", pollHandler.UploadPollImage)
		}
	}

	return &testEnv{
		router:    router,
		db:        db,
		auth:      authService,
		publisher: publisher,
	}
}

// ClearTables removes all rows between tests, keeping the seeded admin account.
// Hard deletes, so unique indexes do not trip over soft-deleted rows.
func ClearTables(db *gorm.DB) {
	db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&models.Vote{})
	db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&models.Candidate{})
	db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(&models.Poll{})
	db.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().
		Where("username <> ?", testAdminUsername).Delete(&models.User{})
}

// doJSON performs a JSON request, attaching the bearer token when given.
func (e *testEnv) doJSON(method, url string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req, _ := http.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// registerAndLogin creates a voter account and returns its access token.
func (e *testEnv) registerAndLogin(t *testing.T, username, password string) string {
	w := e.doJSON("POST", "/api/register", gin.H{"username": username, "password": password}, "")
	require.Equal(t, http.StatusCreated, w.Code, "register failed: %s", w.Body.String())
	return e.login(t, username, password)
}

// login returns an access token for an existing account.
func (e *testEnv) login(t *testing.T, username, password string) string {
	w := e.doJSON("POST", "/api/login", gin.H{"username": username, "password": password}, "")
	require.Equal(t, http.StatusOK, w.Code, "login failed: %s", w.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	token, _ := resp["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

// adminToken logs in the seeded admin account.
func (e *testEnv) adminToken(t *testing.T) string {
	return e.login(t, testAdminUsername, testAdminPassword)
}

// createPoll inserts a poll with candidates directly through the admin API.
func (e *testEnv) createPoll(t *testing.T, title string, active bool, candidates ...string) (uint, []uint) {
	token := e.adminToken(t)

	w := e.doJSON("POST", "/api/admin/polls", gin.H{"title": title, "is_active": active}, token)
	require.Equal(t, http.StatusCreated, w.Code, "create poll failed: %s", w.Body.String())

	var poll models.Poll
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &poll))
	require.NotZero(t, poll.ID)

	candidateIDs := make([]uint, 0, len(candidates))
	for _, name := range candidates {
		w := e.doJSON("POST", fmt.Sprintf("/api/admin/polls/%d/candidates", poll.ID), gin.H{"name": name}, token)
		require.Equal(t, http.StatusCreated, w.Code, "add candidate failed: %s", w.Body.String())

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		candidateIDs = append(candidateIDs, uint(resp["candidate_id"].(float64)))
	}

	return poll.ID, candidateIDs
}
