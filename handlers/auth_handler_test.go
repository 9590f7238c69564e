package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"evoting-backend/models"
)

func TestRegister(t *testing.T) {
	env := SetupTestEnvironment(t)
	ClearTables(env.db)

	w := env.doJSON("POST", "/api/register", gin.H{"username": "alice", "password": "secret123"}, "")

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Registration successful", resp["message"])

	// Every account gets a generated voter wallet address
	address, _ := resp["voter_address"].(string)
	assert.True(t, strings.HasPrefix(address, "0x"))
	assert.Len(t, address, 42)

	// Stored user has hashed password and the default role
	var user models.User
	assert.NoError(t, env.db.Where("username = ?", "alice").First(&user).Error)
	assert.Equal(t, models.RoleVoter, user.Role)
	assert.NotEqual(t, "secret123", user.Password)
	assert.NotEmpty(t, user.PrivateKey)
}

func TestRegister_Duplicate(t *testing.T) {
	env := SetupTestEnvironment(t)
	ClearTables(env.db)

	w := env.doJSON("POST", "/api/register", gin.H{"username": "bob", "password": "secret123"}, "")
	assert.Equal(t, http.StatusCreated, w.Code)

	w = env.doJSON("POST", "/api/register", gin.H{"username": "bob", "password": "otherpass"}, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "User already exists", resp["error"])

	var count int64
	env.db.Model(&models.User{}).Where("username = ?", "bob").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRegister_InvalidInput(t *testing.T) {
	env := SetupTestEnvironment(t)
	ClearTables(env.db)

	// Password below minimum length
	w := env.doJSON("POST", "/api/register", gin.H{"username": "carol", "password": "short"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Missing username
	w = env.doJSON("POST", "/api/register", gin.H{"password": "secret123"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	env := SetupTestEnvironment(t)
	ClearTables(env.db)

	env.registerAndLogin(t, "dave", "secret123")

	w := env.doJSON("POST", "/api/login", gin.H{"username": "dave", "password": "secret123"}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["access_token"])
	assert.Equal(t, "bearer", resp["token_type"])
	assert.NotEmpty(t, resp["voter_address"])
}

func TestLogin_WrongCredentials(t *testing.T) {
	env := SetupTestEnvironment(t)
	ClearTables(env.db)

	env.registerAndLogin(t, "erin", "secret123")

	// Wrong password
	w := env.doJSON("POST", "/api/login", gin.H{"username": "erin", "password": "wrongpass"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid username or password", resp["error"])

	// Unknown user gets the same answer
	w = env.doJSON("POST", "/api/login", gin.H{"username": "nobody", "password": "whatever"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestToken_FormLogin(t *testing.T) {
	env := SetupTestEnvironment(t)
	ClearTables(env.db)

	env.registerAndLogin(t, "frank", "secret123")

	form := url.Values{}
	form.Set("username", "frank")
	form.Set("password", "secret123")

	req, _ := http.NewRequest("POST", "/api/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["access_token"])
	assert.Equal(t, "bearer", resp["token_type"])
}

func TestAuthRequired(t *testing.T) {
	env := SetupTestEnvironment(t)
	ClearTables(env.db)

	// No token
	w := env.doJSON("GET", "/api/voting_history", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Garbage token
	w = env.doJSON("GET", "/api/voting_history", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Token is invalid or expired", resp["error"])
}

func TestAdminRequired(t *testing.T) {
	env := SetupTestEnvironment(t)
	ClearTables(env.db)

	voterToken := env.registerAndLogin(t, "grace", "secret123")

	// A regular voter cannot reach admin endpoints
	w := env.doJSON("POST", "/api/admin/polls", gin.H{"title": "Nope"}, voterToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var resp map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Admin privileges required", resp["error"])

	// The seeded admin can
	w = env.doJSON("POST", "/api/admin/polls", gin.H{"title": "Yep"}, env.adminToken(t))
	assert.Equal(t, http.StatusCreated, w.Code)
}
