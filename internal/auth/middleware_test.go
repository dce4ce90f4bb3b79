package auth

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/avolkov/biblio/internal/database/members"
	"github.com/avolkov/biblio/internal/entities"
)

func setupTestMiddleware(t *testing.T) (*Middleware, *members.Repository, func()) {
	gin.SetMode(gin.TestMode)
	dbPath := "./test_auth_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Member{}, &entities.GenreSubscription{}))

	repo := members.NewRepository(db, bcrypt.MinCost)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return NewMiddleware(repo), repo, cleanup
}

func createTestMember(t *testing.T, repo *members.Repository, username string, role entities.Role) *entities.Member {
	member := &entities.Member{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
	}
	require.NoError(t, repo.Create(member, "secret-password"))
	return member
}

func testRouter(m *Middleware) *gin.Engine {
	router := gin.New()
	router.Use(m.Handler())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"member_id": GetMemberID(c),
			"username":  GetUsername(c),
			"role":      GetRole(c),
		})
	})
	router.DELETE("/api/v1/books/1", m.RequireStaff(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestMiddleware_PublicPath(t *testing.T) {
	m, _, cleanup := setupTestMiddleware(t)
	defer cleanup()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	testRouter(m).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware_MissingToken(t *testing.T) {
	m, _, cleanup := setupTestMiddleware(t)
	defer cleanup()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	testRouter(m).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_InvalidToken(t *testing.T) {
	m, _, cleanup := setupTestMiddleware(t)
	defer cleanup()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	testRouter(m).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_ValidToken(t *testing.T) {
	m, repo, cleanup := setupTestMiddleware(t)
	defer cleanup()

	member := createTestMember(t, repo, "alice", entities.RoleMember)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+member.Token)
	testRouter(m).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
	assert.Contains(t, w.Body.String(), `"role":"member"`)
}

func TestMiddleware_MalformedAuthorizationHeader(t *testing.T) {
	m, repo, cleanup := setupTestMiddleware(t)
	defer cleanup()

	member := createTestMember(t, repo, "alice", entities.RoleMember)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", member.Token) // no Bearer prefix
	testRouter(m).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_RequireStaff(t *testing.T) {
	m, repo, cleanup := setupTestMiddleware(t)
	defer cleanup()

	regular := createTestMember(t, repo, "alice", entities.RoleMember)
	librarian := createTestMember(t, repo, "bob", entities.RoleLibrarian)

	router := testRouter(m)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/books/1", nil)
	req.Header.Set("Authorization", "Bearer "+regular.Token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/books/1", nil)
	req.Header.Set("Authorization", "Bearer "+librarian.Token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
