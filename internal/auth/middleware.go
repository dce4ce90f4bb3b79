// Package auth authenticates API requests with bearer tokens.
//
// Every member carries an opaque API token issued at registration. The
// middleware resolves the token to a member and stores identity data in
// the Gin context; role gates build on top of that.
package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avolkov/biblio/internal/database/members"
	"github.com/avolkov/biblio/internal/entities"
)

// Context keys for member identity data
const (
	ContextKeyMemberID = "auth_member_id"
	ContextKeyUsername = "auth_username"
	ContextKeyRole     = "auth_role"
)

// Middleware handles authentication for HTTP requests.
type Middleware struct {
	members     *members.Repository
	publicPaths map[string]bool
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(repo *members.Repository) *Middleware {
	return &Middleware{
		members: repo,
		publicPaths: map[string]bool{
			"/health":       true,
			"/ping":         true,
			"/api/v1/login": true,
		},
	}
}

// Handler returns a Gin middleware handler that authenticates requests.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.publicPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		member := m.tryBearerAuth(c)
		if member == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		c.Set(ContextKeyMemberID, member.ID)
		c.Set(ContextKeyUsername, member.Username)
		c.Set(ContextKeyRole, member.Role)
		c.Next()
	}
}

// tryBearerAuth attempts to resolve the Authorization header to a member.
func (m *Middleware) tryBearerAuth(c *gin.Context) *entities.Member {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil
	}

	// Extract token from "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil
	}

	member, err := m.members.GetByToken(parts[1])
	if err != nil {
		return nil
	}
	return member
}

// RequireRole returns a middleware that rejects requests from members
// outside the given roles.
func (m *Middleware) RequireRole(roles ...entities.Role) gin.HandlerFunc {
	roleSet := make(map[entities.Role]bool)
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		if !roleSet[GetRole(c)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "insufficient permissions",
			})
			return
		}
		c.Next()
	}
}

// RequireStaff shortcuts RequireRole for librarian-or-admin endpoints.
func (m *Middleware) RequireStaff() gin.HandlerFunc {
	return m.RequireRole(entities.RoleAdmin, entities.RoleLibrarian)
}

// Helper functions to extract identity data from the Gin context

// GetMemberID retrieves the authenticated member's ID from the context.
// Returns 0 if the request is unauthenticated.
func GetMemberID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyMemberID); exists {
		if memberID, ok := id.(uint); ok {
			return memberID
		}
	}
	return 0
}

// GetUsername retrieves the authenticated member's username from the context.
func GetUsername(c *gin.Context) string {
	if name, exists := c.Get(ContextKeyUsername); exists {
		if username, ok := name.(string); ok {
			return username
		}
	}
	return ""
}

// GetRole retrieves the authenticated member's role from the context.
func GetRole(c *gin.Context) entities.Role {
	if r, exists := c.Get(ContextKeyRole); exists {
		if role, ok := r.(entities.Role); ok {
			return role
		}
	}
	return ""
}

// IsStaff reports whether the authenticated member can manage the catalog.
func IsStaff(c *gin.Context) bool {
	return GetRole(c).CanManageCatalog()
}
