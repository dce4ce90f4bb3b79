package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/avolkov/biblio/internal/auth"
	"github.com/avolkov/biblio/internal/database/members"
	"github.com/avolkov/biblio/internal/entities"
)

type MembersController struct {
	members *members.Repository
}

func NewMembersController(repo *members.Repository) *MembersController {
	return &MembersController{members: repo}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges credentials for the member's API token.
func (mc *MembersController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	member, err := mc.members.GetByUsername(req.Username)
	if err != nil || !mc.members.VerifyPassword(member, req.Password) {
		respondError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     member.Token,
		"member_id": member.ID,
		"role":      member.Role,
	})
}

type createMemberRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// Create registers a member. Only admins may assign non-member roles.
func (mc *MembersController) Create(c *gin.Context) {
	var req createMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	role := entities.Role(req.Role)
	if req.Role == "" {
		role = entities.RoleMember
	}
	if role != entities.RoleMember && !auth.GetRole(c).CanManageMembers() {
		respondError(c, http.StatusForbidden, "only admins can assign staff roles")
		return
	}

	member := &entities.Member{
		Username: req.Username,
		Email:    req.Email,
		Role:     role,
		FullName: req.FullName,
		Phone:    req.Phone,
		Address:  req.Address,
	}
	if err := mc.members.Create(member, req.Password); err != nil {
		if errors.Is(err, members.ErrInvalidRole) {
			respondBadRequest(c, "invalid role: "+req.Role)
			return
		}
		respondInternalError(c, err, "create member")
		return
	}

	// The token is returned once at registration; it is excluded from
	// regular member payloads.
	c.JSON(http.StatusCreated, gin.H{
		"member": member,
		"token":  member.Token,
	})
}

// Get returns a member's profile. Members can only read their own.
func (mc *MembersController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if !auth.IsStaff(c) && id != auth.GetMemberID(c) {
		respondError(c, http.StatusForbidden, "cannot view another member's profile")
		return
	}

	member, err := mc.members.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "member")
			return
		}
		respondInternalError(c, err, "get member")
		return
	}

	c.IndentedJSON(http.StatusOK, member)
}

// List returns all members, optionally filtered by role.
func (mc *MembersController) List(c *gin.Context) {
	role := entities.Role(c.Query("role"))
	if role != "" && !role.Valid() {
		respondBadRequest(c, "invalid role: "+string(role))
		return
	}

	results, err := mc.members.List(role)
	if err != nil {
		respondInternalError(c, err, "list members")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"members": results, "count": len(results)})
}

type updateMemberRequest struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	Role     *string `json:"role"`
}

// Update edits a member's profile. Role changes require admin.
func (mc *MembersController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if !auth.IsStaff(c) && id != auth.GetMemberID(c) {
		respondError(c, http.StatusForbidden, "cannot edit another member's profile")
		return
	}

	var req updateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	member, err := mc.members.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "member")
			return
		}
		respondInternalError(c, err, "get member")
		return
	}

	if req.Email != nil {
		member.Email = *req.Email
	}
	if req.FullName != nil {
		member.FullName = *req.FullName
	}
	if req.Phone != nil {
		member.Phone = *req.Phone
	}
	if req.Address != nil {
		member.Address = *req.Address
	}
	if req.Role != nil {
		if !auth.GetRole(c).CanManageMembers() {
			respondError(c, http.StatusForbidden, "only admins can change roles")
			return
		}
		role := entities.Role(*req.Role)
		if !role.Valid() {
			respondBadRequest(c, "invalid role: "+*req.Role)
			return
		}
		member.Role = role
	}

	if err := mc.members.Update(member); err != nil {
		respondInternalError(c, err, "update member")
		return
	}

	c.IndentedJSON(http.StatusOK, member)
}

// Delete removes a member account.
func (mc *MembersController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := mc.members.Delete(id); err != nil {
		respondInternalError(c, err, "delete member")
		return
	}

	respondSuccess(c, "member deleted")
}

type subscribeRequest struct {
	Genre string `json:"genre" binding:"required"`
}

// Subscribe signs the authenticated member up for new-book announcements
// in a genre.
func (mc *MembersController) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	genre := entities.Genre(req.Genre)
	if !genre.Valid() {
		respondBadRequest(c, "invalid genre: "+req.Genre)
		return
	}

	sub, err := mc.members.Subscribe(auth.GetMemberID(c), genre)
	if err != nil {
		respondInternalError(c, err, "subscribe to genre")
		return
	}

	respondCreated(c, sub)
}

// Unsubscribe deactivates a genre subscription.
func (mc *MembersController) Unsubscribe(c *gin.Context) {
	genre := entities.Genre(c.Param("genre"))
	if !genre.Valid() {
		respondBadRequest(c, "invalid genre: "+string(genre))
		return
	}

	if err := mc.members.Unsubscribe(auth.GetMemberID(c), genre); err != nil {
		respondInternalError(c, err, "unsubscribe from genre")
		return
	}

	respondSuccess(c, "unsubscribed")
}

// Subscriptions lists the authenticated member's genre subscriptions.
func (mc *MembersController) Subscriptions(c *gin.Context) {
	subs, err := mc.members.Subscriptions(auth.GetMemberID(c))
	if err != nil {
		respondInternalError(c, err, "list subscriptions")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"subscriptions": subs})
}
