package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/avolkov/biblio/internal/auth"
	"github.com/avolkov/biblio/internal/circulation"
	"github.com/avolkov/biblio/internal/database/requests"
	"github.com/avolkov/biblio/internal/entities"
)

type RequestsController struct {
	requests *requests.Repository
	clock    circulation.Clock
}

func NewRequestsController(repo *requests.Repository, clock circulation.Clock) *RequestsController {
	if clock == nil {
		clock = circulation.SystemClock()
	}
	return &RequestsController{requests: repo, clock: clock}
}

type createBookRequestBody struct {
	Title  string `json:"title" binding:"required"`
	Author string `json:"author" binding:"required"`
	Reason string `json:"reason"`
}

// Create files an acquisition request from the authenticated member.
func (rc *RequestsController) Create(c *gin.Context) {
	var req createBookRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	request := &entities.BookRequest{
		MemberID: auth.GetMemberID(c),
		Title:    req.Title,
		Author:   req.Author,
		Reason:   req.Reason,
	}
	if err := rc.requests.Create(request, rc.clock.Now()); err != nil {
		respondInternalError(c, err, "create book request")
		return
	}

	respondCreated(c, request)
}

// List returns the authenticated member's requests. Staff can instead ask
// for the pending queue with ?pending=true.
func (rc *RequestsController) List(c *gin.Context) {
	if c.Query("pending") == "true" && auth.IsStaff(c) {
		pending, err := rc.requests.Pending()
		if err != nil {
			respondInternalError(c, err, "list pending requests")
			return
		}
		c.IndentedJSON(http.StatusOK, gin.H{"requests": pending})
		return
	}

	mine, err := rc.requests.ForMember(auth.GetMemberID(c))
	if err != nil {
		respondInternalError(c, err, "list book requests")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"requests": mine})
}

type processRequestBody struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

// Process approves or rejects a pending request.
func (rc *RequestsController) Process(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var body processRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	request, err := rc.requests.Process(id, body.Approve, body.Notes, rc.clock.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book request")
			return
		}
		if errors.Is(err, requests.ErrAlreadyProcessed) {
			respondConflict(c, "request already processed")
			return
		}
		respondInternalError(c, err, "process book request")
		return
	}

	c.IndentedJSON(http.StatusOK, request)
}

// Fulfill marks an approved request as fulfilled once the book is in the
// catalog.
func (rc *RequestsController) Fulfill(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := rc.requests.MarkFulfilled(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book request")
			return
		}
		respondInternalError(c, err, "fulfill book request")
		return
	}

	respondSuccess(c, "request fulfilled")
}
