package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/avolkov/biblio/internal/auth"
	"github.com/avolkov/biblio/internal/circulation"
	"github.com/avolkov/biblio/internal/database/inventory"
)

type LoansController struct {
	circulation *circulation.Service
}

func NewLoansController(svc *circulation.Service) *LoansController {
	return &LoansController{circulation: svc}
}

type issueLoanRequest struct {
	BookID   uint   `json:"book_id" binding:"required"`
	MemberID uint   `json:"member_id" binding:"required"`
	Quantity int    `json:"quantity"`
	DueDate  string `json:"due_date"` // optional, YYYY-MM-DD
}

// Issue checks out copies of a book to a member.
func (lc *LoansController) Issue(c *gin.Context) {
	var req issueLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		respondBadRequest(c, "quantity must be a positive integer")
		return
	}

	var dueDate *time.Time
	if req.DueDate != "" {
		parsed, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			respondBadRequest(c, "invalid due_date, expected YYYY-MM-DD")
			return
		}
		dueDate = &parsed
	}

	loan, err := lc.circulation.Create(req.BookID, req.MemberID, quantity, dueDate)
	if err != nil {
		if errors.Is(err, inventory.ErrInsufficientCopies) {
			respondConflict(c, "not enough copies available")
			return
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "issue loan")
		return
	}

	respondCreated(c, loan)
}

// Return finalizes a loan: freezes the fine and releases the copies.
func (lc *LoansController) Return(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	loan, err := lc.circulation.Return(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "loan")
			return
		}
		if errors.Is(err, circulation.ErrAlreadyReturned) {
			respondConflict(c, "loan already returned")
			return
		}
		respondInternalError(c, err, "return loan")
		return
	}

	c.IndentedJSON(http.StatusOK, loan)
}

// Delete removes a loan record, releasing its copies if still outstanding.
func (lc *LoansController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := lc.circulation.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "loan")
			return
		}
		respondInternalError(c, err, "delete loan")
		return
	}

	respondSuccess(c, "loan deleted")
}

// Get returns a single loan with its current fine.
func (lc *LoansController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	loan, err := lc.circulation.Get(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "loan")
			return
		}
		respondInternalError(c, err, "get loan")
		return
	}

	c.IndentedJSON(http.StatusOK, loan)
}

// List returns active loans. Staff can filter by member_id or request full
// history; regular members only ever see their own loans.
func (lc *LoansController) List(c *gin.Context) {
	memberID, ok := parseOptionalQueryID(c, "member_id")
	if !ok {
		return
	}

	if !auth.IsStaff(c) {
		memberID = auth.GetMemberID(c)
	}

	var (
		loans any
		err   error
	)
	if c.Query("history") == "true" {
		loans, err = lc.circulation.History(memberID)
	} else {
		loans, err = lc.circulation.Active(memberID)
	}
	if err != nil {
		respondInternalError(c, err, "list loans")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"loans": loans})
}

// Overdue lists loans past their due date, optionally older than a
// threshold of days.
func (lc *LoansController) Overdue(c *gin.Context) {
	threshold, ok := parseOptionalQueryID(c, "threshold_days")
	if !ok {
		return
	}

	loans, err := lc.circulation.Overdue(int(threshold))
	if err != nil {
		respondInternalError(c, err, "list overdue loans")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"loans": loans, "count": len(loans)})
}
