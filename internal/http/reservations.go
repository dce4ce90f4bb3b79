package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/avolkov/biblio/internal/auth"
	"github.com/avolkov/biblio/internal/circulation"
	"github.com/avolkov/biblio/internal/database/inventory"
	"github.com/avolkov/biblio/internal/database/reservations"
	"github.com/avolkov/biblio/internal/entities"
)

type ReservationsController struct {
	reservations *reservations.Repository
	inventory    *inventory.Repository
	clock        circulation.Clock
	expiryDays   int
}

func NewReservationsController(repo *reservations.Repository, inv *inventory.Repository, expiryDays int, clock circulation.Clock) *ReservationsController {
	if clock == nil {
		clock = circulation.SystemClock()
	}
	return &ReservationsController{
		reservations: repo,
		inventory:    inv,
		clock:        clock,
		expiryDays:   expiryDays,
	}
}

type createReservationRequest struct {
	BookID uint `json:"book_id" binding:"required"`
}

// Create places a reservation for the authenticated member. The member is
// notified once copies become available again.
func (rc *ReservationsController) Create(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if _, err := rc.inventory.GetBookByID(req.BookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "create reservation")
		return
	}

	reservation := &entities.Reservation{
		BookID:     req.BookID,
		MemberID:   auth.GetMemberID(c),
		ExpiryDate: rc.clock.Now().AddDate(0, 0, rc.expiryDays),
	}
	if err := rc.reservations.Create(reservation); err != nil {
		respondInternalError(c, err, "create reservation")
		return
	}

	respondCreated(c, reservation)
}

// List returns the authenticated member's reservations. Staff can pass
// member_id to inspect someone else's.
func (rc *ReservationsController) List(c *gin.Context) {
	memberID := auth.GetMemberID(c)
	if auth.IsStaff(c) {
		queried, ok := parseOptionalQueryID(c, "member_id")
		if !ok {
			return
		}
		if queried != 0 {
			memberID = queried
		}
	}

	results, err := rc.reservations.ForMember(memberID)
	if err != nil {
		respondInternalError(c, err, "list reservations")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"reservations": results})
}

// Delete cancels a reservation. Members can only cancel their own.
func (rc *ReservationsController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	reservation, err := rc.reservations.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "reservation")
			return
		}
		respondInternalError(c, err, "get reservation")
		return
	}

	if !auth.IsStaff(c) && reservation.MemberID != auth.GetMemberID(c) {
		respondError(c, http.StatusForbidden, "cannot cancel another member's reservation")
		return
	}

	if err := rc.reservations.Delete(id); err != nil {
		respondInternalError(c, err, "delete reservation")
		return
	}

	respondSuccess(c, "reservation cancelled")
}
