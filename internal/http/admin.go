package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SchedulerTrigger exposes manual runs of a background job.
type SchedulerTrigger interface {
	RunNow() error
	IsRunning() bool
}

// AdminController exposes operational endpoints: manual fine
// recalculation and notification scans.
type AdminController struct {
	fines         SchedulerTrigger
	notifications SchedulerTrigger
}

func NewAdminController(fines, notifications SchedulerTrigger) *AdminController {
	return &AdminController{fines: fines, notifications: notifications}
}

// RecalculateFines kicks off an immediate fine recalculation pass.
func (ac *AdminController) RecalculateFines(c *gin.Context) {
	if ac.fines == nil {
		respondError(c, http.StatusServiceUnavailable, "fine scheduler not configured")
		return
	}
	if err := ac.fines.RunNow(); err != nil {
		respondInternalError(c, err, "trigger fine recalculation")
		return
	}
	c.JSON(http.StatusAccepted, SuccessResponse{Message: "fine recalculation started"})
}

// ScanNotifications kicks off an immediate reservation and due-soon scan.
func (ac *AdminController) ScanNotifications(c *gin.Context) {
	if ac.notifications == nil {
		respondError(c, http.StatusServiceUnavailable, "notification scheduler not configured")
		return
	}
	if err := ac.notifications.RunNow(); err != nil {
		respondInternalError(c, err, "trigger notification scan")
		return
	}
	c.JSON(http.StatusAccepted, SuccessResponse{Message: "notification scan started"})
}
