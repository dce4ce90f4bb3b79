package http

import (
	"github.com/avolkov/biblio/internal/auth"
	"github.com/avolkov/biblio/internal/circulation"
	"github.com/avolkov/biblio/internal/database"
	"github.com/avolkov/biblio/internal/database/inventory"
	"github.com/avolkov/biblio/internal/database/members"
	"github.com/avolkov/biblio/internal/database/requests"
	"github.com/avolkov/biblio/internal/database/reservations"
	"github.com/avolkov/biblio/internal/reports"
)

// RouterConfig contains all dependencies and configuration needed to
// create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database     *database.Database
	Inventory    *inventory.Repository
	Members      *members.Repository
	Reservations *reservations.Repository
	Requests     *requests.Repository
	Circulation  *circulation.Service
	Reports      *reports.Service

	// Authentication
	AuthMiddleware *auth.Middleware

	// Background job triggers (optional)
	FineScheduler         SchedulerTrigger
	NotificationScheduler SchedulerTrigger

	// New-book announcements (optional)
	Announcer NewBookAnnouncer

	// Reservation behaviour
	ReservationExpiryDays int

	// Clock override for tests; nil means wall time
	Clock circulation.Clock

	// Application info
	Version string
}
