package http

import (
	"github.com/gin-gonic/gin"

	"github.com/avolkov/biblio/internal/entities"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	books := NewBooksController(cfg.Inventory, cfg.Announcer)
	loans := NewLoansController(cfg.Circulation)
	reservationsController := NewReservationsController(cfg.Reservations, cfg.Inventory, cfg.ReservationExpiryDays, cfg.Clock)
	requestsController := NewRequestsController(cfg.Requests, cfg.Clock)
	membersController := NewMembersController(cfg.Members)
	reportsController := NewReportsController(cfg.Reports)
	admin := NewAdminController(cfg.FineScheduler, cfg.NotificationScheduler)

	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	api := router.Group("/api/v1")

	api.POST("/login", membersController.Login)

	staff := func() gin.HandlerFunc {
		if cfg.AuthMiddleware != nil {
			return cfg.AuthMiddleware.RequireStaff()
		}
		return func(c *gin.Context) { c.Next() }
	}()
	adminOnly := func() gin.HandlerFunc {
		if cfg.AuthMiddleware != nil {
			return cfg.AuthMiddleware.RequireRole(entities.RoleAdmin)
		}
		return func(c *gin.Context) { c.Next() }
	}()

	// Catalog
	api.GET("/books", books.List)
	api.GET("/books/:id", books.Get)
	api.POST("/books", staff, books.Create)
	api.PUT("/books/:id", staff, books.Update)
	api.DELETE("/books/:id", staff, books.Delete)

	// Circulation
	api.POST("/loans", staff, loans.Issue)
	api.POST("/loans/:id/return", staff, loans.Return)
	api.DELETE("/loans/:id", staff, loans.Delete)
	api.GET("/loans", loans.List)
	api.GET("/loans/overdue", staff, loans.Overdue)
	api.GET("/loans/:id", loans.Get)

	// Reservations
	api.POST("/reservations", reservationsController.Create)
	api.GET("/reservations", reservationsController.List)
	api.DELETE("/reservations/:id", reservationsController.Delete)

	// Book requests
	api.POST("/requests", requestsController.Create)
	api.GET("/requests", requestsController.List)
	api.POST("/requests/:id/process", staff, requestsController.Process)
	api.POST("/requests/:id/fulfill", staff, requestsController.Fulfill)

	// Members
	api.POST("/members", staff, membersController.Create)
	api.GET("/members", staff, membersController.List)
	api.GET("/members/:id", membersController.Get)
	api.PUT("/members/:id", membersController.Update)
	api.DELETE("/members/:id", adminOnly, membersController.Delete)

	// Genre subscriptions
	api.GET("/subscriptions", membersController.Subscriptions)
	api.POST("/subscriptions", membersController.Subscribe)
	api.DELETE("/subscriptions/:genre", membersController.Unsubscribe)

	// Reports
	api.GET("/reports/issued", staff, reportsController.IssuedBooks)
	api.GET("/reports/overdue", staff, reportsController.OverdueBooks)
	api.GET("/reports/due-dates", staff, reportsController.DueDates)

	// Operational triggers
	api.POST("/admin/recalculate-fines", adminOnly, admin.RecalculateFines)
	api.POST("/admin/scan-notifications", adminOnly, admin.ScanNotifications)

	return router
}
