package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/avolkov/biblio/internal/auth"
	"github.com/avolkov/biblio/internal/circulation"
	"github.com/avolkov/biblio/internal/config"
	"github.com/avolkov/biblio/internal/database"
	"github.com/avolkov/biblio/internal/database/inventory"
	loansdb "github.com/avolkov/biblio/internal/database/loans"
	"github.com/avolkov/biblio/internal/database/members"
	"github.com/avolkov/biblio/internal/database/requests"
	"github.com/avolkov/biblio/internal/database/reservations"
	"github.com/avolkov/biblio/internal/fines"
	http_controllers "github.com/avolkov/biblio/internal/http"
	"github.com/avolkov/biblio/internal/notify"
	"github.com/avolkov/biblio/internal/reports"
	"github.com/avolkov/biblio/internal/scheduler"
	"github.com/avolkov/biblio/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until an interrupt arrives, then drains it.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop task queue and schedulers)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run wires the whole application together and serves it.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting Biblio v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Repositories
	inv := inventory.NewRepository(db.DB)
	loanRepo := loansdb.NewRepository(db.DB)
	memberRepo := members.NewRepository(db.DB, cfg.Auth.BcryptCost)
	reservationRepo := reservations.NewRepository(db.DB)
	requestRepo := requests.NewRepository(db.DB)

	policy := fines.PolicyFromConfig(cfg.Fines)

	// Notification service delivers through the application log until a
	// real gateway is configured.
	notifier := notify.NewService(
		inv,
		reservationRepo,
		memberRepo,
		loanRepo,
		notify.LogDispatcher{},
		cfg.Loans.DueSoonDays,
		nil,
	)

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var enqueuer *tasks.Enqueuer
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFromApp(cfg))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewNotifyAvailabilityQueue(notifier),
			tasks.NewNotifyNewBookQueue(notifier),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		enqueuer = tasks.NewEnqueuer(taskClient)
	}

	// The circulation service hands availability events to the queue when
	// workers are running, otherwise it stays silent and the hourly scan
	// picks reservations up.
	var availabilityNotifier circulation.Notifier
	if enqueuer != nil {
		availabilityNotifier = enqueuer
	}

	circ := circulation.NewService(
		db.DB,
		inv,
		loanRepo,
		policy,
		cfg.Loans.PeriodDays,
		cfg.Loans.DueSoonDays,
		nil,
		availabilityNotifier,
	)

	reportSvc := reports.NewService(loanRepo, policy, cfg.Loans.DueSoonDays, nil)

	// Background schedulers
	fineScheduler := scheduler.NewFineScheduler(circ, cfg.Schedules.Fines, cfg.Schedules.FinesEnabled)
	if err := fineScheduler.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start fine scheduler: %v", err)
	}

	notificationScheduler := scheduler.NewNotificationScheduler(notifier, cfg.Schedules.Notify, cfg.Schedules.NotifyEnabled)
	if err := notificationScheduler.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start notification scheduler: %v", err)
	}

	routerCfg := http_controllers.RouterConfig{
		Database:              db,
		Inventory:             inv,
		Members:               memberRepo,
		Reservations:          reservationRepo,
		Requests:              requestRepo,
		Circulation:           circ,
		Reports:               reportSvc,
		AuthMiddleware:        auth.NewMiddleware(memberRepo),
		FineScheduler:         fineScheduler,
		NotificationScheduler: notificationScheduler,
		Announcer:             announcerOrNil(enqueuer),
		ReservationExpiryDays: cfg.Reservations.ExpiryDays,
		Version:               version,
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		fineScheduler.Stop()
		notificationScheduler.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}

// announcerOrNil avoids handing the router a typed-nil interface value.
func announcerOrNil(enqueuer *tasks.Enqueuer) http_controllers.NewBookAnnouncer {
	if enqueuer == nil {
		return nil
	}
	return enqueuer
}
