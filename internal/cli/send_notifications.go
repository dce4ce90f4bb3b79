package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/avolkov/biblio/internal/config"
	"github.com/avolkov/biblio/internal/database"
	"github.com/avolkov/biblio/internal/database/inventory"
	loansdb "github.com/avolkov/biblio/internal/database/loans"
	"github.com/avolkov/biblio/internal/database/members"
	"github.com/avolkov/biblio/internal/database/reservations"
	"github.com/avolkov/biblio/internal/notify"
)

// SendNotificationsCommand runs one reservation and due-soon notification pass.
type SendNotificationsCommand struct {
	DatabasePath string
	SkipDueSoon  bool
	Timeout      time.Duration
}

// NewSendNotificationsCommand creates a new SendNotificationsCommand
func NewSendNotificationsCommand() *SendNotificationsCommand {
	return &SendNotificationsCommand{}
}

// ParseFlags parses command line flags
func (cmd *SendNotificationsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("send-notifications", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the library database file")
	fs.BoolVar(&cmd.SkipDueSoon, "skip-due-soon", false, "Only process reservation notifications")
	fs.DurationVar(&cmd.Timeout, "timeout", 10*time.Minute, "Abort the pass after this long")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s send-notifications [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Notify members holding reservations on books that have copies\n")
		fmt.Fprintf(os.Stderr, "available again, and remind members about loans coming due.\n")
		fmt.Fprintf(os.Stderr, "Normally run from cron; this command exists for manual runs.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s send-notifications\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s send-notifications -db /srv/biblio/library.db -skip-due-soon\n", os.Args[0])
	}

	return fs.Parse(args)
}

// Run executes one notification pass
func (cmd *SendNotificationsCommand) Run() error {
	cfg := config.NewConfig()

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	svc := notify.NewService(
		inventory.NewRepository(db.DB),
		reservations.NewRepository(db.DB),
		members.NewRepository(db.DB, cfg.Auth.BcryptCost),
		loansdb.NewRepository(db.DB),
		notify.LogDispatcher{},
		cfg.Loans.DueSoonDays,
		nil,
	)

	ctx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	fmt.Println("🔔 Notification Pass")
	fmt.Println("====================")

	reserved, err := svc.ScanReservations(ctx)
	if err != nil {
		return fmt.Errorf("reservation scan failed: %w", err)
	}
	fmt.Printf("📚 Reservation notifications sent: %d\n", reserved)

	if !cmd.SkipDueSoon {
		dueSoon, err := svc.NotifyDueSoon(ctx)
		if err != nil {
			return fmt.Errorf("due-soon pass failed: %w", err)
		}
		fmt.Printf("⏰ Due-soon reminders sent: %d\n", dueSoon)
	}

	fmt.Println("✅ Done")
	return nil
}
