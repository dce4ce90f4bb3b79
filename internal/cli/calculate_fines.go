package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/avolkov/biblio/internal/circulation"
	"github.com/avolkov/biblio/internal/config"
	"github.com/avolkov/biblio/internal/database"
	"github.com/avolkov/biblio/internal/database/inventory"
	loansdb "github.com/avolkov/biblio/internal/database/loans"
	"github.com/avolkov/biblio/internal/fines"
)

// CalculateFinesCommand recalculates fines on every overdue loan.
type CalculateFinesCommand struct {
	DatabasePath string
	Verbose      bool
}

// NewCalculateFinesCommand creates a new CalculateFinesCommand
func NewCalculateFinesCommand() *CalculateFinesCommand {
	return &CalculateFinesCommand{}
}

// ParseFlags parses command line flags
func (cmd *CalculateFinesCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("calculate-fines", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the library database file")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "List every loan whose fine changed")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s calculate-fines [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Recalculate fines for all overdue loans using the configured\n")
		fmt.Fprintf(os.Stderr, "daily rate, grace period and fine cap. Normally run from cron;\n")
		fmt.Fprintf(os.Stderr, "this command exists for manual or containerised runs.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s calculate-fines\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s calculate-fines -db /srv/biblio/library.db -verbose\n", os.Args[0])
	}

	return fs.Parse(args)
}

// Run executes the recalculation
func (cmd *CalculateFinesCommand) Run() error {
	cfg := config.NewConfig()

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	policy := fines.PolicyFromConfig(cfg.Fines)
	loanRepo := loansdb.NewRepository(db.DB)
	svc := circulation.NewService(
		db.DB,
		inventory.NewRepository(db.DB),
		loanRepo,
		policy,
		cfg.Loans.PeriodDays,
		cfg.Loans.DueSoonDays,
		nil,
		nil,
	)

	fmt.Println("💰 Fine Recalculation")
	fmt.Println("=====================")
	fmt.Printf("Rate: %.2f/day, grace: %d day(s), cap: %d day(s)\n\n",
		policy.DailyRate, policy.GracePeriodDays, policy.MaxFineDays)

	if cmd.Verbose {
		overdue, err := svc.Overdue(0)
		if err != nil {
			return fmt.Errorf("failed to list overdue loans: %w", err)
		}
		for _, loan := range overdue {
			fmt.Printf("  loan %d: %q due %s, current fine %.2f\n",
				loan.ID, loan.Book.Title, loan.DueDate.Format("2006-01-02"), loan.TotalFine)
		}
		if len(overdue) > 0 {
			fmt.Println()
		}
	}

	updated, err := svc.RecalculateFines()
	if err != nil {
		return fmt.Errorf("fine recalculation failed: %w", err)
	}

	fmt.Printf("✅ Updated fines on %d loan(s)\n", updated)
	return nil
}
