package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Loans
		Fines
		Reservations
		Schedules
		Tasks
		Auth
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}

	Database struct {
		Path string
	}

	// Loans describes the checkout policy.
	Loans struct {
		PeriodDays  int // Default loan length (default: 14)
		DueSoonDays int // "Due soon" window before the due date (default: 3)
	}

	// Fines describes the fine policy applied to overdue loans.
	Fines struct {
		DailyRate       float64 // Charge per chargeable late day (default: 10.00)
		GracePeriodDays int     // Days after due date before fines accrue (default: 2)
		MaxFineDays     int     // Cap on chargeable late days per loan (default: 30)
	}

	Reservations struct {
		ExpiryDays int // Days a notified reservation stays claimable (default: 7)
	}

	// Schedules holds cron expressions for the periodic batch jobs.
	Schedules struct {
		FinesEnabled  bool
		Fines         string // Cron format: "0 1 * * *" = daily at 01:00
		NotifyEnabled bool
		Notify        string // Cron format: "0 * * * *" = hourly
	}

	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}

	Auth struct {
		BcryptCost int
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8180)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Circulation policy defaults
	v.SetDefault("loan_period_days", 14)
	v.SetDefault("loan_due_soon_days", 3)
	v.SetDefault("fine_daily_rate", 10.00)
	v.SetDefault("fine_grace_period_days", 2)
	v.SetDefault("fine_max_days", 30)
	v.SetDefault("reservation_expiry_days", 7)

	// Batch job defaults
	v.SetDefault("fines_schedule_enabled", true)
	v.SetDefault("fines_schedule", "0 1 * * *") // Daily at 01:00
	v.SetDefault("notify_schedule_enabled", true)
	v.SetDefault("notify_schedule", "0 * * * *") // Hourly at :00

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	// Auth defaults
	v.SetDefault("auth_bcrypt_cost", 12)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Loans: Loans{
			PeriodDays:  v.GetInt("LOAN_PERIOD_DAYS"),
			DueSoonDays: v.GetInt("LOAN_DUE_SOON_DAYS"),
		},
		Fines: Fines{
			DailyRate:       v.GetFloat64("FINE_DAILY_RATE"),
			GracePeriodDays: v.GetInt("FINE_GRACE_PERIOD_DAYS"),
			MaxFineDays:     v.GetInt("FINE_MAX_DAYS"),
		},
		Reservations: Reservations{
			ExpiryDays: v.GetInt("RESERVATION_EXPIRY_DAYS"),
		},
		Schedules: Schedules{
			FinesEnabled:  v.GetBool("FINES_SCHEDULE_ENABLED"),
			Fines:         v.GetString("FINES_SCHEDULE"),
			NotifyEnabled: v.GetBool("NOTIFY_SCHEDULE_ENABLED"),
			Notify:        v.GetString("NOTIFY_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Auth: Auth{
			BcryptCost: v.GetInt("AUTH_BCRYPT_COST"),
		},
	}
}
