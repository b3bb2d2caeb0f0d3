package main

import (
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"vetnux-newsletter/internal/config"
	"vetnux-newsletter/internal/logging"
	"vetnux-newsletter/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	err := godotenv.Load()
	if err != nil {
		logrus.Info("No .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatalf("Failed to create logger: %v", err)
	}

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		&asynq.SchedulerOpts{Logger: logger},
	)

	entryID, err := scheduler.Register(cfg.AuditSchedule, tasks.NewAuditSubscribersTask())
	if err != nil {
		logger.Fatalf("could not register task: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"entry_id": entryID,
		"schedule": cfg.AuditSchedule,
	}).Infof("Scheduler starting (commit: %s)", CommitSHA)
	if err := scheduler.Run(); err != nil {
		logger.Fatalf("could not run scheduler: %v", err)
	}
}
