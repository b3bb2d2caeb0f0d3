package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"vetnux-newsletter/internal/db"
	"vetnux-newsletter/internal/logging"
)

type TaskHandler struct {
	db     sqlx.QueryerContext
	logger logrus.FieldLogger
}

func NewTaskHandler(q sqlx.QueryerContext, logger logrus.FieldLogger) *TaskHandler {
	return &TaskHandler{db: q, logger: logger}
}

// HandleAuditSubscribersTask reports how many subscribers are stored and which
// emails exist under more than one letter casing. Emails are unique only as
// typed, so "Ana@x.com" and "ana@x.com" can both be present. It never modifies
// the table.
func (h *TaskHandler) HandleAuditSubscribersTask(ctx context.Context, t *asynq.Task) error {
	h.logger.Info("Auditing subscribers...")

	count, err := db.CountSubscribers(ctx, h.db)
	if err != nil {
		return fmt.Errorf("failed to count subscribers: %w", err)
	}

	groups, err := db.FindCaseVariantEmails(ctx, h.db)
	if err != nil {
		return fmt.Errorf("failed to find case variant emails: %w", err)
	}

	for _, g := range groups {
		h.logger.WithFields(logrus.Fields{
			"email":    logging.RedactEmail(g.Normalized),
			"variants": g.Count,
		}).Warn("Email stored under several casings")
	}

	h.logger.WithFields(logrus.Fields{
		"subscribers":         count,
		"case_variant_groups": len(groups),
	}).Info("Finished subscriber audit.")
	return nil
}
