package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"vetnux-newsletter/internal/db"
	"vetnux-newsletter/internal/logging"
	"vetnux-newsletter/internal/models"
	"vetnux-newsletter/internal/schemas"
)

// ErrAlreadySubscribed is returned when the email is already stored.
var ErrAlreadySubscribed = errors.New("email already subscribed")

// Repository is the storage the write pathway needs. Every call runs on the
// transaction handed to it.
type Repository interface {
	FindByEmail(ctx context.Context, q sqlx.QueryerContext, email string) (*models.Subscriber, error)
	Insert(ctx context.Context, q sqlx.QueryerContext, email string) (*models.Subscriber, error)
}

// SessionProvider grants scoped transactions. *db.Store implements it.
type SessionProvider interface {
	Session(ctx context.Context, fn func(tx db.Tx) error) error
}

// Service registers new subscribers.
type Service struct {
	sessions SessionProvider
	repo     Repository
	logger   logrus.FieldLogger
}

func NewService(sessions SessionProvider, repo Repository, logger logrus.FieldLogger) *Service {
	return &Service{
		sessions: sessions,
		repo:     repo,
		logger:   logger,
	}
}

// Subscribe validates req and stores its email unless it is already present.
//
// The lookup and the insert are not serialised against concurrent callers.
// Two requests for the same email can both miss in FindByEmail; the unique
// index then rejects the second insert, which is reported as
// ErrAlreadySubscribed like any other duplicate.
func (s *Service) Subscribe(ctx context.Context, req schemas.SubscriberCreate) (*models.Subscriber, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var created *models.Subscriber
	err := s.sessions.Session(ctx, func(tx db.Tx) error {
		existing, err := s.repo.FindByEmail(ctx, tx, req.Email)
		if err != nil {
			return fmt.Errorf("find subscriber: %w", err)
		}
		if existing != nil {
			return ErrAlreadySubscribed
		}

		sub, err := s.repo.Insert(ctx, tx, req.Email)
		if err != nil {
			return translate("insert subscriber", err)
		}
		if err := tx.Commit(); err != nil {
			return translate("commit subscriber", err)
		}
		created = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"subscriber_id": created.ID,
		"email":         logging.RedactEmail(created.Email),
	}).Info("Subscriber created")
	return created, nil
}

func translate(op string, err error) error {
	if db.IsUniqueViolation(err) {
		return ErrAlreadySubscribed
	}
	return fmt.Errorf("%s: %w", op, err)
}
