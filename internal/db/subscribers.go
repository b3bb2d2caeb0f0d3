package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"vetnux-newsletter/internal/models"
)

const uniqueViolation = pq.ErrorCode("23505")

// SubscriberRepository reads and writes subscribers through whatever
// transaction or pool it is handed.
type SubscriberRepository struct{}

// FindByEmail returns the subscriber with exactly this email, or nil if none exists.
func (SubscriberRepository) FindByEmail(ctx context.Context, q sqlx.QueryerContext, email string) (*models.Subscriber, error) {
	sub := &models.Subscriber{}
	err := sqlx.GetContext(ctx, q, sub, "SELECT id, email FROM vetnux_newsletter.subscribers WHERE email = $1", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Insert stores a new subscriber and returns it with its assigned id.
func (SubscriberRepository) Insert(ctx context.Context, q sqlx.QueryerContext, email string) (*models.Subscriber, error) {
	query := `
		INSERT INTO vetnux_newsletter.subscribers (email)
		VALUES ($1)
		RETURNING id, email
	`
	sub := &models.Subscriber{}
	if err := sqlx.GetContext(ctx, q, sub, query, email); err != nil {
		return nil, err
	}
	return sub, nil
}

// CountSubscribers returns the number of stored subscribers.
func CountSubscribers(ctx context.Context, q sqlx.QueryerContext) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count, "SELECT COUNT(*) FROM vetnux_newsletter.subscribers")
	return count, err
}

// EmailGroup is a set of stored emails that differ only by letter case.
type EmailGroup struct {
	Normalized string `db:"normalized"`
	Count      int    `db:"count"`
}

// FindCaseVariantEmails lists emails stored more than once under different casing.
func FindCaseVariantEmails(ctx context.Context, q sqlx.QueryerContext) ([]EmailGroup, error) {
	query := `
		SELECT LOWER(email) AS normalized, COUNT(*) AS count
		FROM vetnux_newsletter.subscribers
		GROUP BY LOWER(email)
		HAVING COUNT(*) > 1
		ORDER BY normalized
	`
	var groups []EmailGroup
	if err := sqlx.SelectContext(ctx, q, &groups, query); err != nil {
		return nil, err
	}
	return groups, nil
}

// IsUniqueViolation reports whether err was raised by a unique constraint or index.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
