package models

// Subscriber represents an email address registered for the newsletter.
type Subscriber struct {
	ID    int64  `db:"id"`
	Email string `db:"email"`
}
