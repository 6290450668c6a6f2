package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors for the NotFound/AlreadyExists/Validation taxonomy.
// Callers compare with errors.Is; operations wrap these with
// fmt.Errorf("%w: ...") to attach the offending identifier or detail.
var (
	ErrTopicNotFound             = errors.New("topic not found")
	ErrTopicAlreadyExists        = errors.New("topic already exists")
	ErrSubscriptionNotFound      = errors.New("subscription not found")
	ErrSubscriptionAlreadyExists = errors.New("subscription already exists")
	ErrValidation                = errors.New("validation error")
)

func isPGUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsAlreadyExists reports whether err is (or wraps) one of the
// AlreadyExists sentinels, for callers like the seed-manifest loader that
// treat a pre-existing id as success rather than failure.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrTopicAlreadyExists) || errors.Is(err, ErrSubscriptionAlreadyExists)
}
