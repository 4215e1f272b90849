package storage

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrConstraintViolation is returned when an insert collides with an
	// existing arxiv_id or doi.
	ErrConstraintViolation = errors.New("uniqueness constraint violation")

	// ErrNotFound is returned when a paper or run id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned when a required field (e.g. the id on
	// an update) is missing.
	ErrInvalidArgument = errors.New("invalid argument")
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
