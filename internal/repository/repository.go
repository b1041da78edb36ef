// Package repository provides database access for domain entities.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors that handlers branch on when mapping to HTTP statuses.
var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateName = errors.New("name already exists")
	ErrReferenced    = errors.New("still referenced by expenses")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// translate maps low-level pgx errors onto the package sentinels so callers
// can use errors.Is without importing pgx.
func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrDuplicateName
		case pgForeignKeyViolation:
			return ErrReferenced
		}
	}

	return err
}
