package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"dispatch/internal/repository"
)

// Store implements repository.UnitOfWork over a PostgreSQL database.
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// InTx runs fn inside a single database transaction. The repositories
// handed to fn share the transaction, so row locks taken through one
// are visible to the others until commit.
func (s *Store) InTx(ctx context.Context, fn func(r repository.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	repos := repository.Repositories{
		Bookings: NewBookingRepositoryWithTx(tx),
		Drivers:  NewDriverRepositoryWithTx(tx),
		Logs:     NewDriverLogRepositoryWithTx(tx),
	}

	if err := fn(repos); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
