package repository

import "context"

// Repositories bundles the transaction-scoped repositories handed to a
// unit of work.
type Repositories struct {
	Bookings BookingRepository
	Drivers  DriverRepository
	Logs     DriverLogRepository
}

// UnitOfWork runs a function inside one atomic transaction. Every
// money-affecting write sequence (assignment, acceptance, settlement)
// goes through InTx; on error the transaction rolls back completely so
// partial fare or commission state is never observable.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(r Repositories) error) error
}
