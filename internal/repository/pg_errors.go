package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	bookingDomain "github.com/flexidesk/service-booking/internal/domain/booking"
	"github.com/flexidesk/service-booking/internal/platform/apperror"
)

const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
)

// translateDBErr maps constraint violations onto application errors and returns
// any other error unchanged.
func translateDBErr(err error) error {
	var pge *pgconn.PgError
	if !errors.As(err, &pge) {
		return err
	}
	switch pge.Code {
	case pgExclusionViolation:
		return apperror.NewConflictError("selected dates and times are no longer available for this listing").
			WithCause(bookingDomain.ErrWindowTaken)
	case pgUniqueViolation:
		return apperror.NewConflictError("booking already exists")
	}
	return err
}
