package domain

import "errors"

var (
	ErrRecordNotFound        = errors.New("record not found")
	ErrNotHeldByCaller       = errors.New("seat is no longer held by the caller")
	ErrReservationExpired    = errors.New("seat hold has expired")
	ErrSessionCreationFailed = errors.New("payment session could not be created")
	ErrCallbackUnparseable   = errors.New("payment callback payload carries no definitive result")
	ErrSessionNotFound       = errors.New("payment session not found")
	ErrDuplicateBooking      = errors.New("booking already exists")
	ErrBookingNotPayable     = errors.New("booking is not awaiting payment")
)
