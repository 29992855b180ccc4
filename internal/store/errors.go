package store

import "errors"

var (
	ErrOwnerNotFound     = errors.New("owner not found")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrSlotConflict      = errors.New("time slot already booked")
	ErrDuplicateIdentity = errors.New("email already exists")
	ErrUnavailable       = errors.New("store unavailable")
)
