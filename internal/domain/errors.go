package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadySettled   = errors.New("market already settled")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrInvalidCategory  = errors.New("invalid market category")
	ErrLockHeld         = errors.New("lock already held")
)
