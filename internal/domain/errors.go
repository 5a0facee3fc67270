package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrConflict       = errors.New("conflicting update")
	ErrAuctionClosed  = errors.New("auction closed")
	ErrBidTooLow      = errors.New("bid too low")
	ErrInvalidListing = errors.New("invalid listing")
	ErrInvalidBid     = errors.New("invalid bid parameters")
	ErrRateLimited    = errors.New("rate limited")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrLockHeld       = errors.New("lock already held")
)
