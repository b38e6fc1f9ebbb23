package auction

import (
	"errors"
	"fmt"
)

// Error kinds. Every engine error unwraps to exactly one of them.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
)

// Error is an engine failure with a message suitable for API clients.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// Engine errors.
var (
	ErrAuctionNotFound     = &Error{Kind: ErrNotFound, Msg: "Auction not found"}
	ErrTeamNotFound        = &Error{Kind: ErrNotFound, Msg: "Team not found"}
	ErrPlayerNotFound      = &Error{Kind: ErrNotFound, Msg: "Player not found"}
	ErrNoHighestBidder     = &Error{Kind: ErrNotFound, Msg: "No bids placed on this auction"}
	ErrInsufficientCredits = &Error{Kind: ErrValidation, Msg: "Not enough credits"}
	ErrRosterFull          = &Error{Kind: ErrValidation, Msg: "Team roster is full"}
	ErrBidTooLow           = &Error{Kind: ErrValidation, Msg: "Bid must be higher"}
	ErrNegativePrice       = &Error{Kind: ErrValidation, Msg: "Base price must not be negative"}
	ErrPlayerSold          = &Error{Kind: ErrValidation, Msg: "Cannot delete sold player"}
	ErrPlayerAlreadySold   = &Error{Kind: ErrValidation, Msg: "Player is already sold"}
	ErrAuctionExists       = &Error{Kind: ErrConflict, Msg: "Player already has an open auction"}
	ErrBidConflict         = &Error{Kind: ErrConflict, Msg: "Auction was modified by another bid, retry"}
	ErrTeamExists          = &Error{Kind: ErrConflict, Msg: "Team already exists"}
)

// rosterFull reports the configured limit; it matches ErrRosterFull with errors.Is.
func rosterFull(limit int) error {
	return &Error{Kind: ErrRosterFull, Msg: fmt.Sprintf("Team already has %d players", limit)}
}
