package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Errors returned by repositories.
var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicate       = errors.New("record already exists")
	ErrVersionConflict = errors.New("record was modified concurrently")
)

// Team is a franchise bidding for players.
type Team struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Credits     int       `db:"credits"`
	UsedCredits int       `db:"used_credits"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Player is a cricketer that can be auctioned. TeamID is nil iff the player is unsold.
type Player struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	ClassName string    `db:"class_name"`
	BasePrice int       `db:"base_price"`
	Sold      bool      `db:"sold"`
	TeamID    *string   `db:"team_id"`
	SoldPrice int       `db:"sold_price"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Auction is the in-progress negotiation for one player.
type Auction struct {
	ID              string    `db:"id"`
	PlayerID        string    `db:"player_id"`
	CurrentBid      int       `db:"current_bid"`
	HighestBidderID *string   `db:"highest_bidder_id"`
	Version         int       `db:"version"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// TeamRepository defines team persistence operations.
type TeamRepository interface {
	Create(ctx context.Context, t *Team) error
	// CreateIfAbsent inserts t unless a team with the same name exists.
	// It reports whether a row was inserted.
	CreateIfAbsent(ctx context.Context, t *Team) (bool, error)
	GetByID(ctx context.Context, id string) (*Team, error)
	// GetByName matches the whole name case-insensitively.
	GetByName(ctx context.Context, name string) (*Team, error)
	List(ctx context.Context) ([]Team, error)
	Names(ctx context.Context) ([]string, error)
	// Charge moves amount from credits to used credits.
	Charge(ctx context.Context, id string, amount int) error
	// ResetAll restores every team to credits and zero used credits.
	ResetAll(ctx context.Context, credits int) (int64, error)
}

// PlayerRepository defines player persistence operations.
type PlayerRepository interface {
	Create(ctx context.Context, p *Player) error
	GetByID(ctx context.Context, id string) (*Player, error)
	List(ctx context.Context) ([]Player, error)
	ListByTeam(ctx context.Context, teamID string) ([]Player, error)
	CountByTeam(ctx context.Context, teamID string) (int, error)
	MarkSold(ctx context.Context, id, teamID string, price int) error
	MarkUnsold(ctx context.Context, id string) error
	// ResetSold reverts every sold player to unsold defaults.
	ResetSold(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
}

// AuctionRepository defines auction persistence operations.
type AuctionRepository interface {
	// Create fails with ErrDuplicate if the player already has an auction.
	Create(ctx context.Context, a *Auction) error
	GetByID(ctx context.Context, id string) (*Auction, error)
	// GetByPlayer returns the open auction for a player, if any.
	GetByPlayer(ctx context.Context, playerID string) (*Auction, error)
	List(ctx context.Context) ([]Auction, error)
	// UpdateBid persists CurrentBid and HighestBidderID if the stored version
	// still equals a.Version, then increments a.Version.
	UpdateBid(ctx context.Context, a *Auction) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
}

// Tx groups repositories bound to a single transaction.
type Tx struct {
	Teams    TeamRepository
	Players  PlayerRepository
	Auctions AuctionRepository
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id has the shape of a record identifier.
// Lookups with malformed ids can short-circuit to ErrNotFound.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
