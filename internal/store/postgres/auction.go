package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/cricket-auction/internal/clock"
	"github.com/jensholdgaard/cricket-auction/internal/store"
)

const auctionColumns = `id, player_id, current_bid, highest_bidder_id, version, created_at, updated_at`

// AuctionRepo implements store.AuctionRepository with sqlx.
type AuctionRepo struct {
	db    sqlx.ExtContext
	clock clock.Clock
	lock  string
}

// NewAuctionRepo returns a new AuctionRepo.
func NewAuctionRepo(db sqlx.ExtContext, clk clock.Clock) *AuctionRepo {
	return &AuctionRepo{db: db, clock: clk}
}

func (r *AuctionRepo) Create(ctx context.Context, a *store.Auction) error {
	if a.ID == "" {
		a.ID = store.NewID()
	}
	now := r.clock.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	a.Version = 0
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auctions (`+auctionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.PlayerID, a.CurrentBid, a.HighestBidderID, a.Version, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating auction: %w", translate(err))
	}
	return nil
}

func (r *AuctionRepo) GetByID(ctx context.Context, id string) (*store.Auction, error) {
	if !store.ValidID(id) {
		return nil, fmt.Errorf("getting auction: %w", store.ErrNotFound)
	}
	var a store.Auction
	err := sqlx.GetContext(ctx, r.db, &a, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`+r.lock, id)
	if err != nil {
		return nil, fmt.Errorf("getting auction: %w", translate(err))
	}
	return &a, nil
}

func (r *AuctionRepo) GetByPlayer(ctx context.Context, playerID string) (*store.Auction, error) {
	if !store.ValidID(playerID) {
		return nil, fmt.Errorf("getting auction for player: %w", store.ErrNotFound)
	}
	var a store.Auction
	err := sqlx.GetContext(ctx, r.db, &a, `SELECT `+auctionColumns+` FROM auctions WHERE player_id = $1`+r.lock, playerID)
	if err != nil {
		return nil, fmt.Errorf("getting auction for player: %w", translate(err))
	}
	return &a, nil
}

func (r *AuctionRepo) List(ctx context.Context) ([]store.Auction, error) {
	var auctions []store.Auction
	err := sqlx.SelectContext(ctx, r.db, &auctions,
		`SELECT `+auctionColumns+` FROM auctions ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing auctions: %w", err)
	}
	return auctions, nil
}

func (r *AuctionRepo) UpdateBid(ctx context.Context, a *store.Auction) error {
	now := r.clock.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE auctions SET current_bid = $1, highest_bidder_id = $2, version = version + 1, updated_at = $3
		 WHERE id = $4 AND version = $5`,
		a.CurrentBid, a.HighestBidderID, now, a.ID, a.Version,
	)
	if err != nil {
		return fmt.Errorf("updating bid: %w", translate(err))
	}
	if affected(result) == 0 {
		var exists bool
		if err := sqlx.GetContext(ctx, r.db, &exists, `SELECT EXISTS (SELECT 1 FROM auctions WHERE id = $1)`, a.ID); err != nil {
			return fmt.Errorf("checking auction: %w", err)
		}
		if !exists {
			return fmt.Errorf("updating bid on %s: %w", a.ID, store.ErrNotFound)
		}
		return fmt.Errorf("updating bid on %s at version %d: %w", a.ID, a.Version, store.ErrVersionConflict)
	}
	a.Version++
	a.UpdatedAt = now
	return nil
}

func (r *AuctionRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM auctions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting auction: %w", translate(err))
	}
	if affected(result) == 0 {
		return fmt.Errorf("deleting auction %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *AuctionRepo) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM auctions`)
	if err != nil {
		return 0, fmt.Errorf("deleting all auctions: %w", err)
	}
	return affected(result), nil
}
