package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/jensholdgaard/cricket-auction/internal/clock"
	"github.com/jensholdgaard/cricket-auction/internal/store"
)

// AuctionRepo implements store.AuctionRepository in memory.
type AuctionRepo struct {
	with  accessor
	clock clock.Clock
}

func (r *AuctionRepo) Create(_ context.Context, a *store.Auction) error {
	return r.with(func(s *state) error {
		if _, ok := s.players[a.PlayerID]; !ok {
			return fmt.Errorf("creating auction: %w: auctions_player_id_fkey", store.ErrNotFound)
		}
		if a.HighestBidderID != nil {
			if _, ok := s.teams[*a.HighestBidderID]; !ok {
				return fmt.Errorf("creating auction: %w: auctions_highest_bidder_id_fkey", store.ErrNotFound)
			}
		}
		for _, row := range s.auctions {
			if row.PlayerID == a.PlayerID {
				return fmt.Errorf("creating auction: %w: auctions_player_id_key", store.ErrDuplicate)
			}
		}
		if a.ID == "" {
			a.ID = store.NewID()
		}
		now := r.clock.Now().UTC()
		a.CreatedAt = now
		a.UpdatedAt = now
		a.Version = 0
		s.auctions[a.ID] = auctionRow{Auction: *a, seq: s.next()}
		return nil
	})
}

func (r *AuctionRepo) GetByID(_ context.Context, id string) (*store.Auction, error) {
	var a store.Auction
	err := r.with(func(s *state) error {
		row, ok := s.auctions[id]
		if !ok {
			return fmt.Errorf("getting auction: %w", store.ErrNotFound)
		}
		a = row.Auction
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AuctionRepo) GetByPlayer(_ context.Context, playerID string) (*store.Auction, error) {
	var a *store.Auction
	err := r.with(func(s *state) error {
		for _, row := range s.auctions {
			if row.PlayerID == playerID {
				found := row.Auction
				a = &found
				return nil
			}
		}
		return fmt.Errorf("getting auction for player %s: %w", playerID, store.ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AuctionRepo) List(_ context.Context) ([]store.Auction, error) {
	var auctions []store.Auction
	err := r.with(func(s *state) error {
		rows := make([]auctionRow, 0, len(s.auctions))
		for _, row := range s.auctions {
			rows = append(rows, row)
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
		auctions = make([]store.Auction, len(rows))
		for i, row := range rows {
			auctions[i] = row.Auction
		}
		return nil
	})
	return auctions, err
}

func (r *AuctionRepo) UpdateBid(_ context.Context, a *store.Auction) error {
	return r.with(func(s *state) error {
		row, ok := s.auctions[a.ID]
		if !ok {
			return fmt.Errorf("updating bid on %s: %w", a.ID, store.ErrNotFound)
		}
		if row.Version != a.Version {
			return fmt.Errorf("updating bid on %s at version %d: %w", a.ID, a.Version, store.ErrVersionConflict)
		}
		if a.HighestBidderID != nil {
			if _, ok := s.teams[*a.HighestBidderID]; !ok {
				return fmt.Errorf("updating bid: %w: auctions_highest_bidder_id_fkey", store.ErrNotFound)
			}
		}
		now := r.clock.Now().UTC()
		a.Version++
		a.UpdatedAt = now
		row.CurrentBid = a.CurrentBid
		row.HighestBidderID = a.HighestBidderID
		row.Version = a.Version
		row.UpdatedAt = now
		s.auctions[a.ID] = row
		return nil
	})
}

func (r *AuctionRepo) Delete(_ context.Context, id string) error {
	return r.with(func(s *state) error {
		if _, ok := s.auctions[id]; !ok {
			return fmt.Errorf("deleting auction %s: %w", id, store.ErrNotFound)
		}
		delete(s.auctions, id)
		return nil
	})
}

func (r *AuctionRepo) DeleteAll(_ context.Context) (int64, error) {
	var n int64
	err := r.with(func(s *state) error {
		n = int64(len(s.auctions))
		s.auctions = map[string]auctionRow{}
		return nil
	})
	return n, err
}
