package memstore

import (
	"context"
	"fmt"

	"github.com/jensholdgaard/cricket-auction/internal/clock"
	"github.com/jensholdgaard/cricket-auction/internal/store"
)

// PlayerRepo implements store.PlayerRepository in memory.
type PlayerRepo struct {
	with  accessor
	clock clock.Clock
}

func (r *PlayerRepo) Create(_ context.Context, p *store.Player) error {
	return r.with(func(s *state) error {
		if p.TeamID != nil {
			if _, ok := s.teams[*p.TeamID]; !ok {
				return fmt.Errorf("creating player: %w: players_team_id_fkey", store.ErrNotFound)
			}
		}
		if p.ID == "" {
			p.ID = store.NewID()
		}
		if _, ok := s.players[p.ID]; ok {
			return fmt.Errorf("creating player: %w: players_pkey", store.ErrDuplicate)
		}
		now := r.clock.Now().UTC()
		p.CreatedAt = now
		p.UpdatedAt = now
		s.players[p.ID] = playerRow{Player: *p, seq: s.next()}
		return nil
	})
}

func (r *PlayerRepo) GetByID(_ context.Context, id string) (*store.Player, error) {
	var p store.Player
	err := r.with(func(s *state) error {
		row, ok := s.players[id]
		if !ok {
			return fmt.Errorf("getting player: %w", store.ErrNotFound)
		}
		p = row.Player
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PlayerRepo) List(_ context.Context) ([]store.Player, error) {
	return r.filter(func(store.Player) bool { return true })
}

func (r *PlayerRepo) ListByTeam(_ context.Context, teamID string) ([]store.Player, error) {
	return r.filter(func(p store.Player) bool { return p.TeamID != nil && *p.TeamID == teamID })
}

func (r *PlayerRepo) filter(keep func(store.Player) bool) ([]store.Player, error) {
	var players []store.Player
	err := r.with(func(s *state) error {
		var rows []playerRow
		for _, row := range s.players {
			if keep(row.Player) {
				rows = append(rows, row)
			}
		}
		players = sortPlayers(rows)
		return nil
	})
	return players, err
}

func (r *PlayerRepo) CountByTeam(ctx context.Context, teamID string) (int, error) {
	players, err := r.ListByTeam(ctx, teamID)
	return len(players), err
}

func (r *PlayerRepo) MarkSold(_ context.Context, id, teamID string, price int) error {
	return r.with(func(s *state) error {
		row, ok := s.players[id]
		if !ok {
			return fmt.Errorf("marking player %s sold: %w", id, store.ErrNotFound)
		}
		if _, ok := s.teams[teamID]; !ok {
			return fmt.Errorf("marking player sold: %w: players_team_id_fkey", store.ErrNotFound)
		}
		owner := teamID
		row.Sold = true
		row.TeamID = &owner
		row.SoldPrice = price
		row.UpdatedAt = r.clock.Now().UTC()
		s.players[id] = row
		return nil
	})
}

func (r *PlayerRepo) MarkUnsold(_ context.Context, id string) error {
	return r.with(func(s *state) error {
		row, ok := s.players[id]
		if !ok {
			return fmt.Errorf("marking player %s unsold: %w", id, store.ErrNotFound)
		}
		s.players[id] = unsold(row, r.clock)
		return nil
	})
}

func (r *PlayerRepo) ResetSold(_ context.Context) (int64, error) {
	var n int64
	err := r.with(func(s *state) error {
		for id, row := range s.players {
			if !row.Sold {
				continue
			}
			s.players[id] = unsold(row, r.clock)
			n++
		}
		return nil
	})
	return n, err
}

func unsold(row playerRow, clk clock.Clock) playerRow {
	row.Sold = false
	row.TeamID = nil
	row.SoldPrice = 0
	row.UpdatedAt = clk.Now().UTC()
	return row
}

func (r *PlayerRepo) Delete(_ context.Context, id string) error {
	return r.with(func(s *state) error {
		if _, ok := s.players[id]; !ok {
			return fmt.Errorf("deleting player %s: %w", id, store.ErrNotFound)
		}
		delete(s.players, id)
		for aid, a := range s.auctions {
			if a.PlayerID == id {
				delete(s.auctions, aid)
			}
		}
		return nil
	})
}

func (r *PlayerRepo) DeleteAll(_ context.Context) (int64, error) {
	var n int64
	err := r.with(func(s *state) error {
		n = int64(len(s.players))
		s.players = map[string]playerRow{}
		s.auctions = map[string]auctionRow{}
		return nil
	})
	return n, err
}
