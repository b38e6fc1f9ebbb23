package memstore

import (
	"context"
	"fmt"

	"github.com/jensholdgaard/cricket-auction/internal/clock"
	"github.com/jensholdgaard/cricket-auction/internal/store"
)

// TeamRepo implements store.TeamRepository in memory.
type TeamRepo struct {
	with  accessor
	clock clock.Clock
}

func (r *TeamRepo) Create(_ context.Context, t *store.Team) error {
	return r.with(func(s *state) error {
		if r.nameTaken(s, t.Name) {
			return fmt.Errorf("creating team: %w: teams_name_key", store.ErrDuplicate)
		}
		r.insert(s, t)
		return nil
	})
}

func (r *TeamRepo) CreateIfAbsent(_ context.Context, t *store.Team) (bool, error) {
	var created bool
	err := r.with(func(s *state) error {
		if r.nameTaken(s, t.Name) {
			return nil
		}
		r.insert(s, t)
		created = true
		return nil
	})
	return created, err
}

func (r *TeamRepo) nameTaken(s *state, name string) bool {
	for _, row := range s.teams {
		if row.Name == name {
			return true
		}
	}
	return false
}

func (r *TeamRepo) insert(s *state, t *store.Team) {
	if t.ID == "" {
		t.ID = store.NewID()
	}
	now := r.clock.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.teams[t.ID] = teamRow{Team: *t, seq: s.next()}
}

func (r *TeamRepo) GetByID(_ context.Context, id string) (*store.Team, error) {
	var t store.Team
	err := r.with(func(s *state) error {
		row, ok := s.teams[id]
		if !ok {
			return fmt.Errorf("getting team: %w", store.ErrNotFound)
		}
		t = row.Team
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TeamRepo) GetByName(_ context.Context, name string) (*store.Team, error) {
	var t *store.Team
	err := r.with(func(s *state) error {
		var best *teamRow
		for _, row := range s.teams {
			if !sameName(row.Name, name) {
				continue
			}
			if best == nil || row.seq < best.seq {
				row := row
				best = &row
			}
		}
		if best == nil {
			return fmt.Errorf("getting team by name: %w", store.ErrNotFound)
		}
		found := best.Team
		t = &found
		return nil
	})
	return t, err
}

func (r *TeamRepo) List(_ context.Context) ([]store.Team, error) {
	var teams []store.Team
	err := r.with(func(s *state) error {
		rows := make([]teamRow, 0, len(s.teams))
		for _, row := range s.teams {
			rows = append(rows, row)
		}
		teams = sortTeams(rows)
		return nil
	})
	return teams, err
}

func (r *TeamRepo) Names(_ context.Context) ([]string, error) {
	var names []string
	err := r.with(func(s *state) error {
		for _, row := range s.teams {
			names = append(names, row.Name)
		}
		return nil
	})
	return names, err
}

func (r *TeamRepo) Charge(_ context.Context, id string, amount int) error {
	return r.with(func(s *state) error {
		row, ok := s.teams[id]
		if !ok {
			return fmt.Errorf("charging team %s: %w", id, store.ErrNotFound)
		}
		if row.Credits-amount < 0 || row.UsedCredits+amount < 0 {
			return fmt.Errorf("charging team %s: credits would become negative", id)
		}
		row.Credits -= amount
		row.UsedCredits += amount
		row.UpdatedAt = r.clock.Now().UTC()
		s.teams[id] = row
		return nil
	})
}

func (r *TeamRepo) ResetAll(_ context.Context, credits int) (int64, error) {
	var n int64
	err := r.with(func(s *state) error {
		now := r.clock.Now().UTC()
		for id, row := range s.teams {
			row.Credits = credits
			row.UsedCredits = 0
			row.UpdatedAt = now
			s.teams[id] = row
			n++
		}
		return nil
	})
	return n, err
}
