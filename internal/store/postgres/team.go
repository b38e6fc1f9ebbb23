package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/cricket-auction/internal/clock"
	"github.com/jensholdgaard/cricket-auction/internal/store"
)

const teamColumns = `id, name, credits, used_credits, created_at, updated_at`

// TeamRepo implements store.TeamRepository with sqlx.
type TeamRepo struct {
	db    sqlx.ExtContext
	clock clock.Clock
	lock  string
}

// NewTeamRepo returns a new TeamRepo.
func NewTeamRepo(db sqlx.ExtContext, clk clock.Clock) *TeamRepo {
	return &TeamRepo{db: db, clock: clk}
}

func (r *TeamRepo) Create(ctx context.Context, t *store.Team) error {
	r.prepare(t)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO teams (`+teamColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.Name, t.Credits, t.UsedCredits, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating team: %w", translate(err))
	}
	return nil
}

func (r *TeamRepo) CreateIfAbsent(ctx context.Context, t *store.Team) (bool, error) {
	r.prepare(t)
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO teams (`+teamColumns+`) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (name) DO NOTHING`,
		t.ID, t.Name, t.Credits, t.UsedCredits, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("creating team if absent: %w", translate(err))
	}
	return affected(result) == 1, nil
}

func (r *TeamRepo) prepare(t *store.Team) {
	if t.ID == "" {
		t.ID = store.NewID()
	}
	now := r.clock.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
}

func (r *TeamRepo) GetByID(ctx context.Context, id string) (*store.Team, error) {
	if !store.ValidID(id) {
		return nil, fmt.Errorf("getting team: %w", store.ErrNotFound)
	}
	var t store.Team
	err := sqlx.GetContext(ctx, r.db, &t, `SELECT `+teamColumns+` FROM teams WHERE id = $1`+r.lock, id)
	if err != nil {
		return nil, fmt.Errorf("getting team: %w", translate(err))
	}
	return &t, nil
}

func (r *TeamRepo) GetByName(ctx context.Context, name string) (*store.Team, error) {
	var t store.Team
	err := sqlx.GetContext(ctx, r.db, &t,
		`SELECT `+teamColumns+` FROM teams WHERE lower(name) = lower($1)
		 ORDER BY created_at ASC LIMIT 1`, name)
	if err != nil {
		return nil, fmt.Errorf("getting team by name: %w", translate(err))
	}
	return &t, nil
}

func (r *TeamRepo) List(ctx context.Context) ([]store.Team, error) {
	var teams []store.Team
	err := sqlx.SelectContext(ctx, r.db, &teams,
		`SELECT `+teamColumns+` FROM teams ORDER BY created_at ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	return teams, nil
}

func (r *TeamRepo) Names(ctx context.Context) ([]string, error) {
	var names []string
	if err := sqlx.SelectContext(ctx, r.db, &names, `SELECT name FROM teams`); err != nil {
		return nil, fmt.Errorf("listing team names: %w", err)
	}
	return names, nil
}

func (r *TeamRepo) Charge(ctx context.Context, id string, amount int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE teams SET credits = credits - $1, used_credits = used_credits + $1, updated_at = $2
		 WHERE id = $3`,
		amount, r.clock.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("charging team: %w", translate(err))
	}
	if affected(result) == 0 {
		return fmt.Errorf("charging team %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *TeamRepo) ResetAll(ctx context.Context, credits int) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE teams SET credits = $1, used_credits = 0, updated_at = $2`,
		credits, r.clock.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("resetting teams: %w", err)
	}
	return affected(result), nil
}
