package pgxstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jensholdgaard/cricket-auction/internal/clock"
	"github.com/jensholdgaard/cricket-auction/internal/store"
)

// uuid columns are cast to text so they scan into string fields.
const teamColumns = `id::text AS id, name, credits, used_credits, created_at, updated_at`

// TeamRepo implements store.TeamRepository with pgx.
type TeamRepo struct {
	db    querier
	clock clock.Clock
	lock  string
}

// NewTeamRepo returns a new TeamRepo.
func NewTeamRepo(db querier, clk clock.Clock) *TeamRepo {
	return &TeamRepo{db: db, clock: clk}
}

func (r *TeamRepo) Create(ctx context.Context, t *store.Team) error {
	r.prepare(t)
	_, err := r.db.Exec(ctx,
		`INSERT INTO teams (id, name, credits, used_credits, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.Name, t.Credits, t.UsedCredits, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating team: %w", translate(err))
	}
	return nil
}

func (r *TeamRepo) CreateIfAbsent(ctx context.Context, t *store.Team) (bool, error) {
	r.prepare(t)
	tag, err := r.db.Exec(ctx,
		`INSERT INTO teams (id, name, credits, used_credits, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (name) DO NOTHING`,
		t.ID, t.Name, t.Credits, t.UsedCredits, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("creating team if absent: %w", translate(err))
	}
	return tag.RowsAffected() == 1, nil
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
	return r.getOne(ctx, "getting team",
		`SELECT `+teamColumns+` FROM teams WHERE id = $1`+r.lock, id)
}

func (r *TeamRepo) GetByName(ctx context.Context, name string) (*store.Team, error) {
	return r.getOne(ctx, "getting team by name",
		`SELECT `+teamColumns+` FROM teams WHERE lower(name) = lower($1)
		 ORDER BY created_at ASC LIMIT 1`, name)
}

func (r *TeamRepo) getOne(ctx context.Context, op, query string, args ...any) (*store.Team, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	t, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[store.Team])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}
	return &t, nil
}

func (r *TeamRepo) List(ctx context.Context) ([]store.Team, error) {
	rows, err := r.db.Query(ctx, `SELECT `+teamColumns+` FROM teams ORDER BY created_at ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	teams, err := pgx.CollectRows(rows, pgx.RowToStructByName[store.Team])
	if err != nil {
		return nil, fmt.Errorf("scanning teams: %w", err)
	}
	return teams, nil
}

func (r *TeamRepo) Names(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT name FROM teams`)
	if err != nil {
		return nil, fmt.Errorf("listing team names: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning team names: %w", err)
	}
	return names, nil
}

func (r *TeamRepo) Charge(ctx context.Context, id string, amount int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE teams SET credits = credits - $1, used_credits = used_credits + $1, updated_at = $2
		 WHERE id = $3`,
		amount, r.clock.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("charging team: %w", translate(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("charging team %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *TeamRepo) ResetAll(ctx context.Context, credits int) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE teams SET credits = $1, used_credits = 0, updated_at = $2`,
		credits, r.clock.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("resetting teams: %w", err)
	}
	return tag.RowsAffected(), nil
}
