package pgxstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jensholdgaard/cricket-auction/internal/clock"
	"github.com/jensholdgaard/cricket-auction/internal/store"
)

const playerColumns = `id::text AS id, name, class_name, base_price, sold, team_id::text AS team_id,
	sold_price, created_at, updated_at`

// PlayerRepo implements store.PlayerRepository with pgx.
type PlayerRepo struct {
	db    querier
	clock clock.Clock
	lock  string
}

// NewPlayerRepo returns a new PlayerRepo.
func NewPlayerRepo(db querier, clk clock.Clock) *PlayerRepo {
	return &PlayerRepo{db: db, clock: clk}
}

func (r *PlayerRepo) Create(ctx context.Context, p *store.Player) error {
	if p.ID == "" {
		p.ID = store.NewID()
	}
	now := r.clock.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := r.db.Exec(ctx,
		`INSERT INTO players (id, name, class_name, base_price, sold, team_id, sold_price, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Name, p.ClassName, p.BasePrice, p.Sold, p.TeamID, p.SoldPrice, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating player: %w", translate(err))
	}
	return nil
}

func (r *PlayerRepo) GetByID(ctx context.Context, id string) (*store.Player, error) {
	if !store.ValidID(id) {
		return nil, fmt.Errorf("getting player: %w", store.ErrNotFound)
	}
	rows, err := r.db.Query(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`+r.lock, id)
	if err != nil {
		return nil, fmt.Errorf("getting player: %w", err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[store.Player])
	if err != nil {
		return nil, fmt.Errorf("getting player: %w", translate(err))
	}
	return &p, nil
}

func (r *PlayerRepo) List(ctx context.Context) ([]store.Player, error) {
	return r.list(ctx, "listing players",
		`SELECT `+playerColumns+` FROM players ORDER BY created_at ASC, name ASC`)
}

func (r *PlayerRepo) ListByTeam(ctx context.Context, teamID string) ([]store.Player, error) {
	if !store.ValidID(teamID) {
		return nil, nil
	}
	return r.list(ctx, "listing players by team",
		`SELECT `+playerColumns+` FROM players WHERE team_id = $1 ORDER BY updated_at ASC`, teamID)
}

func (r *PlayerRepo) list(ctx context.Context, op, query string, args ...any) ([]store.Player, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	players, err := pgx.CollectRows(rows, pgx.RowToStructByName[store.Player])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return players, nil
}

func (r *PlayerRepo) CountByTeam(ctx context.Context, teamID string) (int, error) {
	if !store.ValidID(teamID) {
		return 0, nil
	}
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM players WHERE team_id = $1`, teamID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting players by team: %w", err)
	}
	return n, nil
}

func (r *PlayerRepo) MarkSold(ctx context.Context, id, teamID string, price int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE players SET sold = TRUE, team_id = $1, sold_price = $2, updated_at = $3 WHERE id = $4`,
		teamID, price, r.clock.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("marking player sold: %w", translate(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("marking player %s sold: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *PlayerRepo) MarkUnsold(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE players SET sold = FALSE, team_id = NULL, sold_price = 0, updated_at = $1 WHERE id = $2`,
		r.clock.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("marking player unsold: %w", translate(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("marking player %s unsold: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *PlayerRepo) ResetSold(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE players SET sold = FALSE, team_id = NULL, sold_price = 0, updated_at = $1 WHERE sold`,
		r.clock.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("resetting sold players: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PlayerRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting player: %w", translate(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting player %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *PlayerRepo) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM players`)
	if err != nil {
		return 0, fmt.Errorf("deleting all players: %w", err)
	}
	return tag.RowsAffected(), nil
}
