// Package roster serves team and player standings and seeds the configured
// franchise teams.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/cricket-auction/internal/auction"
	"github.com/jensholdgaard/cricket-auction/internal/store"
)

// TeamWithPlayers is a team and the players it owns.
type TeamWithPlayers struct {
	store.Team
	Players []store.Player
}

// PlayerWithTeam is a player and its owning team, nil when unsold.
type PlayerWithTeam struct {
	store.Player
	Team *store.Team
}

// Manager handles team and player queries.
type Manager struct {
	teams          store.TeamRepository
	players        store.PlayerRepository
	initialCredits int
	logger         *slog.Logger
	tracer         trace.Tracer
}

// NewManager returns a new roster Manager.
func NewManager(teams store.TeamRepository, players store.PlayerRepository, initialCredits int, logger *slog.Logger, tp trace.TracerProvider) *Manager {
	return &Manager{
		teams:          teams,
		players:        players,
		initialCredits: initialCredits,
		logger:         logger,
		tracer:         tp.Tracer("github.com/jensholdgaard/cricket-auction/internal/roster"),
	}
}

// CreateTeam creates a team with the initial credit allocation.
func (m *Manager) CreateTeam(ctx context.Context, name string) (*store.Team, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.CreateTeam",
		trace.WithAttributes(attribute.String("team", name)),
	)
	defer span.End()

	t := &store.Team{Name: strings.TrimSpace(name), Credits: m.initialCredits}
	if err := m.teams.Create(ctx, t); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, auction.ErrTeamExists
		}
		return nil, fmt.Errorf("creating team: %w", err)
	}

	m.logger.InfoContext(ctx, "team created",
		slog.String("team_id", t.ID),
		slog.String("team", t.Name),
	)
	return t, nil
}

// GetTeam returns a team by id with its players.
func (m *Manager) GetTeam(ctx context.Context, id string) (*TeamWithPlayers, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.GetTeam",
		trace.WithAttributes(attribute.String("team_id", id)),
	)
	defer span.End()

	t, err := m.teams.GetByID(ctx, id)
	if err != nil {
		return nil, teamErr(err)
	}
	return m.withPlayers(ctx, t)
}

// GetTeamByName returns the team whose whole name matches case-insensitively.
func (m *Manager) GetTeamByName(ctx context.Context, name string) (*TeamWithPlayers, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.GetTeamByName",
		trace.WithAttributes(attribute.String("team", name)),
	)
	defer span.End()

	t, err := m.teams.GetByName(ctx, name)
	if err != nil {
		return nil, teamErr(err)
	}
	return m.withPlayers(ctx, t)
}

func (m *Manager) withPlayers(ctx context.Context, t *store.Team) (*TeamWithPlayers, error) {
	players, err := m.players.ListByTeam(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("listing team players: %w", err)
	}
	return &TeamWithPlayers{Team: *t, Players: players}, nil
}

// ListTeams returns every team with its players.
func (m *Manager) ListTeams(ctx context.Context) ([]TeamWithPlayers, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.ListTeams")
	defer span.End()

	teams, err := m.teams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	players, err := m.players.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}

	owned := make(map[string][]store.Player, len(teams))
	for _, p := range players {
		if p.TeamID != nil {
			owned[*p.TeamID] = append(owned[*p.TeamID], p)
		}
	}

	result := make([]TeamWithPlayers, 0, len(teams))
	for _, t := range teams {
		result = append(result, TeamWithPlayers{Team: t, Players: owned[t.ID]})
	}
	return result, nil
}

// ListPlayers returns every player with its owning team resolved.
func (m *Manager) ListPlayers(ctx context.Context) ([]PlayerWithTeam, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.ListPlayers")
	defer span.End()

	players, err := m.players.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	teams, err := m.teams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}

	byID := make(map[string]*store.Team, len(teams))
	for i := range teams {
		byID[teams[i].ID] = &teams[i]
	}

	result := make([]PlayerWithTeam, 0, len(players))
	for _, p := range players {
		pw := PlayerWithTeam{Player: p}
		if p.TeamID != nil {
			pw.Team = byID[*p.TeamID]
		}
		result = append(result, pw)
	}
	return result, nil
}

// Seed creates the named teams that do not exist yet. Existing teams keep
// their credits and players. It returns the number of teams created.
func (m *Manager) Seed(ctx context.Context, names []string) (int, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Seed",
		trace.WithAttributes(attribute.Int("configured", len(names))),
	)
	defer span.End()

	existing, err := m.teams.Names(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading team names: %w", err)
	}
	have := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		have[n] = struct{}{}
	}

	created := 0
	for _, name := range names {
		if _, ok := have[name]; ok {
			continue
		}
		have[name] = struct{}{}

		ok, err := m.teams.CreateIfAbsent(ctx, &store.Team{Name: name, Credits: m.initialCredits})
		if err != nil {
			return created, fmt.Errorf("seeding team %q: %w", name, err)
		}
		if ok {
			created++
		}
	}

	span.SetAttributes(attribute.Int("created", created))
	m.logger.InfoContext(ctx, "teams seeded",
		slog.Int("configured", len(names)),
		slog.Int("created", created),
	)
	return created, nil
}

func teamErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return auction.ErrTeamNotFound
	}
	return fmt.Errorf("getting team: %w", err)
}
