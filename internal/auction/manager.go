// Package auction runs the player auction state machine: starting auctions,
// accepting bids, settling finalized auctions and the bulk floor operations.
package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/cricket-auction/internal/config"
	"github.com/jensholdgaard/cricket-auction/internal/store"
	"github.com/jensholdgaard/cricket-auction/internal/telemetry"
)

// Manager coordinates auction lifecycle and concurrency.
//
// Every mutation runs in one store transaction. Within the process,
// operations on the same auction are serialized by a keyed lock and the bulk
// operations (Checkpoint, SaveAndReset, Wipe) exclude everything else.
type Manager struct {
	bulk  sync.RWMutex
	locks *keyedMutex

	repos   *store.Repositories
	cfg     config.AuctionConfig
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics
}

// NewManager creates a new auction Manager.
func NewManager(repos *store.Repositories, cfg config.AuctionConfig, logger *slog.Logger, tp trace.TracerProvider, mp metric.MeterProvider) (*Manager, error) {
	m, err := newMetrics(mp)
	if err != nil {
		return nil, err
	}
	return &Manager{
		locks:   newKeyedMutex(),
		repos:   repos,
		cfg:     cfg,
		logger:  logger,
		tracer:  tp.Tracer("github.com/jensholdgaard/cricket-auction/internal/auction"),
		metrics: m,
	}, nil
}

// lockAuction takes the shared bulk lock and the per-auction lock for id.
func (m *Manager) lockAuction(id string) func() {
	m.bulk.RLock()
	unlock := m.locks.Lock(id)
	return func() {
		unlock()
		m.bulk.RUnlock()
	}
}

// lockAll excludes every other engine operation.
func (m *Manager) lockAll() func() {
	m.bulk.Lock()
	return m.bulk.Unlock
}

// StartAuction opens an auction for an existing, unsold player with
// currentBid set to basePrice.
func (m *Manager) StartAuction(ctx context.Context, playerID string, basePrice int) (*store.Auction, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.StartAuction",
		trace.WithAttributes(
			attribute.String("player_id", playerID),
			attribute.Int("base_price", basePrice),
		),
	)
	defer span.End()

	if basePrice < 0 {
		return nil, ErrNegativePrice
	}

	defer m.lockAuction("player:" + playerID)()

	var a *store.Auction
	err := m.repos.RunInTx(ctx, func(tx store.Tx) error {
		p, err := tx.Players.GetByID(ctx, playerID)
		if err != nil {
			return orNotFound(err, ErrPlayerNotFound)
		}
		if p.Sold {
			return ErrPlayerAlreadySold
		}
		a, err = open(ctx, tx, p.ID, basePrice)
		return err
	})
	if err != nil {
		return nil, m.fail(span, "starting auction", err)
	}

	m.log(ctx).InfoContext(ctx, "auction started",
		slog.String("auction_id", a.ID),
		slog.String("player_id", playerID),
		slog.Int("base_price", basePrice),
	)
	return a, nil
}

// CreatePlayerAndStartAuction creates an unsold player and opens its auction
// in a single transaction.
func (m *Manager) CreatePlayerAndStartAuction(ctx context.Context, name, className string, basePrice int) (*store.Player, *store.Auction, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.CreatePlayerAndStartAuction",
		trace.WithAttributes(
			attribute.String("player", name),
			attribute.String("class", className),
			attribute.Int("base_price", basePrice),
		),
	)
	defer span.End()

	if basePrice < 0 {
		return nil, nil, ErrNegativePrice
	}

	m.bulk.RLock()
	defer m.bulk.RUnlock()

	var (
		p *store.Player
		a *store.Auction
	)
	err := m.repos.RunInTx(ctx, func(tx store.Tx) error {
		p = &store.Player{Name: name, ClassName: className, BasePrice: basePrice}
		if err := tx.Players.Create(ctx, p); err != nil {
			return fmt.Errorf("creating player: %w", err)
		}
		var err error
		a, err = open(ctx, tx, p.ID, basePrice)
		return err
	})
	if err != nil {
		return nil, nil, m.fail(span, "creating player auction", err)
	}

	m.log(ctx).InfoContext(ctx, "player created and auction started",
		slog.String("auction_id", a.ID),
		slog.String("player_id", p.ID),
		slog.String("player", name),
	)
	return p, a, nil
}

func open(ctx context.Context, tx store.Tx, playerID string, basePrice int) (*store.Auction, error) {
	a := &store.Auction{PlayerID: playerID, CurrentBid: basePrice}
	if err := tx.Auctions.Create(ctx, a); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrAuctionExists
		}
		return nil, orNotFound(err, ErrPlayerNotFound)
	}
	return a, nil
}

// PlaceBid records amount from team on the auction. Checks run in order and
// the first failure wins: auction exists, team exists, team can afford the
// bid, team roster has room, bid beats the current bid.
func (m *Manager) PlaceBid(ctx context.Context, auctionID, teamID string, amount int) (*store.Auction, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.PlaceBid",
		trace.WithAttributes(
			attribute.String("auction_id", auctionID),
			attribute.String("team_id", teamID),
			attribute.Int("amount", amount),
		),
	)
	defer span.End()

	defer m.lockAuction(auctionID)()

	var a *store.Auction
	err := m.repos.RunInTx(ctx, func(tx store.Tx) error {
		var err error
		a, err = tx.Auctions.GetByID(ctx, auctionID)
		if err != nil {
			return orNotFound(err, ErrAuctionNotFound)
		}
		team, err := tx.Teams.GetByID(ctx, teamID)
		if err != nil {
			return orNotFound(err, ErrTeamNotFound)
		}
		if amount > team.Credits {
			return ErrInsufficientCredits
		}
		owned, err := tx.Players.CountByTeam(ctx, team.ID)
		if err != nil {
			return fmt.Errorf("counting roster: %w", err)
		}
		if owned >= m.cfg.MaxRoster {
			return rosterFull(m.cfg.MaxRoster)
		}
		if amount <= a.CurrentBid {
			return ErrBidTooLow
		}

		a.CurrentBid = amount
		a.HighestBidderID = &team.ID
		if err := tx.Auctions.UpdateBid(ctx, a); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				return ErrBidConflict
			}
			return orNotFound(err, ErrAuctionNotFound)
		}
		return nil
	})
	if err != nil {
		m.metrics.rejected(ctx, err)
		return nil, m.fail(span, "placing bid", err)
	}

	m.metrics.bidsAccepted.Add(ctx, 1)
	m.log(ctx).InfoContext(ctx, "bid placed",
		slog.String("auction_id", auctionID),
		slog.String("team_id", teamID),
		slog.Int("amount", amount),
		slog.Int("version", a.Version),
	)
	return a, nil
}

// FinalizeAuction awards the player to the highest bidder, charges the bid to
// the team and deletes the auction. Credits and roster size are checked again
// at settlement.
func (m *Manager) FinalizeAuction(ctx context.Context, auctionID string) (*store.Team, *store.Player, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.FinalizeAuction",
		trace.WithAttributes(attribute.String("auction_id", auctionID)),
	)
	defer span.End()

	defer m.lockAuction(auctionID)()

	var (
		team   *store.Team
		player *store.Player
		price  int
	)
	err := m.repos.RunInTx(ctx, func(tx store.Tx) error {
		a, err := tx.Auctions.GetByID(ctx, auctionID)
		if err != nil {
			return orNotFound(err, ErrAuctionNotFound)
		}
		if a.HighestBidderID == nil {
			return ErrNoHighestBidder
		}
		team, err = tx.Teams.GetByID(ctx, *a.HighestBidderID)
		if err != nil {
			return orNotFound(err, ErrTeamNotFound)
		}
		player, err = tx.Players.GetByID(ctx, a.PlayerID)
		if err != nil {
			return orNotFound(err, ErrPlayerNotFound)
		}
		if player.Sold {
			return ErrPlayerAlreadySold
		}
		if a.CurrentBid > team.Credits {
			return ErrInsufficientCredits
		}
		owned, err := tx.Players.CountByTeam(ctx, team.ID)
		if err != nil {
			return fmt.Errorf("counting roster: %w", err)
		}
		if owned >= m.cfg.MaxRoster {
			return rosterFull(m.cfg.MaxRoster)
		}

		price = a.CurrentBid
		if err := tx.Teams.Charge(ctx, team.ID, price); err != nil {
			return fmt.Errorf("charging team: %w", err)
		}
		if err := tx.Players.MarkSold(ctx, player.ID, team.ID, price); err != nil {
			return fmt.Errorf("marking player sold: %w", err)
		}
		if err := tx.Auctions.Delete(ctx, a.ID); err != nil {
			return fmt.Errorf("deleting auction: %w", err)
		}

		if team, err = tx.Teams.GetByID(ctx, team.ID); err != nil {
			return fmt.Errorf("reloading team: %w", err)
		}
		if player, err = tx.Players.GetByID(ctx, player.ID); err != nil {
			return fmt.Errorf("reloading player: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, m.fail(span, "finalizing auction", err)
	}

	m.metrics.finalized.Add(ctx, 1)
	m.metrics.creditsSpent.Add(ctx, int64(price))
	m.log(ctx).InfoContext(ctx, "auction finalized",
		slog.String("auction_id", auctionID),
		slog.String("team_id", team.ID),
		slog.String("player_id", player.ID),
		slog.Int("price", price),
		slog.Int("credits_left", team.Credits),
	)
	return team, player, nil
}

// DropAuction cancels an auction and returns its player to the unsold state.
func (m *Manager) DropAuction(ctx context.Context, auctionID string) error {
	ctx, span := m.tracer.Start(ctx, "Manager.DropAuction",
		trace.WithAttributes(attribute.String("auction_id", auctionID)),
	)
	defer span.End()

	defer m.lockAuction(auctionID)()

	err := m.repos.RunInTx(ctx, func(tx store.Tx) error {
		a, err := tx.Auctions.GetByID(ctx, auctionID)
		if err != nil {
			return orNotFound(err, ErrAuctionNotFound)
		}
		if err := tx.Players.MarkUnsold(ctx, a.PlayerID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("resetting player: %w", err)
		}
		if err := tx.Auctions.Delete(ctx, a.ID); err != nil {
			return orNotFound(err, ErrAuctionNotFound)
		}
		return nil
	})
	if err != nil {
		return m.fail(span, "dropping auction", err)
	}

	m.log(ctx).InfoContext(ctx, "auction dropped", slog.String("auction_id", auctionID))
	return nil
}

// Checkpoint deletes every open auction and leaves standings untouched.
// It returns the number of auctions closed.
func (m *Manager) Checkpoint(ctx context.Context) (int64, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Checkpoint")
	defer span.End()

	defer m.lockAll()()

	var n int64
	err := m.repos.RunInTx(ctx, func(tx store.Tx) error {
		var err error
		n, err = tx.Auctions.DeleteAll(ctx)
		return err
	})
	if err != nil {
		return 0, m.fail(span, "checkpointing auctions", err)
	}

	span.SetAttributes(attribute.Int64("closed", n))
	m.log(ctx).InfoContext(ctx, "auctions checkpointed", slog.Int64("closed", n))
	return n, nil
}

// ResetSummary counts the records touched by SaveAndReset or Wipe.
type ResetSummary struct {
	Players  int64
	Auctions int64
	Teams    int64
}

// SaveAndReset reverts every sold player, deletes all auctions and restores
// every team to the initial credits. Unsold players are left alone.
func (m *Manager) SaveAndReset(ctx context.Context) (ResetSummary, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.SaveAndReset")
	defer span.End()

	defer m.lockAll()()

	var sum ResetSummary
	err := m.repos.RunInTx(ctx, func(tx store.Tx) error {
		var err error
		if sum.Players, err = tx.Players.ResetSold(ctx); err != nil {
			return fmt.Errorf("resetting sold players: %w", err)
		}
		if sum.Auctions, err = tx.Auctions.DeleteAll(ctx); err != nil {
			return fmt.Errorf("deleting auctions: %w", err)
		}
		if sum.Teams, err = tx.Teams.ResetAll(ctx, m.cfg.InitialCredits); err != nil {
			return fmt.Errorf("resetting teams: %w", err)
		}
		return nil
	})
	if err != nil {
		return ResetSummary{}, m.fail(span, "resetting tournament", err)
	}

	m.log(ctx).InfoContext(ctx, "tournament reset",
		slog.Int64("players", sum.Players),
		slog.Int64("auctions", sum.Auctions),
		slog.Int64("teams", sum.Teams),
	)
	return sum, nil
}

// Wipe deletes every player and auction and restores every team to the
// initial credits.
func (m *Manager) Wipe(ctx context.Context) (ResetSummary, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Wipe")
	defer span.End()

	defer m.lockAll()()

	var sum ResetSummary
	err := m.repos.RunInTx(ctx, func(tx store.Tx) error {
		var err error
		if sum.Auctions, err = tx.Auctions.DeleteAll(ctx); err != nil {
			return fmt.Errorf("deleting auctions: %w", err)
		}
		if sum.Players, err = tx.Players.DeleteAll(ctx); err != nil {
			return fmt.Errorf("deleting players: %w", err)
		}
		if sum.Teams, err = tx.Teams.ResetAll(ctx, m.cfg.InitialCredits); err != nil {
			return fmt.Errorf("resetting teams: %w", err)
		}
		return nil
	})
	if err != nil {
		return ResetSummary{}, m.fail(span, "wiping data", err)
	}

	m.log(ctx).WarnContext(ctx, "all players and auctions deleted",
		slog.Int64("players", sum.Players),
		slog.Int64("auctions", sum.Auctions),
		slog.Int64("teams", sum.Teams),
	)
	return sum, nil
}

// DeletePlayer removes an unsold player together with any open auction for it.
func (m *Manager) DeletePlayer(ctx context.Context, playerID string) error {
	ctx, span := m.tracer.Start(ctx, "Manager.DeletePlayer",
		trace.WithAttributes(attribute.String("player_id", playerID)),
	)
	defer span.End()

	defer m.lockAuction("player:" + playerID)()

	// An open auction is locked before the player, the same order bids and
	// settlement use, so neither the keyed locks nor the row locks can cross.
	pending, err := m.repos.Auctions.GetByPlayer(ctx, playerID)
	switch {
	case err == nil:
		defer m.locks.Lock(pending.ID)()
	case !errors.Is(err, store.ErrNotFound):
		return m.fail(span, "deleting player", fmt.Errorf("finding open auction: %w", err))
	}

	err = m.repos.RunInTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Auctions.GetByPlayer(ctx, playerID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("locking open auction: %w", err)
		}
		p, err := tx.Players.GetByID(ctx, playerID)
		if err != nil {
			return orNotFound(err, ErrPlayerNotFound)
		}
		if p.Sold {
			return ErrPlayerSold
		}
		if err := tx.Players.Delete(ctx, p.ID); err != nil {
			return orNotFound(err, ErrPlayerNotFound)
		}
		return nil
	})
	if err != nil {
		return m.fail(span, "deleting player", err)
	}

	m.log(ctx).InfoContext(ctx, "player deleted", slog.String("player_id", playerID))
	return nil
}

// GetAuction returns one open auction.
func (m *Manager) GetAuction(ctx context.Context, auctionID string) (*store.Auction, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.GetAuction",
		trace.WithAttributes(attribute.String("auction_id", auctionID)),
	)
	defer span.End()

	a, err := m.repos.Auctions.GetByID(ctx, auctionID)
	if err != nil {
		return nil, m.fail(span, "getting auction", orNotFound(err, ErrAuctionNotFound))
	}
	return a, nil
}

// ListAuctions returns every open auction, oldest first.
func (m *Manager) ListAuctions(ctx context.Context) ([]store.Auction, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.ListAuctions")
	defer span.End()

	auctions, err := m.repos.Auctions.List(ctx)
	if err != nil {
		return nil, m.fail(span, "listing auctions", err)
	}
	return auctions, nil
}

// fail records err on span. Engine errors are returned as is so callers can
// show their message; anything else is wrapped with op.
func (m *Manager) fail(span trace.Span, op string, err error) error {
	var engineErr *Error
	if errors.As(err, &engineErr) {
		span.SetAttributes(attribute.String("rejected", engineErr.Msg))
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	return fmt.Errorf("%s: %w", op, err)
}

// log returns the logger tagged with the trace of the span in ctx.
func (m *Manager) log(ctx context.Context) *slog.Logger {
	return telemetry.LogWithTrace(ctx, m.logger)
}

// orNotFound replaces a store.ErrNotFound with the engine error e.
func orNotFound(err error, e *Error) error {
	if errors.Is(err, store.ErrNotFound) {
		return e
	}
	return err
}
