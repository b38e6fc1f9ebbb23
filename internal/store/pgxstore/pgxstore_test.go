package pgxstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jensholdgaard/cricket-auction/internal/clock"
	"github.com/jensholdgaard/cricket-auction/internal/config"
	"github.com/jensholdgaard/cricket-auction/internal/store"
	"github.com/jensholdgaard/cricket-auction/internal/store/pgxstore"
)

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("auction_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	pool, err := pgxstore.Connect(ctx, config.DatabaseConfig{URL: connStr, MaxConns: 4})
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := pgxstore.Migrate(ctx, pool); err != nil {
		t.Fatalf("applying schema: %v", err)
	}
	return pool
}

func TestRepos_RoundTrip(t *testing.T) {
	pool := newTestPool(t)
	clk := clock.Real{}
	teams := pgxstore.NewTeamRepo(pool, clk)
	players := pgxstore.NewPlayerRepo(pool, clk)
	auctions := pgxstore.NewAuctionRepo(pool, clk)
	ctx := context.Background()

	team := &store.Team{Name: "IMJ Strikers", Credits: 10000}
	if err := teams.Create(ctx, team); err != nil {
		t.Fatalf("Create team: %v", err)
	}
	created, err := teams.CreateIfAbsent(ctx, &store.Team{Name: "IMJ Strikers", Credits: 1})
	if err != nil || created {
		t.Fatalf("CreateIfAbsent = %v, %v; want false, nil", created, err)
	}

	p := &store.Player{Name: "MS Dhoni", ClassName: "Wicketkeeper", BasePrice: 500}
	if err := players.Create(ctx, p); err != nil {
		t.Fatalf("Create player: %v", err)
	}

	a := &store.Auction{PlayerID: p.ID, CurrentBid: 500}
	if err := auctions.Create(ctx, a); err != nil {
		t.Fatalf("Create auction: %v", err)
	}
	if err := auctions.Create(ctx, &store.Auction{PlayerID: p.ID, CurrentBid: 500}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("duplicate auction error = %v, want ErrDuplicate", err)
	}

	a.CurrentBid = 600
	a.HighestBidderID = &team.ID
	if err := auctions.UpdateBid(ctx, a); err != nil {
		t.Fatalf("UpdateBid: %v", err)
	}

	got, err := auctions.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.CurrentBid != 600 || got.HighestBidderID == nil || *got.HighestBidderID != team.ID || got.Version != 1 {
		t.Errorf("auction = %+v, want bid 600 by %s at version 1", got, team.ID)
	}

	stale := *got
	stale.Version = 0
	if err := auctions.UpdateBid(ctx, &stale); !errors.Is(err, store.ErrVersionConflict) {
		t.Errorf("stale UpdateBid error = %v, want ErrVersionConflict", err)
	}

	if err := teams.Charge(ctx, team.ID, 600); err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if err := players.MarkSold(ctx, p.ID, team.ID, 600); err != nil {
		t.Fatalf("MarkSold: %v", err)
	}
	owned, err := players.ListByTeam(ctx, team.ID)
	if err != nil || len(owned) != 1 || owned[0].TeamID == nil || *owned[0].TeamID != team.ID {
		t.Fatalf("ListByTeam = %+v, %v", owned, err)
	}

	byName, err := teams.GetByName(ctx, "imj strikers")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if byName.Credits != 9400 || byName.UsedCredits != 600 {
		t.Errorf("team credits=%d used=%d, want 9400/600", byName.Credits, byName.UsedCredits)
	}
}

func TestRepos_DeletePlayerCascadesAuction(t *testing.T) {
	pool := newTestPool(t)
	clk := clock.Real{}
	players := pgxstore.NewPlayerRepo(pool, clk)
	auctions := pgxstore.NewAuctionRepo(pool, clk)
	ctx := context.Background()

	p := &store.Player{Name: "Shubman Gill", BasePrice: 300}
	if err := players.Create(ctx, p); err != nil {
		t.Fatalf("Create player: %v", err)
	}
	a := &store.Auction{PlayerID: p.ID, CurrentBid: 300}
	if err := auctions.Create(ctx, a); err != nil {
		t.Fatalf("Create auction: %v", err)
	}

	byPlayer, err := auctions.GetByPlayer(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByPlayer: %v", err)
	}
	if byPlayer.ID != a.ID {
		t.Errorf("GetByPlayer id = %s, want %s", byPlayer.ID, a.ID)
	}

	if err := players.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := auctions.GetByPlayer(ctx, p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetByPlayer after delete error = %v, want ErrNotFound", err)
	}
	if _, err := auctions.GetByID(ctx, a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("auction after player delete error = %v, want ErrNotFound", err)
	}
}

func TestTxRunner_Commit(t *testing.T) {
	pool := newTestPool(t)
	clk := clock.Real{}
	run := pgxstore.TxRunner(pool, clk)
	ctx := context.Background()

	var id string
	err := run(ctx, func(tx store.Tx) error {
		team := &store.Team{Name: "IMJ Kings", Credits: 100}
		if err := tx.Teams.Create(ctx, team); err != nil {
			return err
		}
		id = team.ID
		locked, err := tx.Teams.GetByID(ctx, team.ID)
		if err != nil {
			return err
		}
		return tx.Teams.Charge(ctx, locked.ID, 40)
	})
	if err != nil {
		t.Fatalf("RunInTx: %v", err)
	}

	got, err := pgxstore.NewTeamRepo(pool, clk).GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Credits != 60 || got.UsedCredits != 40 {
		t.Errorf("credits=%d used=%d, want 60/40", got.Credits, got.UsedCredits)
	}
}
