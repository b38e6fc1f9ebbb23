package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jensholdgaard/cricket-auction/internal/clock"
	"github.com/jensholdgaard/cricket-auction/internal/store"
	"github.com/jensholdgaard/cricket-auction/internal/store/postgres"
)

func seedPlayer(t *testing.T, repo *postgres.PlayerRepo, name string) *store.Player {
	t.Helper()
	p := &store.Player{Name: name, BasePrice: 500}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("Create player: %v", err)
	}
	return p
}

func TestAuctionRepo_CreateAndGetByID(t *testing.T) {
	db := newTestDB(t)
	clk := clock.Real{}
	repo := postgres.NewAuctionRepo(db, clk)
	p := seedPlayer(t, postgres.NewPlayerRepo(db, clk), "Virat Kohli")
	ctx := context.Background()

	a := &store.Auction{PlayerID: p.ID, CurrentBid: 500}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.ID == "" {
		t.Fatal("expected ID to be set after Create")
	}

	got, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.PlayerID != p.ID || got.CurrentBid != 500 || got.HighestBidderID != nil {
		t.Errorf("GetByID = %+v", got)
	}

	byPlayer, err := repo.GetByPlayer(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByPlayer: %v", err)
	}
	if byPlayer.ID != a.ID {
		t.Errorf("GetByPlayer id = %s, want %s", byPlayer.ID, a.ID)
	}
	if _, err := repo.GetByPlayer(ctx, store.NewID()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetByPlayer unknown error = %v, want ErrNotFound", err)
	}

	if err := repo.Create(ctx, &store.Auction{PlayerID: p.ID, CurrentBid: 500}); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("second auction for player error = %v, want ErrDuplicate", err)
	}
}

func TestAuctionRepo_Create_UnknownPlayer(t *testing.T) {
	db := newTestDB(t)
	repo := postgres.NewAuctionRepo(db, clock.Real{})

	err := repo.Create(context.Background(), &store.Auction{
		PlayerID:   "00000000-0000-0000-0000-000000000000",
		CurrentBid: 10,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Create error = %v, want ErrNotFound", err)
	}
}

func TestAuctionRepo_UpdateBid_Version(t *testing.T) {
	db := newTestDB(t)
	clk := clock.Real{}
	repo := postgres.NewAuctionRepo(db, clk)
	teams := postgres.NewTeamRepo(db, clk)
	p := seedPlayer(t, postgres.NewPlayerRepo(db, clk), "Rohit Sharma")
	ctx := context.Background()

	team := &store.Team{Name: "IMJ Phantoms", Credits: 12000}
	if err := teams.Create(ctx, team); err != nil {
		t.Fatalf("Create team: %v", err)
	}

	a := &store.Auction{PlayerID: p.ID, CurrentBid: 500}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	stale := *a
	a.CurrentBid = 600
	a.HighestBidderID = &team.ID
	if err := repo.UpdateBid(ctx, a); err != nil {
		t.Fatalf("UpdateBid: %v", err)
	}
	if a.Version != 1 {
		t.Errorf("Version after UpdateBid = %d, want 1", a.Version)
	}

	stale.CurrentBid = 550
	stale.HighestBidderID = &team.ID
	if err := repo.UpdateBid(ctx, &stale); !errors.Is(err, store.ErrVersionConflict) {
		t.Fatalf("stale UpdateBid error = %v, want ErrVersionConflict", err)
	}

	got, _ := repo.GetByID(ctx, a.ID)
	if got.CurrentBid != 600 {
		t.Errorf("CurrentBid = %d, want 600 (stale write must not land)", got.CurrentBid)
	}
}

func TestAuctionRepo_DeleteAndList(t *testing.T) {
	db := newTestDB(t)
	clk := clock.Real{}
	repo := postgres.NewAuctionRepo(db, clk)
	players := postgres.NewPlayerRepo(db, clk)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"A", "B", "C"} {
		a := &store.Auction{PlayerID: seedPlayer(t, players, name).ID, CurrentBid: 100}
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("Create(%s): %v", name, err)
		}
		ids = append(ids, a.ID)
	}

	if err := repo.Delete(ctx, ids[0]); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	open, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("List returned %d, want 2", len(open))
	}

	n, err := repo.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteAll affected %d, want 2", n)
	}
}

func TestTxRunner_RollsBack(t *testing.T) {
	db := newTestDB(t)
	clk := clock.Real{}
	run := postgres.TxRunner(db, clk)
	teams := postgres.NewTeamRepo(db, clk)
	ctx := context.Background()

	boom := errors.New("boom")
	err := run(ctx, func(tx store.Tx) error {
		if err := tx.Teams.Create(ctx, &store.Team{Name: "Ghost", Credits: 1}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunInTx error = %v, want boom", err)
	}

	if _, err := teams.GetByName(ctx, "Ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("team created in rolled back tx is visible: %v", err)
	}
}
