package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jensholdgaard/cricket-auction/internal/auction"
	"github.com/jensholdgaard/cricket-auction/internal/clock"
	"github.com/jensholdgaard/cricket-auction/internal/config"
	"github.com/jensholdgaard/cricket-auction/internal/store"
	"github.com/jensholdgaard/cricket-auction/internal/store/postgres"
)

// TestEngine_DeletePlayerRacesFinalize runs player deletion against settlement
// of the same player's auction. Both take row locks in the same order, so one
// side wins cleanly and the other gets an engine error, never a deadlock.
func TestEngine_DeletePlayerRacesFinalize(t *testing.T) {
	db := newTestDB(t)
	clk := clock.Real{}
	repos := &store.Repositories{
		Teams:    postgres.NewTeamRepo(db, clk),
		Players:  postgres.NewPlayerRepo(db, clk),
		Auctions: postgres.NewAuctionRepo(db, clk),
		RunInTx:  postgres.TxRunner(db, clk),
		Closer:   db,
		Ping:     db.PingContext,
	}
	mgr, err := auction.NewManager(repos, config.AuctionConfig{InitialCredits: 100000, MaxRoster: 50},
		slog.New(slog.NewTextHandler(io.Discard, nil)), noop.NewTracerProvider(), metricnoop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ctx := context.Background()

	team := &store.Team{Name: "Racers", Credits: 100000}
	if err := repos.Teams.Create(ctx, team); err != nil {
		t.Fatalf("Create team: %v", err)
	}

	for i := range 20 {
		p, a, err := mgr.CreatePlayerAndStartAuction(ctx, fmt.Sprintf("Contested %d", i), "", 100)
		if err != nil {
			t.Fatalf("CreatePlayerAndStartAuction: %v", err)
		}
		if _, err := mgr.PlaceBid(ctx, a.ID, team.ID, 200); err != nil {
			t.Fatalf("PlaceBid: %v", err)
		}

		var wg sync.WaitGroup
		var deleteErr, finalizeErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			deleteErr = mgr.DeletePlayer(ctx, p.ID)
		}()
		go func() {
			defer wg.Done()
			_, _, finalizeErr = mgr.FinalizeAuction(ctx, a.ID)
		}()
		wg.Wait()

		switch {
		case deleteErr == nil:
			if !errors.Is(finalizeErr, auction.ErrAuctionNotFound) {
				t.Errorf("round %d: finalize after delete error = %v, want ErrAuctionNotFound", i, finalizeErr)
			}
		case errors.Is(deleteErr, auction.ErrPlayerSold):
			if finalizeErr != nil {
				t.Errorf("round %d: finalize error = %v, want nil", i, finalizeErr)
			}
		default:
			t.Errorf("round %d: delete error = %v", i, deleteErr)
		}
	}
}
