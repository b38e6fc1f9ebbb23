package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jensholdgaard/cricket-auction/internal/clock"
	"github.com/jensholdgaard/cricket-auction/internal/store"
	"github.com/jensholdgaard/cricket-auction/internal/store/postgres"
)

func TestTeamRepo_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := postgres.NewTeamRepo(db, clock.Real{})
	ctx := context.Background()

	team := &store.Team{Name: "IMJ Titans", Credits: 12000}
	if err := repo.Create(ctx, team); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if team.ID == "" {
		t.Fatal("expected ID to be set after Create")
	}

	got, err := repo.GetByID(ctx, team.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "IMJ Titans" || got.Credits != 12000 {
		t.Errorf("GetByID = %+v, want name IMJ Titans with 12000 credits", got)
	}

	byName, err := repo.GetByName(ctx, "imj TITANS")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if byName.ID != team.ID {
		t.Errorf("GetByName ID = %q, want %q", byName.ID, team.ID)
	}

	if _, err := repo.GetByName(ctx, "IMJ"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetByName partial match error = %v, want ErrNotFound", err)
	}

	if err := repo.Create(ctx, &store.Team{Name: "IMJ Titans", Credits: 1}); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("duplicate Create error = %v, want ErrDuplicate", err)
	}
}

func TestTeamRepo_GetByID_Malformed(t *testing.T) {
	db := newTestDB(t)
	repo := postgres.NewTeamRepo(db, clock.Real{})

	if _, err := repo.GetByID(context.Background(), "not-a-uuid"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetByID error = %v, want ErrNotFound", err)
	}
}

func TestTeamRepo_CreateIfAbsent(t *testing.T) {
	db := newTestDB(t)
	repo := postgres.NewTeamRepo(db, clock.Real{})
	ctx := context.Background()

	created, err := repo.CreateIfAbsent(ctx, &store.Team{Name: "IMJ Hawks", Credits: 12000})
	if err != nil || !created {
		t.Fatalf("first CreateIfAbsent = %v, %v; want true, nil", created, err)
	}
	created, err = repo.CreateIfAbsent(ctx, &store.Team{Name: "IMJ Hawks", Credits: 12000})
	if err != nil || created {
		t.Fatalf("second CreateIfAbsent = %v, %v; want false, nil", created, err)
	}

	names, err := repo.Names(ctx)
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if len(names) != 1 {
		t.Errorf("Names returned %d, want 1", len(names))
	}
}

func TestTeamRepo_ChargeAndReset(t *testing.T) {
	db := newTestDB(t)
	repo := postgres.NewTeamRepo(db, clock.Real{})
	ctx := context.Background()

	team := &store.Team{Name: "IMJ Falcons", Credits: 10000}
	if err := repo.Create(ctx, team); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.Charge(ctx, team.ID, 600); err != nil {
		t.Fatalf("Charge: %v", err)
	}
	got, _ := repo.GetByID(ctx, team.ID)
	if got.Credits != 9400 || got.UsedCredits != 600 {
		t.Errorf("after Charge credits=%d used=%d, want 9400/600", got.Credits, got.UsedCredits)
	}

	n, err := repo.ResetAll(ctx, 12000)
	if err != nil {
		t.Fatalf("ResetAll: %v", err)
	}
	if n != 1 {
		t.Errorf("ResetAll affected %d, want 1", n)
	}
	got, _ = repo.GetByID(ctx, team.ID)
	if got.Credits != 12000 || got.UsedCredits != 0 {
		t.Errorf("after ResetAll credits=%d used=%d, want 12000/0", got.Credits, got.UsedCredits)
	}
}

func TestTeamRepo_Charge_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := postgres.NewTeamRepo(db, clock.Real{})

	err := repo.Charge(context.Background(), "00000000-0000-0000-0000-000000000000", 10)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Charge error = %v, want ErrNotFound", err)
	}
}
