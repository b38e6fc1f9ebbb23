// Package memstore provides the "memory" store.Driver: process-local maps that
// honour the same constraints as the Postgres schema. It backs tests and
// single-process deployments that do not need persistence.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jensholdgaard/cricket-auction/internal/clock"
	"github.com/jensholdgaard/cricket-auction/internal/config"
	"github.com/jensholdgaard/cricket-auction/internal/store"
)

func init() {
	store.Register(config.DriverMemory, func(_ context.Context, _ config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
		return New(clk), nil
	})
}

type teamRow struct {
	store.Team
	seq uint64
}

type playerRow struct {
	store.Player
	seq uint64
}

type auctionRow struct {
	store.Auction
	seq uint64
}

// state is one consistent snapshot of every table.
type state struct {
	seq      uint64
	teams    map[string]teamRow
	players  map[string]playerRow
	auctions map[string]auctionRow
}

func newState() *state {
	return &state{
		teams:    map[string]teamRow{},
		players:  map[string]playerRow{},
		auctions: map[string]auctionRow{},
	}
}

func (s *state) clone() *state {
	c := &state{
		seq:      s.seq,
		teams:    make(map[string]teamRow, len(s.teams)),
		players:  make(map[string]playerRow, len(s.players)),
		auctions: make(map[string]auctionRow, len(s.auctions)),
	}
	for k, v := range s.teams {
		c.teams[k] = v
	}
	for k, v := range s.players {
		c.players[k] = v
	}
	for k, v := range s.auctions {
		c.auctions[k] = v
	}
	return c
}

func (s *state) next() uint64 {
	s.seq++
	return s.seq
}

// DB holds the tables. A transaction keeps mu for its whole duration and
// works on a clone that replaces the live state on commit.
type DB struct {
	mu    sync.Mutex
	state *state
}

// accessor runs fn against a state.
type accessor func(fn func(s *state) error) error

func (db *DB) with(fn func(s *state) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(db.state)
}

// New returns Repositories over an empty in-memory database.
func New(clk clock.Clock) *store.Repositories {
	db := &DB{state: newState()}
	return &store.Repositories{
		Teams:    &TeamRepo{with: db.with, clock: clk},
		Players:  &PlayerRepo{with: db.with, clock: clk},
		Auctions: &AuctionRepo{with: db.with, clock: clk},
		RunInTx:  db.runInTx(clk),
		Closer:   store.CloserFunc(func() error { return nil }),
		Ping:     func(context.Context) error { return nil },
	}
}

func (db *DB) runInTx(clk clock.Clock) func(ctx context.Context, fn func(tx store.Tx) error) error {
	return func(ctx context.Context, fn func(tx store.Tx) error) error {
		db.mu.Lock()
		defer db.mu.Unlock()
		if err := ctx.Err(); err != nil {
			return err
		}

		work := db.state.clone()
		bound := func(fn func(s *state) error) error { return fn(work) }
		if err := fn(store.Tx{
			Teams:    &TeamRepo{with: bound, clock: clk},
			Players:  &PlayerRepo{with: bound, clock: clk},
			Auctions: &AuctionRepo{with: bound, clock: clk},
		}); err != nil {
			return err
		}
		db.state = work
		return nil
	}
}

func sortTeams(rows []teamRow) []store.Team {
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]store.Team, len(rows))
	for i, r := range rows {
		out[i] = r.Team
	}
	return out
}

func sortPlayers(rows []playerRow) []store.Player {
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]store.Player, len(rows))
	for i, r := range rows {
		out[i] = r.Player
	}
	return out
}

func sameName(a, b string) bool {
	return strings.EqualFold(a, b)
}
