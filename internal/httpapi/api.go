// Package httpapi exposes the auction engine and the roster over JSON HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"

	"github.com/jensholdgaard/cricket-auction/internal/auction"
	"github.com/jensholdgaard/cricket-auction/internal/config"
	"github.com/jensholdgaard/cricket-auction/internal/health"
	"github.com/jensholdgaard/cricket-auction/internal/roster"
	"github.com/jensholdgaard/cricket-auction/internal/store"
)

// AuctionService is the engine surface used by the handlers.
type AuctionService interface {
	StartAuction(ctx context.Context, playerID string, basePrice int) (*store.Auction, error)
	CreatePlayerAndStartAuction(ctx context.Context, name, className string, basePrice int) (*store.Player, *store.Auction, error)
	PlaceBid(ctx context.Context, auctionID, teamID string, amount int) (*store.Auction, error)
	FinalizeAuction(ctx context.Context, auctionID string) (*store.Team, *store.Player, error)
	DropAuction(ctx context.Context, auctionID string) error
	Checkpoint(ctx context.Context) (int64, error)
	SaveAndReset(ctx context.Context) (auction.ResetSummary, error)
	DeletePlayer(ctx context.Context, playerID string) error
	GetAuction(ctx context.Context, auctionID string) (*store.Auction, error)
	ListAuctions(ctx context.Context) ([]store.Auction, error)
}

// RosterService is the team and player query surface used by the handlers.
type RosterService interface {
	CreateTeam(ctx context.Context, name string) (*store.Team, error)
	GetTeam(ctx context.Context, id string) (*roster.TeamWithPlayers, error)
	GetTeamByName(ctx context.Context, name string) (*roster.TeamWithPlayers, error)
	ListTeams(ctx context.Context) ([]roster.TeamWithPlayers, error)
	ListPlayers(ctx context.Context) ([]roster.PlayerWithTeam, error)
}

// API holds the handler dependencies.
type API struct {
	auctions AuctionService
	roster   RosterService
	validate *validator.Validate
	logger   *slog.Logger
}

// New returns an API over the given services.
func New(auctions AuctionService, rosterSvc RosterService, logger *slog.Logger) *API {
	return &API{
		auctions: auctions,
		roster:   rosterSvc,
		validate: newValidator(),
		logger:   logger,
	}
}

// Routes mounts the API routes on r.
func (a *API) Routes(r chi.Router) {
	r.Get("/players", a.listPlayers)
	r.Delete("/player/{id}", a.deletePlayer)

	r.Post("/team", a.createTeam)
	r.Get("/team/byName/{name}", a.getTeamByName)
	r.Get("/team/{id}", a.getTeam)
	r.Get("/teams", a.listTeams)

	r.Route("/auction", func(r chi.Router) {
		r.Post("/new", a.newAuction)
		r.Post("/start/{playerId}", a.startAuction)
		r.Post("/bid/{auctionId}", a.placeBid)
		r.Post("/finalize/{auctionId}", a.finalizeAuction)
		r.Post("/save-reset", a.saveAndReset)
		r.Post("/checkpoint", a.checkpoint)
		r.Post("/drop/{id}", a.dropAuction)
		r.Get("/{id}", a.getAuction)
	})
	r.Get("/auctions", a.listAuctions)
}

// NewRouter builds the full HTTP handler: middleware, CORS, health probes,
// the API under cfg.RoutePrefix and optional static files.
func NewRouter(cfg config.ServerConfig, api *API, hh *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", hh.LivenessHandler())
	r.Get("/readyz", hh.ReadinessHandler())

	mountAPI := func(r chi.Router) {
		r.Get("/health", hh.APIHandler())
		api.Routes(r)
	}
	if prefix := strings.TrimRight(cfg.RoutePrefix, "/"); prefix != "" {
		r.Route(prefix, mountAPI)
	} else {
		mountAPI(r)
	}

	if cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
		},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}
