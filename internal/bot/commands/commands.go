// Package commands maps Discord slash commands onto the auction engine.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/cricket-auction/internal/auction"
	"github.com/jensholdgaard/cricket-auction/internal/roster"
	"github.com/jensholdgaard/cricket-auction/internal/store"
	"github.com/jensholdgaard/cricket-auction/internal/telemetry"
)

// Auctions is the engine surface driven by slash commands.
type Auctions interface {
	CreatePlayerAndStartAuction(ctx context.Context, name, className string, basePrice int) (*store.Player, *store.Auction, error)
	PlaceBid(ctx context.Context, auctionID, teamID string, amount int) (*store.Auction, error)
	FinalizeAuction(ctx context.Context, auctionID string) (*store.Team, *store.Player, error)
	DropAuction(ctx context.Context, auctionID string) error
	ListAuctions(ctx context.Context) ([]store.Auction, error)
}

// Roster resolves teams for bids and standings.
type Roster interface {
	GetTeamByName(ctx context.Context, name string) (*roster.TeamWithPlayers, error)
	ListTeams(ctx context.Context) ([]roster.TeamWithPlayers, error)
}

// Handlers process Discord interactions.
type Handlers struct {
	auctions Auctions
	roster   Roster
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewHandlers creates new command handlers.
func NewHandlers(auctions Auctions, rosterSvc Roster, logger *slog.Logger, tp trace.TracerProvider) *Handlers {
	return &Handlers{
		auctions: auctions,
		roster:   rosterSvc,
		logger:   logger,
		tracer:   tp.Tracer("github.com/jensholdgaard/cricket-auction/internal/bot/commands"),
	}
}

// SlashCommands returns the slash command definitions.
func SlashCommands() []*discordgo.ApplicationCommand {
	auctionID := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "auction-id",
		Description: "Auction ID",
		Required:    true,
	}
	return []*discordgo.ApplicationCommand{
		{
			Name:        "auction-new",
			Description: "Create a player and open bidding",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Player name",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "base-price",
					Description: "Opening bid",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "class",
					Description: "Player class, e.g. Batsman",
					Required:    false,
				},
			},
		},
		{
			Name:        "bid",
			Description: "Place a bid for a team",
			Options: []*discordgo.ApplicationCommandOption{
				auctionID,
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "team",
					Description: "Team name",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Bid amount",
					Required:    true,
				},
			},
		},
		{
			Name:        "auction-finalize",
			Description: "Sell the player to the highest bidder",
			Options:     []*discordgo.ApplicationCommandOption{auctionID},
		},
		{
			Name:        "auction-drop",
			Description: "Close an auction and leave the player unsold",
			Options:     []*discordgo.ApplicationCommandOption{auctionID},
		},
		{
			Name:        "standings",
			Description: "Show team credits and roster sizes",
		},
		{
			Name:        "auctions",
			Description: "List open auctions",
		},
	}
}

// options holds the values of a single command invocation by option name.
type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func (o options) str(name string) string {
	if opt, ok := o[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func (o options) num(name string) int {
	if opt, ok := o[name]; ok {
		return int(opt.IntValue())
	}
	return 0
}

// InteractionCreate handles incoming slash command interactions.
func (h *Handlers) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	opts := make(options, len(data.Options))
	for _, opt := range data.Options {
		opts[opt.Name] = opt
	}

	respond(s, i, h.dispatch(context.Background(), data.Name, opts))
}

// dispatch runs a command and returns the reply text.
func (h *Handlers) dispatch(ctx context.Context, name string, opts options) string {
	ctx, span := h.tracer.Start(ctx, "InteractionCreate",
		trace.WithAttributes(attribute.String("command", name)),
	)
	defer span.End()

	switch name {
	case "auction-new":
		return h.handleAuctionNew(ctx, opts)
	case "bid":
		return h.handleBid(ctx, opts)
	case "auction-finalize":
		return h.handleFinalize(ctx, opts)
	case "auction-drop":
		return h.handleDrop(ctx, opts)
	case "standings":
		return h.handleStandings(ctx)
	case "auctions":
		return h.handleAuctions(ctx)
	default:
		return "Unknown command"
	}
}

func (h *Handlers) handleAuctionNew(ctx context.Context, opts options) string {
	p, a, err := h.auctions.CreatePlayerAndStartAuction(ctx, opts.str("name"), opts.str("class"), opts.num("base-price"))
	if err != nil {
		return h.failure(ctx, "auction-new", err)
	}
	return fmt.Sprintf("Auction opened for **%s** at %d (ID: `%s`)", p.Name, a.CurrentBid, a.ID)
}

func (h *Handlers) handleBid(ctx context.Context, opts options) string {
	team, err := h.roster.GetTeamByName(ctx, opts.str("team"))
	if err != nil {
		return h.failure(ctx, "bid", err)
	}
	a, err := h.auctions.PlaceBid(ctx, opts.str("auction-id"), team.ID, opts.num("amount"))
	if err != nil {
		return h.failure(ctx, "bid", err)
	}
	return fmt.Sprintf("**%s** bids %d on auction `%s`", team.Name, a.CurrentBid, a.ID)
}

func (h *Handlers) handleFinalize(ctx context.Context, opts options) string {
	team, player, err := h.auctions.FinalizeAuction(ctx, opts.str("auction-id"))
	if err != nil {
		return h.failure(ctx, "auction-finalize", err)
	}
	return fmt.Sprintf("**%s** sold to **%s** for %d. Credits left: %d", player.Name, team.Name, player.SoldPrice, team.Credits)
}

func (h *Handlers) handleDrop(ctx context.Context, opts options) string {
	if err := h.auctions.DropAuction(ctx, opts.str("auction-id")); err != nil {
		return h.failure(ctx, "auction-drop", err)
	}
	return "Player dropped and marked unsold."
}

func (h *Handlers) handleStandings(ctx context.Context) string {
	teams, err := h.roster.ListTeams(ctx)
	if err != nil {
		return h.failure(ctx, "standings", err)
	}
	if len(teams) == 0 {
		return "No teams yet."
	}
	var b strings.Builder
	b.WriteString("**Standings:**\n")
	for idx, t := range teams {
		fmt.Fprintf(&b, "%d. %s: %d credits, %d spent, %d players\n", idx+1, t.Name, t.Credits, t.UsedCredits, len(t.Players))
	}
	return b.String()
}

func (h *Handlers) handleAuctions(ctx context.Context) string {
	auctions, err := h.auctions.ListAuctions(ctx)
	if err != nil {
		return h.failure(ctx, "auctions", err)
	}
	if len(auctions) == 0 {
		return "No open auctions."
	}
	var b strings.Builder
	b.WriteString("**Open auctions:**\n")
	for _, a := range auctions {
		fmt.Fprintf(&b, "`%s` player `%s`: %d\n", a.ID, a.PlayerID, a.CurrentBid)
	}
	return b.String()
}

// failure turns an error into a reply, hiding anything that is not a
// user-facing engine error.
func (h *Handlers) failure(ctx context.Context, command string, err error) string {
	var ae *auction.Error
	if errors.As(err, &ae) {
		return ae.Msg
	}
	telemetry.LogWithTrace(ctx, h.logger).ErrorContext(ctx, "command failed", slog.String("command", command), slog.Any("error", err))
	return "Something went wrong, try again."
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
		},
	})
}
