// Package bot runs the optional Discord auctioneer.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/cricket-auction/internal/bot/commands"
	"github.com/jensholdgaard/cricket-auction/internal/config"
)

// Bot connects the auction commands to a Discord gateway session.
type Bot struct {
	session  *discordgo.Session
	guildID  string
	logger   *slog.Logger
	handlers *commands.Handlers
}

// New creates a Bot. Nothing connects until Start.
func New(cfg config.DiscordConfig, auctions commands.Auctions, rosterSvc commands.Roster, logger *slog.Logger, tp trace.TracerProvider) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	return &Bot{
		session:  session,
		guildID:  cfg.GuildID,
		logger:   logger.With(slog.String("component", "discord")),
		handlers: commands.NewHandlers(auctions, rosterSvc, logger, tp),
	}, nil
}

// Start opens the gateway and replaces the registered command set.
func (b *Bot) Start(ctx context.Context) error {
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.logger.InfoContext(ctx, "auctioneer is ready",
			slog.String("user", r.User.Username),
			slog.Int("guilds", len(r.Guilds)),
		)
	})
	b.session.AddHandler(b.handlers.InteractionCreate)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}

	registered, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.guildID, commands.SlashCommands())
	if err != nil {
		_ = b.session.Close()
		return fmt.Errorf("registering slash commands: %w", err)
	}

	b.logger.InfoContext(ctx, "slash commands registered",
		slog.Int("count", len(registered)),
		slog.String("guild", b.guildID),
	)
	return nil
}

// Stop closes the gateway. Guild-scoped commands are cleared first so a
// stopped auctioneer leaves no dead commands behind.
func (b *Bot) Stop() error {
	var errs []error
	if b.guildID != "" {
		if _, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.guildID, nil); err != nil {
			errs = append(errs, fmt.Errorf("clearing slash commands: %w", err))
		}
	}
	if err := b.session.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing discord session: %w", err))
	}
	return errors.Join(errs...)
}
