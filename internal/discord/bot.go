// Package discord runs the bot: session lifecycle, event handler wiring,
// and the adapters that expose Discord as the feed source, publisher,
// voice driver, and occupant counter the core packages consume.
package discord

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"sotdbot/internal/config"
	"sotdbot/internal/feed"
	"sotdbot/internal/occupancy"
	"sotdbot/internal/rotation"
	"sotdbot/internal/voice"
)

// Bot is the Discord bot.
type Bot struct {
	dg  *discordgo.Session
	cfg *config.Config
	ctx context.Context

	machine   *occupancy.Machine
	scheduler *rotation.Scheduler
}

func NewBot(cfg *config.Config) *Bot {
	return &Bot{cfg: cfg}
}

// Run connects the session and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	dg, err := discordgo.New("Bot " + b.cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	b.dg = dg
	b.ctx = ctx
	b.configureIntents()

	agent, err := voice.New(dg, b.cfg.AudioPath)
	if err != nil {
		return fmt.Errorf("voice agent: %w", err)
	}
	b.machine = occupancy.New(agent, &stateCounter{dg: dg})

	reader := feed.NewReader(&channelSource{dg: dg})
	b.scheduler = rotation.New(reader, &channelPublisher{dg: dg}, rotation.Config{
		RequestChannelID: b.cfg.SongRequestChannelID,
		PublishChannelID: b.cfg.SotdChannelID,
		MinRequestID:     b.cfg.MinID(),
		AllLinks:         b.cfg.AllLinks,
		DryRun:           b.cfg.DryRun,
		SkipRunCheck:     b.cfg.SkipRunCheck,
	})

	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onVoiceStateUpdate)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer dg.Close()
	defer b.scheduler.Stop()

	<-ctx.Done()
	log.Println("[INFO] ❎ Shutdown signal received. Cleaning up...")
	return nil
}

func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildVoiceStates
}

// onReady fires on connect and on every reconnect. The rotation check
// runs each time (the once-per-day gate makes that safe); the timer is
// armed only once.
func (b *Bot) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	botInfo, err := s.User("@me")
	if err != nil {
		log.Println("[WARN] Error retrieving bot user:", err)
	} else {
		log.Printf("[INFO] ✅ %s is connected", botInfo.Username)
	}

	go func() {
		if err := b.scheduler.RunOnce(b.ctx); err != nil {
			log.Printf("[ERR] Startup rotation run failed: %v", err)
		}
		if err := b.scheduler.ReportNewLinks(b.ctx); err != nil {
			log.Printf("[ERR] New-link report failed: %v", err)
		}
	}()

	b.scheduler.Arm(b.ctx)
}

// onVoiceStateUpdate translates the gateway event into a membership
// event for the occupancy machine. Events caused by bots (this one
// included) are flagged so the machine can ignore them.
func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, vsu *discordgo.VoiceStateUpdate) {
	ev := occupancy.Event{ActorIsBot: b.actorIsBot(s, vsu)}

	if vsu.BeforeUpdate != nil && vsu.BeforeUpdate.ChannelID != "" {
		guildID := vsu.BeforeUpdate.GuildID
		if guildID == "" {
			guildID = vsu.GuildID
		}
		ev.Old = &occupancy.ChannelRef{GuildID: guildID, ChannelID: vsu.BeforeUpdate.ChannelID}
	}
	if vsu.ChannelID != "" {
		ev.New = &occupancy.ChannelRef{GuildID: vsu.GuildID, ChannelID: vsu.ChannelID}
	}

	b.machine.HandleUpdate(ev)
}

func (b *Bot) actorIsBot(s *discordgo.Session, vsu *discordgo.VoiceStateUpdate) bool {
	if s.State.User != nil && vsu.UserID == s.State.User.ID {
		return true
	}
	return vsu.Member != nil && vsu.Member.User != nil && vsu.Member.User.Bot
}
