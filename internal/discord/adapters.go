package discord

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"sotdbot/internal/feed"
)

// channelSource adapts the Discord REST API to feed.Source.
type channelSource struct {
	dg *discordgo.Session
}

func (s *channelSource) FetchPage(ctx context.Context, channelID string, before feed.MessageID, limit int) ([]feed.Message, error) {
	beforeID := ""
	if before != 0 {
		beforeID = strconv.FormatUint(uint64(before), 10)
	}

	msgs, err := s.dg.ChannelMessages(channelID, limit, beforeID, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	page := make([]feed.Message, 0, len(msgs))
	for _, m := range msgs {
		id, err := strconv.ParseUint(m.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse message id %q: %w", m.ID, err)
		}
		fm := feed.Message{
			ID:        feed.MessageID(id),
			Content:   m.Content,
			Timestamp: m.Timestamp,
			HasThread: m.Thread != nil,
		}
		if m.Author != nil {
			fm.AuthorID = m.Author.ID
			fm.AuthorIsBot = m.Author.Bot
		}
		page = append(page, fm)
	}
	return page, nil
}

// channelPublisher adapts the Discord REST API to rotation.Publisher.
type channelPublisher struct {
	dg *discordgo.Session
}

func (p *channelPublisher) Post(ctx context.Context, channelID, content string) (feed.MessageID, error) {
	m, err := p.dg.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(m.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse posted message id %q: %w", m.ID, err)
	}
	return feed.MessageID(id), nil
}

func (p *channelPublisher) React(ctx context.Context, channelID string, messageID feed.MessageID, emoji string) error {
	return p.dg.MessageReactionAdd(channelID, strconv.FormatUint(uint64(messageID), 10), emoji, discordgo.WithContext(ctx))
}

// stateCounter derives human occupant counts from the session's guild
// state cache, falling back to the REST API for members the cache has
// not seen. Bots never count as occupants.
type stateCounter struct {
	dg *discordgo.Session
}

func (c *stateCounter) HumanOccupants(guildID, channelID string) (int, error) {
	g, err := c.dg.State.Guild(guildID)
	if err != nil {
		return 0, fmt.Errorf("guild %s not in state: %w", guildID, err)
	}

	count := 0
	for _, vs := range g.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		bot, err := c.isBot(guildID, vs.UserID)
		if err != nil {
			return 0, err
		}
		if !bot {
			count++
		}
	}
	return count, nil
}

func (c *stateCounter) isBot(guildID, userID string) (bool, error) {
	if m, err := c.dg.State.Member(guildID, userID); err == nil && m.User != nil {
		return m.User.Bot, nil
	}
	m, err := c.dg.GuildMember(guildID, userID)
	if err != nil {
		return false, fmt.Errorf("resolve member %s: %w", userID, err)
	}
	return m.User.Bot, nil
}
