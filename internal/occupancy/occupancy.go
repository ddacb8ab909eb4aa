// Package occupancy decides when the bot should join or leave a voice
// channel based on membership-change events. Decisions are made from
// occupant counts re-derived at decision time, never from incrementally
// maintained counters, and the voice agent is always re-queried for the
// bot's actual connection state before acting.
package occupancy

import (
	"log"
	"sync"
)

// ChannelRef identifies a voice channel within its guild.
type ChannelRef struct {
	GuildID   string
	ChannelID string
}

// Event is a single membership change. Old is the channel the member was
// in before the change (nil on a fresh arrival), New the channel after
// (nil on a full departure).
type Event struct {
	Old        *ChannelRef
	New        *ChannelRef
	ActorIsBot bool
}

// VoiceAgent drives the bot's voice sessions. CurrentChannel reflects the
// agent's real connection state and is treated as ground truth.
type VoiceAgent interface {
	Join(guildID, channelID string) error
	Leave(guildID string) error
	CurrentChannel(guildID string) string
}

// Counter reports how many human (non-bot) members currently occupy a
// voice channel.
type Counter interface {
	HumanOccupants(guildID, channelID string) (int, error)
}

type guildState struct {
	mu sync.Mutex

	// connectedChannel mirrors the agent's last known connection. It is
	// informational only: every decision re-queries the agent.
	connectedChannel string
}

// Machine evaluates membership events one guild at a time. Events for
// different guilds may be decided concurrently; events for the same
// guild are serialized on that guild's lock.
type Machine struct {
	agent   VoiceAgent
	counter Counter

	mu     sync.Mutex
	guilds map[string]*guildState
}

func New(agent VoiceAgent, counter Counter) *Machine {
	return &Machine{
		agent:   agent,
		counter: counter,
		guilds:  make(map[string]*guildState),
	}
}

func (m *Machine) guild(guildID string) *guildState {
	m.mu.Lock()
	defer m.mu.Unlock()
	gs, ok := m.guilds[guildID]
	if !ok {
		gs = &guildState{}
		m.guilds[guildID] = gs
	}
	return gs
}

// HandleUpdate maps one membership event to at most one join or leave.
// Safe for concurrent use.
func (m *Machine) HandleUpdate(ev Event) {
	if ev.ActorIsBot {
		return
	}

	guildID := resolveGuild(ev)
	if guildID == "" {
		log.Println("[WARN] Dropping membership event with no guild")
		return
	}

	gs := m.guild(guildID)
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if ev.Old != nil {
		if m.evaluate(gs, guildID, ev.Old.ChannelID, true) {
			return
		}
	}
	if ev.New != nil {
		m.evaluate(gs, guildID, ev.New.ChannelID, false)
	}
}

func resolveGuild(ev Event) string {
	if ev.New != nil && ev.New.GuildID != "" {
		return ev.New.GuildID
	}
	if ev.Old != nil && ev.Old.GuildID != "" {
		return ev.Old.GuildID
	}
	return ""
}

// evaluate runs the decision for one channel of the event and reports
// whether processing of the event should stop (an action was taken, or
// the event had to be dropped). departure widens the leave condition to
// include an empty channel.
func (m *Machine) evaluate(gs *guildState, guildID, channelID string, departure bool) bool {
	humans, err := m.counter.HumanOccupants(guildID, channelID)
	if err != nil {
		log.Printf("[ERR] Occupant count for %s failed, dropping event: %v", channelID, err)
		return true
	}

	connected := m.agent.CurrentChannel(guildID)

	shouldLeave := connected == channelID && humans >= 2
	if departure {
		shouldLeave = connected == channelID && (humans == 0 || humans >= 2)
	}
	if shouldLeave {
		if err := m.agent.Leave(guildID); err != nil {
			log.Printf("[ERR] Failed to leave voice in guild %s: %v", guildID, err)
			return true
		}
		gs.connectedChannel = ""
		log.Printf("[INFO] Left voice channel %s (humans=%d)", channelID, humans)
		return true
	}

	if connected == "" && humans == 1 {
		if err := m.agent.Join(guildID, channelID); err != nil {
			log.Printf("[ERR] Failed to join voice channel %s: %v", channelID, err)
			return true
		}
		gs.connectedChannel = channelID
		log.Printf("[INFO] Joined voice channel %s", channelID)
		return true
	}

	return false
}
