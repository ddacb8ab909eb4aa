// Package voice owns the bot's voice sessions, one per guild. Joining a
// channel starts a continuous looping playback of the configured audio
// asset; leaving tears the session down and stops playback.
package voice

import (
	"fmt"
	"log"
	"sync"

	"github.com/bwmarrin/discordgo"
)

type session struct {
	vc   *discordgo.VoiceConnection
	stop chan struct{}
	done chan struct{}
}

type Agent struct {
	dg     *discordgo.Session
	frames [][]byte

	mu       sync.Mutex
	sessions map[string]*session
}

// New loads the audio asset up front so a broken file fails the process
// at startup instead of at the first join.
func New(dg *discordgo.Session, audioPath string) (*Agent, error) {
	frames, err := LoadFrames(audioPath)
	if err != nil {
		return nil, fmt.Errorf("load audio %s: %w", audioPath, err)
	}
	return &Agent{
		dg:       dg,
		frames:   frames,
		sessions: make(map[string]*session),
	}, nil
}

// Join connects to a voice channel and starts looping playback. Any
// existing session in the guild is stopped first.
func (a *Agent) Join(guildID, channelID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if old, ok := a.sessions[guildID]; ok {
		stopSession(old)
		delete(a.sessions, guildID)
	}

	vc, err := a.dg.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return fmt.Errorf("join voice channel %s: %w", channelID, err)
	}

	s := &session{vc: vc, stop: make(chan struct{}), done: make(chan struct{})}
	a.sessions[guildID] = s
	go a.playLoop(s)
	return nil
}

// Leave stops playback and disconnects the guild's session. Leaving a
// guild without a session is a no-op.
func (a *Agent) Leave(guildID string) error {
	a.mu.Lock()
	s, ok := a.sessions[guildID]
	delete(a.sessions, guildID)
	a.mu.Unlock()

	if !ok {
		return nil
	}
	stopSession(s)

	if err := s.vc.Disconnect(); err != nil {
		return fmt.Errorf("disconnect guild %s: %w", guildID, err)
	}
	return nil
}

// CurrentChannel reports where the session layer believes the bot is
// connected. The session's own connection registry is the source of
// truth, not the agent's bookkeeping.
func (a *Agent) CurrentChannel(guildID string) string {
	a.dg.RLock()
	defer a.dg.RUnlock()
	if vc, ok := a.dg.VoiceConnections[guildID]; ok {
		return vc.ChannelID
	}
	return ""
}

func stopSession(s *session) {
	close(s.stop)
	<-s.done
}

// playLoop sends the asset's opus frames over the voice connection,
// restarting from the first frame until stopped.
func (a *Agent) playLoop(s *session) {
	defer close(s.done)

	if err := s.vc.Speaking(true); err != nil {
		log.Printf("[ERR] Failed to set speaking state: %v", err)
		return
	}
	defer func() {
		if err := s.vc.Speaking(false); err != nil {
			log.Printf("[WARN] Failed to clear speaking state: %v", err)
		}
	}()

	for {
		for _, frame := range a.frames {
			select {
			case <-s.stop:
				return
			case s.vc.OpusSend <- frame:
			}
		}
	}
}
