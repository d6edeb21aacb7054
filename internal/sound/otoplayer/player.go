// Package otoplayer plays catalogue sounds on the default audio device.
package otoplayer

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/julianstephens/tradertime/internal/logger"
	"github.com/julianstephens/tradertime/internal/sound"
)

// oto allows a single context per process.
var (
	ctxOnce sync.Once
	ctx     *oto.Context
	ctxErr  error
)

func audioContext() (*oto.Context, error) {
	ctxOnce.Do(func() {
		c, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sound.SampleRate,
			ChannelCount: sound.ChannelCount,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			ctxErr = fmt.Errorf("failed to initialize audio context: %w", err)
			return
		}
		<-ready
		ctx = c
		logger.Debug("Audio context initialized")
	})
	return ctx, ctxErr
}

// Player implements sound.Player on top of oto.
type Player struct{}

func New() *Player {
	return &Player{}
}

func (p *Player) Start(soundID string) (sound.Session, error) {
	c, err := audioContext()
	if err != nil {
		return nil, err
	}

	s := &session{
		stopCh: make(chan struct{}),
		pcm:    sound.PCM(soundID),
	}
	go s.loop(c)
	return s, nil
}

type session struct {
	mu      sync.Mutex
	stopCh  chan struct{}
	stopped bool
	player  *oto.Player
	pcm     []byte
}

// loop replays the sound until Stop is called.
func (s *session) loop(c *oto.Context) {
	for {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		pl := c.NewPlayer(bytes.NewReader(s.pcm))
		s.player = pl
		s.mu.Unlock()

		pl.Play()
		for pl.IsPlaying() {
			select {
			case <-s.stopCh:
				pl.Pause()
				_ = pl.Close()
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
		if err := pl.Close(); err != nil {
			logger.Warn("Failed to close audio player", "error", err)
		}
	}
}

func (s *session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.stopCh)
	if s.player != nil {
		s.player.Pause()
	}
}
