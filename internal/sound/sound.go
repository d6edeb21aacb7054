// Package sound defines alert sound playback and synthesises the catalogue tones.
package sound

import (
	"sync"
	"time"

	"github.com/julianstephens/tradertime/internal/logger"
)

// Player starts looping playback of a catalogue sound.
type Player interface {
	Start(soundID string) (Session, error)
}

// Session is one running playback. Stop is idempotent.
type Session interface {
	Stop()
}

// PlayFor plays soundID for d and then stops it. It does not block.
func PlayFor(p Player, soundID string, d time.Duration) (Session, error) {
	s, err := p.Start(soundID)
	if err != nil {
		return nil, err
	}
	time.AfterFunc(d, s.Stop)
	return s, nil
}

// Nop is a Player that only logs. Used when no audio device is configured.
type Nop struct{}

func (Nop) Start(soundID string) (Session, error) {
	logger.Debug("Sound playback skipped", "sound", soundID)
	return &nopSession{}, nil
}

type nopSession struct {
	once sync.Once
}

func (s *nopSession) Stop() {
	s.once.Do(func() {})
}
