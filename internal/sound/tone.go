package sound

import (
	"encoding/binary"
	"math"

	"github.com/julianstephens/tradertime/internal/models"
)

const (
	SampleRate   = 44100
	ChannelCount = 2
	bytesPerSamp = 2
)

// tone describes one loop of a catalogue sound as a run of notes.
type tone struct {
	notes  []float64 // Hz, 0 is a rest
	noteMs int
	gapMs  int
	decay  bool
}

var tones = map[string]tone{
	"alert-01": {notes: []float64{880, 880}, noteMs: 180, gapMs: 120},
	"alert-02": {notes: []float64{659.25, 783.99, 987.77, 1318.51}, noteMs: 220, gapMs: 40, decay: true},
	"alert-03": {notes: []float64{1567.98}, noteMs: 600, gapMs: 200, decay: true},
	"alert-04": {notes: []float64{1760}, noteMs: 90, gapMs: 400},
	"alert-05": {notes: []float64{440, 0, 440}, noteMs: 300, gapMs: 100},
}

// PCM renders one loop of soundID as interleaved signed 16-bit little-endian
// stereo samples. Unknown ids render the default sound.
func PCM(soundID string) []byte {
	t, ok := tones[models.ResolveSoundID(soundID)]
	if !ok {
		t = tones[models.DefaultSoundID]
	}

	noteSamples := SampleRate * t.noteMs / 1000
	gapSamples := SampleRate * t.gapMs / 1000
	total := len(t.notes) * (noteSamples + gapSamples)
	buf := make([]byte, total*ChannelCount*bytesPerSamp)

	pos := 0
	write := func(v int16) {
		for c := 0; c < ChannelCount; c++ {
			binary.LittleEndian.PutUint16(buf[pos:], uint16(v))
			pos += bytesPerSamp
		}
	}

	for _, freq := range t.notes {
		for i := 0; i < noteSamples; i++ {
			if freq == 0 {
				write(0)
				continue
			}
			amp := 0.35
			if t.decay {
				amp *= 1 - float64(i)/float64(noteSamples)
			}
			v := amp * math.Sin(2*math.Pi*freq*float64(i)/SampleRate)
			write(int16(v * math.MaxInt16))
		}
		for i := 0; i < gapSamples; i++ {
			write(0)
		}
	}
	return buf
}

// LoopDuration reports how long one loop of soundID lasts.
func LoopDuration(soundID string) float64 {
	return float64(len(PCM(soundID))) / float64(SampleRate*ChannelCount*bytesPerSamp)
}
