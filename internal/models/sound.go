package models

import "github.com/julianstephens/tradertime/internal/constants"

const DefaultSoundID = constants.DefaultSoundID

type Sound struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var Sounds = []Sound{
	{ID: "alert-01", Name: "Default", Description: "Standard notification tone"},
	{ID: "alert-02", Name: "Chime", Description: "Extended melodic chime"},
	{ID: "alert-03", Name: "Bell", Description: "Crisp bell sound"},
	{ID: "alert-04", Name: "Ping", Description: "Quick ping notification"},
	{ID: "alert-05", Name: "Tone", Description: "Classic alert tone"},
}

func SoundByID(id string) (Sound, bool) {
	for _, s := range Sounds {
		if s.ID == id {
			return s, true
		}
	}
	return Sound{}, false
}

// ResolveSoundID returns id when it names a catalogue sound, otherwise the default.
func ResolveSoundID(id string) string {
	if _, ok := SoundByID(id); ok {
		return id
	}
	return DefaultSoundID
}
