// Package market decides whether the forex market is trading at a given instant
// and whether a fixed session alert may fire then.
package market

import (
	"time"

	"github.com/julianstephens/tradertime/internal/constants"
	"github.com/julianstephens/tradertime/internal/models"
)

type State int

const (
	StateOpen State = iota
	StateClosedSaturday
	StateClosedSundayPreOpen
)

func (s State) String() string {
	switch s {
	case StateClosedSaturday:
		return "closed-saturday"
	case StateClosedSundayPreOpen:
		return "closed-sunday-pre-open"
	default:
		return "open"
	}
}

func (s State) IsOpen() bool {
	return s == StateOpen
}

// StateAt classifies t by its UTC weekday and hour. The market reopens at the
// Sunday session open hour.
func StateAt(t time.Time) State {
	t = t.UTC()
	switch t.Weekday() {
	case time.Saturday:
		return StateClosedSaturday
	case time.Sunday:
		if t.Hour() < constants.SessionOpenHourUTC {
			return StateClosedSundayPreOpen
		}
	}
	return StateOpen
}

// Policy gates fixed session alerts on market state.
type Policy struct {
	OpenHour  int
	OpenLabel string
}

func DefaultPolicy() Policy {
	return Policy{
		OpenHour:  constants.SessionOpenHourUTC,
		OpenLabel: models.SessionOpenLabel,
	}
}

// Allow reports whether a may fire at now. User alerts are never gated.
// The session-open alert is allowed at the open minute on Sunday even though
// the market was closed a minute earlier.
func (p Policy) Allow(a models.Alert, now time.Time) bool {
	if !a.Fixed {
		return true
	}
	now = now.UTC()
	if a.Label == p.OpenLabel && now.Weekday() == time.Sunday && now.Hour() == p.OpenHour {
		return true
	}
	return StateAt(now).IsOpen()
}
