// Package delivery decides which path owns an alert on a given platform.
// Exactly one path arms each alert, so the same occurrence is never delivered twice.
package delivery

import (
	"fmt"

	"github.com/julianstephens/tradertime/internal/constants"
	"github.com/julianstephens/tradertime/internal/models"
)

type Path int

const (
	PathNone Path = iota
	PathNotification
	PathExactAlarm
)

func (p Path) String() string {
	switch p {
	case PathNotification:
		return "notification"
	case PathExactAlarm:
		return "exact-alarm"
	default:
		return "none"
	}
}

func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Path) UnmarshalText(b []byte) error {
	switch string(b) {
	case "notification":
		*p = PathNotification
	case "exact-alarm":
		*p = PathExactAlarm
	case "none":
		*p = PathNone
	default:
		return fmt.Errorf("unknown delivery path %q", b)
	}
	return nil
}

// Platform describes the delivery capabilities of the host.
type Platform struct {
	Name string
	// ExactAlarms is true when an exact-alarm service is available.
	ExactAlarms bool
	// Burst is how many notifications are scheduled per occurrence. Platforms
	// with coarse background timing get several, spaced apart.
	Burst int
}

var (
	PlatformStandard = Platform{Name: "standard", Burst: 1}
	PlatformCoarse   = Platform{Name: "coarse", Burst: constants.MaxNotificationBurst}
	PlatformExact    = Platform{Name: "exact", ExactAlarms: true, Burst: 1}
)

// PlatformByName returns the named profile.
func PlatformByName(name string) (Platform, error) {
	switch name {
	case "", PlatformStandard.Name:
		return PlatformStandard, nil
	case PlatformCoarse.Name:
		return PlatformCoarse, nil
	case PlatformExact.Name:
		return PlatformExact, nil
	}
	return Platform{}, fmt.Errorf("unknown platform profile %q (expected standard, coarse or exact)", name)
}

type rule struct {
	kind  models.AlertKind
	exact bool
	path  Path
	// foreground is true when the in-app loop plays the alert while it runs.
	// The notification path then defers to the loop; an exact alarm always
	// rings itself.
	foreground bool
}

// ownership is the single priority table consulted by every scheduler.
// Fixed alerts are gated on market state by every path that delivers them.
var ownership = []rule{
	{kind: models.KindFixed, exact: true, path: PathExactAlarm},
	{kind: models.KindFixed, exact: false, path: PathNotification, foreground: true},
	{kind: models.KindUser, exact: true, path: PathExactAlarm},
	{kind: models.KindUser, exact: false, path: PathNotification, foreground: true},
}

func lookup(p Platform, a models.Alert) (rule, bool) {
	if !a.Enabled {
		return rule{}, false
	}
	for _, r := range ownership {
		if r.kind == a.ID.Kind() && r.exact == p.ExactAlarms {
			return r, true
		}
	}
	return rule{}, false
}

// Owner returns the path that arms a on p. Disabled alerts are owned by no path.
func Owner(p Platform, a models.Alert) Path {
	r, ok := lookup(p, a)
	if !ok {
		return PathNone
	}
	return r.path
}

// ForegroundPlays reports whether the in-app loop plays a on p while it is
// running. When it does, the owning notification is retired without being
// shown, so each occurrence is delivered once.
func ForegroundPlays(p Platform, a models.Alert) bool {
	r, ok := lookup(p, a)
	return ok && r.foreground
}
