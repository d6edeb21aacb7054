// Package notify arms OS-level notifications so alerts are delivered while the
// app is not in the foreground.
package notify

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/tradertime/internal/constants"
	"github.com/julianstephens/tradertime/internal/models"
)

//go:generate mockgen -source=center.go -destination=center_mock.go -package=notify

// NotificationTitle is the title of every alert notification.
const NotificationTitle = "Trader Time Alert"

// NotificationID is the deterministic platform id of one scheduled notification.
// Fixed alerts use their catalogue index, user alerts a hash of their key.
// Slot numbers the notifications of a burst.
type NotificationID struct {
	Kind   models.AlertKind
	Number uint32
	Slot   int
}

// IDFor returns the notification id for slot of alert id.
func IDFor(id models.AlertID, slot int) NotificationID {
	switch id.Kind() {
	case models.KindFixed:
		return NotificationID{Kind: models.KindFixed, Number: uint32(id.Index()), Slot: slot}
	case models.KindUser:
		h := fnv.New32a()
		_, _ = h.Write([]byte(id.Key()))
		return NotificationID{Kind: models.KindUser, Number: h.Sum32(), Slot: slot}
	default:
		return NotificationID{Slot: slot}
	}
}

// IDsFor returns the ids of the first n slots of alert id.
func IDsFor(id models.AlertID, n int) []NotificationID {
	ids := make([]NotificationID, n)
	for i := range ids {
		ids[i] = IDFor(id, i)
	}
	return ids
}

func (n NotificationID) String() string {
	return fmt.Sprintf("%s-%d-%d", n.Kind, n.Number, n.Slot)
}

// Numeric folds the id into a positive int32 for platforms that only accept
// integer ids. Fixed ids stay below 100000.
func (n NotificationID) Numeric() int32 {
	slot := int64(n.Slot % constants.MaxNotificationBurst)
	if n.Kind == models.KindFixed {
		return int32(int64(n.Number)*constants.MaxNotificationBurst + slot)
	}
	return int32(100000 + int64(n.Number%200_000_000)*constants.MaxNotificationBurst + slot)
}

func ParseNotificationID(s string) (NotificationID, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return NotificationID{}, fmt.Errorf("invalid notification id %q", s)
	}
	var kind models.AlertKind
	switch parts[0] {
	case "fixed":
		kind = models.KindFixed
	case "user":
		kind = models.KindUser
	default:
		return NotificationID{}, fmt.Errorf("invalid notification id kind %q", parts[0])
	}
	num, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return NotificationID{}, fmt.Errorf("invalid notification id number %q: %w", parts[1], err)
	}
	slot, err := strconv.Atoi(parts[2])
	if err != nil {
		return NotificationID{}, fmt.Errorf("invalid notification id slot %q: %w", parts[2], err)
	}
	return NotificationID{Kind: kind, Number: uint32(num), Slot: slot}, nil
}

func (n NotificationID) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

func (n *NotificationID) UnmarshalText(b []byte) error {
	parsed, err := ParseNotificationID(string(b))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// ChannelFor returns the notification channel used for soundID. Each sound has
// its own channel because channel sounds are fixed once created.
func ChannelFor(soundID string) string {
	return fmt.Sprintf(constants.NotificationChannelFmt, strings.ReplaceAll(models.ResolveSoundID(soundID), "-", "_"))
}

// Request is one notification handed to a Center.
type Request struct {
	ID      NotificationID `json:"id"`
	AlertID models.AlertID `json:"alert_id"`
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	At      time.Time      `json:"at"`
	Channel string         `json:"channel"`
	SoundID string         `json:"sound_id"`
	Fixed   bool           `json:"fixed"`
}

// alert is the view of r the market policy needs.
func (r Request) alert() models.Alert {
	return models.Alert{ID: r.AlertID, Label: r.Body, Fixed: r.Fixed}
}

type Permission int

const (
	PermissionUndetermined Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "undetermined"
	}
}

// Center is the platform notification facility.
type Center interface {
	Schedule(ctx context.Context, req Request) error
	Cancel(ctx context.Context, ids ...NotificationID) error
	CancelAll(ctx context.Context) error
	Pending(ctx context.Context) ([]Request, error)
	Permission(ctx context.Context) (Permission, error)
}

// DueSource is implemented by centers that hand due notifications back to the
// process for delivery instead of delivering them themselves.
type DueSource interface {
	PopDue(ctx context.Context, now time.Time) ([]Request, error)
}
