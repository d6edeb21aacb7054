package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidAlertID = errors.New("invalid alert id")

// AlertKind distinguishes built-in session alerts from user-created ones.
type AlertKind uint8

const (
	KindUnset AlertKind = iota
	KindFixed
	KindUser
)

func (k AlertKind) String() string {
	switch k {
	case KindFixed:
		return "fixed"
	case KindUser:
		return "user"
	default:
		return "unset"
	}
}

// AlertID identifies an alert. Fixed alerts are addressed by their catalogue
// index, user alerts by an opaque key. The zero value is not a valid id.
type AlertID struct {
	kind  AlertKind
	index int
	key   string
}

func FixedID(index int) AlertID {
	return AlertID{kind: KindFixed, index: index}
}

func UserID(key string) AlertID {
	return AlertID{kind: KindUser, key: key}
}

// NewUserID returns a fresh random user alert id.
func NewUserID() AlertID {
	return UserID(uuid.New().String())
}

func (id AlertID) Kind() AlertKind { return id.kind }
func (id AlertID) IsFixed() bool   { return id.kind == KindFixed }
func (id AlertID) IsZero() bool    { return id.kind == KindUnset }

// Index is the catalogue index of a fixed alert, 0 for user alerts.
func (id AlertID) Index() int { return id.index }

// Key is the opaque key of a user alert, empty for fixed alerts.
func (id AlertID) Key() string { return id.key }

func (id AlertID) String() string {
	switch id.kind {
	case KindFixed:
		return "fixed:" + strconv.Itoa(id.index)
	case KindUser:
		return "user:" + id.key
	default:
		return ""
	}
}

// ParseAlertID parses the text form produced by String. A bare key without a
// kind prefix is read as a user id.
func ParseAlertID(s string) (AlertID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return AlertID{}, fmt.Errorf("%w: empty", ErrInvalidAlertID)
	}

	kind, rest, found := strings.Cut(s, ":")
	if !found {
		return UserID(s), nil
	}

	switch kind {
	case "fixed":
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			return AlertID{}, fmt.Errorf("%w: bad fixed index %q", ErrInvalidAlertID, rest)
		}
		return FixedID(n), nil
	case "user":
		if rest == "" {
			return AlertID{}, fmt.Errorf("%w: empty user key", ErrInvalidAlertID)
		}
		return UserID(rest), nil
	default:
		return AlertID{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidAlertID, kind)
	}
}

func (id AlertID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *AlertID) UnmarshalText(b []byte) error {
	parsed, err := ParseAlertID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Value implements driver.Valuer so ids are stored in their text form.
func (id AlertID) Value() (driver.Value, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("%w: zero id", ErrInvalidAlertID)
	}
	return id.String(), nil
}

// Scan implements sql.Scanner.
func (id *AlertID) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return id.UnmarshalText([]byte(v))
	case []byte:
		return id.UnmarshalText(v)
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidAlertID, src)
	}
}
