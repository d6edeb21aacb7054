// Package keyring keeps connection secrets in the OS keyring so they never
// appear in flags, environment dumps or the database path.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/tradertime/internal/constants"
)

var (
	ErrNotFound           = errors.New("credentials not found in keyring")
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Secret names a keyring entry under the application service.
type Secret string

const (
	// SecretDatabase holds the full PostgreSQL connection string, password included.
	SecretDatabase Secret = constants.DefaultKeyringUser
	SecretRedis    Secret = "redis-password"
)

func Get(s Secret) (string, error) {
	v, err := keyring.Get(constants.AppName, string(s))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return v, nil
}

func Set(s Secret, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", s)
	}
	if err := keyring.Set(constants.AppName, string(s), value); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", s, err)
	}
	return nil
}

func Delete(s Secret) error {
	err := keyring.Delete(constants.AppName, string(s))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", s, err)
	}
	return nil
}

func GetConnectionString() (string, error) {
	return Get(SecretDatabase)
}

func SetConnectionString(connStr string) error {
	return Set(SecretDatabase, connStr)
}

func DeleteConnectionString() error {
	return Delete(SecretDatabase)
}

// IsAvailable is a best-effort probe: a lookup that fails with anything other
// than not-found means there is no usable keyring.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
