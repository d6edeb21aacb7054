package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/tradertime/internal/cli"
	"github.com/julianstephens/tradertime/internal/keyring"
	"github.com/julianstephens/tradertime/internal/storage/postgres"
)

func secretFor(name string) (keyring.Secret, error) {
	switch name {
	case "database":
		return keyring.SecretDatabase, nil
	case "redis":
		return keyring.SecretRedis, nil
	default:
		return "", fmt.Errorf("unknown secret %q (expected database or redis)", name)
	}
}

// KeyringSetCmd stores a credential in the OS keyring
type KeyringSetCmd struct {
	Secret string `arg:"" enum:"database,redis" help:"Which secret to store (database, redis)."`
	Value  string `arg:"" help:"PostgreSQL connection string or Redis password."`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	secret, err := secretFor(cmd.Secret)
	if err != nil {
		return err
	}
	if cmd.Value == "" {
		return errors.New("value cannot be empty")
	}

	if secret == keyring.SecretDatabase {
		if !strings.HasPrefix(cmd.Value, "postgres://") &&
			!strings.HasPrefix(cmd.Value, "postgresql://") &&
			!strings.Contains(cmd.Value, "host=") {
			return errors.New("connection string must be a valid PostgreSQL connection string")
		}
		if _, err := postgres.ValidateConnString(cmd.Value); err != nil {
			if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return fmt.Errorf("invalid connection string: %w", err)
			}
			// The keyring is encrypted, so a password here is expected.
			ctx.Printf("ℹ Connection string includes a password; it is stored encrypted in the OS keyring.\n")
		}
	}

	if err := keyring.Set(secret, cmd.Value); err != nil {
		return fmt.Errorf("failed to store %s secret in keyring: %w", cmd.Secret, err)
	}

	ctx.Printf("✓ %s secret stored in OS keyring\n", cmd.Secret)
	if secret == keyring.SecretDatabase {
		ctx.Printf("  Use --config keyring to connect with it\n")
	}
	return nil
}

// KeyringGetCmd prints a stored credential with its password masked
type KeyringGetCmd struct {
	Secret string `arg:"" enum:"database,redis" help:"Which secret to show (database, redis)."`
}

func (cmd *KeyringGetCmd) Run(ctx *cli.Context) error {
	secret, err := secretFor(cmd.Secret)
	if err != nil {
		return err
	}
	value, err := keyring.Get(secret)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s secret found in keyring. Use 'tradertime keyring set %s' to store one", cmd.Secret, cmd.Secret)
		}
		return fmt.Errorf("failed to retrieve %s secret from keyring: %w", cmd.Secret, err)
	}

	if secret == keyring.SecretRedis {
		ctx.Printf("Redis password is set (%d characters)\n", len(value))
		return nil
	}
	ctx.Printf("Connection string retrieved from keyring:\n%s\n", maskPassword(value))
	return nil
}

// KeyringDeleteCmd removes a credential from the OS keyring
type KeyringDeleteCmd struct {
	Secret string `arg:"" enum:"database,redis" help:"Which secret to delete (database, redis)."`
}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	secret, err := secretFor(cmd.Secret)
	if err != nil {
		return err
	}
	if err := keyring.Delete(secret); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s secret found in keyring", cmd.Secret)
		}
		return fmt.Errorf("failed to delete %s secret from keyring: %w", cmd.Secret, err)
	}

	ctx.Printf("✓ %s secret deleted from OS keyring\n", cmd.Secret)
	return nil
}

// KeyringStatusCmd checks the availability of the OS keyring
type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		ctx.Printf("❌ OS keyring is not available on this system\n")
		return errors.New("keyring unavailable")
	}
	ctx.Printf("✓ OS keyring is available\n")

	for _, name := range []string{"database", "redis"} {
		secret, _ := secretFor(name)
		if _, err := keyring.Get(secret); err == nil {
			ctx.Printf("✓ %s secret is stored\n", name)
		} else if errors.Is(err, keyring.ErrNotFound) {
			ctx.Printf("ℹ No %s secret stored\n", name)
		}
	}
	return nil
}

// maskPassword masks passwords in connection strings for display
func maskPassword(connStr string) string {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		idx := strings.Index(connStr, "://")
		remaining := connStr[idx+3:]
		if atIdx := strings.LastIndex(remaining, "@"); atIdx != -1 {
			userInfo := remaining[:atIdx]
			if colonIdx := strings.Index(userInfo, ":"); colonIdx != -1 {
				return connStr[:idx+3] + userInfo[:colonIdx] + ":****" + connStr[idx+3+atIdx:]
			}
		}
		return connStr
	}

	if strings.Contains(connStr, "password=") {
		parts := strings.Fields(connStr)
		for i, part := range parts {
			if strings.HasPrefix(part, "password=") {
				parts[i] = "password=****"
			}
		}
		return strings.Join(parts, " ")
	}

	return connStr
}
