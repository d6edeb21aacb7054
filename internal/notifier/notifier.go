// Package notifier hands due notifications to the desktop tray companion,
// which shows them as native OS notifications.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"
	"github.com/spf13/afero"

	"github.com/julianstephens/tradertime/internal/constants"
	"github.com/julianstephens/tradertime/internal/notify"
)

var ErrTrayNotRunning = errors.New("tray app is not running")

// WebhookPayload is the body the tray app accepts.
type WebhookPayload struct {
	Title      string `json:"title"`
	Text       string `json:"text"`
	DurationMs uint32 `json:"duration_ms"`
	Channel    string `json:"channel,omitempty"`
	Sound      string `json:"sound,omitempty"`
}

type Option func(*Notifier)

// WithFs replaces the filesystem the lockfile and settings are read from.
func WithFs(fs afero.Fs) Option {
	return func(n *Notifier) { n.fs = fs }
}

func WithConfigDir(fn func() (string, error)) Option {
	return func(n *Notifier) { n.configDir = fn }
}

func WithProcessFinder(fn func(int) (ps.Process, error)) Option {
	return func(n *Notifier) { n.findProcess = fn }
}

func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

// Notifier implements notify.Sink over the tray app's local webhook.
type Notifier struct {
	fs          afero.Fs
	configDir   func() (string, error)
	findProcess func(int) (ps.Process, error)
	client      *http.Client
}

var _ notify.Sink = (*Notifier)(nil)

func New(opts ...Option) *Notifier {
	n := &Notifier{
		fs:          afero.NewOsFs(),
		configDir:   os.UserConfigDir,
		findProcess: ps.FindProcess,
		client:      &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Deliver posts req to the tray app.
func (n *Notifier) Deliver(ctx context.Context, req notify.Request) error {
	dir, err := n.TrayConfigDir()
	if err != nil {
		return err
	}

	port, secret, err := n.findTray(filepath.Join(dir, constants.NotifierLockfileName))
	if err != nil {
		return err
	}

	return n.send(ctx, port, secret, WebhookPayload{
		Title:      req.Title,
		Text:       req.Body,
		DurationMs: constants.NotificationDurationMs,
		Channel:    req.Channel,
		Sound:      req.SoundID,
	})
}

// TrayConfigDir returns the directory holding the tray lockfile. The tray's
// settings.json may point it elsewhere.
func (n *Notifier) TrayConfigDir() (string, error) {
	configDir, err := n.configDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	trayDir := filepath.Join(configDir, constants.TrayAppIdentifier)

	data, err := afero.ReadFile(n.fs, filepath.Join(trayDir, "settings.json"))
	if err != nil {
		return trayDir, nil
	}
	var store struct {
		Settings struct {
			LockfileDir *string `json:"lockfile_dir"`
		} `json:"settings"`
	}
	if err := json.Unmarshal(data, &store); err == nil {
		if store.Settings.LockfileDir != nil && *store.Settings.LockfileDir != "" {
			return *store.Settings.LockfileDir, nil
		}
	}
	return trayDir, nil
}

// findTray parses a port|pid|secret lockfile and checks that the pid belongs
// to the tray executable.
func (n *Notifier) findTray(lockfilePath string) (string, string, error) {
	content, err := afero.ReadFile(n.fs, lockfilePath)
	if err != nil {
		return "", "", ErrTrayNotRunning
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 3 {
		return "", "", errors.New("lockfile is malformed")
	}

	port := strings.TrimSpace(parts[0])
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return "", "", errors.New("invalid port number in lockfile")
	}
	if portNum < 1 || portNum > 65535 {
		return "", "", fmt.Errorf("port number %d is outside valid range (1-65535)", portNum)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", "", errors.New("invalid process ID in lockfile")
	}
	secret := strings.TrimSpace(parts[2])
	if secret == "" {
		return "", "", errors.New("secret in lockfile is empty")
	}

	process, err := n.findProcess(pid)
	if err != nil || process == nil {
		return "", "", ErrTrayNotRunning
	}
	if !strings.HasPrefix(process.Executable(), constants.TrayAppExecutable) {
		return "", "", fmt.Errorf("process with PID %d is not %s (is %s)", pid, constants.TrayAppExecutable, process.Executable())
	}

	return port, secret, nil
}

func (n *Notifier) send(ctx context.Context, port, secret string, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://127.0.0.1:"+port, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tradertime-Secret", secret)

	res, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	msg, _ := io.ReadAll(res.Body)
	return fmt.Errorf("notification failed with status %d: %s", res.StatusCode, string(msg))
}
