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

	"github.com/cenkalti/backoff/v4"
	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/devotional/internal/constants"
	"github.com/julianstephens/devotional/internal/logger"
	"github.com/julianstephens/devotional/internal/models"
)

var (
	userConfigDirFunc = os.UserConfigDir
	findProcessFunc   = ps.FindProcess
)

// ErrTrayNotRunning is returned when no tray lockfile or process is found
var ErrTrayNotRunning = errors.New(constants.TrayExecutablePrefix + " is not running")

// Tray posts notifications to the tray application's local webhook. The
// tray advertises itself in a lockfile holding "port|pid|secret".
type Tray struct {
	client       *http.Client
	lockfilePath string
}

type WebhookPayload struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	Payload    string `json:"payload,omitempty"`
	DurationMs uint32 `json:"duration_ms"`
}

func NewTray() *Tray {
	return &Tray{client: &http.Client{Timeout: 5 * time.Second}}
}

func (t *Tray) lockfile() (string, error) {
	if t.lockfilePath != "" {
		return t.lockfilePath, nil
	}
	dir, err := GetTrayAppConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.NotifierLockfileName), nil
}

func (t *Tray) endpoint() (string, string, error) {
	path, err := t.lockfile()
	if err != nil {
		return "", "", err
	}
	port, secret, err := findAndValidateTrayProcess(path)
	if err != nil {
		return "", "", err
	}
	return "http://127.0.0.1:" + port, secret, nil
}

func (t *Tray) Show(ctx context.Context, n models.Notification) error {
	base, secret, err := t.endpoint()
	if err != nil {
		return err
	}
	payload := WebhookPayload{
		ID:         n.ID,
		Title:      n.Title,
		Text:       n.Body,
		Payload:    n.Payload.Encode(),
		DurationMs: constants.NotificationDurationMs,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return t.send(ctx, http.MethodPost, base+"/notifications", secret, data)
}

func (t *Tray) Clear(ctx context.Context, id int) error {
	base, secret, err := t.endpoint()
	if err != nil {
		return err
	}
	return t.send(ctx, http.MethodDelete, base+"/notifications/"+strconv.Itoa(id), secret, nil)
}

// send retries connection failures a few times; the tray may be starting.
// A response with a non-2xx status is final.
func (t *Tray) send(ctx context.Context, method, url, secret string, body []byte) error {
	connErrs := 0
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Devotional-Secret", secret)

		res, err := t.client.Do(req)
		if err != nil {
			connErrs++
			return err
		}
		respBody, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		res.Body.Close()

		if res.StatusCode < 200 || res.StatusCode > 299 {
			return backoff.Permanent(fmt.Errorf("tray request failed with status %d: %s", res.StatusCode, strings.TrimSpace(string(respBody))))
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Debug("Tray request failed, retrying", "url", url, "wait", wait, "error", err)
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(constants.NotifyRetryDelay), constants.NotifyMaxRetries-1)
	err := backoff.RetryNotify(op, backoff.WithContext(policy, ctx), notify)
	if err != nil && connErrs == constants.NotifyMaxRetries {
		return fmt.Errorf("tray unreachable: %w", err)
	}
	return err
}

// GetTrayAppConfigDir returns the directory holding the tray lockfile. The
// tray's settings.json may point it elsewhere.
func GetTrayAppConfigDir() (string, error) {
	configDir, err := userConfigDirFunc()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}

	trayConfigDir := filepath.Join(configDir, constants.TrayAppIdentifier)

	data, err := os.ReadFile(filepath.Join(trayConfigDir, "settings.json"))
	if err == nil {
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
	}

	return trayConfigDir, nil
}

func findAndValidateTrayProcess(lockfilePath string) (string, string, error) {
	content, err := os.ReadFile(lockfilePath)
	if err != nil {
		return "", "", ErrTrayNotRunning
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 3 {
		return "", "", errors.New("lockfile is malformed")
	}

	port := strings.TrimSpace(parts[0])
	if port == "" {
		return "", "", errors.New("port in lockfile is empty")
	}
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

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return "", "", ErrTrayNotRunning
	}
	if !strings.HasPrefix(process.Executable(), constants.TrayExecutablePrefix) {
		return "", "", fmt.Errorf("process with PID %d is not %s (is %s)", pid, constants.TrayExecutablePrefix, process.Executable())
	}

	return port, secret, nil
}

// CheckTray reports whether a tray advertising itself in dir is running
func CheckTray(dir string) error {
	_, _, err := findAndValidateTrayProcess(filepath.Join(dir, constants.NotifierLockfileName))
	return err
}
