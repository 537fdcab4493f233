package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const lockOwnerFile = "owner.json"

// Lock guards a checkpoint against a second concurrent driver.
type Lock struct {
	lockDir string
}

type lockOwner struct {
	PID       int    `json:"pid"`
	RunID     string `json:"run_id,omitempty"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
}

// LockPathFor returns the lock directory used for a file-backed checkpoint.
func LockPathFor(checkpointPath string) string {
	return strings.TrimSpace(checkpointPath) + ".lock"
}

func AcquireLock(lockDir, runID string) (Lock, error) {
	target := strings.TrimSpace(lockDir)
	if target == "" {
		return Lock{}, fmt.Errorf("lock path is required")
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Lock{}, fmt.Errorf("create parent for lock %s: %w", target, err)
	}

	if err := os.Mkdir(target, 0o755); err != nil {
		if os.IsExist(err) {
			var owner lockOwner
			if readErr := ReadJSON(filepath.Join(target, lockOwnerFile), &owner); readErr == nil && owner.PID > 0 && owner.CreatedAt != "" {
				return Lock{}, fmt.Errorf(
					"checkpoint is locked: %s (pid=%d run_id=%s created_at=%s host=%s)",
					target, owner.PID, owner.RunID, owner.CreatedAt, owner.Hostname,
				)
			}
			return Lock{}, fmt.Errorf("checkpoint is locked: %s", target)
		}
		return Lock{}, fmt.Errorf("acquire checkpoint lock %s: %w", target, err)
	}

	owner := lockOwner{
		PID:       os.Getpid(),
		RunID:     runID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
	}
	if err := WriteJSON(filepath.Join(target, lockOwnerFile), owner); err != nil {
		_ = os.RemoveAll(target)
		return Lock{}, fmt.Errorf("write lock owner for %s: %w", target, err)
	}

	return Lock{lockDir: target}, nil
}

func (l Lock) Release() error {
	if strings.TrimSpace(l.lockDir) == "" {
		return nil
	}
	_ = os.Remove(filepath.Join(l.lockDir, lockOwnerFile))
	if err := os.Remove(l.lockDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release checkpoint lock %s: %w", l.lockDir, err)
	}
	return nil
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "unknown"
	}
	return host
}
