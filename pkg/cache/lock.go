package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	pollBusy  = 200 * time.Millisecond
	pollRetry = 100 * time.Millisecond
)

// Lock takes an inter-process lock on target by creating target+".lock"
// holding "<timestamp> <pid>". A lock whose pid is dead or whose content is
// unreadable is treated as stale and taken over. Lock waits while a live
// process holds the lock, until ctx ends.
func Lock(ctx context.Context, target string) (func() error, error) {
	lockFile := target + ".lock"

	if err := os.MkdirAll(filepath.Dir(lockFile), 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent dir for lock: %w", err)
	}

	for {
		f, err := os.OpenFile(lockFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			content := fmt.Sprintf("%s %d", time.Now().Format(time.RFC3339), os.Getpid())
			if _, err := f.WriteString(content); err != nil {
				f.Close()
				os.Remove(lockFile)
				return nil, fmt.Errorf("failed to write to lock file: %w", err)
			}
			f.Close()
			return func() error {
				return os.Remove(lockFile)
			}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}

		pid, err := readLockPid(lockFile)
		switch {
		case os.IsNotExist(err):
			continue
		case err != nil:
			if werr := sleep(ctx, pollRetry); werr != nil {
				return nil, werr
			}
			continue
		case pid <= 0:
			os.Remove(lockFile)
			continue
		}

		if isPidAlive(pid) {
			if werr := sleep(ctx, pollBusy); werr != nil {
				return nil, fmt.Errorf("waiting for lock held by pid %d: %w", pid, werr)
			}
			continue
		}
		// dead owner; another waiter may remove it first, which is fine
		os.Remove(lockFile)
	}
}

// readLockPid returns 0 for a malformed lock file.
func readLockPid(lockFile string) (int, error) {
	content, err := os.ReadFile(lockFile)
	if err != nil {
		return 0, err
	}
	parts := strings.Fields(string(content))
	if len(parts) < 2 {
		return 0, nil
	}
	pid, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, nil
	}
	return pid, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isPidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	if errors.Is(err, syscall.ESRCH) || errors.Is(err, os.ErrProcessDone) {
		return false
	}
	// EPERM: exists, owned by someone else
	return true
}
