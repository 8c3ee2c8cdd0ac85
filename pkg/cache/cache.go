// Package cache creates files at most once across goroutines and processes.
package cache

import (
	"context"
	"fmt"
	"os"
)

// Ensure creates target by calling fn unless it already exists. fn gets a
// temporary path next to target and must write the content there; Ensure
// renames it into place, so target is either absent or complete. The lock
// on target serializes concurrent callers, and only the first runs fn.
func Ensure(ctx context.Context, target string, fn func(tmp string) error) error {
	if _, err := os.Stat(target); err == nil {
		return nil
	}

	unlock, err := Lock(ctx, target)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := os.Stat(target); err == nil {
		return nil
	}

	tmp := fmt.Sprintf("%s.tmp.%d", target, os.Getpid())
	defer os.Remove(tmp)
	if err := fn(tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", target, err)
	}
	return nil
}

// WriteFile stores data at target unless target already exists.
func WriteFile(ctx context.Context, target string, data []byte) error {
	return Ensure(ctx, target, func(tmp string) error {
		return os.WriteFile(tmp, data, 0644)
	})
}
