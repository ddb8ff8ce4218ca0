// Package fsatomic provides the temp-file-then-rename primitives that every
// durable store in elon (queue buckets, engine log, config, known-errors)
// uses as its commit point. Rename within the same directory is atomic on
// any POSIX filesystem, which is what lets readers never observe a partial
// write.
package fsatomic

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// WriteFile stages data at a temp sibling of path and renames it into place.
// The temp file lives in the same directory as path so the rename is on the
// same filesystem (required for atomicity).
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("fsatomic: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("fsatomic: create temp in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	// On any return path other than a successful rename, the temp file must
	// not linger.
	succeeded := false
	defer func() {
		if !succeeded {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("fsatomic: write temp %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("fsatomic: sync temp %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fsatomic: close temp %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("fsatomic: chmod temp %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("fsatomic: rename %s -> %s: %w", tmpPath, path, err)
	}
	succeeded = true
	return nil
}

// Move renames src to dst, falling back to copy+remove when they sit on
// different filesystems (cross-device rename, EXDEV). This mirrors the
// queue's approved -> completed/failed transition, which the design notes
// call out as preferring rename but needing a copy+delete fallback.
func Move(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("fsatomic: mkdir %s: %w", filepath.Dir(dst), err)
	}
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return fmt.Errorf("fsatomic: rename %s -> %s: %w", src, dst, err)
	}

	data, rerr := os.ReadFile(src)
	if rerr != nil {
		return fmt.Errorf("fsatomic: read %s for cross-device move: %w", src, rerr)
	}
	info, serr := os.Stat(src)
	perm := os.FileMode(0o644)
	if serr == nil {
		perm = info.Mode().Perm()
	}
	if werr := WriteFile(dst, data, perm); werr != nil {
		return fmt.Errorf("fsatomic: write %s for cross-device move: %w", dst, werr)
	}
	if rmErr := os.Remove(src); rmErr != nil {
		return fmt.Errorf("fsatomic: remove %s after cross-device move: %w", src, rmErr)
	}
	return nil
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return errors.Is(linkErr.Err, syscall.EXDEV)
	}
	return errors.Is(err, syscall.EXDEV)
}
