// Package atomicfile implements the write-temp/fsync/rename/backup
// discipline used by every JSON document this pipeline owns (the queue
// stores, the feedback log, the preferences document).
package atomicfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// WriteJSON marshals v as indented JSON and writes it to path using the
// write-temp -> fsync -> copy-previous-to-.bak -> rename-over-target sequence. A
// concurrent reader never observes a partially-written file.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("atomicfile: marshal %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("atomicfile: mkdir %s: %w", dir, err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("atomicfile: open temp %s: %w", tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("atomicfile: write temp %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("atomicfile: fsync temp %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("atomicfile: close temp %s: %w", tmp, err)
	}

	// Preserve the previous contents as a backup before the rename
	// replaces them, so a reader that races the rename still has
	// something sane to fall back to.
	if prev, err := os.ReadFile(path); err == nil {
		_ = os.WriteFile(path+".bak", prev, 0o644)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomicfile: rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}

// ReadJSON loads path into v. On parse failure it retries once from
// path+".bak"; if that also fails, it logs and leaves v untouched so the
// caller can reinitialize to its zero value.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err == nil {
		if jsonErr := json.Unmarshal(data, v); jsonErr == nil {
			return nil
		}
		logrus.WithField("path", path).Warn("atomicfile: primary file corrupt, falling back to .bak")
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("atomicfile: read %s: %w", path, err)
	}

	bak := path + ".bak"
	bakData, bakErr := os.ReadFile(bak)
	if bakErr != nil {
		if os.IsNotExist(bakErr) {
			return os.ErrNotExist
		}
		return fmt.Errorf("atomicfile: read backup %s: %w", bak, bakErr)
	}
	if jsonErr := json.Unmarshal(bakData, v); jsonErr != nil {
		return fmt.Errorf("atomicfile: backup %s also corrupt: %w", bak, jsonErr)
	}
	logrus.WithField("path", path).Info("atomicfile: recovered from .bak")
	return nil
}
