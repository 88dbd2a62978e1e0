package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"bridgeScope/internal/model"
)

// WriteManifest atomically replaces path with the run summary, so a crashed
// run never leaves a half-written manifest behind.
func WriteManifest(path string, summary model.RunSummary) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create manifest dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write manifest tmp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename manifest: %w", err)
	}

	return nil
}

// ReadManifest loads a previously written manifest. The boolean reports
// whether one existed.
func ReadManifest(path string) (model.RunSummary, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.RunSummary{}, false, nil
		}
		return model.RunSummary{}, false, fmt.Errorf("read manifest: %w", err)
	}

	var summary model.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.RunSummary{}, false, fmt.Errorf("parse manifest: %w", err)
	}

	return summary, true, nil
}
