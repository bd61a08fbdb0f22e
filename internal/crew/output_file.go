package crew

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// resolveOutputPath joins relative output files to dir.
func resolveOutputPath(dir, file string) string {
	if file == "" || filepath.IsAbs(file) || dir == "" {
		return file
	}
	return filepath.Join(dir, file)
}

// writeOutputFile atomically replaces path with content, creating parent directories.
func writeOutputFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := renameio.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write output file %s: %w", path, err)
	}
	return nil
}
