// Package storage keeps generated artifacts on the local filesystem. The
// archive service later collects them from the configured output directory.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/lahah11/finale-anesp-sub000/internal/application/port"
)

// FileStore implements port.DocumentStore on a local directory
type FileStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewFileStore creates a new file store rooted at baseDir
func NewFileStore(baseDir string, logger *zap.Logger) *FileStore {
	return &FileStore{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Store writes the artifact under the base directory and returns its path
func (s *FileStore) Store(ctx context.Context, name string, content []byte) (string, error) {
	if name == "" {
		return "", fmt.Errorf("cannot store artifact: empty name")
	}

	path := filepath.Join(s.baseDir, sanitizeName(name))

	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		s.logger.Error("Failed to create output directory",
			zap.String("dir", s.baseDir),
			zap.Error(err))
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		s.logger.Error("Failed to write artifact",
			zap.String("path", path),
			zap.Error(err))
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	s.logger.Debug("Artifact stored",
		zap.String("path", path),
		zap.Int("bytes", len(content)))

	return path, nil
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// sanitizeName strips path separators and parent references so a caller
// cannot escape the base directory
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "")
	name = strings.ReplaceAll(name, "\\", "")
	return unsafeNameChars.ReplaceAllString(name, "")
}

// Verify interface compliance
var _ port.DocumentStore = (*FileStore)(nil)
