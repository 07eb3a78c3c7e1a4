package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/raaihank/literal-sentinel/internal/engine"
)

// WalkDirectory reads every eligible file under root. Document paths are relative to
// root and slash separated; the walk order is lexical so the result is stable.
func WalkDirectory(ctx context.Context, root string, policy Policy, logger *zap.Logger) ([]engine.Document, *Stats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	policy = policy.withDefaults()

	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("scan root %s is not a directory", root)
	}

	stats := &Stats{}
	var docs []engine.Document

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			logger.Warn("Skipping unreadable path", zap.String("path", path), zap.Error(walkErr))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && policy.skipsDir(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !policy.allowsExtension(path) {
			return nil
		}

		stats.Read++
		fi, err := d.Info()
		if err != nil {
			stats.Skipped++
			return nil
		}
		if fi.Size() >= policy.MaxFileSize {
			stats.TooLarge++
			logger.Debug("Skipping large file", zap.String("path", path), zap.Int64("size", fi.Size()))
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			stats.Skipped++
			logger.Warn("Failed to read file", zap.String("path", path), zap.Error(err))
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		docs = append(docs, engine.Document{
			Path:         filepath.ToSlash(rel),
			Content:      normalizeContent(data),
			FileCategory: FileCategoryFor(path),
		})
		stats.Accepted++
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("directory walk failed: %w", err)
	}

	logger.Info("Directory walk completed",
		zap.String("root", root),
		zap.Int64("files_read", stats.Read),
		zap.Int64("documents", stats.Accepted),
		zap.Int64("too_large", stats.TooLarge))

	return docs, stats, nil
}

// normalizeContent drops invalid UTF-8 sequences
func normalizeContent(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "")
}
