// Package scanner enumerates media files under a root directory into
// media.Record values. It is the device-enumeration collaborator of the sync
// engine; the engine never walks the filesystem itself.
package scanner

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/pixsync/pixsync/internal/media"
)

var imageExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {},
	".heic": {}, ".heif": {}, ".bmp": {}, ".tiff": {}, ".dng": {}, ".raw": {},
}

var videoExts = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".mkv": {}, ".avi": {}, ".webm": {}, ".m4v": {}, ".3gp": {},
}

// KindForPath classifies a file by extension. Returns false for files that
// are not media.
func KindForPath(path string) (media.Kind, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := imageExts[ext]; ok {
		return media.KindImage, true
	}
	if _, ok := videoExts[ext]; ok {
		return media.KindVideo, true
	}
	return "", false
}

// Scanner walks a media root and produces records for every media file.
type Scanner struct {
	rootDir string
}

func New(rootDir string) *Scanner {
	return &Scanner{rootDir: rootDir}
}

func (s *Scanner) RootDir() string {
	return s.rootDir
}

// AbsPath resolves a record uri back to its absolute path under the root.
func (s *Scanner) AbsPath(uri string) string {
	return filepath.Join(s.rootDir, filepath.FromSlash(uri))
}

// Scan enumerates the media root. Unreadable entries are skipped with a
// warning; only a broken walk aborts the scan. URIs are slash-normalized
// paths relative to the root.
func (s *Scanner) Scan() ([]media.Record, error) {
	var records []media.Record

	err := filepath.WalkDir(s.rootDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("walk error: %w", walkErr)
		}

		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != s.rootDir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		kind, ok := KindForPath(path)
		if !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			slog.Warn("failed to stat media file", "path", path, "error", err)
			return nil
		}

		relPath, err := filepath.Rel(s.rootDir, path)
		if err != nil {
			return fmt.Errorf("walk rel path: %w", err)
		}

		records = append(records, media.Record{
			URI:        filepath.ToSlash(relPath),
			Kind:       kind,
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("media scan failed: %w", err)
	}

	return records, nil
}
