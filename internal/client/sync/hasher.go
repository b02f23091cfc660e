package sync

import (
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	// Files up to this size are hashed in full; larger ones use a sampled
	// digest so a single huge video cannot stall a pass.
	fullHashThreshold = 64 << 20
	sampleChunkSize   = 1 << 20
)

// hashFile computes the content hash for a file. For large files the digest
// covers a reproducible sample (head, middle, tail) folded with size and
// modification time, which is stable across processes for identical content.
func hashFile(path string, size int64, modTime time.Time) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	h := md5.New()

	if size <= fullHashThreshold {
		if _, err := io.Copy(h, file); err != nil {
			return "", fmt.Errorf("hash %s: %w", path, err)
		}
		return fmt.Sprintf("%x", h.Sum(nil)), nil
	}

	offsets := []int64{0, size/2 - sampleChunkSize/2, size - sampleChunkSize}
	buf := make([]byte, sampleChunkSize)
	for _, off := range offsets {
		if _, err := file.Seek(off, io.SeekStart); err != nil {
			return "", fmt.Errorf("seek %s: %w", path, err)
		}
		n, err := io.ReadFull(file, buf)
		if err != nil && err != io.ErrUnexpectedEOF {
			return "", fmt.Errorf("sample %s: %w", path, err)
		}
		h.Write(buf[:n])
	}
	fmt.Fprintf(h, "%d:%d", size, modTime.UnixNano())

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
