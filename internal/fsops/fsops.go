// Package fsops provides the filesystem side effects used by the command
// executor: cancellable atomic copies, renames, and per-path directory
// enumeration. Copies land via a temp file renamed into place so observers
// never see a half-written destination, and cancellation removes partials.
package fsops

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// partialSuffix marks in-flight copy destinations. The watch layer filters
// these names so a copy in progress never surfaces as a transient entity.
const partialSuffix = ".savescum-partial"

// copyChunkSize is the unit of interruptible copying: cancellation is
// checked between chunks.
const copyChunkSize = 1 << 20

// IsPartial reports whether name is an in-flight copy artifact.
func IsPartial(name string) bool {
	return filepath.Ext(name) == partialSuffix
}

// CopyFile copies src to dst atomically. The data is written to a temp file
// in dst's directory and renamed over dst once complete. On error or context
// cancellation the partial temp file is removed; dst is either absent or
// complete, never truncated.
func CopyFile(ctx context.Context, src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("fsops: opening %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("fsops: stat %s: %w", src, err)
	}

	tmp := dst + partialSuffix

	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("fsops: creating %s: %w", tmp, err)
	}

	defer func() {
		if err != nil {
			out.Close()
			os.Remove(tmp)
		}
	}()

	if err = copyChunks(ctx, out, in); err != nil {
		return fmt.Errorf("fsops: copying %s: %w", src, err)
	}

	if err = out.Sync(); err != nil {
		return fmt.Errorf("fsops: syncing %s: %w", tmp, err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("fsops: closing %s: %w", tmp, err)
	}

	if err = os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("fsops: renaming %s into place: %w", tmp, err)
	}

	return nil
}

// copyChunks streams src to dst in bounded chunks, honoring cancellation
// between chunks.
func copyChunks(ctx context.Context, dst io.Writer, src io.Reader) error {
	buf := make([]byte, copyChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return writeErr
			}
		}

		if errors.Is(readErr, io.EOF) {
			return nil
		}

		if readErr != nil {
			return readErr
		}
	}
}

// Rename moves a file or directory, wrapping the error with both paths.
func Rename(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("fsops: renaming %s to %s: %w", oldPath, newPath, err)
	}

	return nil
}

// RemoveFile deletes a single file. A missing file is not an error — the
// caller's intent (file gone) already holds.
func RemoveFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("fsops: removing %s: %w", path, err)
	}

	return nil
}

// RemoveDir deletes an empty directory, absorbing already-absent paths.
func RemoveDir(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("fsops: removing dir %s: %w", path, err)
	}

	return nil
}

// Entry describes one immediate child of a directory.
type Entry struct {
	Name    string
	Path    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// ListDir enumerates a directory's immediate children with metadata, sorted
// by name. Children whose metadata cannot be read are skipped (they may have
// disappeared between readdir and stat); the listing itself failing is an
// error.
func ListDir(path string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("fsops: reading dir %s: %w", path, err)
	}

	entries := make([]Entry, 0, len(dirEntries))

	for _, de := range dirEntries {
		info, infoErr := de.Info()
		if infoErr != nil {
			continue
		}

		entries = append(entries, Entry{
			Name:    de.Name(),
			Path:    filepath.Join(path, de.Name()),
			IsDir:   de.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	return entries, nil
}
