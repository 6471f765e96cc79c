package backup

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

// tarRoot prefixes every tar entry so archives extract in place.
const tarRoot = "./"

// packWriters holds the writer chain of an archive being created.
type packWriters struct {
	closers []io.Closer
}

// Close closes all writers in reverse order, returning the first error encountered
func (pw *packWriters) Close() error {
	var firstErr error
	for i := len(pw.closers) - 1; i >= 0; i-- {
		if err := pw.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// skipFunc reports whether a path under the data root must not be archived.
type skipFunc func(path string) bool

// packTree writes every regular file and directory below root into w.
// Symbolic links and special files are left out.
func packTree(ctx context.Context, w io.Writer, format Format, root string, skip skipFunc) (err error) {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to stat data root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data root '%s' is not a directory", root)
	}

	switch format {
	case FormatZip:
		return packZip(ctx, w, root, skip)
	case FormatTar, FormatGzTar, FormatBzTar:
		return packTar(ctx, w, format, root, skip)
	default:
		return fmt.Errorf("unsupported archive format '%s'", format)
	}
}

func packTar(ctx context.Context, w io.Writer, format Format, root string, skip skipFunc) (err error) {
	pw := &packWriters{}
	defer func() {
		closeErr := pw.Close()
		if err == nil {
			err = closeErr
		}
	}()

	var dest io.Writer = w
	switch format {
	case FormatGzTar:
		gz, err := gzip.NewWriterLevel(w, gzip.DefaultCompression)
		if err != nil {
			return fmt.Errorf("failed to create gzip writer: %w", err)
		}
		pw.closers = append(pw.closers, gz)
		dest = gz
	case FormatBzTar:
		bz, err := bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
		if err != nil {
			return fmt.Errorf("failed to create bzip2 writer: %w", err)
		}
		pw.closers = append(pw.closers, bz)
		dest = bz
	}

	tw := tar.NewWriter(dest)
	pw.closers = append(pw.closers, tw)

	return walkTree(ctx, root, skip, func(rel string, info fs.FileInfo, full string) error {
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("failed to build header for '%s': %w", rel, err)
		}

		header.Name = tarRoot + rel
		if rel == "." {
			header.Name = tarRoot
		} else if info.IsDir() {
			header.Name += "/"
		}

		if err := tw.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to write header for '%s': %w", rel, err)
		}

		if info.IsDir() {
			return nil
		}
		return copyFileTo(tw, full)
	})
}

func packZip(ctx context.Context, w io.Writer, root string, skip skipFunc) (err error) {
	zw := zip.NewWriter(w)
	defer func() {
		closeErr := zw.Close()
		if err == nil {
			err = closeErr
		}
	}()

	return walkTree(ctx, root, skip, func(rel string, info fs.FileInfo, full string) error {
		if rel == "." {
			return nil
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return fmt.Errorf("failed to build header for '%s': %w", rel, err)
		}

		header.Name = rel
		if info.IsDir() {
			header.Name += "/"
			header.Method = zip.Store
		} else {
			header.Method = zip.Deflate
		}

		entry, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to write header for '%s': %w", rel, err)
		}

		if info.IsDir() {
			return nil
		}
		return copyFileTo(entry, full)
	})
}

// walkTree calls fn for root itself (rel ".") and every directory and
// regular file below it, with slash separated relative paths.
func walkTree(ctx context.Context, root string, skip skipFunc, fn func(rel string, info fs.FileInfo, full string) error) error {
	return filepath.WalkDir(root, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if skip != nil && full != root && skip(full) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.IsDir() && !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, full)
		if err != nil {
			return err
		}

		return fn(path.Clean(filepath.ToSlash(rel)), info, full)
	})
}

//nolint:gosec // G304: path comes from walking the configured data root
func copyFileTo(w io.Writer, full string) error {
	f, err := os.Open(full)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to archive '%s': %w", full, err)
	}
	return nil
}
