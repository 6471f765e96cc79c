package backup

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

var (
	zipMagic      = []byte("PK\x03\x04")
	zipEmptyMagic = []byte("PK\x05\x06")
	gzipMagic     = []byte{0x1f, 0x8b}
	bzip2Magic    = []byte("BZh")
)

// detectFormat inspects the content of f and returns the archive format it
// holds. The file offset is left undefined.
func detectFormat(f *os.File) (Format, error) {
	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	head := make([]byte, 4)
	n, err := f.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, zipMagic), bytes.HasPrefix(head, zipEmptyMagic):
		if _, err := zip.NewReader(f, info.Size()); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidArchiveFormat, err)
		}
		return FormatZip, nil
	case bytes.HasPrefix(head, gzipMagic):
		return FormatGzTar, probeTar(f, FormatGzTar)
	case bytes.HasPrefix(head, bzip2Magic):
		return FormatBzTar, probeTar(f, FormatBzTar)
	default:
		return FormatTar, probeTar(f, FormatTar)
	}
}

// probeTar requires at least one readable tar header.
func probeTar(f *os.File, format Format) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	tr, closers, err := newTarReader(f, format)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArchiveFormat, err)
	}
	defer closeAll(closers)

	if _, err := tr.Next(); err != nil {
		return fmt.Errorf("%w: not a %s file: %v", ErrInvalidArchiveFormat, format, err)
	}
	return nil
}

// newTarReader wraps r with the decompressor of format.
// The caller is responsible for closing the returned closers.
func newTarReader(r io.Reader, format Format) (*tar.Reader, []io.Closer, error) {
	var closers []io.Closer

	switch format {
	case FormatGzTar:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		closers = append(closers, gz)
		r = gz
	case FormatBzTar:
		bz, err := bzip2.NewReader(r, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create bzip2 reader: %w", err)
		}
		closers = append(closers, bz)
		r = bz
	}

	return tar.NewReader(r), closers, nil
}

// closeAll closes all closers in reverse order
func closeAll(closers []io.Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i].Close() //nolint:errcheck // Best effort cleanup
	}
}

// extractArchive overlays the content of the archive at src onto root.
// The whole archive is read and every target checked before anything is
// written.
func extractArchive(ctx context.Context, src string, format Format, root string) error {
	switch format {
	case FormatZip:
		return extractZip(ctx, src, root)
	case FormatTar, FormatGzTar, FormatBzTar:
		verify := func(header *tar.Header, _ io.Reader) error {
			return verifyTarget(root, header.Name, header.Typeflag == tar.TypeDir)
		}
		if err := walkTar(ctx, src, format, verify); err != nil {
			return err
		}
		return extractTar(ctx, src, format, root)
	default:
		return fmt.Errorf("unsupported archive format '%s'", format)
	}
}

func extractZip(ctx context.Context, src, root string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	defer zr.Close()

	for _, file := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := verifyTarget(root, file.Name, file.Mode().IsDir()); err != nil {
			return err
		}
		if err := verifyZipFile(file); err != nil {
			return err
		}
	}

	for _, file := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		target, err := safeJoin(root, file.Name)
		if err != nil {
			return err
		}

		mode := file.Mode()
		switch {
		case mode.IsDir():
			if err := makeDir(root, target); err != nil {
				return err
			}
		case mode.IsRegular():
			if err := extractZipFile(file, root, target); err != nil {
				return err
			}
		}
	}
	return nil
}

// verifyZipFile reads the entry through, which checks its CRC32.
func verifyZipFile(file *zip.File) error {
	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("%w: '%s': %v", ErrCorruptArchive, file.Name, err)
	}
	defer rc.Close()

	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("%w: '%s': %v", ErrCorruptArchive, file.Name, err)
	}
	return nil
}

func extractZipFile(file *zip.File, root, target string) error {
	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	defer rc.Close()

	return writeEntry(root, target, file.Mode().Perm(), &archiveReader{r: rc})
}

// walkTar calls fn for every entry, failing with ErrCorruptArchive on any
// read error.
//
//nolint:gosec // G304: src is an archive inside the repository
func walkTar(ctx context.Context, src string, format Format, fn func(*tar.Header, io.Reader) error) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	tr, closers, err := newTarReader(f, format)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	defer closeAll(closers)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: failed to read tar entry: %v", ErrCorruptArchive, err)
		}

		if err := fn(header, &archiveReader{r: tr}); err != nil {
			return err
		}

		if _, err := io.Copy(io.Discard, tr); err != nil {
			return fmt.Errorf("%w: failed to read '%s': %v", ErrCorruptArchive, header.Name, err)
		}
	}
}

func extractTar(ctx context.Context, src string, format Format, root string) error {
	return walkTar(ctx, src, format, func(header *tar.Header, r io.Reader) error {
		target, err := safeJoin(root, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			return makeDir(root, target)
		case tar.TypeReg:
			return writeEntry(root, target, os.FileMode(header.Mode).Perm(), r)
		default:
			// Links and devices are never archived by Create.
			return nil
		}
	})
}

// archiveReader marks read errors as archive corruption.
type archiveReader struct {
	r io.Reader
}

func (a *archiveReader) Read(p []byte) (int, error) {
	n, err := a.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		err = fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	return n, err
}

func makeDir(root, target string) error {
	if err := checkParents(root, target); err != nil {
		return err
	}
	if err := rejectSymlink(root, target); err != nil {
		return err
	}
	return os.MkdirAll(target, 0o755)
}

// writeEntry replaces target with the content of r. A symbolic link found
// at target is removed rather than followed.
func writeEntry(root, target string, perm os.FileMode, r io.Reader) error {
	if perm == 0 {
		perm = 0o644
	}

	if err := checkParents(root, target); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	if info, err := os.Lstat(target); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		if err := os.Remove(target); err != nil {
			return fmt.Errorf("failed to replace link '%s': %w", target, err)
		}
	}

	//nolint:gosec // G304: target is checked by safeJoin and checkParents
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("failed to extract '%s': %w", target, err)
	}
	return out.Close()
}

// verifyTarget checks that an entry resolves below root without passing
// through a symbolic link already present in root.
func verifyTarget(root, name string, dir bool) error {
	target, err := safeJoin(root, name)
	if err != nil {
		return err
	}
	if err := checkParents(root, target); err != nil {
		return err
	}
	if dir {
		return rejectSymlink(root, target)
	}
	return nil
}

// checkParents fails when an existing directory between root and target
// is a symbolic link.
func checkParents(root, target string) error {
	if target == root {
		return nil
	}

	rel, err := filepath.Rel(root, filepath.Dir(target))
	if err != nil {
		return err
	}
	if rel == "." {
		return nil
	}

	current := root
	for _, segment := range strings.Split(rel, string(filepath.Separator)) {
		current = filepath.Join(current, segment)
		if err := rejectSymlink(root, current); err != nil {
			return err
		}
	}
	return nil
}

// rejectSymlink accepts missing paths. root itself may be a link.
func rejectSymlink(root, path string) error {
	if path == root {
		return nil
	}

	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return fmt.Errorf("%w: '%s' is a symbolic link", ErrUnsafeArchiveEntry, path)
	}
	return nil
}

// safeJoin resolves an archive entry name below root, rejecting absolute
// names and parent directory segments.
func safeJoin(root, name string) (string, error) {
	slashed := strings.ReplaceAll(name, "\\", "/")
	if path.IsAbs(slashed) || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: '%s'", ErrUnsafeArchiveEntry, name)
	}

	for _, segment := range strings.Split(slashed, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: '%s'", ErrUnsafeArchiveEntry, name)
		}
	}

	return filepath.Join(root, filepath.FromSlash(path.Clean(slashed))), nil
}
