package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mwantia/ideascube/pkg/log"
)

// Observer receives the outcome of repository operations.
type Observer interface {
	ObserveOperation(operation string, duration time.Duration, err error)
	ObserveArchiveSize(operation string, size int64)
}

// Options configures a Repository.
type Options struct {
	// Root is the flat directory holding the archives.
	Root string
	// DataRoot is the durable tree packed by Create and overlaid by Restore.
	DataRoot string
	SourceID string
	Version  string
	// Format is used by Create. Defaults to FormatZip.
	Format Format

	Logger   log.LoggerService
	Observer Observer
	// Now defaults to time.Now.
	Now func() time.Time
}

// Repository manages the archives of one deployment.
type Repository struct {
	mutex sync.Mutex

	root     string
	dataRoot string
	sourceID string
	version  string
	format   Format

	log      log.LoggerService
	observer Observer
	now      func() time.Time
}

func NewRepository(opts Options) (*Repository, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("repository root is required")
	}
	if opts.DataRoot == "" {
		return nil, fmt.Errorf("data root is required")
	}
	if strings.Contains(opts.SourceID, nameSeparator) || opts.SourceID == "" {
		return nil, fmt.Errorf("source id '%s' must be non-empty and must not contain '%s'", opts.SourceID, nameSeparator)
	}
	if strings.Contains(opts.Version, nameSeparator) || opts.Version == "" {
		return nil, fmt.Errorf("version '%s' must be non-empty and must not contain '%s'", opts.Version, nameSeparator)
	}

	format := opts.Format
	if format == "" {
		format = FormatZip
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Repository{
		root:     filepath.Clean(opts.Root),
		dataRoot: filepath.Clean(opts.DataRoot),
		sourceID: opts.SourceID,
		version:  opts.Version,
		format:   format,
		log:      logger,
		observer: opts.Observer,
		now:      now,
	}, nil
}

func (r *Repository) Root() string {
	return r.root
}

func (r *Repository) DataRoot() string {
	return r.dataRoot
}

// Format returns the format used by Create.
func (r *Repository) Format() Format {
	return r.format
}

func (r *Repository) path(name string) string {
	return filepath.Join(r.root, name)
}

// archive parses name and binds it to the repository.
func (r *Repository) archive(name string) (*Archive, error) {
	archive, err := NewArchive(name)
	if err != nil {
		return nil, err
	}

	archive.path = r.path(name)
	return archive, nil
}

func (r *Repository) observe(operation string, start time.Time, err error) {
	if r.observer != nil {
		r.observer.ObserveOperation(operation, time.Since(start), err)
	}
}

func (r *Repository) observeSize(operation string, archive *Archive) {
	if r.observer == nil {
		return
	}
	if size, err := archive.Size(); err == nil {
		r.observer.ObserveArchiveSize(operation, size)
	}
}

// Create packs the data root into a new archive named after the source id,
// version and current minute, using the configured format. An existing
// archive with the same name is never replaced.
func (r *Repository) Create(ctx context.Context) (*Archive, error) {
	return r.CreateFormat(ctx, r.format)
}

// CreateFormat is Create with an explicit format.
func (r *Repository) CreateFormat(ctx context.Context, format Format) (archive *Archive, err error) {
	start := time.Now()
	defer func() { r.observe("create", start, err) }()

	name := MakeName(r.sourceID, r.version, r.now(), format)
	archive, err = r.archive(name)
	if err != nil {
		return nil, err
	}

	err = r.withLock(true, func() error {
		if r.Exists(name) {
			return fmt.Errorf("%w: '%s'", ErrArchiveExists, name)
		}

		return r.writeAtomic(func(f *os.File) (string, error) {
			return name, packTree(ctx, f, format, r.dataRoot, r.skipRepository)
		})
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("Created backup '%s' from '%s'", name, r.dataRoot)
	r.observeSize("create", archive)
	return archive, nil
}

// skipRepository keeps the repository and its temporary files out of
// archives when it is nested inside the data root.
func (r *Repository) skipRepository(path string) bool {
	return path == r.root || strings.HasPrefix(path, r.root+string(filepath.Separator))
}

// writeAtomic writes a hidden temporary file and renames it to the name
// returned by write on success, so partially written archives are never
// listed.
func (r *Repository) writeAtomic(write func(f *os.File) (string, error)) (err error) {
	tmp, err := os.CreateTemp(r.root, ".partial-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary archive: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	name, err := write(tmp)
	if err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path(name)); err != nil {
		return fmt.Errorf("failed to move archive into place: %w", err)
	}
	return nil
}

// List returns the archives of the repository sorted by name. Files that
// do not follow the naming grammar are skipped and a missing repository
// yields an empty list.
func (r *Repository) List() (archives []*Archive, err error) {
	start := time.Now()
	defer func() { r.observe("list", start, err) }()

	archives = []*Archive{}
	err = r.withLock(false, func() error {
		entries, err := os.ReadDir(r.root)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read repository '%s': %w", r.root, err)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}

			archive, err := r.archive(entry.Name())
			if errors.Is(err, ErrInvalidArchiveName) {
				r.log.Debug("Skipping foreign file '%s'", entry.Name())
				continue
			}
			if err != nil {
				return err
			}

			archives = append(archives, archive)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return archives, nil
}

// Load stores an uploaded archive under its declared name, replacing any
// archive with that name. The stream must be an archive container
// (ErrInvalidArchiveFormat) and the name must follow the grammar
// (ErrInvalidArchiveName); on failure nothing is left in the repository.
func (r *Repository) Load(name string, src io.Reader) (archive *Archive, err error) {
	start := time.Now()
	defer func() { r.observe("load", start, err) }()

	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))

	err = r.withLock(true, func() error {
		return r.writeAtomic(func(f *os.File) (string, error) {
			if _, err := io.Copy(f, src); err != nil {
				return "", fmt.Errorf("failed to read upload: %w", err)
			}

			detected, err := detectFormat(f)
			if err != nil {
				if errors.Is(err, ErrInvalidArchiveFormat) {
					return "", err
				}
				return "", fmt.Errorf("%w: %v", ErrInvalidArchiveFormat, err)
			}

			archive, err = r.archive(base)
			if err != nil {
				return "", err
			}

			if archive.Format != detected {
				return "", fmt.Errorf("%w: '%s' contains a %s archive", ErrInvalidArchiveFormat, base, detected)
			}
			return base, nil
		})
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("Loaded backup '%s'", archive.Name)
	r.observeSize("load", archive)
	return archive, nil
}

// Delete removes an archive. Deleting a missing archive is not an error.
func (r *Repository) Delete(name string) (err error) {
	start := time.Now()
	defer func() { r.observe("delete", start, err) }()

	archive, err := r.archive(name)
	if err != nil {
		return err
	}

	if _, err := os.Stat(r.root); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return r.withLock(true, func() error {
		if err := os.Remove(archive.path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("failed to delete '%s': %w", name, err)
		}

		r.log.Info("Deleted backup '%s'", name)
		return nil
	})
}

// Exists reports whether a file called name is present in the repository,
// whether or not name is a valid archive name.
func (r *Repository) Exists(name string) bool {
	if name == "" || name != filepath.Base(name) {
		return false
	}

	_, err := os.Stat(r.path(name))
	return err == nil
}

// Get returns the archive called name if it is present.
func (r *Repository) Get(name string) (*Archive, error) {
	archive, err := r.archive(name)
	if err != nil {
		return nil, err
	}

	if !r.Exists(name) {
		return nil, fmt.Errorf("%w: '%s'", ErrArchiveNotFound, name)
	}
	return archive, nil
}

// Open returns a reader over the archive file. The caller closes it.
func (r *Repository) Open(name string) (io.ReadCloser, *Archive, error) {
	archive, err := r.Get(name)
	if err != nil {
		return nil, nil, err
	}

	//nolint:gosec // G304: name is validated by the archive grammar
	f, err := os.Open(archive.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: '%s'", ErrArchiveNotFound, name)
		}
		return nil, nil, err
	}
	return f, archive, nil
}

// Restore extracts the archive over the data root. Files absent from the
// archive are kept. The archive is fully checked before anything is
// written; a corrupt archive fails with ErrCorruptArchive.
func (r *Repository) Restore(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { r.observe("restore", start, err) }()

	archive, err := r.Get(name)
	if err != nil {
		return err
	}

	err = r.withLock(true, func() error {
		if err := os.MkdirAll(r.dataRoot, 0o755); err != nil {
			return fmt.Errorf("failed to create data root: %w", err)
		}
		return extractArchive(ctx, archive.path, archive.Format, r.dataRoot)
	})
	if err != nil {
		return err
	}

	r.log.Info("Restored backup '%s' into '%s'", name, r.dataRoot)
	return nil
}
