package backup_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwantia/ideascube/pkg/backup"
)

func TestNewRepositoryValidation(t *testing.T) {
	base := backup.Options{Root: "/tmp/b", DataRoot: "/tmp/d", SourceID: "musasa", Version: "0.1.0"}

	tests := []struct {
		name   string
		mutate func(o *backup.Options)
	}{
		{"missing root", func(o *backup.Options) { o.Root = "" }},
		{"missing data root", func(o *backup.Options) { o.DataRoot = "" }},
		{"underscore in source id", func(o *backup.Options) { o.SourceID = "my_box" }},
		{"empty version", func(o *backup.Options) { o.Version = "" }},
		{"unknown format", func(o *backup.Options) { o.Format = "rar" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := base
			tt.mutate(&opts)
			_, err := backup.NewRepository(opts)
			assert.Error(t, err)
		})
	}

	repo, err := backup.NewRepository(base)
	require.NoError(t, err)
	assert.Equal(t, backup.FormatZip, repo.Format())
}

func TestListSkipsForeignFiles(t *testing.T) {
	env := newTestEnv(t, backup.FormatZip)

	writeFile(t, filepath.Join(env.root, "musasa_0.1.0_201501241620.zip"), "")
	writeFile(t, filepath.Join(env.root, "donotlistme.zip"), "")
	require.NoError(t, os.MkdirAll(filepath.Join(env.root, "edoardo_0.0.0_201501231405.tar"), 0o755))

	archives, err := env.repo.List()
	require.NoError(t, err)
	require.Len(t, archives, 1)
	assert.Equal(t, "musasa_0.1.0_201501241620.zip", archives[0].Name)
	assert.Equal(t, "musasa_0.1.0_201501241620.zip", archives[0].String())
}

func TestListIsSortedByName(t *testing.T) {
	env := newTestEnv(t, backup.FormatZip)

	for _, name := range []string{
		"musasa_0.1.0_201601010000.tar",
		"edoardo_0.0.0_201501231405.tar.gz",
		"musasa_0.1.0_201501241620.zip",
	} {
		writeFile(t, filepath.Join(env.root, name), "")
	}

	archives, err := env.repo.List()
	require.NoError(t, err)
	require.Len(t, archives, 3)
	assert.Equal(t, "edoardo_0.0.0_201501231405.tar.gz", archives[0].Name)
	assert.Equal(t, "musasa_0.1.0_201501241620.zip", archives[1].Name)
	assert.Equal(t, "musasa_0.1.0_201601010000.tar", archives[2].Name)
}

func TestListMissingRepository(t *testing.T) {
	env := newTestEnv(t, backup.FormatZip)

	archives, err := env.repo.List()
	require.NoError(t, err)
	assert.Empty(t, archives)

	_, err = os.Stat(env.root)
	assert.True(t, os.IsNotExist(err), "listing must not create the repository")
}

func TestCreateContainsDataRoot(t *testing.T) {
	for _, format := range backup.Formats() {
		t.Run(string(format), func(t *testing.T) {
			env := newTestEnv(t, format)
			writeFile(t, filepath.Join(env.dataRoot, "backup.me"), "proof")
			writeFile(t, filepath.Join(env.dataRoot, "media", "nested.txt"), "nested")
			require.NoError(t, os.Symlink("backup.me", filepath.Join(env.dataRoot, "symlink")))

			archive, err := env.repo.Create(context.Background())
			require.NoError(t, err)

			assert.Equal(t, backup.MakeName("musasa", "0.1.0", fixedNow, format), archive.Name)
			assert.Equal(t, filepath.Join(env.root, archive.Name), archive.Path())
			size, err := archive.Size()
			require.NoError(t, err)
			assert.Positive(t, size)

			entries := readArchive(t, archive.Path(), format)
			prefix := ""
			if format.IsTar() {
				prefix = "./"
			}

			assert.Equal(t, "proof", entries[prefix+"backup.me"])
			assert.Equal(t, "nested", entries[prefix+"media/nested.txt"])
			assert.NotContains(t, entries, prefix+"symlink")

			assert.Equal(t, []string{archive.Name}, repositoryFiles(t, env.root))
		})
	}
}

func TestCreateRefusesToOverwrite(t *testing.T) {
	env := newTestEnv(t, backup.FormatGzTar)
	writeFile(t, filepath.Join(env.dataRoot, "default.sqlite"), "db")

	first, err := env.repo.Create(context.Background())
	require.NoError(t, err)
	before := readFile(t, first.Path())

	_, err = env.repo.Create(context.Background())
	assert.ErrorIs(t, err, backup.ErrArchiveExists)
	assert.Equal(t, before, readFile(t, first.Path()))
}

func TestCreateSkipsNestedRepository(t *testing.T) {
	base := t.TempDir()
	repo, err := backup.NewRepository(backup.Options{
		Root:     filepath.Join(base, "backups"),
		DataRoot: base,
		SourceID: "musasa",
		Version:  "0.1.0",
		Format:   backup.FormatZip,
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	writeFile(t, filepath.Join(base, "keep.txt"), "keep")
	writeFile(t, filepath.Join(base, "backups", "edoardo_0.0.0_201501231405.zip"), "old")

	archive, err := repo.Create(context.Background())
	require.NoError(t, err)

	entries := readArchive(t, archive.Path(), backup.FormatZip)
	assert.Contains(t, entries, "keep.txt")
	for name := range entries {
		assert.False(t, strings.HasPrefix(name, "backups"), name)
	}
}

func TestCreateMissingDataRoot(t *testing.T) {
	env := newTestEnv(t, backup.FormatZip)
	require.NoError(t, os.RemoveAll(env.dataRoot))

	_, err := env.repo.Create(context.Background())
	require.Error(t, err)
	assert.Empty(t, repositoryFiles(t, env.root), "failed creation must not leave files behind")
}

func TestCreateCancelled(t *testing.T) {
	env := newTestEnv(t, backup.FormatTar)
	writeFile(t, filepath.Join(env.dataRoot, "a.txt"), "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.repo.Create(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, repositoryFiles(t, env.root))
}

func TestDeleteIsIdempotent(t *testing.T) {
	env := newTestEnv(t, backup.FormatZip)
	name := "musasa_0.1.0_201501241620.zip"

	require.NoError(t, env.repo.Delete("doesnotexist_0.1.0_201501241620.tar"), "missing repository")

	_, err := env.repo.Load(name, bytes.NewReader(zipBytes(t, map[string]string{"foo.txt": "x"})))
	require.NoError(t, err)
	require.True(t, env.repo.Exists(name))

	require.NoError(t, env.repo.Delete(name))
	assert.False(t, env.repo.Exists(name))
	require.NoError(t, env.repo.Delete(name))
}

func TestDeleteInvalidName(t *testing.T) {
	env := newTestEnv(t, backup.FormatZip)
	assert.ErrorIs(t, env.repo.Delete("xxxxx"), backup.ErrInvalidArchiveName)
}

func TestLoad(t *testing.T) {
	payloads := map[string][]byte{}

	for _, ext := range []string{".zip", ".tar", ".tar.gz"} {
		name := "musasa_0.1.0_201501241620" + ext
		switch ext {
		case ".zip":
			payloads[name] = zipBytes(t, map[string]string{"default.sqlite": "db"})
		case ".tar":
			payloads[name] = tarBytes(t, map[string]string{"./default.sqlite": "db"}, false)
		case ".tar.gz":
			payloads[name] = tarBytes(t, map[string]string{"./default.sqlite": "db"}, true)
		}
	}

	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, backup.FormatZip)

			archive, err := env.repo.Load(name, bytes.NewReader(payload))
			require.NoError(t, err)
			assert.Equal(t, name, archive.Name)
			assert.True(t, env.repo.Exists(name))
			assert.Equal(t, payload, []byte(readFile(t, archive.Path())))
			assert.Equal(t, []string{name}, repositoryFiles(t, env.root))
		})
	}
}

func TestLoadUsesBaseName(t *testing.T) {
	env := newTestEnv(t, backup.FormatZip)

	archive, err := env.repo.Load("/home/admin/Downloads/musasa_0.1.0_201501241620.zip",
		bytes.NewReader(zipBytes(t, map[string]string{"a": "b"})))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(env.root, "musasa_0.1.0_201501241620.zip"), archive.Path())
}

func TestLoadOverwrites(t *testing.T) {
	env := newTestEnv(t, backup.FormatZip)
	name := "musasa_0.1.0_201501241620.zip"

	_, err := env.repo.Load(name, bytes.NewReader(zipBytes(t, map[string]string{"v": "1"})))
	require.NoError(t, err)

	second := zipBytes(t, map[string]string{"v": "2"})
	archive, err := env.repo.Load(name, bytes.NewReader(second))
	require.NoError(t, err)
	assert.Equal(t, second, []byte(readFile(t, archive.Path())))
}

func TestLoadRejectsNonArchive(t *testing.T) {
	for _, name := range []string{"musasa_0.1.0_201501241620.zip", "musasa_0.1.0_201501241620.tar", "musasa_0.1.0_201501241620.tar.gz"} {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, backup.FormatZip)

			_, err := env.repo.Load(name, strings.NewReader("xxx"))
			assert.ErrorIs(t, err, backup.ErrInvalidArchiveFormat)
			assert.NotErrorIs(t, err, backup.ErrInvalidArchiveName)
			assert.Empty(t, repositoryFiles(t, env.root))
		})
	}
}

func TestLoadRejectsEmptyPayload(t *testing.T) {
	env := newTestEnv(t, backup.FormatZip)

	_, err := env.repo.Load("musasa_0.1.0_201501241620.tar", strings.NewReader(""))
	assert.ErrorIs(t, err, backup.ErrInvalidArchiveFormat)
	assert.Empty(t, repositoryFiles(t, env.root))
}

func TestLoadRejectsBadName(t *testing.T) {
	env := newTestEnv(t, backup.FormatZip)

	_, err := env.repo.Load("badname.zip", bytes.NewReader(zipBytes(t, map[string]string{"a": "b"})))
	assert.ErrorIs(t, err, backup.ErrInvalidArchiveName)
	assert.NotErrorIs(t, err, backup.ErrInvalidArchiveFormat)
	assert.Empty(t, repositoryFiles(t, env.root))
}

func TestLoadRejectsMismatchedExtension(t *testing.T) {
	env := newTestEnv(t, backup.FormatZip)

	_, err := env.repo.Load("musasa_0.1.0_201501241620.tar", bytes.NewReader(zipBytes(t, map[string]string{"a": "b"})))
	assert.ErrorIs(t, err, backup.ErrInvalidArchiveFormat)
	assert.Empty(t, repositoryFiles(t, env.root))
}

func TestExists(t *testing.T) {
	env := newTestEnv(t, backup.FormatZip)
	writeFile(t, filepath.Join(env.root, "musasa_0.1.0_201501241620.tar"), "")
	writeFile(t, filepath.Join(env.root, "notes.txt"), "")

	assert.True(t, env.repo.Exists("musasa_0.1.0_201501241620.tar"))
	assert.True(t, env.repo.Exists("notes.txt"), "existence does not require a valid name")
	assert.False(t, env.repo.Exists("doesnotexist.tar"))
	assert.False(t, env.repo.Exists("../backups/notes.txt"))
}

func TestGetAndOpen(t *testing.T) {
	env := newTestEnv(t, backup.FormatZip)
	name := "musasa_0.1.0_201501241620.zip"
	payload := zipBytes(t, map[string]string{"a": "b"})

	_, err := env.repo.Get(name)
	assert.ErrorIs(t, err, backup.ErrArchiveNotFound)

	_, err = env.repo.Load(name, bytes.NewReader(payload))
	require.NoError(t, err)

	rc, archive, err := env.repo.Open(name)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, "musasa", archive.SourceID)
}

// readArchive returns the regular file entries of an archive and their content.
func readArchive(t *testing.T, path string, format backup.Format) map[string]string {
	t.Helper()
	entries := map[string]string{}

	if format == backup.FormatZip {
		zr, err := zip.OpenReader(path)
		require.NoError(t, err)
		defer zr.Close()

		for _, f := range zr.File {
			if f.FileInfo().IsDir() {
				continue
			}
			rc, err := f.Open()
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			rc.Close()
			require.NoError(t, err)
			entries[f.Name] = string(data)
		}
		return entries
	}

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var r io.Reader = f
	switch format {
	case backup.FormatGzTar:
		gz, err := gzip.NewReader(f)
		require.NoError(t, err)
		defer gz.Close()
		r = gz
	case backup.FormatBzTar:
		r = bzip2.NewReader(f)
	}

	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		if header.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		entries[header.Name] = string(data)
	}
	return entries
}
