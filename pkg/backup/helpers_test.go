package backup_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mwantia/ideascube/pkg/backup"
)

var fixedNow = time.Date(2015, time.January, 24, 16, 20, 0, 0, time.Local)

type testEnv struct {
	repo     *backup.Repository
	root     string
	dataRoot string
}

func newTestEnv(t *testing.T, format backup.Format) *testEnv {
	t.Helper()

	base := t.TempDir()
	env := &testEnv{
		root:     filepath.Join(base, "backups"),
		dataRoot: filepath.Join(base, "main"),
	}
	require.NoError(t, os.MkdirAll(env.dataRoot, 0o755))

	repo, err := backup.NewRepository(backup.Options{
		Root:     env.root,
		DataRoot: env.dataRoot,
		SourceID: "musasa",
		Version:  "0.1.0",
		Format:   format,
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	env.repo = repo
	return env
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// zipBytes builds a zip archive in memory with the given entries.
func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range sortedKeys(files) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// storedZipBytes builds an uncompressed zip so entry data can be located
// and altered in the returned bytes.
func storedZipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range sortedKeys(files) {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// tarBytes builds a tar archive, gzip compressed when gz is set.
func tarBytes(t *testing.T, files map[string]string, gz bool) []byte {
	t.Helper()

	var buf bytes.Buffer
	var gzw *gzip.Writer
	tw := tar.NewWriter(&buf)
	if gz {
		gzw = gzip.NewWriter(&buf)
		tw = tar.NewWriter(gzw)
	}

	for _, name := range sortedKeys(files) {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(files[name])),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	if gzw != nil {
		require.NoError(t, gzw.Close())
	}
	return buf.Bytes()
}

func sortedKeys(files map[string]string) []string {
	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// repositoryFiles lists the repository content except the lock file.
func repositoryFiles(t *testing.T, root string) []string {
	t.Helper()

	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)

	var names []string
	for _, entry := range entries {
		if entry.Name() != ".lock" {
			names = append(names, entry.Name())
		}
	}
	return names
}
