package backup

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcastelo/saf-server/internal/apperr"
)

func writeTestDB(t *testing.T, dir string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, "ledger.db")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestCreateAndList(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeTestDB(t, dir, []byte("ledger-contents"))
	backupDir := filepath.Join(dir, "backups")

	info, err := Create(dbPath, backupDir)
	require.NoError(t, err)
	assert.Greater(t, info.Size, int64(0))
	assert.FileExists(t, info.Path)

	// The archive carries both the database file and the metadata entry
	archive, err := zip.OpenReader(info.Path)
	require.NoError(t, err)
	defer archive.Close()

	names := map[string]bool{}
	for _, f := range archive.File {
		names[f.Name] = true
	}
	assert.True(t, names["ledger.db"])
	assert.True(t, names[metadataFile])

	backups, err := List(backupDir)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, info.Filename, backups[0].Filename)
}

func TestListMissingDirectory(t *testing.T) {
	backups, err := List(filepath.Join(t.TempDir(), "never-created"))
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeTestDB(t, dir, []byte("original"))
	backupDir := filepath.Join(dir, "backups")

	info, err := Create(dbPath, backupDir)
	require.NoError(t, err)

	// Change the database, then restore the snapshot over it
	require.NoError(t, os.WriteFile(dbPath, []byte("mutated"), 0o644))
	require.NoError(t, Restore(info.Path, dbPath))

	restored, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), restored)

	// The replaced database was kept as a safety copy
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	safety := false
	for _, e := range entries {
		if len(e.Name()) > len("ledger.db") && e.Name()[:len("ledger.db.")] == "ledger.db." {
			safety = true
		}
	}
	assert.True(t, safety)
}

func TestRestoreRejectsCorruptArchive(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeTestDB(t, dir, []byte("original"))

	// Not a zip file at all
	junk := filepath.Join(dir, "junk.zip")
	require.NoError(t, os.WriteFile(junk, []byte("not a zip"), 0o644))

	err := Restore(junk, dbPath)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.CorruptArchive))

	// A zip without a database entry
	noDB := filepath.Join(dir, "nodb.zip")
	writeZip(t, noDB, map[string][]byte{metadataFile: []byte("{}")})

	err = Restore(noDB, dbPath)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.CorruptArchive))

	// A zip without metadata
	noMeta := filepath.Join(dir, "nometa.zip")
	writeZip(t, noMeta, map[string][]byte{"ledger.db": []byte("data")})

	err = Restore(noMeta, dbPath)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.CorruptArchive))

	// In every rejected case the current database is untouched
	current, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), current)
}

// A checksum mismatch only surfaces once the whole entry has been read, so it
// must be caught in the staging file, never over the live database.
func TestRestoreBadChecksumLeavesDatabaseIntact(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeTestDB(t, dir, []byte("healthy-ledger"))

	payload := []byte("garbage-bytes-from-corrupt-archive")
	archivePath := filepath.Join(dir, "badcrc.zip")

	out, err := os.Create(archivePath)
	require.NoError(t, err)
	zw := zip.NewWriter(out)

	// Store the entry raw with a wrong CRC32 so extraction fails at the end
	// of the stream.
	w, err := zw.CreateRaw(&zip.FileHeader{
		Name:               "ledger.db",
		Method:             zip.Store,
		CRC32:              0xdeadbeef,
		CompressedSize64:   uint64(len(payload)),
		UncompressedSize64: uint64(len(payload)),
	})
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)

	mw, err := zw.Create(metadataFile)
	require.NoError(t, err)
	_, err = mw.Write([]byte("{}"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	err = Restore(archivePath, dbPath)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.CorruptArchive))

	current, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("healthy-ledger"), current)

	// The failed extraction left no staging file behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".restore-")
	}
}

func writeZip(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()

	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()

	zw := zip.NewWriter(out)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}
