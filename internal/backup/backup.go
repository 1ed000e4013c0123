// Package backup is the snapshot/restore gateway. A snapshot packages the
// whole ledger database (current-state tables plus the event log) into one
// portable zip archive; restore destructively replaces the database file from
// such an archive.
package backup

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xcastelo/saf-server/internal/apperr"
	"github.com/xcastelo/saf-server/internal/models"
)

const metadataFile = "metadata.json"

// metadata describes a snapshot archive to a later restore.
type metadata struct {
	CreatedAt    string `json:"createdAt"`
	DatabaseFile string `json:"databaseFile"`
	Application  string `json:"application"`
}

// Create writes a snapshot of the database at dbPath into backupDir. The
// caller must hold the ledger's write lock so the file is not mid-transaction.
func Create(dbPath, backupDir string) (*models.BackupInfo, error) {
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.StorageFailure, err, "create backup directory")
	}

	now := time.Now()
	filename := fmt.Sprintf("saf_backup_%s.zip", now.Format("20060102_150405"))
	backupPath := filepath.Join(backupDir, filename)

	out, err := os.Create(backupPath)
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageFailure, err, "create backup archive")
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	dbFileName := filepath.Base(dbPath)
	w, err := zw.Create(dbFileName)
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageFailure, err, "add database to archive")
	}

	src, err := os.Open(dbPath)
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageFailure, err, "open ledger database")
	}
	defer src.Close()

	if _, err := io.Copy(w, src); err != nil {
		return nil, apperr.Wrap(apperr.StorageFailure, err, "copy database into archive")
	}

	meta := metadata{
		CreatedAt:    now.Format(time.RFC3339),
		DatabaseFile: dbFileName,
		Application:  "saf-server",
	}
	mw, err := zw.Create(metadataFile)
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageFailure, err, "add metadata to archive")
	}
	if err := json.NewEncoder(mw).Encode(meta); err != nil {
		return nil, apperr.Wrap(apperr.StorageFailure, err, "write archive metadata")
	}

	if err := zw.Close(); err != nil {
		return nil, apperr.Wrap(apperr.StorageFailure, err, "finish backup archive")
	}

	info, err := os.Stat(backupPath)
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageFailure, err, "stat backup archive")
	}

	return &models.BackupInfo{
		Filename:  filename,
		Size:      info.Size(),
		CreatedAt: now,
		Path:      backupPath,
	}, nil
}

// List returns the snapshot archives in backupDir, newest first. A missing
// directory is an empty list, not an error.
func List(backupDir string) ([]models.BackupInfo, error) {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.BackupInfo{}, nil
		}
		return nil, apperr.Wrap(apperr.StorageFailure, err, "read backup directory")
	}

	backups := []models.BackupInfo{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".zip") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		backups = append(backups, models.BackupInfo{
			Filename:  entry.Name(),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
			Path:      filepath.Join(backupDir, entry.Name()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	return backups, nil
}

// Restore destructively replaces the database at dbPath with the one inside
// the archive. The archive must contain both a database file and the snapshot
// metadata; anything else is rejected as corrupt before the current database
// is touched. The replaced database is kept alongside as a safety copy.
//
// The caller must hold the ledger exclusively (no reads, no writes) and must
// reopen the database handle afterwards.
func Restore(archivePath, dbPath string) error {
	archive, err := zip.OpenReader(archivePath)
	if err != nil {
		return apperr.Wrap(apperr.CorruptArchive, err, "open snapshot archive")
	}
	defer archive.Close()

	var dbEntry *zip.File
	var hasMetadata bool
	for _, f := range archive.File {
		name := f.Name
		switch {
		case name == metadataFile:
			hasMetadata = true
		case strings.HasSuffix(name, ".db") || strings.HasSuffix(name, ".sqlite") || strings.HasSuffix(name, ".sqlite3"):
			dbEntry = f
		}
	}

	if dbEntry == nil {
		return apperr.New(apperr.CorruptArchive, "no database file found in snapshot archive")
	}
	if !hasMetadata {
		return apperr.New(apperr.CorruptArchive, "snapshot archive has no metadata")
	}

	src, err := dbEntry.Open()
	if err != nil {
		return apperr.Wrap(apperr.CorruptArchive, err, "read database from archive")
	}
	defer src.Close()

	// Extract into a temp file first: decompression and checksum errors only
	// surface at the end of the stream, and the current database must stay
	// intact until the whole entry has been read successfully.
	tmp, err := os.CreateTemp(filepath.Dir(dbPath), ".restore-*")
	if err != nil {
		return apperr.Wrap(apperr.StorageFailure, err, "create staging file for restore")
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return apperr.Wrap(apperr.CorruptArchive, err, "extract database from archive")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return apperr.Wrap(apperr.StorageFailure, err, "finish staging file for restore")
	}

	// Keep the replaced database next to the new one.
	if _, err := os.Stat(dbPath); err == nil {
		safety := fmt.Sprintf("%s.replaced.%s", dbPath, time.Now().Format("20060102_150405"))
		if err := copyFile(dbPath, safety); err != nil {
			os.Remove(tmpPath)
			return apperr.Wrap(apperr.StorageFailure, err, "keep safety copy of current database")
		}
	}

	if err := os.Rename(tmpPath, dbPath); err != nil {
		os.Remove(tmpPath)
		return apperr.Wrap(apperr.StorageFailure, err, "replace ledger database")
	}

	return nil
}

func copyFile(from, to string) error {
	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(to)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}
