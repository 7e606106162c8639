package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Stats summarizes the store contents.
type Stats struct {
	SessionCount int `json:"session_count"`
	TurnCount    int `json:"turn_count"`
	UserCount    int `json:"user_count"`
	FileCount    int `json:"file_count"`
}

// GetStats returns row counts. Users are distinct non-empty user
// ids, plus distinct emails of sessions without a user id.
func (db *DB) GetStats(ctx context.Context) (Stats, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM sessions),
			(SELECT COUNT(*) FROM turns),
			(SELECT COUNT(DISTINCT user_id) FROM sessions
				WHERE user_id != '')
			+ (SELECT COUNT(DISTINCT user_email) FROM sessions
				WHERE user_id = '' AND user_email != ''),
			(SELECT COUNT(*) FROM imported_files)`

	var s Stats
	err := db.reader.QueryRowContext(ctx, query).Scan(
		&s.SessionCount,
		&s.TurnCount,
		&s.UserCount,
		&s.FileCount,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("fetching stats: %w", err)
	}
	return s, nil
}

// ImportedFile returns the hash and mtime recorded for path by
// the last import, and whether one was recorded.
func (db *DB) ImportedFile(path string) (string, int64, bool) {
	var hash string
	var mtime int64
	err := db.reader.QueryRow(
		"SELECT file_hash, file_mtime FROM imported_files"+
			" WHERE file_path = ?",
		path,
	).Scan(&hash, &mtime)
	if err != nil {
		return "", 0, false
	}
	return hash, mtime, true
}

func recordImport(
	tx *sql.Tx, path, hash string, mtime int64,
) error {
	_, err := tx.Exec(`
		INSERT INTO imported_files (file_path, file_hash, file_mtime)
		VALUES (?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			file_hash = excluded.file_hash,
			file_mtime = excluded.file_mtime,
			imported_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		path, hash, mtime,
	)
	if err != nil {
		return fmt.Errorf("recording import of %s: %w", path, err)
	}
	return nil
}
