package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/InfiniteAengus/vista-purdue-plot/pkg/models"
	_ "modernc.org/sqlite"
)

// fixed width so stored timestamps sort as text
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer; avoids SQLITE_BUSY between the collector and the CLI
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		minute TEXT NOT NULL,
		created_at TEXT NOT NULL,
		green INTEGER NOT NULL DEFAULT 0,
		yellow INTEGER NOT NULL DEFAULT 0,
		red INTEGER NOT NULL DEFAULT 0,
		dots INTEGER NOT NULL DEFAULT 0,
		published INTEGER DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS snapshot_rows (
		snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
		category TEXT NOT NULL,
		rsu INTEGER NOT NULL,
		bound TEXT NOT NULL,
		movement TEXT NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_minute ON snapshots(minute);
	CREATE INDEX IF NOT EXISTS idx_snapshots_published ON snapshots(published);
	CREATE INDEX IF NOT EXISTS idx_rows_snapshot ON snapshot_rows(snapshot_id, category);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// InsertSnapshot stores a snapshot and all of its rows, ignoring a snapshot
// whose id is already present
func (db *DB) InsertSnapshot(snap *models.Snapshot, createdAt time.Time) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	sum := snap.Summary(createdAt.UTC())
	res, err := tx.Exec(`
	INSERT OR IGNORE INTO snapshots (id, minute, created_at, green, yellow, red, dots)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sum.ID, sum.Minute.UTC().Format(timeFormat), sum.CreatedAt.Format(timeFormat),
		sum.Green, sum.Yellow, sum.Red, sum.Dots)
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
	INSERT INTO snapshot_rows (snapshot_id, category, rsu, bound, movement, x, y)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing row insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range models.Categories {
		for _, row := range snap.Rows[c] {
			if _, err := stmt.Exec(snap.ID, c.String(), row.RSU, row.Bound, row.Movement, row.X, row.Y); err != nil {
				return fmt.Errorf("inserting %s row: %w", c, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

// ListSnapshots retrieves the newest snapshots first. limit <= 0 means no limit.
func (db *DB) ListSnapshots(limit int) ([]models.SnapshotSummary, error) {
	return db.listSnapshots(`
	SELECT id, minute, created_at, green, yellow, red, dots, published
	FROM snapshots
	ORDER BY created_at DESC, rowid DESC
	LIMIT ?
	`, limit)
}

// ListUnpublishedSnapshots retrieves snapshots not yet announced, oldest first
func (db *DB) ListUnpublishedSnapshots(limit int) ([]models.SnapshotSummary, error) {
	return db.listSnapshots(`
	SELECT id, minute, created_at, green, yellow, red, dots, published
	FROM snapshots
	WHERE published = 0
	ORDER BY created_at ASC, rowid ASC
	LIMIT ?
	`, limit)
}

// ListAllSnapshots retrieves every snapshot, oldest first
func (db *DB) ListAllSnapshots(limit int) ([]models.SnapshotSummary, error) {
	return db.listSnapshots(`
	SELECT id, minute, created_at, green, yellow, red, dots, published
	FROM snapshots
	ORDER BY created_at ASC, rowid ASC
	LIMIT ?
	`, limit)
}

func (db *DB) listSnapshots(query string, limit int) ([]models.SnapshotSummary, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var results []models.SnapshotSummary
	for rows.Next() {
		var s models.SnapshotSummary
		var minuteStr, createdStr string
		var published int

		if err := rows.Scan(&s.ID, &minuteStr, &createdStr, &s.Green, &s.Yellow, &s.Red, &s.Dots, &published); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		s.Minute, err = time.Parse(timeFormat, minuteStr)
		if err != nil {
			return nil, fmt.Errorf("parsing minute: %w", err)
		}
		s.CreatedAt, err = time.Parse(timeFormat, createdStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		s.Published = published != 0

		results = append(results, s)
	}

	return results, rows.Err()
}

// GetRows retrieves the rows of one category of a snapshot in insertion order
func (db *DB) GetRows(snapshotID string, c models.Category) ([]models.Row, error) {
	rows, err := db.conn.Query(`
	SELECT rsu, bound, movement, x, y
	FROM snapshot_rows
	WHERE snapshot_id = ? AND category = ?
	ORDER BY rowid
	`, snapshotID, c.String())
	if err != nil {
		return nil, fmt.Errorf("querying snapshot rows: %w", err)
	}
	defer rows.Close()

	var results []models.Row
	for rows.Next() {
		var r models.Row
		if err := rows.Scan(&r.RSU, &r.Bound, &r.Movement, &r.X, &r.Y); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, r)
	}

	return results, rows.Err()
}

// MarkPublished marks a snapshot as announced
func (db *DB) MarkPublished(id string) error {
	_, err := db.conn.Exec(`UPDATE snapshots SET published = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking snapshot as published: %w", err)
	}
	return nil
}
