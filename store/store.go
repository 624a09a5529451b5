// Package store keeps generated interpreter images in a SQLite database,
// keyed by the fingerprint of the configuration that produced them.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/rvgen/image"
)

var log = commonlog.GetLogger("rvgen.store")

// ErrNotFound indicates no image is cached for a fingerprint.
var ErrNotFound = errors.New("image not found")

// Entry describes one cached image without its code.
type Entry struct {
	Fingerprint string
	ID          string
	Created     int64
	Size        int
}

// Store is an image cache backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates the cache database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS images (
		fingerprint TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		created INTEGER NOT NULL,
		data BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores img under its fingerprint, replacing any earlier image.
func (s *Store) Put(img *image.Image) error {
	if img.Fingerprint == "" {
		return fmt.Errorf("saving image %s: no fingerprint", img.ID)
	}
	data, err := image.Marshal(img)
	if err != nil {
		return fmt.Errorf("saving image %s: %w", img.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO images (fingerprint, id, created, data) VALUES (?, ?, ?, ?)",
		img.Fingerprint, img.ID.String(), img.Created, data,
	)
	if err != nil {
		return fmt.Errorf("saving image %s: %w", img.ID, err)
	}
	log.Debugf("cached image %s (%d bytes) as %s", img.ID, len(data), img.Fingerprint)
	return nil
}

// Get loads the image cached for fingerprint.
func (s *Store) Get(fingerprint string) (*image.Image, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM images WHERE fingerprint = ?", fingerprint).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying image: %w", err)
	}
	img, err := image.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("cached image %s: %w", fingerprint, err)
	}
	log.Debugf("cache hit %s", fingerprint)
	return img, nil
}

// List returns every cached image, newest first.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query("SELECT fingerprint, id, created, length(data) FROM images ORDER BY created DESC, fingerprint")
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Fingerprint, &e.ID, &e.Created, &e.Size); err != nil {
			return nil, fmt.Errorf("listing images: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes the image cached for fingerprint.
func (s *Store) Delete(fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec("DELETE FROM images WHERE fingerprint = ?", fingerprint)
	if err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
