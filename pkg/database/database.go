package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const defaultPath = "./data/portfolio.db"

type Database struct {
	conn *gorm.DB
}

type Option func(*Database) error

func New(opts ...Option) (*Database, error) {
	db := &Database{}
	for _, opt := range opts {
		if err := opt(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// WithPath opens the SQLite file at path, creating the parent directory if
// needed. An empty path falls back to the default data directory.
func WithPath(path string) Option {
	return func(db *Database) error {
		if path == "" {
			path = defaultPath
		}

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}

		conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
		if err != nil {
			return fmt.Errorf("failed to connect to database %s: %w", path, err)
		}

		db.conn = conn
		return nil
	}
}

func (d *Database) Get() *gorm.DB {
	if d.conn == nil {
		log.Fatal("database not initialized")
	}
	return d.conn
}

func (d *Database) Close() error {
	if d.conn == nil {
		return nil
	}
	sqlDB, err := d.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
