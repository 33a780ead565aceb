package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/good-yellow-bee/secdash/internal/storage"
)

const defaultDBPath = "./data/secdash.db"

var (
	dbDriver string
	dbDSN    string
)

// openDatabase opens the configured database. SQLite files must already
// exist unless migrate is set.
func openDatabase(migrate bool) (*storage.SQLStorage, error) {
	if dbDriver == "sqlite" {
		if _, err := os.Stat(dbDSN); os.IsNotExist(err) {
			if !migrate {
				return nil, fmt.Errorf("database file not found: %s", dbDSN)
			}
			if err := os.MkdirAll(filepath.Dir(dbDSN), 0750); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
	}

	store, err := storage.New(dbDriver, dbDSN)
	if err != nil {
		return nil, err
	}
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if migrate {
		if err := store.Migrate(); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}
	return store, nil
}
