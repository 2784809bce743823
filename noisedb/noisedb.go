package noisedb

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

const dbFilename = "noise.db"

var (
	settingsBucket = []byte("settings")
	wifiBucket     = []byte("wifi")
	playerBucket   = []byte("player")
)

// DB is the daemon's persistent store, a thin layer over bbolt that keeps
// settings as JSON values in a handful of buckets.
type DB struct {
	*bbolt.DB
}

// Open creates the data directory if needed and opens the store. The open
// times out rather than blocking forever on a stale file lock.
func Open(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, errors.Wrap(err, "could not create data dir")
	}

	path := filepath.Join(dataDir, dbFilename)

	boltDB, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not open database")
	}

	return &DB{boltDB}, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
