// Package store persists configured providers, their cached bearer tokens,
// and the local playlist library in a single BoltDB file.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketProviders      = []byte("providers")
	bucketTokens         = []byte("tokens")
	bucketLocalPlaylists = []byte("local_playlists")
)

// Store is the durable configuration store. It holds full provider rows
// (name, server URL, credentials, flags), one cached token per remote
// provider, and the local playlist library.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the store at the given path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketProviders, bucketTokens, bucketLocalPlaylists} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
