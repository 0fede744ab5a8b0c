package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/medleyfm/medley/internal/domain"
)

// PlaylistRow is one locally stored playlist. Track membership is an ordered
// list of audio URIs; cross-referencing against the media index happens in
// the local data source, not here.
type PlaylistRow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TrackURIs []string  `json:"track_uris"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateLocalPlaylist stores a new empty playlist and returns its ID.
// Names must be unique; a duplicate fails with ErrAlreadyExists.
func (s *Store) CreateLocalPlaylist(name string) (string, error) {
	id := uuid.New().String()
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLocalPlaylists)

		var exists bool
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var row PlaylistRow
			if err := json.Unmarshal(v, &row); err != nil {
				continue
			}
			if row.Name == name {
				exists = true
				break
			}
		}
		if exists {
			return domain.ErrAlreadyExists
		}

		now := time.Now()
		row := PlaylistRow{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}
		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), data)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetLocalPlaylist reads one playlist row
func (s *Store) GetLocalPlaylist(id string) (PlaylistRow, bool, error) {
	var row PlaylistRow
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketLocalPlaylists).Get([]byte(id))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &row); err != nil {
			return err
		}
		found = true
		return nil
	})
	return row, found, err
}

// ListLocalPlaylists returns all playlists, most recently updated first
func (s *Store) ListLocalPlaylists() ([]PlaylistRow, error) {
	var rows []PlaylistRow
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketLocalPlaylists).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var row PlaylistRow
			if err := json.Unmarshal(v, &row); err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].UpdatedAt.After(rows[j].UpdatedAt)
	})
	return rows, nil
}

// RenameLocalPlaylist updates a playlist's name
func (s *Store) RenameLocalPlaylist(id, name string) error {
	return s.updateLocalPlaylist(id, func(row *PlaylistRow) error {
		row.Name = name
		return nil
	})
}

// DeleteLocalPlaylist removes a playlist
func (s *Store) DeleteLocalPlaylist(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLocalPlaylists)
		if b.Get([]byte(id)) == nil {
			return domain.ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}

// AddTrackToLocalPlaylist appends an audio URI to a playlist. Adding a track
// that is already a member fails with ErrAlreadyExists.
func (s *Store) AddTrackToLocalPlaylist(id, audioURI string) error {
	return s.updateLocalPlaylist(id, func(row *PlaylistRow) error {
		for _, uri := range row.TrackURIs {
			if uri == audioURI {
				return domain.ErrAlreadyExists
			}
		}
		row.TrackURIs = append(row.TrackURIs, audioURI)
		return nil
	})
}

// RemoveTrackFromLocalPlaylist removes an audio URI from a playlist
func (s *Store) RemoveTrackFromLocalPlaylist(id, audioURI string) error {
	return s.updateLocalPlaylist(id, func(row *PlaylistRow) error {
		for i, uri := range row.TrackURIs {
			if uri == audioURI {
				row.TrackURIs = append(row.TrackURIs[:i], row.TrackURIs[i+1:]...)
				return nil
			}
		}
		return domain.ErrNotFound
	})
}

func (s *Store) updateLocalPlaylist(id string, mutate func(*PlaylistRow) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLocalPlaylists)
		data := b.Get([]byte(id))
		if data == nil {
			return domain.ErrNotFound
		}
		var row PlaylistRow
		if err := json.Unmarshal(data, &row); err != nil {
			return fmt.Errorf("failed to parse playlist row: %w", err)
		}
		if err := mutate(&row); err != nil {
			return err
		}
		row.UpdatedAt = time.Now()
		updated, err := json.Marshal(row)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), updated)
	})
}
