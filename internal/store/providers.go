package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/medleyfm/medley/internal/domain"
)

// ProviderRow is one configured remote provider as persisted. Arguments hold
// the full typed configuration (server URL, username, password, flags);
// DeviceID is a stable per-provider identifier some backends require during
// credential exchange.
type ProviderRow struct {
	ID        int64                    `json:"id"`
	Type      domain.ProviderType      `json:"type"`
	Name      string                   `json:"name"`
	Arguments domain.ProviderArguments `json:"arguments"`
	DeviceID  string                   `json:"device_id,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

func providerKey(providerType domain.ProviderType, id int64) []byte {
	key := make([]byte, 0, len(providerType)+9)
	key = append(key, providerType...)
	key = append(key, ':')
	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], uint64(id))
	return append(key, idBytes[:]...)
}

// CreateProvider persists a new provider row and returns its assigned ID
func (s *Store) CreateProvider(row ProviderRow) (int64, error) {
	var id int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProviders)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		id = int64(seq)
		row.ID = id
		now := time.Now()
		row.CreatedAt = now
		row.UpdatedAt = now

		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		return b.Put(providerKey(row.Type, id), data)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create provider: %w", err)
	}
	return id, nil
}

// UpdateProvider rewrites an existing provider row
func (s *Store) UpdateProvider(row ProviderRow) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketProviders)
		key := providerKey(row.Type, row.ID)

		existing := b.Get(key)
		if existing == nil {
			return domain.ErrNotFound
		}
		var prev ProviderRow
		if err := json.Unmarshal(existing, &prev); err != nil {
			return err
		}
		row.DeviceID = prev.DeviceID
		row.CreatedAt = prev.CreatedAt
		row.UpdatedAt = time.Now()

		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// DeleteProvider removes a provider row and its cached token. Deleting an
// absent provider is a no-op.
func (s *Store) DeleteProvider(providerType domain.ProviderType, id int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		key := providerKey(providerType, id)
		if err := tx.Bucket(bucketProviders).Delete(key); err != nil {
			return err
		}
		return tx.Bucket(bucketTokens).Delete(key)
	})
}

// GetProvider reads one provider row. The second return is false when the
// row does not exist.
func (s *Store) GetProvider(providerType domain.ProviderType, id int64) (ProviderRow, bool, error) {
	var row ProviderRow
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketProviders).Get(providerKey(providerType, id))
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

// ListProviders returns all rows of one provider type, in creation order
func (s *Store) ListProviders(providerType domain.ProviderType) ([]ProviderRow, error) {
	var rows []ProviderRow
	prefix := append([]byte(providerType), ':')
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketProviders).Cursor()
		for k, v := c.Seek(prefix); k != nil && len(k) > len(prefix) && string(k[:len(prefix)]) == string(prefix); k, v = c.Next() {
			var row ProviderRow
			if err := json.Unmarshal(v, &row); err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	return rows, err
}

// GetToken returns the cached bearer token for a provider, if any.
// This is the non-blocking read the authenticator uses; it never triggers
// a credential exchange.
func (s *Store) GetToken(providerType domain.ProviderType, id int64) (string, error) {
	var token string
	err := s.db.View(func(tx *bolt.Tx) error {
		if data := tx.Bucket(bucketTokens).Get(providerKey(providerType, id)); data != nil {
			token = string(data)
		}
		return nil
	})
	return token, err
}

// SetToken persists a freshly obtained bearer token, visible to subsequent
// GetToken calls
func (s *Store) SetToken(providerType domain.ProviderType, id int64, token string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTokens).Put(providerKey(providerType, id), []byte(token))
	})
}
