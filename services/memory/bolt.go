package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/msenthi7/medical-chatbot/models"
	"go.etcd.io/bbolt"
)

var bucketConversations = []byte("conversations")

// BoltStore keeps buffers in an embedded bbolt file, one JSON array per session
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the database at path
func NewBoltStore(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create memory directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open memory database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketConversations)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create memory bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Load reads the session buffer
func (s *BoltStore) Load(ctx context.Context, sessionID string) ([]models.Message, error) {
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}

	var msgs []models.Message
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketConversations).Get([]byte(sessionID))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &msgs)
	})
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return msgs, nil
}

// Append rewrites the session's array with messages added
func (s *BoltStore) Append(ctx context.Context, sessionID string, messages ...models.Message) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketConversations)

		var msgs []models.Message
		if data := b.Get([]byte(sessionID)); data != nil {
			if err := json.Unmarshal(data, &msgs); err != nil {
				return fmt.Errorf("decode conversation: %w", err)
			}
		}
		msgs = append(msgs, bind(sessionID, messages)...)

		data, err := json.Marshal(msgs)
		if err != nil {
			return err
		}
		return b.Put([]byte(sessionID), data)
	})
}

// Clear deletes the session key
func (s *BoltStore) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketConversations).Delete([]byte(sessionID))
	})
}

// Close closes the database file
func (s *BoltStore) Close() error {
	return s.db.Close()
}
