// Package sessionstore is the session-scoped hand-off store between funnel
// pages: a fixed-schema key-value layer over Redis. Every key and record
// shape lives here so no component invents ad hoc session keys.
package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/garagehub/funnel-api/internal/config"
	"github.com/garagehub/funnel-api/internal/models"
	"github.com/redis/go-redis/v9"
)

// Record names under a session
const (
	carSelectionKey = "car_selection"
	cartKey         = "cart"
)

// ErrNotFound is returned when a session has no record under the key
var ErrNotFound = fmt.Errorf("session record not found")

// Store reads and writes session-scoped records
type Store struct{}

// NewStore creates a session store
func NewStore() *Store {
	return &Store{}
}

func sessionKey(sid, name string) string {
	return fmt.Sprintf("session:%s:%s", sid, name)
}

// PutCarSelection writes the finalized vehicle selection for the session
func (s *Store) PutCarSelection(ctx context.Context, sid string, record models.CarSelectionRecord) error {
	return s.put(ctx, sessionKey(sid, carSelectionKey), record)
}

// GetCarSelection reads the finalized vehicle selection for the session
func (s *Store) GetCarSelection(ctx context.Context, sid string) (*models.CarSelectionRecord, error) {
	var record models.CarSelectionRecord
	if err := s.get(ctx, sessionKey(sid, carSelectionKey), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// PutCart writes the cart record for the session
func (s *Store) PutCart(ctx context.Context, sid string, record models.CartRecord) error {
	return s.put(ctx, sessionKey(sid, cartKey), record)
}

// GetCart reads the cart record for the session
func (s *Store) GetCart(ctx context.Context, sid string) (*models.CartRecord, error) {
	var record models.CartRecord
	if err := s.get(ctx, sessionKey(sid, cartKey), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *Store) put(ctx context.Context, key string, record interface{}) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}
	if err := config.Redis.Set(ctx, key, data, config.AppConfig.SessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to write session record: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string, out interface{}) error {
	data, err := config.Redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read session record: %w", err)
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("failed to unmarshal session record: %w", err)
	}
	return nil
}
