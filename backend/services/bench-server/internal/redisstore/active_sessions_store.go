package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ActiveSession is the running-right-now view of one station, kept
// warm in redis across server restarts.
type ActiveSession struct {
	SessionID       int64     `json:"session_id"`
	StationID       int       `json:"station_id"`
	WorkOrderItemID *int64    `json:"work_order_item_id,omitempty"`
	RecipeID        int64     `json:"recipe_id"`
	Phase           string    `json:"phase"`
	StartedAt       time.Time `json:"started_at"`
}

// Store manages the active session cache.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns redis-backed store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) key(stationID int) string {
	return fmt.Sprintf("bench:sessions:active:%d", stationID)
}

// Save caches the session running on a station.
func (s *Store) Save(ctx context.Context, session ActiveSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(session.StationID), data, s.ttl).Err()
}

// Get returns the cached session for a station.
func (s *Store) Get(ctx context.Context, stationID int) (*ActiveSession, error) {
	result, err := s.client.Get(ctx, s.key(stationID)).Result()
	if err != nil {
		return nil, err
	}
	var session ActiveSession
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes the cached session for a station.
func (s *Store) Delete(ctx context.Context, stationID int) error {
	return s.client.Del(ctx, s.key(stationID)).Err()
}

// All returns every cached active session.
func (s *Store) All(ctx context.Context) ([]ActiveSession, error) {
	var sessions []ActiveSession
	iter := s.client.Scan(ctx, 0, "bench:sessions:active:*", 100).Iterator()
	for iter.Next(ctx) {
		result, err := s.client.Get(ctx, iter.Val()).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var session ActiveSession
		if err := json.Unmarshal([]byte(result), &session); err != nil {
			continue
		}
		sessions = append(sessions, session)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
