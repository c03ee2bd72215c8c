package callstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/voicebridge/telephony-relay-go/internal/model"
	"github.com/voicebridge/telephony-relay-go/internal/redis"
)

// Store keeps call records and webhook processing markers in redis. Call
// records are keyed by room name with a secondary index from the platform
// call id, so both webhook shapes can find the same record.
type Store struct {
	redis   *redis.Client
	callTTL time.Duration
	seenTTL time.Duration
}

func NewStore(client *redis.Client, callTTL, seenTTL time.Duration) *Store {
	return &Store{
		redis:   client,
		callTTL: callTTL,
		seenTTL: seenTTL,
	}
}

// SaveCall writes the call record and refreshes its TTL. The call id index
// is written alongside when the record carries one.
func (s *Store) SaveCall(ctx context.Context, call *model.Call) error {
	data, err := json.Marshal(call)
	if err != nil {
		return fmt.Errorf("callstate: marshal call: %w", err)
	}
	if err := s.redis.Set(ctx, redis.CallKey(call.RoomName), data, s.callTTL).Err(); err != nil {
		return fmt.Errorf("callstate: save call: %w", err)
	}
	if call.CallID != "" {
		if err := s.redis.Set(ctx, redis.CallIndexKey(call.CallID), call.RoomName, s.callTTL).Err(); err != nil {
			return fmt.Errorf("callstate: index call id: %w", err)
		}
	}
	return nil
}

// GetCall returns the call record for a room, or nil when none exists.
func (s *Store) GetCall(ctx context.Context, roomName string) (*model.Call, error) {
	data, err := s.redis.Get(ctx, redis.CallKey(roomName)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("callstate: get call: %w", err)
	}
	var call model.Call
	if err := json.Unmarshal(data, &call); err != nil {
		return nil, fmt.Errorf("callstate: decode call: %w", err)
	}
	return &call, nil
}

// GetCallByCallID resolves the platform call id through the index.
func (s *Store) GetCallByCallID(ctx context.Context, callID string) (*model.Call, error) {
	roomName, err := s.redis.Get(ctx, redis.CallIndexKey(callID)).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("callstate: resolve call id: %w", err)
	}
	return s.GetCall(ctx, roomName)
}

// RecordEventSeen marks an event id as processed. It returns true if this
// is the first sighting, false if the event was already recorded.
func (s *Store) RecordEventSeen(ctx context.Context, eventID string) (bool, error) {
	first, err := s.redis.SetNX(ctx, redis.EventKey(eventID), 1, s.seenTTL).Result()
	if err != nil {
		return false, fmt.Errorf("callstate: record event: %w", err)
	}
	return first, nil
}

// MarkAgentDispatched flips the per-room dispatch flag. It returns true
// exactly once per room within the call TTL.
func (s *Store) MarkAgentDispatched(ctx context.Context, roomName string) (bool, error) {
	first, err := s.redis.SetNX(ctx, redis.DispatchKey(roomName), 1, s.callTTL).Result()
	if err != nil {
		return false, fmt.Errorf("callstate: mark dispatched: %w", err)
	}
	return first, nil
}

// ClearAgentDispatched releases the per-room dispatch flag after a failed
// dispatch, so the next lifecycle event for the room retries it.
func (s *Store) ClearAgentDispatched(ctx context.Context, roomName string) error {
	if err := s.redis.Del(ctx, redis.DispatchKey(roomName)).Err(); err != nil {
		return fmt.Errorf("callstate: clear dispatched: %w", err)
	}
	return nil
}
