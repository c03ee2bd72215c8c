package callstate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebridge/telephony-relay-go/internal/model"
	"github.com/voicebridge/telephony-relay-go/internal/redis"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := &redis.Client{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}
	return NewStore(client, time.Hour, 10*time.Minute), mr
}

func TestSaveAndGetCall(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	call := &model.Call{
		RoomName:   "call-room-1",
		CallID:     "CA100",
		FromNumber: "+14155550100",
		ToNumber:   "+14155550200",
		Status:     model.CallStatusCreated,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.SaveCall(ctx, call))

	got, err := store.GetCall(ctx, "call-room-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "CA100", got.CallID)
	assert.Equal(t, model.CallStatusCreated, got.Status)

	byID, err := store.GetCallByCallID(ctx, "CA100")
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "call-room-1", byID.RoomName)
}

func TestGetCallMissing(t *testing.T) {
	store, _ := newTestStore(t)

	got, err := store.GetCall(context.Background(), "no-such-room")
	require.NoError(t, err)
	assert.Nil(t, got)

	byID, err := store.GetCallByCallID(context.Background(), "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, byID)
}

func TestRecordEventSeen(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.RecordEventSeen(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.RecordEventSeen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, again)

	other, err := store.RecordEventSeen(ctx, "evt-2")
	require.NoError(t, err)
	assert.True(t, other)
}

func TestRecordEventSeenExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	first, err := store.RecordEventSeen(ctx, "evt-ttl")
	require.NoError(t, err)
	assert.True(t, first)

	mr.FastForward(11 * time.Minute)

	again, err := store.RecordEventSeen(ctx, "evt-ttl")
	require.NoError(t, err)
	assert.True(t, again)
}

func TestMarkAgentDispatchedOnce(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.MarkAgentDispatched(ctx, "call-room-2")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.MarkAgentDispatched(ctx, "call-room-2")
	require.NoError(t, err)
	assert.False(t, again)
}

func TestClearAgentDispatched(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.MarkAgentDispatched(ctx, "call-room-3")
	require.NoError(t, err)
	assert.True(t, first)

	require.NoError(t, store.ClearAgentDispatched(ctx, "call-room-3"))

	retry, err := store.MarkAgentDispatched(ctx, "call-room-3")
	require.NoError(t, err)
	assert.True(t, retry)
}
