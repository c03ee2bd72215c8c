package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebridge/telephony-relay-go/internal/callstate"
	"github.com/voicebridge/telephony-relay-go/internal/middleware"
	"github.com/voicebridge/telephony-relay-go/internal/model"
	"github.com/voicebridge/telephony-relay-go/internal/redis"
	"github.com/voicebridge/telephony-relay-go/internal/repository"
	"github.com/voicebridge/telephony-relay-go/internal/service"
)

type stubBindingRepo struct{}

func (stubBindingRepo) UpsertByE164(context.Context, model.UpsertBindingParams) (*model.Binding, error) {
	return nil, nil
}
func (stubBindingRepo) FindEnabledByE164(context.Context, string) (*model.Binding, error) {
	return nil, nil
}
func (stubBindingRepo) FindByID(context.Context, string) (*model.Binding, error)   { return nil, nil }
func (stubBindingRepo) FindAll(context.Context, int, int) ([]model.Binding, error) { return nil, nil }
func (stubBindingRepo) FindByIntegrationID(context.Context, string) ([]model.Binding, error) {
	return nil, nil
}
func (stubBindingRepo) Disable(context.Context, string) error    { return nil }
func (stubBindingRepo) SoftDelete(context.Context, string) error { return nil }
func (stubBindingRepo) PurgeDeletedBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}
func (s stubBindingRepo) WithTx(*sqlx.Tx) repository.BindingRepository { return s }

type stubResolver struct{}

func (stubResolver) ResolveByAgentID(context.Context, string) (*model.AgentConfig, error) {
	return nil, nil
}

type recordingDispatcher struct {
	mu    sync.Mutex
	rooms []string
	done  chan struct{}
}

func (d *recordingDispatcher) Dispatch(_ context.Context, roomName string, _ model.RouteDecision) error {
	d.mu.Lock()
	d.rooms = append(d.rooms, roomName)
	d.mu.Unlock()
	select {
	case d.done <- struct{}{}:
	default:
	}
	return nil
}

func newWebhookHandler(t *testing.T, enabled bool) (*WebhookHandler, *recordingDispatcher) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := &redis.Client{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}
	calls := callstate.NewStore(client, time.Hour, time.Hour)

	routing := service.NewRoutingService(stubBindingRepo{}, stubResolver{}, model.AgentConfig{AgentID: "default"})
	dispatcher := &recordingDispatcher{done: make(chan struct{}, 1)}
	svc := service.NewWebhookService(calls, routing, dispatcher)

	return NewWebhookHandler(svc, enabled), dispatcher
}

func withRawBody(r *http.Request, body string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.RawBodyContextKey, []byte(body))
	return r.WithContext(ctx)
}

func TestWebhookReceive(t *testing.T) {
	body := `{"event":"room_started","id":"EV1","room":{"name":"call-1"},"participant":{"attributes":{"sip.trunkPhoneNumber":"+14155550200"}}}`

	t.Run("acknowledges and dispatches asynchronously", func(t *testing.T) {
		h, dispatcher := newWebhookHandler(t, true)

		req := httptest.NewRequest(http.MethodPost, "/platform/webhook", strings.NewReader(body))
		req = withRawBody(req, body)
		rec := httptest.NewRecorder()

		h.Receive(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"ok":true`)

		select {
		case <-dispatcher.done:
		case <-time.After(2 * time.Second):
			t.Fatal("dispatch did not happen")
		}
		assert.Equal(t, []string{"call-1"}, dispatcher.rooms)
	})

	t.Run("returns 503 when telephony disabled", func(t *testing.T) {
		h, _ := newWebhookHandler(t, false)

		req := httptest.NewRequest(http.MethodPost, "/platform/webhook", strings.NewReader(body))
		req = withRawBody(req, body)
		rec := httptest.NewRecorder()

		h.Receive(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("returns 400 without verified raw body", func(t *testing.T) {
		h, _ := newWebhookHandler(t, true)

		req := httptest.NewRequest(http.MethodPost, "/platform/webhook", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.Receive(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("returns 400 on malformed payload", func(t *testing.T) {
		h, _ := newWebhookHandler(t, true)

		req := httptest.NewRequest(http.MethodPost, "/platform/webhook", strings.NewReader(`{broken`))
		req = withRawBody(req, `{broken`)
		rec := httptest.NewRecorder()

		h.Receive(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
