package ws_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyang/xactlock/internal/domain/event"
	"github.com/alanyang/xactlock/internal/domain/lock"
	"github.com/alanyang/xactlock/internal/transport/ws"
)

func init() { gin.SetMode(gin.TestMode) }

func startHub(t *testing.T) (*ws.Hub, string) {
	t.Helper()
	hub := ws.NewHub()
	r := gin.New()
	hub.Register(r.Group("/ws"))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	hub, url := startHub(t)
	a, b := dial(t, url), dial(t, url)
	defer a.Close()
	defer b.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 2 }, 2*time.Second, 5*time.Millisecond)

	e := event.New(event.TypeAcquired, uuid.New(), lock.NumberFor(lock.DefaultNamespace, 4))
	e.Attempt = 2
	hub.Broadcast(e)

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var got event.Event
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, event.TypeAcquired, got.Type)
		assert.Equal(t, e.InvocationID, got.InvocationID)
		assert.Equal(t, e.LockNumber, got.LockNumber)
		assert.Equal(t, 2, got.Attempt)
	}
}

func TestClosedClientIsDropped(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 5*time.Millisecond)

	// Nothing left to write to.
	hub.Broadcast(event.New(event.TypeReleased, uuid.New(), 1))
}
