package ws

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient builds a client detached from any socket. trySend only
// touches the channels, so registry behavior is testable without a
// connection.
func newTestClient(bufSize int) *Client {
	return &Client{
		send: make(chan []byte, bufSize),
		done: make(chan struct{}),
	}
}

// recordingListener counts presence edges per user.
type recordingListener struct {
	online  []string
	offline []string
}

func (l *recordingListener) UserOnline(userID string)  { l.online = append(l.online, userID) }
func (l *recordingListener) UserOffline(userID string) { l.offline = append(l.offline, userID) }

func TestConnectionRegistryMultiDeviceFanOut(t *testing.T) {
	reg := NewConnectionRegistry(testLogger(), nil)

	c1 := newTestClient(4)
	c2 := newTestClient(4)
	reg.Register("u1", c1)
	reg.Register("u1", c2)

	delivered := reg.SendToUser("u1", []byte("hello"))
	assert.Equal(t, 2, delivered)

	assert.Equal(t, []byte("hello"), <-c1.send)
	assert.Equal(t, []byte("hello"), <-c2.send)
}

func TestConnectionRegistrySendToOfflineUserIsNoop(t *testing.T) {
	reg := NewConnectionRegistry(testLogger(), nil)
	assert.Equal(t, 0, reg.SendToUser("ghost", []byte("x")))
}

func TestConnectionRegistryPresenceEdgeTriggering(t *testing.T) {
	reg := NewConnectionRegistry(testLogger(), nil)
	listener := &recordingListener{}
	reg.AddListener(listener)

	c1 := newTestClient(1)
	c2 := newTestClient(1)

	// First connection fires UserOnline exactly once.
	reg.Register("u1", c1)
	require.Equal(t, []string{"u1"}, listener.online)

	// Second connection for the same user fires nothing.
	reg.Register("u1", c2)
	assert.Equal(t, []string{"u1"}, listener.online)

	// Dropping one of two connections fires nothing.
	reg.Unregister("u1", c1)
	assert.Empty(t, listener.offline)

	// Dropping the last fires UserOffline exactly once.
	reg.Unregister("u1", c2)
	assert.Equal(t, []string{"u1"}, listener.offline)

	// Unregistering an already-removed connection is a no-op.
	reg.Unregister("u1", c2)
	assert.Equal(t, []string{"u1"}, listener.offline)
}

func TestConnectionRegistryIsOnline(t *testing.T) {
	reg := NewConnectionRegistry(testLogger(), nil)
	c := newTestClient(1)

	assert.False(t, reg.IsOnline("u1"))
	assert.Equal(t, 0, reg.OnlineCount())

	reg.Register("u1", c)
	assert.True(t, reg.IsOnline("u1"))
	assert.Equal(t, 1, reg.OnlineCount())

	reg.Unregister("u1", c)
	assert.False(t, reg.IsOnline("u1"))
	assert.Equal(t, 0, reg.OnlineCount())
}

func TestConnectionRegistryDropsFramesForSlowClient(t *testing.T) {
	reg := NewConnectionRegistry(testLogger(), nil)

	c := newTestClient(1)
	reg.Register("u1", c)

	assert.Equal(t, 1, reg.SendToUser("u1", []byte("first")))
	// Buffer is full now; the frame is dropped, not queued.
	assert.Equal(t, 0, reg.SendToUser("u1", []byte("second")))

	assert.Equal(t, []byte("first"), <-c.send)
}

func TestConnectionRegistryConcurrentRegisterUnregister(t *testing.T) {
	reg := NewConnectionRegistry(testLogger(), nil)

	const n = 50
	doneCh := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func() {
			c := newTestClient(1)
			reg.Register("u1", c)
			reg.SendToUser("u1", []byte("x"))
			reg.Unregister("u1", c)
			doneCh <- struct{}{}
		}()
	}
	for i := 0; i < n; i++ {
		<-doneCh
	}

	assert.False(t, reg.IsOnline("u1"))
	assert.Equal(t, 0, reg.OnlineCount())
}
