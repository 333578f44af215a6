package ws

import (
	"io"
	"testing"

	jwtpkg "github.com/juicy-forest/server/pkg/jwt"
	"github.com/juicy-forest/server/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Output: io.Discard})
}

// newStubClient builds a client that is never attached to a real
// connection. The hub only touches the send queue and closed flag.
func newStubClient(userID uint, buffer int) *Client {
	return &Client{
		send: make(chan []byte, buffer),
		user: &jwtpkg.UserClaims{UserID: userID, Username: "stub"},
		log:  testLogger(),
	}
}

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case data := <-c.send:
			out = append(out, data)
		default:
			return out
		}
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub(nil, nil, testLogger())

	a := newStubClient(1, 4)
	b := newStubClient(2, 4)

	hub.Register(a)
	hub.Register(b)
	assert.Equal(t, 2, hub.ConnectionCount())

	// Double registration is a no-op
	hub.Register(a)
	assert.Equal(t, 2, hub.ConnectionCount())

	hub.Unregister(a)
	assert.Equal(t, 1, hub.ConnectionCount())

	// Unregistering twice is harmless
	hub.Unregister(a)
	assert.Equal(t, 1, hub.ConnectionCount())
}

func TestHubBroadcastAll(t *testing.T) {
	hub := NewHub(nil, nil, testLogger())

	a := newStubClient(1, 4)
	b := newStubClient(2, 4)
	hub.Register(a)
	hub.Register(b)

	hub.BroadcastAll(NewActivityEvent(3, "rose", "#ff0000"))

	require.Len(t, drain(a), 1)
	require.Len(t, drain(b), 1)
}

func TestHubBroadcastExceptSkipsSender(t *testing.T) {
	hub := NewHub(nil, nil, testLogger())

	sender := newStubClient(1, 4)
	other := newStubClient(2, 4)
	hub.Register(sender)
	hub.Register(other)

	hub.BroadcastExcept(NewActivityEvent(3, "rose", "#ff0000"), sender)

	assert.Empty(t, drain(sender))
	assert.Len(t, drain(other), 1)
}

func TestHubBroadcastSkipsClosedClient(t *testing.T) {
	hub := NewHub(nil, nil, testLogger())

	open := newStubClient(1, 4)
	closed := newStubClient(2, 4)
	hub.Register(open)
	hub.Register(closed)

	closed.close()

	hub.BroadcastAll(NewActivityEvent(3, "rose", "#ff0000"))

	assert.Len(t, drain(open), 1)
}

func TestHubBroadcastDropsOnFullBuffer(t *testing.T) {
	hub := NewHub(nil, nil, testLogger())

	slow := newStubClient(1, 1)
	fast := newStubClient(2, 4)
	hub.Register(slow)
	hub.Register(fast)

	hub.BroadcastAll(NewActivityEvent(3, "rose", "#ff0000"))
	// slow's single-slot buffer is now full; the next event is dropped
	// for slow but still reaches fast
	hub.BroadcastAll(NewActivityEvent(3, "fern", "#00ff00"))

	assert.Len(t, drain(slow), 1)
	assert.Len(t, drain(fast), 2)
}

func TestClientEnqueueAfterClose(t *testing.T) {
	c := newStubClient(1, 4)
	require.True(t, c.enqueue([]byte("x")))

	c.close()
	assert.False(t, c.enqueue([]byte("y")))
}
