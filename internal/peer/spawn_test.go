package peer

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/firelink/firebridge/internal/channel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cat copies stdin to stdout unchanged, so every frame we send comes
// straight back through the transport.
func TestSpawnEchoPeer(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on cat")
	}

	received := make(chan channel.Message, 1)
	disconnected := make(chan struct{})

	m := &Manifest{Name: "echo", Command: "cat"}
	transport, err := Spawn(context.Background(), m, channel.Handlers{
		OnMessage:    func(msg channel.Message) { received <- msg },
		OnDisconnect: func() { close(disconnected) },
	}, 0, nil)
	require.NoError(t, err)

	require.NoError(t, transport.Send(channel.Message{
		"action":    "ping",
		"requestId": float64(1),
	}))

	select {
	case msg := <-received:
		assert.Equal(t, "ping", msg["action"])
		assert.Equal(t, float64(1), msg["requestId"])
	case <-time.After(5 * time.Second):
		t.Fatal("no echo from peer")
	}

	// Closing the transport closes the peer's stdin; cat exits and the
	// reader loop reports disconnect.
	require.NoError(t, transport.Close())
	select {
	case <-disconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("no disconnect after close")
	}
}

func TestSpawnMissingCommand(t *testing.T) {
	m := &Manifest{Name: "ghost", Command: "/nonexistent/never-here"}
	_, err := Spawn(context.Background(), m, channel.Handlers{}, 0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start peer")
}
