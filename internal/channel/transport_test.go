package channel

import (
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamTransportDeliversInOrder(t *testing.T) {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	defer outR.Close()

	var mu sync.Mutex
	var got []float64
	done := make(chan struct{})

	tr := NewStream(inR, outW, Handlers{
		OnMessage: func(msg Message) {
			mu.Lock()
			got = append(got, msg["seq"].(float64))
			if len(got) == 3 {
				close(done)
			}
			mu.Unlock()
		},
	}, 0, nil, inR)
	tr.Start()

	go func() {
		for i := 0; i < 3; i++ {
			WriteFrame(inW, Message{"seq": float64(i)}, 0)
		}
		inW.Close()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("messages not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []float64{0, 1, 2}, got)
}

func TestStreamTransportDisconnectFiresOnce(t *testing.T) {
	inR, inW := io.Pipe()
	_, outW := io.Pipe()

	var disconnects atomic.Int32
	closed := make(chan struct{})

	tr := NewStream(inR, outW, Handlers{
		OnDisconnect: func() {
			if disconnects.Add(1) == 1 {
				close(closed)
			}
		},
	}, 0, nil, inR)
	tr.Start()

	inW.Close()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect never fired")
	}

	// Closing locally after the peer already went away must not re-fire.
	require.NoError(t, tr.Close())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), disconnects.Load())
}

func TestStreamTransportSendWritesFrames(t *testing.T) {
	inR, _ := io.Pipe()
	outR, outW := io.Pipe()
	defer inR.Close()

	tr := NewStream(inR, outW, Handlers{}, 0, nil)
	tr.Start()

	go func() {
		tr.Send(Message{"action": "ping"})
	}()

	msg, err := ReadFrame(outR, 0)
	require.NoError(t, err)
	assert.Equal(t, "ping", msg["action"])
}
