package trigger

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startListener binds on an ephemeral port and serves in the background.
func startListener(t *testing.T, keyword string, run Runner) (*Listener, *net.UDPConn, context.CancelFunc) {
	t.Helper()

	l := New(0, keyword, run)
	require.NoError(t, l.Bind())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := l.Serve(ctx); err != nil {
			t.Errorf("serve: %v", err)
		}
	}()

	conn, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: l.Addr().Port})
	require.NoError(t, err)

	t.Cleanup(func() {
		cancel()
		conn.Close()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("listener did not stop")
		}
	})

	return l, conn, cancel
}

func TestTriggerRunsPipeline(t *testing.T) {
	runs := make(chan struct{}, 4)
	_, conn, _ := startListener(t, "start", func(ctx context.Context) error {
		runs <- struct{}{}
		return nil
	})

	// Case and whitespace are normalized before matching.
	_, err := conn.Write([]byte("  START \n"))
	require.NoError(t, err)

	select {
	case <-runs:
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not start a run")
	}
}

func TestUnknownPayloadIsIgnored(t *testing.T) {
	runs := make(chan struct{}, 4)
	_, conn, _ := startListener(t, "start", func(ctx context.Context) error {
		runs <- struct{}{}
		return nil
	})

	_, err := conn.Write([]byte("STOP "))
	require.NoError(t, err)

	select {
	case <-runs:
		t.Fatal("non-trigger payload started a run")
	case <-time.After(200 * time.Millisecond):
	}

	// Listener is still alive and accepts the real keyword.
	_, err = conn.Write([]byte("start"))
	require.NoError(t, err)
	select {
	case <-runs:
	case <-time.After(2 * time.Second):
		t.Fatal("listener stopped accepting triggers")
	}
}

func TestRunFailureKeepsListening(t *testing.T) {
	var calls int
	runs := make(chan struct{}, 4)
	_, conn, _ := startListener(t, "start", func(ctx context.Context) error {
		calls++
		runs <- struct{}{}
		if calls == 1 {
			return errors.New("capture failed")
		}
		return nil
	})

	for i := 0; i < 2; i++ {
		_, err := conn.Write([]byte("start"))
		require.NoError(t, err)
		select {
		case <-runs:
		case <-time.After(2 * time.Second):
			t.Fatalf("run %d never started", i+1)
		}
	}

	assert.Equal(t, 2, calls)
}

func TestSerialTriggersRunSequentially(t *testing.T) {
	var active, maxActive int
	runs := make(chan struct{}, 4)
	_, conn, _ := startListener(t, "start", func(ctx context.Context) error {
		active++
		if active > maxActive {
			maxActive = active
		}
		time.Sleep(50 * time.Millisecond)
		active--
		runs <- struct{}{}
		return nil
	})

	// Both datagrams land before the first run finishes; the second
	// waits in the socket buffer.
	for i := 0; i < 2; i++ {
		_, err := conn.Write([]byte("start"))
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		select {
		case <-runs:
		case <-time.After(2 * time.Second):
			t.Fatalf("run %d never completed", i+1)
		}
	}

	assert.Equal(t, 1, maxActive, "runs must never overlap")
}
