package client

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/someonegg/linesock"
)

func TestDial(test *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(test, err)
	defer l.Close()

	lineC := make(chan string, 1)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n')
		lineC <- line
	}()

	s, err := Dial(context.Background(), l.Addr().String(), linesock.WithQueueSize(1))
	require.NoError(test, err)
	defer s.Close()
	require.True(test, s.IsActive())

	require.NoError(test, s.Send(context.Background(), "hi"))
	select {
	case line := <-lineC:
		assert.Equal(test, "hi\n", line)
	case <-time.After(2 * time.Second):
		test.Fatal("no line")
	}

	// the peer hung up after one line.
	require.Eventually(test, func() bool { return !s.IsActive() }, 2*time.Second, 5*time.Millisecond)
}

func TestDialCanceled(test *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Dial(ctx, "127.0.0.1:1")
	assert.Error(test, err)
}
