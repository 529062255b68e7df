package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/someonegg/linesock"
	"github.com/someonegg/linesock/client"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

var echo = linesock.HandleFunc(func(s *linesock.Socket, msg string) bool {
	s.Send(context.Background(), "echo:"+msg)
	return true
})

func collect(msgC chan string) linesock.Handler {
	return linesock.HandleFunc(func(s *linesock.Socket, msg string) bool {
		msgC <- msg
		return true
	})
}

func expect(test *testing.T, msgC chan string, want string) {
	test.Helper()
	select {
	case msg := <-msgC:
		assert.Equal(test, want, msg)
	case <-time.After(waitFor):
		test.Fatal("no message, want", want)
	}
}

func TestServerEcho(test *testing.T) {
	srv := New(WithHandlers(echo))
	require.NoError(test, srv.Start("127.0.0.1:0"))
	defer srv.Stop()
	require.True(test, srv.Running())

	msgC := make(chan string, 8)
	c, err := client.Dial(context.Background(), srv.Addr().String(), linesock.WithHandlers(collect(msgC)))
	require.NoError(test, err)
	defer c.Close()

	require.NoError(test, c.Send(context.Background(), "hello"))
	expect(test, msgC, "echo:hello")
	assert.Equal(test, 1, srv.Conns())

	c.Close()
	require.Eventually(test, func() bool { return srv.Conns() == 0 }, waitFor, tick)
}

func TestServerStop(test *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(test, err)

	srv := New(WithHandlers(echo))
	serveC := make(chan error, 1)
	go func() {
		serveC <- srv.Serve(l)
	}()

	msgC := make(chan string, 8)
	c, err := client.Dial(context.Background(), l.Addr().String(), linesock.WithHandlers(collect(msgC)))
	require.NoError(test, err)
	require.NoError(test, c.Send(context.Background(), "m1"))
	expect(test, msgC, "echo:m1")

	assert.ErrorIs(test, srv.Serve(l), ErrServerRunning)

	srv.Stop()
	srv.Stop()

	select {
	case err := <-serveC:
		assert.ErrorIs(test, err, ErrServerClosed)
	case <-time.After(waitFor):
		test.Fatal("serve did not return")
	}

	require.Eventually(test, func() bool { return !c.IsActive() }, waitFor, tick)
	assert.Equal(test, 0, srv.Conns())
	assert.False(test, srv.Running())
	assert.ErrorIs(test, srv.Start("127.0.0.1:0"), ErrServerClosed)
}

func TestServerMaxConns(test *testing.T) {
	srv := New(WithHandlers(echo), WithMaxConns(1))
	require.NoError(test, srv.Start("127.0.0.1:0"))
	defer srv.Stop()
	addr := srv.Addr().String()

	msg1 := make(chan string, 8)
	c1, err := client.Dial(context.Background(), addr, linesock.WithHandlers(collect(msg1)))
	require.NoError(test, err)
	require.NoError(test, c1.Send(context.Background(), "one"))
	expect(test, msg1, "echo:one")

	msg2 := make(chan string, 8)
	c2, err := client.Dial(context.Background(), addr, linesock.WithHandlers(collect(msg2)))
	require.NoError(test, err)
	defer c2.Close()
	require.NoError(test, c2.Send(context.Background(), "two"))

	select {
	case msg := <-msg2:
		test.Fatal("second socket served over the bound", msg)
	case <-time.After(100 * time.Millisecond):
	}

	c1.Close()
	expect(test, msg2, "echo:two")
}

func TestServerMaxConnsConcurrentStarts(test *testing.T) {
	srv := New(WithHandlers(echo), WithMaxConns(1))
	defer srv.Stop()

	// a pool yielding between submissions interleaves concurrent starts.
	inner := srv.pool
	srv.pool = linesock.PoolFunc(func(task func()) {
		inner.Go(task)
		time.Sleep(5 * time.Millisecond)
	})

	echoC := make(chan net.Conn, 2)
	for i := 0; i < 2; i++ {
		c, sc := net.Pipe()
		defer c.Close()
		go srv.serveConn(sc)
		go func() {
			if _, err := c.Write([]byte("m\n")); err != nil {
				return
			}
			line, err := bufio.NewReader(c).ReadString('\n')
			if err == nil && line == "echo:m\n" {
				echoC <- c
			}
		}()
	}

	var first net.Conn
	select {
	case first = <-echoC:
	case <-time.After(waitFor):
		test.Fatal("no socket served")
	}

	select {
	case <-echoC:
		test.Fatal("second socket served over the bound")
	case <-time.After(50 * time.Millisecond):
	}

	first.Close()
	select {
	case <-echoC:
	case <-time.After(waitFor):
		test.Fatal("second socket not served after the first closed")
	}
}

func TestServerStopDuringBackoff(test *testing.T) {
	l := &failingListener{Listener: mustListen(test), failures: 1000}
	srv := New()
	serveC := make(chan error, 1)
	go func() {
		serveC <- srv.Serve(l)
	}()

	// the backoff has grown to its maximum.
	require.Eventually(test, func() bool { return l.calls.Load() > 8 }, 2*waitFor, tick)
	srv.Stop()

	select {
	case err := <-serveC:
		assert.ErrorIs(test, err, ErrServerClosed)
	case <-time.After(200 * time.Millisecond):
		test.Fatal("serve kept sleeping after stop")
	}
}

type failingListener struct {
	net.Listener
	failures int32
	calls    atomic.Int32
}

func (l *failingListener) Accept() (net.Conn, error) {
	if l.calls.Add(1) <= l.failures {
		return nil, errors.New("accept: too many open files")
	}
	return l.Listener.Accept()
}

func mustListen(test *testing.T) net.Listener {
	test.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(test, err)
	return l
}

func TestServerAcceptRate(test *testing.T) {
	srv := New(WithHandlers(echo), WithAcceptRate(1000, 2))
	require.NoError(test, srv.Start("127.0.0.1:0"))
	defer srv.Stop()

	for i := 0; i < 4; i++ {
		msgC := make(chan string, 1)
		c, err := client.Dial(context.Background(), srv.Addr().String(), linesock.WithHandlers(collect(msgC)))
		require.NoError(test, err)
		require.NoError(test, c.Send(context.Background(), "m"))
		expect(test, msgC, "echo:m")
		c.Close()
	}
}

func TestServerWebsocket(test *testing.T) {
	srv := New(WithHandlers(echo))
	hs := httptest.NewServer(srv.WebsocketHandler())
	defer hs.Close()
	defer srv.Stop()

	url := "ws" + strings.TrimPrefix(hs.URL, "http")
	msgC := make(chan string, 8)
	c, err := client.DialWebsocket(context.Background(), url, linesock.WithHandlers(collect(msgC)))
	require.NoError(test, err)
	defer c.Close()

	require.NoError(test, c.Send(context.Background(), "ws"))
	expect(test, msgC, "echo:ws")
	assert.Equal(test, 1, srv.Conns())
}

func TestDialError(test *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(test, err)
	addr := l.Addr().String()
	l.Close()

	_, err = client.Dial(context.Background(), addr)
	assert.Error(test, err)
}
