package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/someonegg/linesock"
	"github.com/someonegg/linesock/client"
	"github.com/someonegg/linesock/server"
)

func TestRunDial(test *testing.T) {
	msgC := make(chan string, 8)
	srv := server.New(server.WithHandlers(linesock.HandleFunc(func(s *linesock.Socket, msg string) bool {
		msgC <- msg
		return true
	})))
	require.NoError(test, srv.Start("127.0.0.1:0"))
	defer srv.Stop()

	err := runDial(context.Background(), srv.Addr().String(), false,
		strings.NewReader("a\nb\n"), io.Discard, nil)
	require.NoError(test, err)

	for _, want := range []string{"a", "b"} {
		select {
		case msg := <-msgC:
			assert.Equal(test, want, msg)
		case <-time.After(2 * time.Second):
			test.Fatal("no line", want)
		}
	}
}

func TestRunDialLongLine(test *testing.T) {
	msgC := make(chan string, 1)
	srv := server.New(server.WithHandlers(linesock.HandleFunc(func(s *linesock.Socket, msg string) bool {
		msgC <- msg
		return true
	})))
	require.NoError(test, srv.Start("127.0.0.1:0"))
	defer srv.Stop()

	long := strings.Repeat("z", 100*1024)
	err := runDial(context.Background(), srv.Addr().String(), false,
		strings.NewReader(long+"\n"), io.Discard, nil)
	require.NoError(test, err)

	select {
	case msg := <-msgC:
		assert.Equal(test, len(long), len(msg))
	case <-time.After(2 * time.Second):
		test.Fatal("no line")
	}
}

func TestLineHandler(test *testing.T) {
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))

	srv := server.New(server.WithHandlers(lineHandler(logger, true)))
	require.NoError(test, srv.Start("127.0.0.1:0"))

	out := make(chan string, 1)
	s, err := client.Dial(context.Background(), srv.Addr().String(),
		linesock.WithHandlers(linesock.HandleFunc(func(s *linesock.Socket, msg string) bool {
			out <- msg
			return true
		})))
	require.NoError(test, err)
	defer s.Close()

	require.NoError(test, s.Send(context.Background(), "ping"))
	select {
	case msg := <-out:
		assert.Equal(test, "ping", msg)
	case <-time.After(2 * time.Second):
		test.Fatal("no echo")
	}

	srv.Stop()
	assert.Contains(test, logs.String(), "line=ping")
}
