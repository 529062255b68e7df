// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package linesock provides a line-oriented socket over a connected byte stream.
//
// After startup the socket runs an event loop of two parts: the writing loop
// drains a bounded queue and writes each message followed by a newline, the
// reading loop reads newline delimited messages and passes each one to every
// registered handler.
//
// Send blocks while the write queue is full, this is the only backpressure
// between producers and the connection. Either loop failing, the peer closing
// the connection, or a call to Close ends both loops, the only visible
// signal is IsActive turning false (and StopD being signaled).
//
// The transport is any io.ReadWriteCloser, usually a net.Conn; WebsocketStream
// adapts a websocket connection. Establishing the connection is left to the
// caller, see the client and server packages.
//
// Here is a quick example, includes client and server.
//
// Client
//
//	func client() {
//		conn, err := net.Dial("tcp", TheAddr)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		s := linesock.New(linesock.WithQueueSize(QueueSize))
//		s.AddHandler(linesock.HandleFunc(func(s *linesock.Socket, msg string) bool {
//			log.Printf("client receive message: %v", msg)
//			if msg == "bye" {
//				s.Close()
//			}
//			return true
//		}))
//		if err := s.Start(conn); err != nil {
//			log.Fatal(err)
//		}
//
//		s.Send(context.Background(), "hello")
//		s.Send(context.Background(), "bye")
//
//		<-s.StopD()
//		log.Printf("client stop, error: %v", s.Error())
//	}
//
// Server
//
//	func server() {
//		l, err := net.Listen("tcp", TheAddr)
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer l.Close()
//
//		echo := linesock.HandleFunc(func(s *linesock.Socket, msg string) bool {
//			s.Send(context.Background(), msg)
//			return true
//		})
//
//		for {
//			conn, err := l.Accept()
//			if err != nil {
//				log.Fatal(err)
//			}
//
//			s := linesock.New(linesock.WithHandlers(echo))
//			s.Start(conn)
//		}
//	}
package linesock
