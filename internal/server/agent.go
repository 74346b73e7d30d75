package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ServeAgent answers HAProxy agent checks on addr: every connection gets
// "ready" while a search slot is free and "drain" otherwise.
func (s *Server) ServeAgent(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("agent listen on %s: %w", addr, err)
	}
	return s.serveAgent(ctx, ln)
}

func (s *Server) serveAgent(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	s.logger.Info("agent check listening", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("agent accept failed", "error", err)
			continue
		}
		go s.answerAgent(conn)
	}
}

func (s *Server) answerAgent(conn net.Conn) {
	defer conn.Close()
	reply := "ready\n"
	if s.Busy() {
		reply = "drain\n"
	}
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	if _, err := conn.Write([]byte(reply)); err != nil {
		s.logger.Debug("agent write failed", "error", err)
	}
}
