// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

type stubServer struct {
	listenErr   error
	listenHold  chan struct{} // ListenAndServe blocks until closed
	shutdownErr error

	shutdowns atomic.Int32
}

func (s *stubServer) ListenAndServe() error {
	if s.listenHold != nil {
		<-s.listenHold
	}
	if s.listenErr != nil {
		return s.listenErr
	}
	return http.ErrServerClosed
}

func (s *stubServer) Shutdown(_ context.Context) error {
	s.shutdowns.Add(1)
	if s.listenHold != nil {
		close(s.listenHold)
	}
	return s.shutdownErr
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	server := &stubServer{listenHold: make(chan struct{})}
	svc := NewHTTPService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	if got := server.shutdowns.Load(); got != 1 {
		t.Errorf("Shutdown calls = %d, want 1", got)
	}
}

func TestHTTPServiceStartupFailure(t *testing.T) {
	server := &stubServer{listenErr: errors.New("address in use")}
	svc := NewHTTPService(server, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, server.listenErr) {
		t.Errorf("Serve() = %v, want wrapped listen error", err)
	}
}

func TestHTTPServiceShutdownFailure(t *testing.T) {
	server := &stubServer{
		listenHold:  make(chan struct{}),
		shutdownErr: errors.New("connections stuck"),
	}
	svc := NewHTTPService(server, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Serve(ctx)
	if err == nil || !errors.Is(err, server.shutdownErr) {
		t.Errorf("Serve() = %v, want wrapped shutdown error", err)
	}
}

type stubRunner struct {
	err error
}

func (r *stubRunner) Run(ctx context.Context) error {
	<-ctx.Done()
	if r.err != nil {
		return r.err
	}
	return ctx.Err()
}

func TestRunnerServiceDelegates(t *testing.T) {
	svc := NewRunnerService(&stubRunner{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if svc.String() != "job-runner" {
		t.Errorf("String() = %q, want job-runner", svc.String())
	}
}
