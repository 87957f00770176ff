package app

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/paynotify/internal/config"
)

func TestNewHTTPServiceAppliesTimeouts(t *testing.T) {
	svc := NewHTTPService(config.ServerConfig{
		Host:                "127.0.0.1",
		Port:                "0",
		ReadHeaderTimeoutMS: 1200,
		WriteTimeoutMS:      3000,
	}, http.NotFoundHandler())

	srv := svc.server
	if srv.Addr != "127.0.0.1:0" {
		t.Fatalf("unexpected addr: %q", srv.Addr)
	}
	if srv.ReadHeaderTimeout != 1200*time.Millisecond || srv.WriteTimeout != 3*time.Second {
		t.Fatalf("configured timeouts not applied: header=%v write=%v", srv.ReadHeaderTimeout, srv.WriteTimeout)
	}
	if srv.ReadTimeout != 15*time.Second || srv.IdleTimeout != time.Minute {
		t.Fatalf("unset timeouts should fall back: read=%v idle=%v", srv.ReadTimeout, srv.IdleTimeout)
	}
}

func TestNewHTTPServiceZeroConfigIsBounded(t *testing.T) {
	srv := NewHTTPService(config.ServerConfig{}, nil).server
	if srv.ReadHeaderTimeout <= 0 || srv.ReadTimeout <= 0 || srv.WriteTimeout <= 0 || srv.IdleTimeout <= 0 {
		t.Fatalf("server timeouts must never be zero: %+v", srv)
	}
}

func TestHTTPServiceStartStop(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	svc := NewHTTPService(config.ServerConfig{Host: "127.0.0.1", Port: "0"}, handler)
	bound := make(chan string, 1)
	svc.listen = func(addr string) (net.Listener, error) {
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			bound <- ln.Addr().String()
		}
		return ln, err
	}

	done := make(chan error, 1)
	go func() { done <- svc.Start(context.Background()) }()

	var addr string
	select {
	case addr = <-bound:
	case err := <-done:
		t.Fatalf("start failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not start listening")
	}

	resp, err := http.Get("http://" + addr + "/")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Fatalf("unexpected body: %q", body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("graceful stop should not surface an error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("start did not return after stop")
	}
}

func TestNormalizeOptionsShutdownTimeout(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{ShutdownTimeoutMS: 2500}}
	if got := normalizeOptions(Options{Config: cfg}).ShutdownTimeout; got != 2500*time.Millisecond {
		t.Fatalf("shutdown timeout should come from server config, got %v", got)
	}
	if got := normalizeOptions(Options{Config: cfg, ShutdownTimeout: time.Second}).ShutdownTimeout; got != time.Second {
		t.Fatalf("explicit shutdown timeout should win, got %v", got)
	}
	opts := normalizeOptions(Options{})
	if opts.ShutdownTimeout != 10*time.Second || opts.Mode != ModeAll || opts.Logger == nil {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}
