package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paynotify/internal/config"
	"github.com/paynotify/internal/queue"
)

func TestRelayPostsJSON(t *testing.T) {
	var got queue.NotifyDispatchPayload
	var requestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = r.Header.Get("X-Request-ID")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	svc := NewRelayService(config.RelayConfig{URL: server.URL, TimeoutMS: 2000}, nil)
	err := svc.Relay(context.Background(), queue.NotifyDispatchPayload{TradeNum: "ORDER-1", Amount: 100, RequestID: "req-9"})
	if err != nil {
		t.Fatalf("relay failed: %v", err)
	}
	if got.TradeNum != "ORDER-1" || got.Amount != 100 || requestID != "req-9" {
		t.Fatalf("unexpected downstream payload: %+v request_id=%s", got, requestID)
	}
}

func TestRelayStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{status: http.StatusBadRequest, want: ErrRelayRejected},
		{status: http.StatusInternalServerError, want: ErrRelayFailed},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		}))
		svc := NewRelayService(config.RelayConfig{URL: server.URL}, nil)
		err := svc.Relay(context.Background(), queue.NotifyDispatchPayload{TradeNum: "ORDER-1"})
		server.Close()
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d want %v got %v", tc.status, tc.want, err)
		}
	}
}

func TestRelayDisabled(t *testing.T) {
	svc := NewRelayService(config.RelayConfig{}, nil)
	if svc.Enabled() {
		t.Fatalf("relay without url should be disabled")
	}
	if err := svc.Relay(context.Background(), queue.NotifyDispatchPayload{}); !errors.Is(err, ErrRelayDisabled) {
		t.Fatalf("expected disabled error, got %v", err)
	}
}
