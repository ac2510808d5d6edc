package amqp

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"ledgersync/internal/core"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{63, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.want {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"refused", errors.New("dial tcp 127.0.0.1:5672: connect: connection refused"), true},
		{"closed", errors.New("Exception (504) Reason: \"channel/connection is not open\": connection closed"), true},
		{"eof", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed network", errors.New("use of closed network connection"), true},
		{"delivery channel", errors.New("message channel closed"), true},
		{"handler error", errors.New("analytics refresh failed"), false},
		{"auth", errors.New("Exception (403) Reason: \"ACCESS_REFUSED\""), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.want {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestImportCompletedMessageJSON(t *testing.T) {
	msg := NewImportCompletedMessage("alice", "jan.csv", "hash-jan", core.ImportStats{
		Processed: 10,
		Inserted:  4,
		Skipped:   6,
	})

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	got, err := ImportCompletedMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}
	if got.Owner != "alice" || got.FileName != "jan.csv" || got.FileHash != "hash-jan" {
		t.Errorf("round trip = %+v", got)
	}
	if got.Stats != msg.Stats {
		t.Errorf("Stats = %+v, want %+v", got.Stats, msg.Stats)
	}
	if !got.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, msg.Timestamp)
	}
}

func TestImportCompletedMessageFromJSON_Invalid(t *testing.T) {
	if _, err := ImportCompletedMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatal("FromJSON() on malformed payload returned nil error")
	}
}
