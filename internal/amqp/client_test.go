package amqp

import (
	"context"
	"testing"
	"time"
)

func TestNewDatasetReloadMessage(t *testing.T) {
	msg := NewDatasetReloadMessage("sqlite", 1234)

	if msg.Source != "sqlite" {
		t.Errorf("Source = %v, want sqlite", msg.Source)
	}
	if msg.RowCount != 1234 {
		t.Errorf("RowCount = %v, want 1234", msg.RowCount)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestDatasetReloadMessage_JSON(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &DatasetReloadMessage{
		Source:    "csv",
		RowCount:  42,
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := DatasetReloadMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("DatasetReloadMessageFromJSON() error = %v", err)
	}

	if parsed.Source != msg.Source {
		t.Errorf("Parsed Source = %v, want %v", parsed.Source, msg.Source)
	}
	if parsed.RowCount != msg.RowCount {
		t.Errorf("Parsed RowCount = %v, want %v", parsed.RowCount, msg.RowCount)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestDatasetReloadMessage_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"row_count": "not_a_number"}`)

	if _, err := DatasetReloadMessageFromJSON(invalidJSON); err == nil {
		t.Error("DatasetReloadMessageFromJSON() should fail with invalid JSON")
	}
}

func TestNilClientIsNoOp(t *testing.T) {
	var c *Client

	if err := c.PublishDatasetReload(context.Background(), "csv", 1); err != nil {
		t.Errorf("nil client publish should be a no-op, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("nil client close should be a no-op, got %v", err)
	}
}
