package amqp

import (
	"encoding/json"
	"time"
)

// DatasetReloadMessage tells the server its backing dataset changed. The
// payload carries only metadata; the server re-reads the store itself.
type DatasetReloadMessage struct {
	Source    string    `json:"source"`
	RowCount  int       `json:"row_count"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDatasetReloadMessage creates a reload notification.
func NewDatasetReloadMessage(source string, rowCount int) *DatasetReloadMessage {
	return &DatasetReloadMessage{
		Source:    source,
		RowCount:  rowCount,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DatasetReloadMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetReloadMessageFromJSON creates a message from JSON bytes
func DatasetReloadMessageFromJSON(data []byte) (*DatasetReloadMessage, error) {
	var msg DatasetReloadMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
