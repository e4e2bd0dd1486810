package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DatasetReloadMessage announces that a new dataset snapshot was imported.
// Consumers reload their source; the message carries no rows.
type DatasetReloadMessage struct {
	ID        uuid.UUID `json:"id"`
	Source    string    `json:"source"`
	Rows      int       `json:"rows"`
	Timestamp time.Time `json:"timestamp"`
}

func NewDatasetReloadMessage(source string, rows int) *DatasetReloadMessage {
	return &DatasetReloadMessage{
		ID:        uuid.New(),
		Source:    source,
		Rows:      rows,
		Timestamp: time.Now().UTC(),
	}
}

func (m *DatasetReloadMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DatasetReloadMessageFromJSON(data []byte) (*DatasetReloadMessage, error) {
	var msg DatasetReloadMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
