package amqp

import (
	"encoding/json"
	"time"

	"ledgersync/internal/core"
)

// ImportCompletedMessage notifies workers that a file import committed. The
// worker re-reads the store, so the message only carries identifiers and the
// stats for logging.
type ImportCompletedMessage struct {
	Owner     string           `json:"owner"`
	FileName  string           `json:"file_name"`
	FileHash  string           `json:"file_hash"`
	Stats     core.ImportStats `json:"stats"`
	Timestamp time.Time        `json:"timestamp"`
}

func NewImportCompletedMessage(owner, fileName, fileHash string, stats core.ImportStats) *ImportCompletedMessage {
	return &ImportCompletedMessage{
		Owner:     owner,
		FileName:  fileName,
		FileHash:  fileHash,
		Stats:     stats,
		Timestamp: time.Now(),
	}
}

func (m *ImportCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ImportCompletedMessageFromJSON(data []byte) (*ImportCompletedMessage, error) {
	var msg ImportCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
