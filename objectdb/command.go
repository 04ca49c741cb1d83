package objectdb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Command struct {
	Name      string          `json:"name"`
	Uuid      string          `json:"uuid"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func newCommand(name string, payload any) (*Command, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("json encode payload: %w", err)
	}

	return &Command{
		Name:      name,
		Uuid:      uuid.New().String(),
		Timestamp: time.Now().UnixNano(),
		Payload:   data,
	}, nil
}

type headerPayload struct {
	Version int `json:"version"`
}

type putPayload struct {
	Classes []string       `json:"classes"`
	Key     string         `json:"key"`
	Value   map[string]any `json:"value"`
}

type deletePayload struct {
	Class string `json:"class"`
	Key   string `json:"key"`
}

type indexPayload struct {
	Class   string        `json:"class"`
	Options *IndexOptions `json:"options"`
}

type setPayload struct {
	Key   []string `json:"key"`
	Value any      `json:"value"`
}

type unsetPayload struct {
	Key []string `json:"key"`
}
