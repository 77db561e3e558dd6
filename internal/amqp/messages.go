package amqp

import (
	"encoding/json"
	"fmt"

	"spendlog/internal/core"
)

// EncodeLedgerEvent serializes an event for the wire.
func EncodeLedgerEvent(event core.LedgerEvent) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal ledger event: %w", err)
	}
	return body, nil
}

// DecodeLedgerEvent parses an event from a delivery body.
func DecodeLedgerEvent(data []byte) (*core.LedgerEvent, error) {
	var event core.LedgerEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal ledger event: %w", err)
	}
	return &event, nil
}
