package contracts

import (
	"encoding/json"
	"time"
)

const (
	EventDocumentPersisted = "nfe.document_persisted"
	EventTaxesCalculated   = "nfe.taxes_calculated"

	EventSchemaVersion = "1.0"
)

// EventEnvelope wraps every mirrored pipeline event.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	OccurredAt    string          `json:"occurred_at"`
	SourceService string          `json:"source_service"`
	SchemaVersion string          `json:"schema_version"`
	PartitionKey  string          `json:"partition_key"`
	Data          json.RawMessage `json:"data"`
}

func NewEventEnvelope(id, eventType, source, partitionKey string, occurredAt time.Time, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(EventEnvelope{
		EventID:       id,
		EventType:     eventType,
		OccurredAt:    occurredAt.UTC().Format(time.RFC3339),
		SourceService: source,
		SchemaVersion: EventSchemaVersion,
		PartitionKey:  partitionKey,
		Data:          raw,
	})
}
