package contracts

import (
	"fmt"
	"strconv"
)

const (
	HeaderRetryCount  = "x-retry-count"
	HeaderDeathReason = "x-death-reason"

	ReasonMalformedPayload = "malformed payload"
)

// DLQName derives the dead letter queue for a work queue.
func DLQName(queue string) string {
	return queue + "_dlq"
}

// MaxRetriesReason annotates a message that exhausted its retries.
func MaxRetriesReason(kind string, err error) string {
	return fmt.Sprintf("Max retries exceeded - %s: %v", kind, err)
}

// DLQRecord describes a dead-lettered message as seen by an operator.
type DLQRecord struct {
	Queue      string `json:"queue"`
	MessageID  string `json:"message_id,omitempty"`
	Reason     string `json:"reason"`
	RetryCount int    `json:"retry_count"`
	AccessKey  string `json:"chave_acesso,omitempty"`
	BodyBytes  int    `json:"body_bytes"`
}

// RetryCountFrom reads the attempt counter from message headers. Absent or
// unreadable values count as zero.
func RetryCountFrom(headers map[string]any) int {
	raw, ok := headers[HeaderRetryCount]
	if !ok || raw == nil {
		return 0
	}
	switch v := raw.(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func DeathReasonFrom(headers map[string]any) string {
	if v, ok := headers[HeaderDeathReason].(string); ok {
		return v
	}
	return ""
}
