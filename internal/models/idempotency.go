package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IdempotencyRecord stores the first successful response produced for a
// client-supplied idempotency key. At most one record ever exists per key;
// ResponseBody holds the exact bytes the original caller received.
type IdempotencyRecord struct {
	Key            uuid.UUID       `json:"key" db:"key"`
	ResponseStatus int             `json:"response_status" db:"response_status"`
	ResponseBody   json.RawMessage `json:"response_body" db:"response_body"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}
