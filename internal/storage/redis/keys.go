package redis

import (
	"fmt"

	"github.com/mcoot/captain-draft/internal/model"
)

// Key prefix for all draft data
const keyPrefix = "captaindraft"

// resultKey returns the Redis key for an archived DraftResult
func resultKey(id model.SessionID) string {
	return fmt.Sprintf("%s:result:%s", keyPrefix, id)
}
