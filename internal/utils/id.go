package utils

import (
	"github.com/google/uuid"
)

// NewID returns a time-ordered identifier (UUIDv7) with the given prefix.
// IDs created later in the same process sort after earlier ones.
func NewID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	if prefix == "" {
		return id.String()
	}
	return prefix + "-" + id.String()
}
