package types

import (
	"time"

	"github.com/google/uuid"
)

// NewShelfID generates a UUIDv7 shelf identifier.
// Time-ordered IDs keep shelf listings in creation order without a sort column.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewShelfID() ShelfID {
	return ShelfID(uuid.Must(uuid.NewV7()).String())
}

// ParseShelfID validates and converts a string to ShelfID.
// Rejects malformed UUIDs to prevent invalid IDs from reaching the store.
func ParseShelfID(s string) (ShelfID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return ShelfID(s), nil
}

// ShelfIDTime extracts the timestamp embedded in a UUIDv7 ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func ShelfIDTime(id ShelfID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
