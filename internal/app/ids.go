package app

import "github.com/google/uuid"

// newSessionID returns a random UUIDv4 string.
func newSessionID() string {
	return uuid.NewString()
}

// validSessionID reports whether id could have come from newSessionID.
func validSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
