package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a ULID string. Mail events use it as their id so that
// consumers can order and deduplicate by creation time.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
