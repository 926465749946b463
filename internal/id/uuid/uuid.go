// Package uuid generates and validates run identifiers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates time-ordered UUIDv7 run IDs.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUIDv7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// Static always returns the same ID. It lets callers pin a run ID supplied on
// the command line.
type Static string

// NewID returns the pinned ID.
func (s Static) NewID() (string, error) {
	return string(s), nil
}

// Validate checks that id is a canonical UUID string.
func Validate(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", id, err)
	}
	if parsed.String() != id {
		return fmt.Errorf("invalid run id %q: use the canonical lower-case form", id)
	}
	return nil
}
