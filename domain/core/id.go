package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Handle is the opaque key under which a table is held in the table store.
type Handle string

// NewHandle creates a handle with a readable prefix ("upload", "merged", ...).
func NewHandle(prefix string) Handle {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return Handle(NewID())
	}
	return Handle(fmt.Sprintf("%s_%s", prefix, NewID()))
}

func (h Handle) String() string { return string(h) }

// ParseHandle validates a caller-supplied handle string
func ParseHandle(s string) (Handle, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: handle cannot be empty", ErrInvalidInput)
	}
	return Handle(s), nil
}
