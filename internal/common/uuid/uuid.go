package uuid

import "github.com/google/uuid"

// Generator implements service.IDGenerator using random (v4) UUIDs.
type Generator struct{}

func New() *Generator {
	return &Generator{}
}

// NewUUID returns a new UUID string.
func (g *Generator) NewUUID() string {
	return uuid.New().String()
}
