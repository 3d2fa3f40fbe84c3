package testutil

// FixedIDGenerator generates the same collection ID every time.
//
// Log output and traces that mention collection IDs are then identical
// across runs, which golden comparison relies on.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a fixed ID generator.
// If id is empty, Generate() returns "test-collection".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-collection"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed ID.
//
// Implements collection.IDGenerator.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
