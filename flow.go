package recache

import (
	"github.com/google/uuid"
)

// FlowTokenGenerator produces the token that identifies one outermost
// call. Every log line and diagnostic the engine emits while resolving
// that call carries the same token, which makes interleaved output from
// separate top-level calls attributable.
type FlowTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 flow tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, making tokens
// sortable by creation time. This is helpful for debugging and trace
// inspection.
//
// Uses github.com/google/uuid package for RFC 4122 compliant UUIDs.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined flow tokens for testing.
//
// This enables deterministic test execution and golden trace comparison.
// Tests can provide a known sequence of tokens and verify exact output.
type FixedGenerator struct {
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order.
//
// Example:
//
//	gen := NewFixedGenerator("flow-1", "flow-2", "flow-3")
//	gen.Generate() // "flow-1"
//	gen.Generate() // "flow-2"
//	gen.Generate() // "flow-3"
//	gen.Generate() // panic: all tokens exhausted
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{
		tokens: tokens,
		idx:    0,
	}
}

// Generate returns the next predetermined token.
//
// Panics if all tokens have been consumed. This is a fail-fast approach
// to catch test misconfiguration (test made more outermost calls than
// expected).
func (g *FixedGenerator) Generate() string {
	if g.idx >= len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
