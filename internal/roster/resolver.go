package roster

import "stocksentinel-backend/internal/components/assert"

// Resolver resolves filing names against a read-only roster snapshot.
type Resolver struct {
	filers   []Filer
	strategy Strategy
}

// NewResolver takes ownership of `filers`, the slice must not be modified afterwards.
// An empty roster is valid, nothing will ever resolve.
func NewResolver(filers []Filer, strategy Strategy) Resolver {
	assert.NotNil(strategy)
	return Resolver{filers: filers, strategy: strategy}
}

// Resolve returns the unique filer matching the name, ok is false when nothing
// or more than one filer matches.
func (r Resolver) Resolve(first, last string) (Filer, bool) {
	return r.strategy.Match(first, last, r.filers)
}

// Size is the number of filers in the snapshot.
func (r Resolver) Size() int {
	return len(r.filers)
}
