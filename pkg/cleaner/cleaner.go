// Package cleaner turns raw fetched page bytes into canonical content.
//
// Cleaning is a sequence of pure byte transformations. Each step is a Cleaner;
// a ChainCleaner composes them left to right. Canonical builds the fixed
// built-in pipeline followed by any extra steps, usually the patterns of a
// redaction rule set.
package cleaner

// Cleaner transforms content into a cleaner form.
// Implementations must be deterministic and must not retain the input.
type Cleaner interface {
	// Clean returns the transformed content.
	Clean(content []byte) []byte

	// Name returns the cleaner type for logging/debugging.
	Name() string
}

// Func adapts an ordinary function to the Cleaner interface.
type Func struct {
	name string
	fn   func([]byte) []byte
}

// NewFunc wraps fn as a named Cleaner.
func NewFunc(name string, fn func([]byte) []byte) *Func {
	return &Func{name: name, fn: fn}
}

// Clean applies the wrapped function.
func (f *Func) Clean(content []byte) []byte {
	return f.fn(content)
}

// Name returns the cleaner name.
func (f *Func) Name() string {
	return f.name
}
