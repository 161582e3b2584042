package cleaner

import (
	"strings"
)

// ChainCleaner applies multiple cleaners in sequence.
// A later cleaner sees the output of every earlier one.
type ChainCleaner struct {
	cleaners []Cleaner
}

// NewChain creates a new cleaner that applies multiple cleaners in sequence.
// Cleaners are applied in the order provided.
//
// Example:
//
//	chain := cleaner.NewChain(
//	    cleaner.Scripts(),
//	    cleaner.Whitespace(),
//	)
func NewChain(cleaners ...Cleaner) *ChainCleaner {
	return &ChainCleaner{
		cleaners: cleaners,
	}
}

// Clean applies all cleaners in sequence.
func (c *ChainCleaner) Clean(content []byte) []byte {
	for _, cl := range c.cleaners {
		content = cl.Clean(content)
	}
	return content
}

// Append returns a new chain with extra cleaners after the existing ones.
// The receiver is not modified.
func (c *ChainCleaner) Append(extra ...Cleaner) *ChainCleaner {
	cleaners := make([]Cleaner, 0, len(c.cleaners)+len(extra))
	cleaners = append(cleaners, c.cleaners...)
	cleaners = append(cleaners, extra...)
	return &ChainCleaner{cleaners: cleaners}
}

// Len returns the number of steps in the chain.
func (c *ChainCleaner) Len() int {
	return len(c.cleaners)
}

// Name returns the names of all chained cleaners.
func (c *ChainCleaner) Name() string {
	names := make([]string, len(c.cleaners))
	for i, cl := range c.cleaners {
		names[i] = cl.Name()
	}
	return "chain(" + strings.Join(names, "->") + ")"
}
