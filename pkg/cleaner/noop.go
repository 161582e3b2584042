package cleaner

// NoopCleaner passes content through without modification.
// The clean command uses it for --raw to fingerprint unprocessed bytes.
type NoopCleaner struct{}

// NewNoop creates a new no-op cleaner.
func NewNoop() *NoopCleaner {
	return &NoopCleaner{}
}

// Clean returns the input unchanged.
func (c *NoopCleaner) Clean(content []byte) []byte {
	return content
}

// Name returns the cleaner type.
func (c *NoopCleaner) Name() string {
	return "noop"
}
