// Package script lets problems be defined in JavaScript: a script
// supplies successors/isSolution (and optionally isPrunable) functions
// over JSON-compatible state values, and the package adapts them to the
// search engine's state contract. States carry plain data only, so any
// pooled runtime can evaluate any state.
package script

// Config controls script compilation and runtime pooling.
type Config struct {
	// PoolSize is how many JavaScript runtimes are kept for reuse.
	// Defaults to 4.
	PoolSize int

	// MaxSourceSize bounds the script length in bytes. Defaults to 64KB.
	MaxSourceSize int
}

// DefaultConfig returns the default script configuration.
func DefaultConfig() Config {
	return Config{
		PoolSize:      4,
		MaxSourceSize: 64 * 1024,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PoolSize <= 0 {
		c.PoolSize = d.PoolSize
	}
	if c.MaxSourceSize <= 0 {
		c.MaxSourceSize = d.MaxSourceSize
	}
	return c
}
