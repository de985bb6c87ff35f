package evbus

import "github.com/kestrel-ev/evbus/expander"

// Config holds the tunables that shape how a Bus builds its
// underlying dispatcher, set via functional Options rather than
// constructed directly.
type Config struct {
	// UseCompiledPlan selects the composed-closures plan-generation
	// strategy (dispatcher.WithCompiledPlan) instead of the default
	// interpreted plan.
	UseCompiledPlan bool

	// UseExpander, when true, backs the Bus with an expander.Expander
	// instead of a single dispatcher.Shard, removing
	// dispatcher.MaxMethods as a ceiling on registered handlers.
	UseExpander bool

	// ExpanderMaxPerShard caps the handlers packed into any one shard
	// an Expander produces. Only meaningful when UseExpander is true.
	ExpanderMaxPerShard int
}

// DefaultConfig returns a Config with sensible defaults: an
// interpreted plan, a single shard, no expansion.
func DefaultConfig() Config {
	return Config{
		UseCompiledPlan:     false,
		UseExpander:         false,
		ExpanderMaxPerShard: expander.DefaultMaxPerShard,
	}
}
