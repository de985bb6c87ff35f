// Package hook provides the lifecycle observer registry: type-cached
// interfaces fanned out by a Registry, one method per lifecycle event.
package hook
