// Package middleware provides composable, OTel-instrumented wrappers
// around a single handler invocation, grounded on the reference
// stack's job-execution middleware chain.
package middleware
