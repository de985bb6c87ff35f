// Package dispatcher implements the specialized, runtime-generated
// event dispatcher at the core of evbus: a Shard analyzes its
// registered handlers at Bind time and produces a flat, branch-pruned
// plan tailored to that exact handler set, rather than re-walking a
// generic registry on every Post.
//
// Two plan-generation strategies are supported and must behave
// identically: the default interpreted plan (a []step walked by
// runSteps at Post time) and the composed-closures plan, opted into
// with WithCompiledPlan, which folds the same per-step decisions into
// nested closures once at Bind time.
package dispatcher
