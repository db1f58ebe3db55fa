// Package testing provides standardized tests and benchmarks for
// engine implementations that satisfy the db.Engine interface.
//
//   - RunEngineTests: Runs a standardized test suite to validate
//     implementations, covering the non-transactional operations, the
//     transaction lifecycle, staging isolation, conflict detection and
//     the concurrency guarantees of the commit protocol (disjoint
//     commits all win, overlapping commits elect exactly one winner,
//     racing commits of one transaction apply its writes at most once).
//   - RunEngineBenchmarks: Provides performance benchmarks for
//     comparing implementations.
//
// Both are parameterized by an EngineFactory so every implementation
// and configuration can be validated against the same expectations.
package testing
