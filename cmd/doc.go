// Package cmd implements the command-line interface for the tKV
// transactional key-value store. Because tKV is a library, every
// command runs an engine inside the current process.
//
// The package is organized into several subpackages:
//
//   - shell: An interactive readline session against an engine
//   - demo: A narrated walk through the transaction semantics
//   - perf: Benchmarks of engine operations with latency percentiles
//   - util: Shared utilities for configuration, logging and engine
//     construction (internal use)
//
// See tkv -help for a list of all commands.
package cmd
