// Package embedded provides a bridge that runs code in an engine hosted
// inside this process.
//
// The engine is loaded and driven by a single dedicated worker goroutine
// locked to its OS thread, so engines with thread-bound state only ever see
// one thread. Calls are handed to the worker one at a time:
//
//   - A call whose timeout expires before the worker picks it up never runs.
//   - A call whose timeout expires while running keeps running; the caller
//     gets a timeout result and the next call waits for the worker.
//
// Engines report output by writing to Env.Stdout and Env.Stderr and binding
// Env.Result. Engines that can only print may instead emit a single
// {"_result_": value} line on stdout.
package embedded
