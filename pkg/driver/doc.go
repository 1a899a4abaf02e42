// Package driver turns a browser engine selection into a live browser
// session through an ordered chain of acquisition stages.
//
// # Stages
//
// Each stage is tried only if the previous one failed; the first success
// wins:
//
//  1. managed: playwright installs the engine's browser build and launches it
//  2. discovery: a previously downloaded Chromium binary is searched for in
//     the project drivers directory and the framework cache directories, and
//     launched through go-rod (Primary engine only)
//  3. native: the automation library resolves the browser on its own
//     (go-rod for Primary, playwright without install for the others)
//
// When every stage fails Acquire returns an *AcquisitionError listing each
// stage failure in order.
//
// # Session Reuse
//
// A Chain caches the first session it acquires and returns the same *Handle
// on every later Acquire, whatever engine is requested. Dispose quits the
// session exactly once and is terminal: Acquire on a disposed chain fails
// with ErrChainDisposed.
package driver
