// Package orchestrator drives the lifecycle of a browser test run.
//
// A RunContext holds the services shared by the whole run: configuration,
// metrics collector, reporter, driver chain and logger. The Orchestrator
// exposes the four lifecycle hooks
//
//	OnRunStart -> (OnScenarioStart -> scenario body -> OnScenarioEnd)* -> OnRunEnd
//
// and gives every scenario a fresh Scope that owns its driver binding, test
// data and logger. Scope teardown runs on every exit path and its failures
// are logged, never propagated.
//
// Runner executes a list of Scenarios through the hooks, sequentially or on a
// pool of workers that each own a private browser session.
package orchestrator
